// Package indicators derives moving averages, deviations, slopes and ATR
// from a price series. Everything here is pure and safe for concurrent use.
package indicators

import (
	"math"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

// MAWindows are the close moving-average windows.
var MAWindows = []int{5, 20, 50, 200}

// ATRPeriod is the averaging window of the true range.
const ATRPeriod = 14

// EnrichedSeries carries indicator columns aligned 1:1 with Bars.
type EnrichedSeries struct {
	Bars models.Series

	ma        map[int]Column
	deviation map[int]Column
	slope     map[int]Column

	VolumeMA50  Column
	VolumeMA200 Column
	TrueRange   Column
	ATR14       Column
}

// Len is the number of bars.
func (e *EnrichedSeries) Len() int { return len(e.Bars) }

// MA returns the close moving average for window w, nil for unknown windows.
func (e *EnrichedSeries) MA(w int) Column { return e.ma[w] }

// Deviation returns (close-MA)/MA*100 for window w.
func (e *EnrichedSeries) Deviation(w int) Column { return e.deviation[w] }

// Slope returns (MA[t]-MA[t-1])/close[t]*10000 for window w.
func (e *EnrichedSeries) Slope(w int) Column { return e.slope[w] }

// Close returns the close at index i.
func (e *EnrichedSeries) Close(i int) Value {
	if i < 0 || i >= len(e.Bars) {
		return Value{}
	}
	return Some(e.Bars[i].Close)
}

// Enrich computes every indicator column for series at full precision.
// Leading bars without enough history are left undefined.
func Enrich(series models.Series) *EnrichedSeries {
	closes := series.Closes()
	volumes := make([]float64, len(series))
	for i, b := range series {
		volumes[i] = float64(b.Volume)
	}

	e := &EnrichedSeries{
		Bars:      series,
		ma:        make(map[int]Column, len(MAWindows)),
		deviation: make(map[int]Column, len(MAWindows)),
		slope:     make(map[int]Column, len(MAWindows)),
	}

	for _, w := range MAWindows {
		ma := rollingMean(closes, w)
		e.ma[w] = ma
		e.deviation[w] = deviation(closes, ma)
		e.slope[w] = slope(closes, ma)
	}

	e.VolumeMA50 = rollingMean(volumes, 50)
	e.VolumeMA200 = rollingMean(volumes, 200)

	e.TrueRange = trueRange(series)
	e.ATR14 = rollingMeanColumn(e.TrueRange, ATRPeriod)

	return e
}

func rollingMean(xs []float64, window int) Column {
	out := make(Column, len(xs))
	for i := window - 1; i < len(xs); i++ {
		var sum float64
		for _, x := range xs[i-window+1 : i+1] {
			sum += x
		}
		out[i] = Some(sum / float64(window))
	}
	return out
}

func rollingMeanColumn(c Column, window int) Column {
	out := make(Column, len(c))
	for i := window - 1; i < len(c); i++ {
		var sum float64
		ok := true
		for _, v := range c[i-window+1 : i+1] {
			if !v.Valid {
				ok = false
				break
			}
			sum += v.V
		}
		if ok {
			out[i] = Some(sum / float64(window))
		}
	}
	return out
}

func deviation(closes []float64, ma Column) Column {
	out := make(Column, len(closes))
	for i, c := range closes {
		m := ma[i]
		if !m.Valid || m.V == 0 {
			continue
		}
		out[i] = Some((c - m.V) / m.V * 100)
	}
	return out
}

func slope(closes []float64, ma Column) Column {
	out := make(Column, len(closes))
	for i := 1; i < len(closes); i++ {
		cur, prev := ma[i], ma[i-1]
		if !cur.Valid || !prev.Valid || closes[i] == 0 {
			continue
		}
		out[i] = Some((cur.V - prev.V) / closes[i] * 10000)
	}
	return out
}

func trueRange(series models.Series) Column {
	out := make(Column, len(series))
	for i, b := range series {
		r := b.High - b.Low
		if i > 0 {
			prev := series[i-1].Close
			r = math.Max(r, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		out[i] = Some(r)
	}
	return out
}
