package orchestrator

import (
	"time"

	"github.com/trogers1052/stock-signal-service/internal/indicators"
	"github.com/trogers1052/stock-signal-service/internal/models"
	"github.com/trogers1052/stock-signal-service/internal/performance"
	"github.com/trogers1052/stock-signal-service/internal/signals"
)

// BuildSnapshot computes the full snapshot of one instrument from its daily
// series. bench may be nil, leaving relative strength unset.
func BuildSnapshot(series models.Series, bench *performance.Benchmark, now time.Time) models.Snapshot {
	e := indicators.Enrich(series)

	snap := models.Snapshot{
		DeviationMA5:   e.Deviation(5).Last().Rounded().Ptr(),
		DeviationMA20:  e.Deviation(20).Last().Rounded().Ptr(),
		DeviationMA50:  e.Deviation(50).Last().Rounded().Ptr(),
		DeviationMA200: e.Deviation(200).Last().Rounded().Ptr(),
		SlopeMA5:       e.Slope(5).Last().Rounded().Ptr(),
		SlopeMA20:      e.Slope(20).Last().Rounded().Ptr(),
		SlopeMA50:      e.Slope(50).Last().Rounded().Ptr(),
		SlopeMA200:     e.Slope(200).Last().Rounded().Ptr(),
		ATR14:          e.ATR14.Last().Rounded().Ptr(),
		IsInUptrend:    inUptrend(e),
		Signals:        signals.Evaluate(e),
	}
	if last, ok := series.Last(); ok {
		price := last.Close
		snap.CurrentPrice = &price
	}

	changes := performance.Changes(series)
	performance.Apply(&snap, changes, performance.Compare(changes, bench))

	computed := now
	snap.ComputedAt = &computed
	return snap
}

// inUptrend is true when the 200-period average is rising and the last close
// sits above it.
func inUptrend(e *indicators.EnrichedSeries) bool {
	i := e.Len() - 1
	ma := e.MA(200).At(i)
	slope := e.Slope(200).At(i)
	last := e.Close(i)
	if !ma.Valid || !slope.Valid || !last.Valid {
		return false
	}
	return slope.V > 0 && last.V > ma.V
}
