package signals

import (
	"github.com/trogers1052/stock-signal-service/internal/indicators"
	"github.com/trogers1052/stock-signal-service/internal/models"
)

const (
	near200MAMaxDeviation = 40.0
	ma200TrendThreshold   = 2.0
	slopeAlignTolerance   = 0.2
	volumeSurgeRatio      = 1.3
	priceUpRatio          = 1.01
	lowVolatilityATRPct   = 3.0
	momentumMinSlope5     = 20.0
	momentumMaxDev5       = 10.0
	momentumMaxDev200     = 30.0
	momentumMaxDev20      = 20.0
	reboundLookback       = 5
	baseWindow            = 10
	baseVolumeWindow      = 20
	baseMaxRange          = 0.05
)

func last(e *indicators.EnrichedSeries) int { return e.Len() - 1 }

func higher200MA(e *indicators.EnrichedSeries) models.Outcome {
	t := last(e)
	c, ma := e.Close(t), e.MA(200).At(t)
	if !defined(c, ma) {
		return models.OutcomeInsufficient
	}
	return models.OutcomeOf(c.V > ma.V)
}

func near200MA(e *indicators.EnrichedSeries) models.Outcome {
	dev := e.Deviation(200).Last()
	if !dev.Valid {
		return models.OutcomeInsufficient
	}
	return models.OutcomeOf(dev.V <= near200MAMaxDeviation)
}

func over50MA(e *indicators.EnrichedSeries) models.Outcome {
	t := last(e)
	c, ma := e.Close(t), e.MA(50).At(t)
	if !defined(c, ma) {
		return models.OutcomeInsufficient
	}
	return models.OutcomeOf(c.V > ma.V)
}

func stackedMAs(e *indicators.EnrichedSeries) models.Outcome {
	ma5, ma20, ma50, ma200 := e.MA(5).Last(), e.MA(20).Last(), e.MA(50).Last(), e.MA(200).Last()
	if !defined(ma5, ma20, ma50, ma200) {
		return models.OutcomeInsufficient
	}
	return models.OutcomeOf(ma5.V > ma20.V && ma20.V > ma50.V && ma50.V > ma200.V)
}

func ma200TrendingUp(e *indicators.EnrichedSeries) models.Outcome {
	t := last(e)
	cur, prev := e.MA(200).At(t), e.MA(200).At(t-1)
	if !defined(cur, prev) {
		return models.OutcomeInsufficient
	}
	if prev.V == 0 {
		return models.OutcomeFalse
	}
	return models.OutcomeOf((cur.V-prev.V)/prev.V*1000 > ma200TrendThreshold)
}

func slopesAligned50200(e *indicators.EnrichedSeries) models.Outcome {
	s50, s200 := e.Slope(50).Last(), e.Slope(200).Last()
	if !defined(s50, s200) {
		return models.OutcomeInsufficient
	}
	if s200.V <= 0 {
		return models.OutcomeFalse
	}
	diff := s200.V - s50.V
	if diff < 0 {
		diff = -diff
	}
	return models.OutcomeOf(diff/s200.V <= slopeAlignTolerance)
}

func allTimeHigh(e *indicators.EnrichedSeries) models.Outcome {
	return highOver(e, e.Len())
}

func newHigh(n int) Predicate {
	return func(e *indicators.EnrichedSeries) models.Outcome {
		if e.Len() < n {
			return models.OutcomeInsufficient
		}
		return highOver(e, n)
	}
}

func highOver(e *indicators.EnrichedSeries, n int) models.Outcome {
	bars := e.Bars[e.Len()-n:]
	maxClose := bars[0].Close
	for _, b := range bars[1:] {
		if b.Close > maxClose {
			maxClose = b.Close
		}
	}
	return models.OutcomeOf(bars[len(bars)-1].Close == maxClose)
}

func volumeSurge(e *indicators.EnrichedSeries) models.Outcome {
	volMA := e.VolumeMA50.Last()
	if !volMA.Valid {
		return models.OutcomeInsufficient
	}
	vol := float64(e.Bars[last(e)].Volume)
	return models.OutcomeOf(vol >= volumeSurgeRatio*volMA.V)
}

func priceUp1Pct(e *indicators.EnrichedSeries) models.Outcome {
	t := last(e)
	if t < 1 {
		return models.OutcomeInsufficient
	}
	return models.OutcomeOf(e.Bars[t].Close > e.Bars[t-1].Close*priceUpRatio)
}

func breakoutWithLowVolatility(e *indicators.EnrichedSeries) models.Outcome {
	t := last(e)
	atr := e.ATR14.At(t)
	if t < 1 || !atr.Valid {
		return models.OutcomeInsufficient
	}
	c, prev := e.Bars[t].Close, e.Bars[t-1].Close
	if c == 0 || prev == 0 {
		return models.OutcomeFalse
	}
	atrPct := atr.V / c * 100
	ret := (c - prev) / prev * 100
	return models.OutcomeOf(atrPct <= lowVolatilityATRPct && ret > atrPct)
}

func strong5MAMomentum(e *indicators.EnrichedSeries) models.Outcome {
	s5 := e.Slope(5).Last()
	d5, d20, d200 := e.Deviation(5).Last(), e.Deviation(20).Last(), e.Deviation(200).Last()
	if !defined(s5, d5, d20, d200) {
		return models.OutcomeInsufficient
	}
	own := models.OutcomeOf(
		s5.V >= momentumMinSlope5 &&
			d5.V < momentumMaxDev5 &&
			d200.V <= momentumMaxDev200 &&
			d20.V <= momentumMaxDev20,
	)
	return all(own, ma200TrendingUp(e), stackedMAs(e))
}

func reboundFrom5MA(e *indicators.EnrichedSeries) models.Outcome {
	t := last(e)
	now, before := e.Slope(5).At(t), e.Slope(5).At(t-reboundLookback)
	c, ma := e.Close(t), e.MA(5).At(t)
	if !defined(now, before, c, ma) {
		return models.OutcomeInsufficient
	}
	return models.OutcomeOf(now.V > 0 && before.V < 0 && c.V > ma.V)
}

func baseFormation(e *indicators.EnrichedSeries) models.Outcome {
	n := e.Len()
	if n < baseWindow+baseVolumeWindow {
		return models.OutcomeInsufficient
	}
	recent := e.Bars[n-baseWindow:]
	preceding := e.Bars[n-baseWindow-baseVolumeWindow : n-baseWindow]

	lo, hi := recent[0].Close, recent[0].Close
	for _, b := range recent[1:] {
		if b.Close < lo {
			lo = b.Close
		}
		if b.Close > hi {
			hi = b.Close
		}
	}
	if lo <= 0 {
		return models.OutcomeFalse
	}
	tight := (hi-lo)/lo <= baseMaxRange

	return models.OutcomeOf(tight && meanVolume(recent) < meanVolume(preceding))
}

func meanVolume(bars models.Series) float64 {
	var sum float64
	for _, b := range bars {
		sum += float64(b.Volume)
	}
	return sum / float64(len(bars))
}
