// Package performance computes windowed percentage changes and the
// benchmark-relative strength derived from them.
package performance

import (
	"github.com/trogers1052/stock-signal-service/internal/indicators"
	"github.com/trogers1052/stock-signal-service/internal/models"
)

// ChangeWindows are the lookbacks reported as percentage change.
var ChangeWindows = []int{1, 5, 20, 50, 200}

// StrengthWindows are the lookbacks compared against the benchmark.
var StrengthWindows = []int{5, 20, 50, 200}

// WindowChanges maps a lookback to its percentage change. Missing keys are
// windows the series was too short for.
type WindowChanges map[int]float64

// WindowStrength maps a lookback to instrument change minus benchmark change.
type WindowStrength map[int]float64

// ChangePct returns (c[t]-c[t-n])/c[t-n]*100 rounded to two places. It is
// undefined with fewer than n+1 closes or a zero base.
func ChangePct(closes []float64, n int) (float64, bool) {
	if n < 1 || len(closes) < n+1 {
		return 0, false
	}
	cur, base := closes[len(closes)-1], closes[len(closes)-1-n]
	if base == 0 {
		return 0, false
	}
	return indicators.Round((cur - base) / base * 100), true
}

// Changes computes ChangePct for every change window.
func Changes(series models.Series) WindowChanges {
	closes := series.Closes()
	out := make(WindowChanges, len(ChangeWindows))
	for _, n := range ChangeWindows {
		if v, ok := ChangePct(closes, n); ok {
			out[n] = v
		}
	}
	return out
}

// Get returns the change for window n.
func (c WindowChanges) Get(n int) (float64, bool) {
	v, ok := c[n]
	return v, ok
}

// RelativeStrength is the flat difference of two percentage changes.
func RelativeStrength(instrumentChangePct, benchmarkChangePct float64) float64 {
	return indicators.Round(instrumentChangePct - benchmarkChangePct)
}

// Compare computes relative strength per strength window. A window is left
// out when either side lacks it, and a nil benchmark yields an empty result.
func Compare(instrument WindowChanges, benchmark *Benchmark) WindowStrength {
	out := make(WindowStrength, len(StrengthWindows))
	if benchmark == nil {
		return out
	}
	for _, n := range StrengthWindows {
		inst, ok := instrument[n]
		if !ok {
			continue
		}
		bench, ok := benchmark.Changes[n]
		if !ok {
			continue
		}
		out[n] = RelativeStrength(inst, bench)
	}
	return out
}

// Benchmark holds the broad-market changes loaded once per run.
type Benchmark struct {
	Symbol  string
	Changes WindowChanges
}

// NewBenchmark computes the benchmark changes from its series.
func NewBenchmark(symbol string, series models.Series) *Benchmark {
	return &Benchmark{Symbol: symbol, Changes: Changes(series)}
}

func ptr(m map[int]float64, n int) *float64 {
	v, ok := m[n]
	if !ok {
		return nil
	}
	return &v
}

// Apply writes the changes and strengths into a snapshot.
func Apply(s *models.Snapshot, changes WindowChanges, strength WindowStrength) {
	s.ChangePct1D = ptr(changes, 1)
	s.ChangePct5D = ptr(changes, 5)
	s.ChangePct20D = ptr(changes, 20)
	s.ChangePct50D = ptr(changes, 50)
	s.ChangePct200D = ptr(changes, 200)

	s.RS5D = ptr(strength, 5)
	s.RS20D = ptr(strength, 20)
	s.RS50D = ptr(strength, 50)
	s.RS200D = ptr(strength, 200)
}
