// Package signals evaluates the fixed catalogue of trading signals against
// the latest bar of an enriched series.
package signals

import (
	"github.com/trogers1052/stock-signal-service/internal/indicators"
	"github.com/trogers1052/stock-signal-service/internal/models"
)

// Predicate computes one signal outcome.
type Predicate func(e *indicators.EnrichedSeries) models.Outcome

// Signal binds a catalogue name to its rule.
type Signal struct {
	Name      models.SignalName
	Predicate Predicate
}

// Registry is the complete signal catalogue in evaluation order.
var Registry = []Signal{
	{models.SignalHigher200MA, higher200MA},
	{models.SignalNear200MA, near200MA},
	{models.SignalOver50MA, over50MA},
	{models.SignalStackedMAs, stackedMAs},
	{models.SignalMA200TrendingUp, ma200TrendingUp},
	{models.SignalSlopesAligned50200, slopesAligned50200},
	{models.SignalAllTimeHigh, allTimeHigh},
	{models.SignalNewHigh50, newHigh(50)},
	{models.SignalNewHigh100, newHigh(100)},
	{models.SignalNewHigh200, newHigh(200)},
	{models.SignalVolumeSurge, volumeSurge},
	{models.SignalPriceUp1Pct, priceUp1Pct},
	{models.SignalBreakoutWithLowVolatility, breakoutWithLowVolatility},
	{models.SignalStrong5MAMomentum, strong5MAMomentum},
	{models.SignalReboundFrom5MA, reboundFrom5MA},
	{models.SignalBaseFormation, baseFormation},
}

// Names returns the catalogue names in registry order.
func Names() []models.SignalName {
	names := make([]models.SignalName, len(Registry))
	for i, s := range Registry {
		names[i] = s.Name
	}
	return names
}

// Evaluate runs every registered signal and returns a fresh outcome map.
func Evaluate(e *indicators.EnrichedSeries) map[models.SignalName]models.Outcome {
	out := make(map[models.SignalName]models.Outcome, len(Registry))
	for _, s := range Registry {
		if e == nil || e.Len() == 0 {
			out[s.Name] = models.OutcomeInsufficient
			continue
		}
		out[s.Name] = s.Predicate(e)
	}
	return out
}

// all combines outcomes: insufficient wins over false, false over true.
func all(outcomes ...models.Outcome) models.Outcome {
	result := models.OutcomeTrue
	for _, o := range outcomes {
		switch o {
		case models.OutcomeInsufficient:
			return models.OutcomeInsufficient
		case models.OutcomeFalse:
			result = models.OutcomeFalse
		}
	}
	return result
}

// defined reports whether every value has enough history.
func defined(vals ...indicators.Value) bool {
	for _, v := range vals {
		if !v.Valid {
			return false
		}
	}
	return true
}
