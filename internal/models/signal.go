package models

import "fmt"

// SignalName identifies one entry of the fixed signal catalogue.
type SignalName string

const (
	SignalHigher200MA               SignalName = "higher_200ma"
	SignalNear200MA                 SignalName = "near_200ma"
	SignalOver50MA                  SignalName = "over_50ma"
	SignalStackedMAs                SignalName = "stacked_mas"
	SignalMA200TrendingUp           SignalName = "ma200_trending_up"
	SignalSlopesAligned50200        SignalName = "slopes_aligned_50_200"
	SignalAllTimeHigh               SignalName = "all_time_high"
	SignalNewHigh50                 SignalName = "new_high_50"
	SignalNewHigh100                SignalName = "new_high_100"
	SignalNewHigh200                SignalName = "new_high_200"
	SignalVolumeSurge               SignalName = "volume_surge"
	SignalPriceUp1Pct               SignalName = "price_up_1pct"
	SignalBreakoutWithLowVolatility SignalName = "breakout_with_low_volatility"
	SignalStrong5MAMomentum         SignalName = "strong_5ma_momentum"
	SignalReboundFrom5MA            SignalName = "rebound_from_5ma"
	SignalBaseFormation             SignalName = "base_formation"
)

// Outcome is the tri-state result of a signal.
type Outcome int8

const (
	OutcomeInsufficient Outcome = iota - 1
	OutcomeFalse
	OutcomeTrue
)

// OutcomeOf converts a predicate result.
func OutcomeOf(b bool) Outcome {
	if b {
		return OutcomeTrue
	}
	return OutcomeFalse
}

func (o Outcome) String() string {
	switch o {
	case OutcomeTrue:
		return "true"
	case OutcomeFalse:
		return "false"
	default:
		return "insufficient_data"
	}
}

// MarshalText encodes the outcome as "true", "false" or "insufficient_data".
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes the values written by MarshalText.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "true":
		*o = OutcomeTrue
	case "false":
		*o = OutcomeFalse
	case "insufficient_data":
		*o = OutcomeInsufficient
	default:
		return fmt.Errorf("invalid signal outcome: %q", string(text))
	}
	return nil
}
