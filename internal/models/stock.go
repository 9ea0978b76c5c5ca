package models

import (
	"strings"
	"time"
)

// AssetType tags the class of an instrument.
type AssetType string

const (
	AssetEquity AssetType = "equity"
	AssetETF    AssetType = "etf"
	AssetIndex  AssetType = "index"
	AssetFund   AssetType = "fund"
)

// Event types published on the snapshot topic and read from the stock topic.
const (
	EventSnapshotUpdated = "SNAPSHOT_UPDATED"
	EventRunCompleted    = "UPDATE_RUN_COMPLETED"
	EventStockRemoved    = "STOCK_REMOVED"
)

// StockEvent represents a Kafka event for stock changes
type StockEvent struct {
	EventType  string      `json:"event_type"`
	Instrument *Instrument `json:"instrument,omitempty"`
	Run        *RunRecord  `json:"run,omitempty"`
	Symbol     string      `json:"symbol"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Descriptive holds the metadata backfilled from the lookup service.
type Descriptive struct {
	Name     string `json:"name,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Complete reports whether no descriptive field is blank.
func (d Descriptive) Complete() bool {
	return !blank(d.Name) && !blank(d.Sector) && !blank(d.Industry)
}

// MergeDescriptive resolves the metadata of an instrument from what is stored
// and what a lookup returned. A stored value always wins unless it is blank,
// in which case a non-blank candidate value is taken.
func MergeDescriptive(existing, candidate Descriptive) Descriptive {
	return Descriptive{
		Name:     pick(existing.Name, candidate.Name),
		Sector:   pick(existing.Sector, candidate.Sector),
		Industry: pick(existing.Industry, candidate.Industry),
	}
}

func pick(existing, candidate string) string {
	if !blank(existing) {
		return existing
	}
	if !blank(candidate) {
		return strings.TrimSpace(candidate)
	}
	return existing
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Snapshot is the last computed state of an instrument. Nil pointers mean the
// value could not be computed from the available history.
type Snapshot struct {
	CurrentPrice *float64 `json:"current_price"`

	ChangePct1D   *float64 `json:"change_pct_1d"`
	ChangePct5D   *float64 `json:"change_pct_5d"`
	ChangePct20D  *float64 `json:"change_pct_20d"`
	ChangePct50D  *float64 `json:"change_pct_50d"`
	ChangePct200D *float64 `json:"change_pct_200d"`

	DeviationMA5   *float64 `json:"deviation_ma5"`
	DeviationMA20  *float64 `json:"deviation_ma20"`
	DeviationMA50  *float64 `json:"deviation_ma50"`
	DeviationMA200 *float64 `json:"deviation_ma200"`

	SlopeMA5   *float64 `json:"slope_ma5"`
	SlopeMA20  *float64 `json:"slope_ma20"`
	SlopeMA50  *float64 `json:"slope_ma50"`
	SlopeMA200 *float64 `json:"slope_ma200"`

	ATR14 *float64 `json:"atr_14"`

	RS5D   *float64 `json:"rs_5d"`
	RS20D  *float64 `json:"rs_20d"`
	RS50D  *float64 `json:"rs_50d"`
	RS200D *float64 `json:"rs_200d"`

	IsInUptrend bool                   `json:"is_in_uptrend"`
	Signals     map[SignalName]Outcome `json:"signals"`
	ComputedAt  *time.Time             `json:"computed_at"`
}

// Instrument is a tracked symbol and its last computed snapshot.
type Instrument struct {
	Symbol    string    `json:"symbol"`
	AssetType AssetType `json:"asset_type"`

	Descriptive

	Snapshot  Snapshot  `json:"snapshot"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
