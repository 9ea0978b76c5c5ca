package models

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrEmptyData is returned when a provider answers without usable bars.
	ErrEmptyData = errors.New("empty series data")
	// ErrNotFound is returned by stores for unknown symbols.
	ErrNotFound = errors.New("not found")
)

// Interval is the bar width of a series.
type Interval string

const (
	IntervalDaily   Interval = "1d"
	IntervalWeekly  Interval = "1wk"
	IntervalMonthly Interval = "1mo"
)

// CachedIntervals lists every interval a symbol may have records for.
var CachedIntervals = []Interval{IntervalDaily, IntervalWeekly, IntervalMonthly}

// Valid reports whether i is one of the supported intervals.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// Provider range strings.
const (
	PeriodOneMonth  = "1mo"
	PeriodTwoYears  = "2y"
	PeriodFiveYears = "5y"
)

// Bar is one OHLCV observation.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is an oldest-first sequence of bars for one symbol and interval.
type Series []Bar

// Normalize returns a copy sorted by time with duplicate timestamps removed.
// When two bars share a timestamp the later one in the input wins.
func (s Series) Normalize() Series {
	if len(s) == 0 {
		return Series{}
	}
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(b.Time) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped
}

// Closes returns the close column.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the newest bar and false when the series is empty.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// CacheRecord is a stored series plus the time it was fetched.
type CacheRecord struct {
	Symbol    string    `json:"symbol"`
	Interval  Interval  `json:"interval"`
	Series    Series    `json:"series"`
	FetchedAt time.Time `json:"fetched_at"`
}
