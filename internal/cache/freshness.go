package cache

import (
	"time"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

// StalenessThreshold is how many calendar days a cached series may trail
// today before it must be refetched.
func StalenessThreshold(interval models.Interval) int {
	switch interval {
	case models.IntervalWeekly:
		return 10
	case models.IntervalMonthly:
		return 35
	default:
		return 3
	}
}

// PeriodFor is the history requested from the provider for an interval.
func PeriodFor(interval models.Interval) string {
	switch interval {
	case models.IntervalWeekly, models.IntervalMonthly:
		return models.PeriodFiveYears
	default:
		return models.PeriodTwoYears
	}
}

// IsFresh reports whether a series ending at lastBar can still be served at
// now. Bar times carry the trading date in their UTC calendar fields; today is
// taken in the market location. The threshold boundary itself is fresh.
func IsFresh(lastBar, now time.Time, interval models.Interval, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -StalenessThreshold(interval))
	return !tradingDate(lastBar).Before(cutoff)
}

func tradingDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekStart returns the Monday of the week containing t.
func weekStart(t time.Time) time.Time {
	d := tradingDate(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
