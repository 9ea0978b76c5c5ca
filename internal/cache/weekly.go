package cache

import "github.com/trogers1052/stock-signal-service/internal/models"

// CorrectWeekly rebuilds the current week's bar from daily bars. The last
// weekly bar is replaced when it belongs to the same week as the newest daily
// bar, and a new bar is appended when the week has rolled over. The inputs
// are not modified.
func CorrectWeekly(weekly, daily models.Series) models.Series {
	lastDaily, ok := daily.Last()
	if !ok || len(weekly) == 0 {
		return weekly
	}

	start := weekStart(lastDaily.Time)
	var agg models.Bar
	n := 0
	for _, b := range daily {
		if tradingDate(b.Time).Before(start) {
			continue
		}
		if n == 0 {
			agg = models.Bar{Time: start, Open: b.Open, High: b.High, Low: b.Low}
		}
		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
		agg.Close = b.Close
		agg.Volume += b.Volume
		n++
	}
	if n == 0 {
		return weekly
	}

	out := make(models.Series, len(weekly), len(weekly)+1)
	copy(out, weekly)

	last := out[len(out)-1]
	lastWeek := weekStart(last.Time)
	switch {
	case lastWeek.Equal(start):
		agg.Time = last.Time
		out[len(out)-1] = agg
	case lastWeek.Before(start):
		out = append(out, agg)
	}
	return out
}
