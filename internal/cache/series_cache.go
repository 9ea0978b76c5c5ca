// Package cache serves price series from a record store, refetching from the
// market-data provider when the stored copy has gone stale.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-signal-service/internal/models"
)

// Provider fetches raw series from the market-data source.
type Provider interface {
	FetchSeries(ctx context.Context, symbol string, interval models.Interval, period string) (models.Series, error)
}

// RecordStore persists cache records. LoadSeries returns nil, nil on a miss.
type RecordStore interface {
	LoadSeries(ctx context.Context, symbol string, interval models.Interval) (*models.CacheRecord, error)
	StoreSeries(ctx context.Context, rec *models.CacheRecord) error
	DeleteSeries(ctx context.Context, symbol string) error
}

// SeriesCache is safe for concurrent use if its store and provider are.
type SeriesCache struct {
	store    RecordStore
	provider Provider
	loc      *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

// NewSeriesCache creates a SeriesCache. loc is the market timezone used to
// decide what "today" is.
func NewSeriesCache(store RecordStore, provider Provider, loc *time.Location, logger zerolog.Logger) *SeriesCache {
	if loc == nil {
		loc = time.UTC
	}
	return &SeriesCache{
		store:    store,
		provider: provider,
		loc:      loc,
		now:      time.Now,
		logger:   logger.With().Str("component", "series_cache").Logger(),
	}
}

// Get returns the series for symbol at interval. Unless forceRefresh is set a
// fresh stored record is served; otherwise the provider is called and the
// result stored. Empty provider results wrap models.ErrEmptyData.
func (c *SeriesCache) Get(ctx context.Context, symbol string, interval models.Interval, forceRefresh bool) (models.Series, error) {
	if !interval.Valid() {
		return nil, fmt.Errorf("unsupported interval: %q", interval)
	}

	if !forceRefresh {
		if series, ok := c.cached(ctx, symbol, interval); ok {
			if interval == models.IntervalWeekly {
				series = c.correctWeekly(ctx, symbol, series)
			}
			return series, nil
		}
	}

	series, err := c.provider.FetchSeries(ctx, symbol, interval, PeriodFor(interval))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s %s series: %w", symbol, interval, err)
	}
	series = series.Normalize()
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: %s %s", models.ErrEmptyData, symbol, interval)
	}
	if interval == models.IntervalWeekly {
		series = c.correctWeekly(ctx, symbol, series)
	}

	rec := &models.CacheRecord{
		Symbol:    symbol,
		Interval:  interval,
		Series:    series,
		FetchedAt: c.now(),
	}
	if err := c.store.StoreSeries(ctx, rec); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Str("interval", string(interval)).Msg("failed to store series")
	}
	return series, nil
}

// Delete removes every cached interval of symbol. Deleting an absent symbol
// is not an error.
func (c *SeriesCache) Delete(ctx context.Context, symbol string) error {
	if err := c.store.DeleteSeries(ctx, symbol); err != nil {
		return fmt.Errorf("failed to delete cached series for %s: %w", symbol, err)
	}
	c.logger.Debug().Str("symbol", symbol).Msg("cached series deleted")
	return nil
}

func (c *SeriesCache) cached(ctx context.Context, symbol string, interval models.Interval) (models.Series, bool) {
	rec, err := c.store.LoadSeries(ctx, symbol, interval)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Str("interval", string(interval)).Msg("failed to load cached series")
		return nil, false
	}
	if rec == nil {
		return nil, false
	}
	last, ok := rec.Series.Last()
	if !ok || !IsFresh(last.Time, c.now(), interval, c.loc) {
		return nil, false
	}
	return rec.Series, true
}

func (c *SeriesCache) correctWeekly(ctx context.Context, symbol string, weekly models.Series) models.Series {
	daily, err := c.provider.FetchSeries(ctx, symbol, models.IntervalDaily, models.PeriodOneMonth)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("weekly bar correction skipped")
		return weekly
	}
	return CorrectWeekly(weekly, daily.Normalize())
}
