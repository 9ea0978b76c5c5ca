package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-signal-service/internal/models"
)

// LoadSeries returns the cached series for symbol and interval, or nil when
// nothing is stored.
func (db *DB) LoadSeries(ctx context.Context, symbol string, interval models.Interval) (*models.CacheRecord, error) {
	rec := &models.CacheRecord{Symbol: symbol, Interval: interval}

	err := db.conn.QueryRowContext(ctx,
		`SELECT fetched_at FROM series_cache WHERE symbol = $1 AND bar_interval = $2`,
		symbol, string(interval),
	).Scan(&rec.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series cache entry: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume
		FROM series_bars
		WHERE symbol = $1 AND bar_interval = $2
		ORDER BY ts ASC
	`, symbol, string(interval))
	if err != nil {
		return nil, fmt.Errorf("failed to query series bars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts time.Time
		var open, high, low, closePrice decimal.Decimal
		var volume int64
		if err := rows.Scan(&ts, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan series bar: %w", err)
		}
		rec.Series = append(rec.Series, models.Bar{
			Time:   ts.UTC(),
			Open:   open.InexactFloat64(),
			High:   high.InexactFloat64(),
			Low:    low.InexactFloat64(),
			Close:  closePrice.InexactFloat64(),
			Volume: volume,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate series bars: %w", err)
	}
	return rec, nil
}

// StoreSeries replaces the stored series for the record's symbol and interval.
func (db *DB) StoreSeries(ctx context.Context, rec *models.CacheRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO series_cache (symbol, bar_interval, fetched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, bar_interval) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at
	`, rec.Symbol, string(rec.Interval), rec.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert series cache entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM series_bars WHERE symbol = $1 AND bar_interval = $2`,
		rec.Symbol, string(rec.Interval),
	)
	if err != nil {
		return fmt.Errorf("failed to clear series bars: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO series_bars (symbol, bar_interval, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range rec.Series {
		_, err := stmt.ExecContext(ctx,
			rec.Symbol, string(rec.Interval), b.Time,
			decimal.NewFromFloat(b.Open), decimal.NewFromFloat(b.High),
			decimal.NewFromFloat(b.Low), decimal.NewFromFloat(b.Close),
			b.Volume,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bar for %s: %w", rec.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteSeries drops every cached interval of symbol. Bars go with their
// cache entry through the foreign key cascade.
func (db *DB) DeleteSeries(ctx context.Context, symbol string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM series_cache WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("failed to delete series cache: %w", err)
	}
	return nil
}
