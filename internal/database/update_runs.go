package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

// RecordRun stores a finished update run and sets its ID.
func (db *DB) RecordRun(ctx context.Context, r *models.RunRecord) error {
	query := `
		INSERT INTO update_runs (started_at, finished_at, status, message, processed, total, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := db.conn.QueryRowContext(ctx, query,
		r.StartedAt, r.FinishedAt, string(r.Status), r.Message, r.Processed, r.Total, r.Failed,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to record update run: %w", err)
	}
	return nil
}

// LastCompletedRun returns the finish time of the newest completed run, or
// nil when no run has completed yet.
func (db *DB) LastCompletedRun(ctx context.Context) (*time.Time, error) {
	var finished time.Time
	err := db.conn.QueryRowContext(ctx, `
		SELECT finished_at FROM update_runs
		WHERE status = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`, string(models.RunCompleted)).Scan(&finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last completed run: %w", err)
	}
	return &finished, nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, started_at, finished_at, status, message, processed, total, failed
		FROM update_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query update runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		var r models.RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Message, &r.Processed, &r.Total, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan update run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate update runs: %w", err)
	}
	return runs, nil
}
