package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/stock-signal-service/internal/models"
)

const instrumentColumns = `
	symbol, asset_type, name, sector, industry,
	current_price, change_pct_1d, change_pct_5d, change_pct_20d, change_pct_50d, change_pct_200d,
	deviation_ma5, deviation_ma20, deviation_ma50, deviation_ma200,
	slope_ma5, slope_ma20, slope_ma50, slope_ma200,
	atr_14, rs_5d, rs_20d, rs_50d, rs_200d,
	is_in_uptrend, signals, computed_at, created_at, updated_at`

const upsertInstrumentQuery = `
	INSERT INTO instruments (` + instrumentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	        $21, $22, $23, $24, $25, $26, $27, $28, $29)
	ON CONFLICT (symbol) DO UPDATE SET
		asset_type = EXCLUDED.asset_type,
		name = EXCLUDED.name,
		sector = EXCLUDED.sector,
		industry = EXCLUDED.industry,
		current_price = EXCLUDED.current_price,
		change_pct_1d = EXCLUDED.change_pct_1d,
		change_pct_5d = EXCLUDED.change_pct_5d,
		change_pct_20d = EXCLUDED.change_pct_20d,
		change_pct_50d = EXCLUDED.change_pct_50d,
		change_pct_200d = EXCLUDED.change_pct_200d,
		deviation_ma5 = EXCLUDED.deviation_ma5,
		deviation_ma20 = EXCLUDED.deviation_ma20,
		deviation_ma50 = EXCLUDED.deviation_ma50,
		deviation_ma200 = EXCLUDED.deviation_ma200,
		slope_ma5 = EXCLUDED.slope_ma5,
		slope_ma20 = EXCLUDED.slope_ma20,
		slope_ma50 = EXCLUDED.slope_ma50,
		slope_ma200 = EXCLUDED.slope_ma200,
		atr_14 = EXCLUDED.atr_14,
		rs_5d = EXCLUDED.rs_5d,
		rs_20d = EXCLUDED.rs_20d,
		rs_50d = EXCLUDED.rs_50d,
		rs_200d = EXCLUDED.rs_200d,
		is_in_uptrend = EXCLUDED.is_in_uptrend,
		signals = EXCLUDED.signals,
		computed_at = EXCLUDED.computed_at,
		updated_at = EXCLUDED.updated_at
`

// updateSnapshotQuery refreshes an existing row and never inserts. Its
// parameters are instrumentArgs without created_at.
const updateSnapshotQuery = `
	UPDATE instruments SET
		asset_type = $2, name = $3, sector = $4, industry = $5,
		current_price = $6, change_pct_1d = $7, change_pct_5d = $8, change_pct_20d = $9,
		change_pct_50d = $10, change_pct_200d = $11,
		deviation_ma5 = $12, deviation_ma20 = $13, deviation_ma50 = $14, deviation_ma200 = $15,
		slope_ma5 = $16, slope_ma20 = $17, slope_ma50 = $18, slope_ma200 = $19,
		atr_14 = $20, rs_5d = $21, rs_20d = $22, rs_50d = $23, rs_200d = $24,
		is_in_uptrend = $25, signals = $26, computed_at = $27, updated_at = $28
	WHERE symbol = $1
`

// createdAtArg is the position of created_at in instrumentArgs.
const createdAtArg = 27

// snapshotFields lists the nullable numeric snapshot fields in column order.
func snapshotFields(s *models.Snapshot) []**float64 {
	return []**float64{
		&s.CurrentPrice,
		&s.ChangePct1D, &s.ChangePct5D, &s.ChangePct20D, &s.ChangePct50D, &s.ChangePct200D,
		&s.DeviationMA5, &s.DeviationMA20, &s.DeviationMA50, &s.DeviationMA200,
		&s.SlopeMA5, &s.SlopeMA20, &s.SlopeMA50, &s.SlopeMA200,
		&s.ATR14,
		&s.RS5D, &s.RS20D, &s.RS50D, &s.RS200D,
	}
}

func instrumentArgs(inst *models.Instrument) ([]any, error) {
	signals := inst.Snapshot.Signals
	if signals == nil {
		signals = map[models.SignalName]models.Outcome{}
	}
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signals for %s: %w", inst.Symbol, err)
	}

	assetType := inst.AssetType
	if assetType == "" {
		assetType = models.AssetEquity
	}

	args := []any{
		inst.Symbol, assetType,
		nullString(inst.Name), nullString(inst.Sector), nullString(inst.Industry),
	}
	for _, f := range snapshotFields(&inst.Snapshot) {
		args = append(args, *f)
	}
	args = append(args,
		inst.Snapshot.IsInUptrend,
		string(signalsJSON),
		inst.Snapshot.ComputedAt,
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	return args, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstrument(row rowScanner) (*models.Instrument, error) {
	var inst models.Instrument
	var name, sector, industry sql.NullString
	var signalsJSON []byte
	var computedAt sql.NullTime

	fields := snapshotFields(&inst.Snapshot)
	nums := make([]sql.NullFloat64, len(fields))

	dest := []any{&inst.Symbol, &inst.AssetType, &name, &sector, &industry}
	for i := range nums {
		dest = append(dest, &nums[i])
	}
	dest = append(dest, &inst.Snapshot.IsInUptrend, &signalsJSON, &computedAt, &inst.CreatedAt, &inst.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	inst.Name = name.String
	inst.Sector = sector.String
	inst.Industry = industry.String
	for i, f := range fields {
		if nums[i].Valid {
			v := nums[i].Float64
			*f = &v
		}
	}
	if computedAt.Valid {
		inst.Snapshot.ComputedAt = &computedAt.Time
	}
	if len(signalsJSON) > 0 {
		if err := json.Unmarshal(signalsJSON, &inst.Snapshot.Signals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signals for %s: %w", inst.Symbol, err)
		}
	}
	return &inst, nil
}

func stampInstrument(inst *models.Instrument, now time.Time) {
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now
}

// ListAll returns every tracked instrument ordered by symbol.
func (db *DB) ListAll(ctx context.Context) ([]*models.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments ORDER BY symbol ASC`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	var instruments []*models.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instruments: %w", err)
	}
	return instruments, nil
}

// Get returns one instrument. Unknown symbols wrap models.ErrNotFound.
func (db *DB) Get(ctx context.Context, symbol string) (*models.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM instruments WHERE symbol = $1`
	inst, err := scanInstrument(db.conn.QueryRowContext(ctx, query, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instrument %w: %s", models.ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}
	return inst, nil
}

// Save upserts one instrument.
func (db *DB) Save(ctx context.Context, inst *models.Instrument) error {
	stampInstrument(inst, time.Now())
	args, err := instrumentArgs(inst)
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx, upsertInstrumentQuery, args...); err != nil {
		return fmt.Errorf("failed to save instrument: %w", err)
	}
	return nil
}

// SaveBatch writes refreshed snapshots of existing instruments in a single
// transaction. Instruments deleted after they were read are skipped, not
// recreated.
func (db *DB) SaveBatch(ctx context.Context, instruments []*models.Instrument) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, updateSnapshotQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, inst := range instruments {
		stampInstrument(inst, now)
		args, err := instrumentArgs(inst)
		if err != nil {
			return err
		}
		args = append(args[:createdAtArg], args[createdAtArg+1:]...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to save instrument %s: %w", inst.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes an instrument.
func (db *DB) Delete(ctx context.Context, symbol string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM instruments WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("failed to delete instrument: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("instrument %w: %s", models.ErrNotFound, symbol)
	}
	return nil
}
