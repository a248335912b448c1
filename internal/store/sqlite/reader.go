package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dolarwatch/internal/model"
)

// Reader provides read-only access to the ledger.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	return &Reader{db: db}, nil
}

// Recent returns the newest n records, newest first. An empty instrument
// means all instruments.
func (r *Reader) Recent(ctx context.Context, inst model.Instrument, n int) ([]model.ChangeRecord, error) {
	q := `SELECT dolar_name, timestamp, compra, venta, diff_compra, diff_venta, pct_compra, pct_venta
		FROM change_records`
	args := []any{}
	if inst != "" {
		q += ` WHERE dolar_name = ?`
		args = append(args, string(inst))
	}
	q += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, n)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query change_records: %w", err)
	}
	defer rows.Close()

	var out []model.ChangeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Since returns every record at or after t, oldest first.
func (r *Reader) Since(ctx context.Context, t time.Time) ([]model.ChangeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dolar_name, timestamp, compra, venta, diff_compra, diff_venta, pct_compra, pct_venta
		FROM change_records WHERE ts >= ? ORDER BY ts ASC, id ASC
	`, t.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query change_records: %w", err)
	}
	defer rows.Close()

	var out []model.ChangeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (model.ChangeRecord, error) {
	var (
		rec  model.ChangeRecord
		name string
		ts   string
		nums [6]string
	)
	if err := rows.Scan(&name, &ts, &nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5]); err != nil {
		return rec, fmt.Errorf("sqlite scan change_records: %w", err)
	}
	rec.Instrument = model.Instrument(name)
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return rec, fmt.Errorf("sqlite parse timestamp %q: %w", ts, err)
	}
	rec.Timestamp = t
	dst := []*decimal.Decimal{&rec.Buy, &rec.Sell, &rec.DiffBuy, &rec.DiffSell, &rec.PctBuy, &rec.PctSell}
	for i, raw := range nums {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return rec, fmt.Errorf("sqlite parse decimal %q: %w", raw, err)
		}
		*dst[i] = d
	}
	return rec, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
