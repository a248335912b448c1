// Package postgres writes change records straight into PostgreSQL over a
// pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"dolarwatch/internal/model"
)

// Schema creates the change table when missing. Numeric columns keep the
// exact decimal value.
const Schema = `
CREATE TABLE IF NOT EXISTS cotizaciones (
	id          BIGSERIAL PRIMARY KEY,
	dolar_name  TEXT          NOT NULL,
	compra      NUMERIC(20,4) NOT NULL,
	venta       NUMERIC(20,4) NOT NULL,
	diff_compra NUMERIC(20,4) NOT NULL,
	diff_venta  NUMERIC(20,4) NOT NULL,
	pct_compra  NUMERIC(10,2) NOT NULL,
	pct_venta   NUMERIC(10,2) NOT NULL,
	timestamp   TIMESTAMPTZ   NOT NULL
);`

const insertSQL = `
INSERT INTO cotizaciones (dolar_name, compra, venta, diff_compra, diff_venta, pct_compra, pct_venta, timestamp)
VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8)`

// Sink implements model.HistorySink.
type Sink struct {
	Pool *pgxpool.Pool
}

// Connect opens a pool and makes sure the table exists.
func Connect(ctx context.Context, dsn string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: schema: %w", err)
	}
	return &Sink{Pool: pool}, nil
}

func (s *Sink) Name() string { return "postgres" }

// Write inserts one row.
func (s *Sink) Write(ctx context.Context, rec model.ChangeRecord) error {
	_, err := s.Pool.Exec(ctx, insertSQL,
		string(rec.Instrument),
		rec.Buy.String(), rec.Sell.String(),
		rec.DiffBuy.String(), rec.DiffSell.String(),
		rec.PctBuy.String(), rec.PctSell.String(),
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", rec.Instrument, err)
	}
	return nil
}

// Recent returns the newest n records, newest first.
func (s *Sink) Recent(ctx context.Context, n int) ([]model.ChangeRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT dolar_name, compra::text, venta::text, diff_compra::text, diff_venta::text,
		       pct_compra::text, pct_venta::text, timestamp
		FROM cotizaciones ORDER BY timestamp DESC, id DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("postgres: query recent: %w", err)
	}
	defer rows.Close()

	var out []model.ChangeRecord
	for rows.Next() {
		var name string
		var buy, sell, dBuy, dSell, pBuy, pSell string
		var rec model.ChangeRecord
		if err := rows.Scan(&name, &buy, &sell, &dBuy, &dSell, &pBuy, &pSell, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		rec.Instrument = model.Instrument(name)
		vals := []*decimal.Decimal{&rec.Buy, &rec.Sell, &rec.DiffBuy, &rec.DiffSell, &rec.PctBuy, &rec.PctSell}
		for i, raw := range []string{buy, sell, dBuy, dSell, pBuy, pSell} {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("postgres: parse numeric %q: %w", raw, err)
			}
			*vals[i] = d
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Ping checks connectivity for health reporting.
func (s *Sink) Ping(ctx context.Context) error { return s.Pool.Ping(ctx) }

// Close releases the pool.
func (s *Sink) Close() { s.Pool.Close() }
