// Package sqlite keeps a local SQL ledger of change records.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"dolarwatch/internal/model"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/dolarwatch.db"
}

// Writer is a single-connection SQLite ledger. It implements model.HistorySink.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig, logger *slog.Logger) (*Writer, error) {
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	if logger != nil {
		logger.Info("sqlite ledger opened", "component", "sqlite", "path", cfg.DBPath)
	}
	return &Writer{db: db}, nil
}

func open(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
}

// Decimals are stored as TEXT so they round-trip exactly.
func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS change_records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			dolar_name  TEXT    NOT NULL,
			ts          INTEGER NOT NULL,
			timestamp   TEXT    NOT NULL,
			compra      TEXT    NOT NULL,
			venta       TEXT    NOT NULL,
			diff_compra TEXT    NOT NULL,
			diff_venta  TEXT    NOT NULL,
			pct_compra  TEXT    NOT NULL,
			pct_venta   TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_change_records_name_ts ON change_records (dolar_name, ts);
	`)
	return err
}

func (w *Writer) Name() string { return "sqlite" }

// Write appends one record.
func (w *Writer) Write(ctx context.Context, rec model.ChangeRecord) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO change_records (dolar_name, ts, timestamp, compra, venta, diff_compra, diff_venta, pct_compra, pct_venta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(rec.Instrument), rec.Timestamp.Unix(), rec.TimestampString(),
		rec.Buy.String(), rec.Sell.String(),
		rec.DiffBuy.String(), rec.DiffSell.String(),
		rec.PctBuy.String(), rec.PctSell.String())
	if err != nil {
		return fmt.Errorf("sqlite insert %s: %w", rec.Instrument, err)
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
