package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dolarwatch/internal/model"
)

// CSVHeader is written once, when the file is created.
var CSVHeader = []string{"timestamp", "dolar_name", "compra", "venta", "diff_compra", "diff_venta", "pct_compra", "pct_venta"}

// CSVLogSink appends one row per change record to the tabular history file.
type CSVLogSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVLogSink creates the tabular history sink.
func NewCSVLogSink(path string) *CSVLogSink {
	return &CSVLogSink{path: path}
}

func (s *CSVLogSink) Name() string { return "csv" }

// Write appends rec, preceded by the header if the file is new or empty.
func (s *CSVLogSink) Write(_ context.Context, rec model.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("csv mkdir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("csv open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("csv stat: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(CSVHeader); err != nil {
			return fmt.Errorf("csv header: %w", err)
		}
	}
	if err := w.Write(csvRow(rec)); err != nil {
		return fmt.Errorf("csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return f.Sync()
}

func csvRow(rec model.ChangeRecord) []string {
	return []string{
		rec.TimestampString(),
		string(rec.Instrument),
		rec.Buy.String(),
		rec.Sell.String(),
		rec.DiffBuy.String(),
		rec.DiffSell.String(),
		rec.PctBuy.String(),
		rec.PctSell.String(),
	}
}
