package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"dolarwatch/internal/model"
	"dolarwatch/internal/store/jsonfile"
)

// jsonEntry is one element of an instrument's history sequence.
type jsonEntry struct {
	Timestamp string          `json:"timestamp"`
	Buy       decimal.Decimal `json:"compra"`
	Sell      decimal.Decimal `json:"venta"`
	DiffBuy   decimal.Decimal `json:"diff_compra"`
	DiffSell  decimal.Decimal `json:"diff_venta"`
	PctBuy    decimal.Decimal `json:"pct_compra"`
	PctSell   decimal.Decimal `json:"pct_venta"`
}

// JSONLogSink keeps the structured history file: one append-only sequence
// of entries per instrument, {"blue": [{...}, {...}], "oficial": [...]}.
type JSONLogSink struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewJSONLogSink creates the structured history sink.
func NewJSONLogSink(path string, logger *slog.Logger) *JSONLogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLogSink{path: path, logger: logger.With(slog.String("sink", "json"))}
}

func (s *JSONLogSink) Name() string { return "json" }

// Write appends rec under its instrument key and rewrites the file atomically.
func (s *JSONLogSink) Write(_ context.Context, rec model.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := map[model.Instrument][]jsonEntry{}
	if _, err := jsonfile.ReadJSON(s.path, &all); err != nil {
		if !jsonfile.IsCorrupt(err) {
			return err
		}
		moved, qerr := jsonfile.Quarantine(s.path, time.Now())
		if qerr != nil {
			return qerr
		}
		s.logger.Warn("history file unreadable, moved aside and restarted", "path", s.path, "moved_to", moved, "error", err)
		all = map[model.Instrument][]jsonEntry{}
	}

	all[rec.Instrument] = append(all[rec.Instrument], jsonEntry{
		Timestamp: rec.TimestampString(),
		Buy:       rec.Buy,
		Sell:      rec.Sell,
		DiffBuy:   rec.DiffBuy,
		DiffSell:  rec.DiffSell,
		PctBuy:    rec.PctBuy,
		PctSell:   rec.PctSell,
	})
	return jsonfile.WriteJSON(s.path, all)
}
