package jsonfile

import (
	"log/slog"
	"sync"
	"time"

	"dolarwatch/internal/model"
)

const dateLayout = "2006-01-02"

// DailyOpenStore keeps the first snapshot observed on every calendar day:
// {"2026-10-15": {"oficial": {"compra": 350, "venta": 360}}, ...}
//
// An existing date key is never overwritten.
type DailyOpenStore struct {
	path   string
	loc    *time.Location
	logger *slog.Logger

	// mu covers the whole read-check-write so two callers on the same day
	// cannot both see the key as absent.
	mu sync.Mutex
}

// NewDailyOpenStore creates a store whose calendar days are taken in loc.
func NewDailyOpenStore(path string, loc *time.Location, logger *slog.Logger) *DailyOpenStore {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyOpenStore{path: path, loc: loc, logger: logger.With(slog.String("component", "daily_open_store"))}
}

// DateKey returns the calendar date of t in the store's location.
func (s *DailyOpenStore) DateKey(t time.Time) string {
	return t.In(s.loc).Format(dateLayout)
}

// GetOrInitToday returns today's opening snapshot, storing current as the
// opening snapshot if today has none yet. If persisting fails the error is
// returned together with current, which is what the day's entry would be.
func (s *DailyOpenStore) GetOrInitToday(now time.Time, current model.Snapshot) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.DateKey(now)
	all := s.load()
	if existing, ok := all[key]; ok {
		return existing.Clone(), nil
	}

	all[key] = current.Clone()
	if err := WriteJSON(s.path, all); err != nil {
		return current.Clone(), err
	}
	s.logger.Info("captured daily open", "date", key, "instruments", len(current))
	return current.Clone(), nil
}

// Get returns the opening snapshot for the day containing t.
func (s *DailyOpenStore) Get(t time.Time) (model.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.load()[s.DateKey(t)]
	if !ok {
		return nil, false
	}
	return snap.Clone(), true
}

// All returns every stored day.
func (s *DailyOpenStore) All() map[string]model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *DailyOpenStore) load() map[string]model.Snapshot {
	all := map[string]model.Snapshot{}
	if _, err := ReadJSON(s.path, &all); err != nil {
		attrs := []any{"path", s.path, "error", err}
		if IsCorrupt(err) {
			if moved, qerr := Quarantine(s.path, time.Now()); qerr == nil {
				attrs = append(attrs, "moved_to", moved)
			}
		}
		s.logger.Warn("daily open file unreadable, starting from empty history", attrs...)
		return map[string]model.Snapshot{}
	}
	return all
}
