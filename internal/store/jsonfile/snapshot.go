package jsonfile

import (
	"log/slog"
	"sync"
	"time"

	"dolarwatch/internal/model"
)

// SnapshotStore keeps the last-observed snapshot in a single JSON file:
// {"oficial": {"compra": 350, "venta": 360}, ...}
type SnapshotStore struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewSnapshotStore creates a store backed by path.
func NewSnapshotStore(path string, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{path: path, logger: logger.With(slog.String("component", "snapshot_store"))}
}

// Load returns the stored snapshot. A missing or corrupt file yields an
// empty snapshot; corruption is logged and the file is moved aside.
func (s *SnapshotStore) Load() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := model.Snapshot{}
	if _, err := ReadJSON(s.path, &snap); err != nil {
		s.handleReadError(err)
		return model.Snapshot{}
	}
	return snap
}

// Save replaces the stored snapshot.
func (s *SnapshotStore) Save(snap model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteJSON(s.path, snap)
}

func (s *SnapshotStore) handleReadError(err error) {
	attrs := []any{"path", s.path, "error", err}
	if IsCorrupt(err) {
		if moved, qerr := Quarantine(s.path, time.Now()); qerr == nil {
			attrs = append(attrs, "moved_to", moved)
		}
	}
	s.logger.Warn("snapshot file unreadable, starting from empty snapshot", attrs...)
}
