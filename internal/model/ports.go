package model

import (
	"context"
	"time"
)

// ── Ports ──
// These interfaces decouple the tick pipeline from concrete adapters
// (HTTP provider, JSON files, remote databases, messaging bots).

// QuoteSource fetches the current quotes. A failed fetch means "no update
// this tick", never a fatal condition.
type QuoteSource interface {
	Fetch(ctx context.Context) (QuoteSet, error)
}

// SnapshotStore persists the single last-observed snapshot.
type SnapshotStore interface {
	// Load returns an empty snapshot when the file is missing or corrupt.
	Load() Snapshot

	// Save fully replaces the stored snapshot.
	Save(s Snapshot) error
}

// DailyOpenStore keeps the first snapshot observed on each calendar day.
type DailyOpenStore interface {
	// GetOrInitToday stores current under today's date if no entry exists yet
	// and returns the entry for today.
	GetOrInitToday(now time.Time, current Snapshot) (Snapshot, error)

	// Get returns the entry for the day containing t, if any.
	Get(t time.Time) (Snapshot, bool)
}

// HistorySink is one independent durable destination for change records.
type HistorySink interface {
	Name() string
	Write(ctx context.Context, rec ChangeRecord) error
}
