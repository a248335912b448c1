package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"dolarwatch/internal/breaker"
	"dolarwatch/internal/model"
)

// BufferedSink guards a remote sink with a circuit breaker. Records that
// fail, or that arrive while the breaker is open, are kept in a bounded
// in-memory queue and replayed after the next successful write, giving
// at-least-once delivery for as long as the process lives.
type BufferedSink struct {
	sink   model.HistorySink
	cb     *breaker.CircuitBreaker
	logger *slog.Logger

	mu     sync.Mutex
	buffer []model.ChangeRecord
	maxBuf int // oldest records are dropped beyond this

	// Callbacks, invoked with the queue length afterwards. OnBuffer and
	// OnDrop run under the queue lock and must not call back into the sink.
	OnBuffer func(pending int)        // a record was queued
	OnDrop   func(pending int)        // the queue overflowed
	OnFlush  func(count, pending int) // queued records were replayed
}

// NewBufferedSink wraps sink. maxBufferSize <= 0 defaults to 1000.
func NewBufferedSink(sink model.HistorySink, cb *breaker.CircuitBreaker, maxBufferSize int, logger *slog.Logger) *BufferedSink {
	if maxBufferSize <= 0 {
		maxBufferSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BufferedSink{
		sink:   sink,
		cb:     cb,
		maxBuf: maxBufferSize,
		logger: logger.With(slog.String("sink", sink.Name())),
	}
}

func (b *BufferedSink) Name() string { return b.sink.Name() }

// Write sends rec through the breaker. An open breaker queues the record and
// returns nil; a failed write queues it and returns the failure.
func (b *BufferedSink) Write(ctx context.Context, rec model.ChangeRecord) error {
	err := b.cb.Execute(func() error { return b.sink.Write(ctx, rec) })
	switch {
	case errors.Is(err, breaker.ErrCircuitOpen):
		b.enqueue(rec)
		return nil
	case err != nil:
		b.enqueue(rec)
		return err
	}

	b.Flush(ctx)
	return nil
}

// Flush replays queued records in order, stopping at the first failure.
func (b *BufferedSink) Flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return
	}
	// take ownership of the queue
	pending := b.buffer
	b.buffer = nil
	b.mu.Unlock()

	flushed := 0
	for i, rec := range pending {
		if err := b.cb.Execute(func() error { return b.sink.Write(ctx, rec) }); err != nil {
			b.requeue(pending[i:])
			b.logger.Warn("replay of queued records interrupted", "flushed", flushed, "remaining", len(pending)-i, "error", err)
			break
		}
		flushed++
	}

	if flushed > 0 {
		b.logger.Info("replayed queued records", "count", flushed)
		if b.OnFlush != nil {
			b.OnFlush(flushed, b.PendingCount())
		}
	}
}

// PendingCount returns the number of queued records.
func (b *BufferedSink) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

func (b *BufferedSink) enqueue(rec model.ChangeRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buffer) >= b.maxBuf {
		b.buffer = b.buffer[1:]
		if b.OnDrop != nil {
			b.OnDrop(len(b.buffer))
		}
	}
	b.buffer = append(b.buffer, rec)
	if b.OnBuffer != nil {
		b.OnBuffer(len(b.buffer))
	}
}

// requeue puts unsent records back in front of anything queued meanwhile.
func (b *BufferedSink) requeue(recs []model.ChangeRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	merged := make([]model.ChangeRecord, 0, len(recs)+len(b.buffer))
	merged = append(merged, recs...)
	merged = append(merged, b.buffer...)
	if over := len(merged) - b.maxBuf; over > 0 {
		merged = merged[over:]
	}
	b.buffer = merged
}
