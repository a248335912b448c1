// Package history replicates every significant change record to a set of
// independent sinks. Sinks are best-effort: a failing sink is logged and
// skipped, never rolled back and never allowed to block the others.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dolarwatch/internal/logger"
	"dolarwatch/internal/model"
)

const defaultSinkTimeout = 10 * time.Second

// SinkError wraps a failure of one named sink.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string { return fmt.Sprintf("history sink %s: %v", e.Sink, e.Err) }
func (e *SinkError) Unwrap() error { return e.Err }

// Recorder fans change records out to its sinks.
type Recorder struct {
	sinks   []model.HistorySink
	timeout time.Duration
	logger  *slog.Logger

	// OnResult is called after every sink attempt (for metrics).
	OnResult func(sink string, err error, elapsed time.Duration)
}

// NewRecorder creates a recorder writing to sinks in the given order. Each
// sink call gets its own timeout; zero means 10s.
func NewRecorder(log *slog.Logger, timeout time.Duration, sinks ...model.HistorySink) *Recorder {
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		sinks:   sinks,
		timeout: timeout,
		logger:  log.With(slog.String("component", "history")),
	}
}

// Sinks returns the configured sink names in write order.
func (r *Recorder) Sinks() []string {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.Name()
	}
	return names
}

// Record writes rec to every sink. It never fails: errors (and panics) of
// individual sinks are logged and the next sink is attempted regardless.
func (r *Recorder) Record(ctx context.Context, rec model.ChangeRecord) {
	for _, s := range r.sinks {
		start := time.Now()
		err := r.write(ctx, s, rec)
		elapsed := time.Since(start)

		if r.OnResult != nil {
			r.OnResult(s.Name(), err, elapsed)
		}
		if err != nil {
			r.logger.Error("history sink write failed",
				append(logger.LogWithTick(ctx),
					"sink", s.Name(),
					"instrument", string(rec.Instrument),
					"error", err)...)
			continue
		}
		r.logger.Debug("history sink write ok",
			append(logger.LogWithTick(ctx), "sink", s.Name(), "instrument", string(rec.Instrument), "elapsed", elapsed)...)
	}
}

func (r *Recorder) write(ctx context.Context, s model.HistorySink, rec model.ChangeRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &SinkError{Sink: s.Name(), Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if werr := s.Write(sctx, rec); werr != nil {
		return &SinkError{Sink: s.Name(), Err: werr}
	}
	return nil
}
