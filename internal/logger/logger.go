// Package logger provides structured logging using log/slog.
// It sets up a JSON handler with service-level context, an optional
// line-oriented error log file, and tick id propagation through
// context.Context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey string

const tickIDKey ctxKey = "tick_id"

// Options configures Init.
type Options struct {
	Level slog.Level

	// ErrorLogPath, when set, receives every record at WARN or above as
	// "[2006-01-02 15:04:05] message key=value ...". Rotated by size.
	ErrorLogPath string

	Stdout io.Writer // defaults to os.Stdout
}

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, opts Options) *slog.Logger {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	var handler slog.Handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: opts.Level,
	})

	if opts.ErrorLogPath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.ErrorLogPath,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     90, // days
		}
		handler = fanout{handler, NewErrorLogHandler(rotator, slog.LevelWarn)}
	}

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// ParseLevel maps "debug", "info", "warn", "error" to a slog level; anything
// else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithTickID stores a tick id in the context for downstream propagation.
func WithTickID(ctx context.Context, tickID string) context.Context {
	return context.WithValue(ctx, tickIDKey, tickID)
}

// TickID extracts the tick id from context. Returns "" if not set.
func TickID(ctx context.Context) string {
	if v, ok := ctx.Value(tickIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTickID creates a tick id from a trigger kind and timestamp.
// Format: "{kind}-{unixNano}".
func GenerateTickID(kind string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", kind, ts.UnixNano())
}

// LogWithTick returns slog attributes including the tick id from context.
// Usage: logger.Info("msg", logger.LogWithTick(ctx)...)
func LogWithTick(ctx context.Context) []any {
	tid := TickID(ctx)
	if tid == "" {
		return nil
	}
	return []any{slog.String("tick_id", tid)}
}

// ErrorLogHandler writes "[timestamp] message attrs" lines for records at
// or above its level.
type ErrorLogHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
	group string
}

// NewErrorLogHandler creates a handler appending to w.
func NewErrorLogHandler(w io.Writer, level slog.Level) *ErrorLogHandler {
	return &ErrorLogHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *ErrorLogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *ErrorLogHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	b.WriteString("] ")
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs stores attrs under the groups open at this point, so a later
// WithGroup does not relabel them.
func (h *ErrorLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (h *ErrorLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		c.group += "." + name
	} else {
		c.group = name
	}
	return &c
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	fmt.Fprintf(b, " %s=%v", key, a.Value.Resolve())
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
