package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	logger := Init("test-service", Options{Level: slog.LevelInfo, Stdout: &buf})
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Info("hello")
	if !strings.Contains(buf.String(), `"service":"test-service"`) {
		t.Errorf("expected service attribute, got %s", buf.String())
	}
}

func TestInit_ErrorLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "errors.log")
	var buf bytes.Buffer
	logger := Init("dolarwatch", Options{Level: slog.LevelDebug, ErrorLogPath: path, Stdout: &buf})

	logger.Info("routine tick")
	logger.Warn("fetch failed", "error", "timeout")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warning in the error log, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "[") || !strings.Contains(lines[0], "] fetch failed") {
		t.Errorf("unexpected line format: %q", lines[0])
	}
	if !strings.Contains(lines[0], "error=timeout") || !strings.Contains(lines[0], "service=dolarwatch") {
		t.Errorf("expected attributes in line: %q", lines[0])
	}
	if !strings.Contains(buf.String(), "routine tick") || !strings.Contains(buf.String(), "fetch failed") {
		t.Errorf("stdout should receive every record: %s", buf.String())
	}
}

func TestErrorLogHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := NewErrorLogHandler(&buf, slog.LevelWarn)
	ts := time.Date(2026, 10, 15, 9, 5, 7, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelError, "sink write failed", 0)
	r.AddAttrs(slog.String("sink", "supabase"))

	if err := h.WithGroup("history").Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	want := "[2026-10-15 09:05:07] sink write failed history.sink=supabase\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should not be enabled")
	}
}

func TestErrorLogHandler_AttrsKeepTheirGroup(t *testing.T) {
	var buf bytes.Buffer
	var h slog.Handler = NewErrorLogHandler(&buf, slog.LevelWarn)
	h = h.WithAttrs([]slog.Attr{slog.String("service", "dolarwatch")})
	h = h.WithGroup("history")
	h = h.WithAttrs([]slog.Attr{slog.String("sink", "supabase")})
	h = h.WithGroup("http")

	ts := time.Date(2026, 10, 15, 9, 5, 7, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelWarn, "retry", 0)
	r.AddAttrs(slog.Int("status", 503))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	want := "[2026-10-15 09:05:07] retry service=dolarwatch history.sink=supabase history.http.status=503\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestTickID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if tid := TickID(ctx); tid != "" {
		t.Errorf("expected empty tick id, got %q", tid)
	}
	if attrs := LogWithTick(ctx); attrs != nil {
		t.Errorf("expected nil attrs when no tick id, got %v", attrs)
	}

	ctx = WithTickID(ctx, GenerateTickID("tick", time.Unix(0, 123456789)))
	if tid := TickID(ctx); tid != "tick-123456789" {
		t.Errorf("unexpected tick id %q", tid)
	}
	if attrs := LogWithTick(ctx); len(attrs) != 1 {
		t.Errorf("expected one attr, got %v", attrs)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
