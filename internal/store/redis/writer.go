// Package redis mirrors change records into Redis: the latest record per
// instrument, a capped stream of every record and a pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"dolarwatch/internal/model"
)

const (
	// StreamKey holds every change record, trimmed to about streamMaxLen entries.
	StreamKey = "dolar:changes"
	// Channel receives each record as it is written.
	Channel = "pub:dolar:changes"

	streamMaxLen     = 5000
	defaultLatestTTL = 7 * 24 * time.Hour
)

// LatestKey is the key of the newest record for an instrument.
func LatestKey(i model.Instrument) string { return "dolar:latest:" + string(i) }

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer implements model.HistorySink on top of Redis.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig, logger *slog.Logger) (*Writer, error) {
	client := newClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if logger != nil {
		logger.Info("redis connected", "component", "redis", "addr", cfg.Addr)
	}
	return &Writer{client: client}, nil
}

func newClient(cfg WriterConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (w *Writer) Name() string { return "redis" }

// Write performs SET latest, XADD and PUBLISH in one pipeline.
func (w *Writer) Write(ctx context.Context, rec model.ChangeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis marshal: %w", err)
	}
	jsonData := string(data)

	pipe := w.client.Pipeline()

	pipe.Set(ctx, LatestKey(rec.Instrument), jsonData, defaultLatestTTL)

	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: StreamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})

	pipe.Publish(ctx, Channel, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline for %s: %w", rec.Instrument, err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
