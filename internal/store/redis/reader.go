package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"dolarwatch/internal/model"
)

// Reader reads the mirror written by Writer.
type Reader struct {
	client *goredis.Client
}

// NewReader connects a reader. It does not ping.
func NewReader(cfg WriterConfig) *Reader {
	return &Reader{client: newClient(cfg)}
}

// Latest returns the newest record for an instrument, or false if none.
func (r *Reader) Latest(ctx context.Context, i model.Instrument) (model.ChangeRecord, bool, error) {
	data, err := r.client.Get(ctx, LatestKey(i)).Result()
	if errors.Is(err, goredis.Nil) {
		return model.ChangeRecord{}, false, nil
	}
	if err != nil {
		return model.ChangeRecord{}, false, fmt.Errorf("redis get latest %s: %w", i, err)
	}
	var rec model.ChangeRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return model.ChangeRecord{}, false, fmt.Errorf("unmarshal latest %s: %w", i, err)
	}
	return rec, true, nil
}

// Recent returns up to n records from the stream, newest first.
func (r *Reader) Recent(ctx context.Context, n int64) ([]model.ChangeRecord, error) {
	msgs, err := r.client.XRevRangeN(ctx, StreamKey, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", StreamKey, err)
	}
	out := make([]model.ChangeRecord, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["data"].(string)
		if !ok {
			continue
		}
		var rec model.ChangeRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal stream entry %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Subscribe subscribes to the change channel and waits for confirmation.
// The caller listens on .Channel() and closes the handle.
func (r *Reader) Subscribe(ctx context.Context) (*goredis.PubSub, error) {
	ps := r.client.Subscribe(ctx, Channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	return ps, nil
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
