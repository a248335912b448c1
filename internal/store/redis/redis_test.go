package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"dolarwatch/internal/model"
)

var addr string

func TestMain(m *testing.M) {
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis container unavailable: %v\n", err)
		os.Exit(m.Run())
	}
	if host, err := c.Host(ctx); err == nil {
		if port, err := c.MappedPort(ctx, "6379"); err == nil {
			addr = host + ":" + port.Port()
		}
	}
	code := m.Run()
	_ = c.Terminate(ctx)
	os.Exit(code)
}

func TestWriter_MirrorsRecord(t *testing.T) {
	if addr == "" {
		t.Skip("redis container not available")
	}
	ctx := context.Background()

	w, err := New(WriterConfig{Addr: addr}, nil)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Client().FlushDB(ctx).Err())

	r := NewReader(WriterConfig{Addr: addr})
	defer r.Close()
	ps, err := r.Subscribe(ctx)
	require.NoError(t, err)
	defer ps.Close()

	rec := model.ChangeRecord{
		Instrument: model.Blue,
		Timestamp:  time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC),
		Buy:        decimal.NewFromInt(1205),
		Sell:       decimal.NewFromInt(1225),
		DiffBuy:    decimal.NewFromInt(5),
		DiffSell:   decimal.NewFromInt(5),
		PctBuy:     decimal.RequireFromString("0.42"),
		PctSell:    decimal.RequireFromString("0.41"),
	}
	require.NoError(t, w.Write(ctx, rec))

	latest, ok, err := r.Latest(ctx, model.Blue)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, latest.Buy.Equal(rec.Buy))
	assert.True(t, latest.Timestamp.Equal(rec.Timestamp))

	_, ok, err = r.Latest(ctx, model.Oficial)
	require.NoError(t, err)
	assert.False(t, ok)

	recent, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, model.Blue, recent[0].Instrument)

	select {
	case msg := <-ps.Channel():
		assert.Contains(t, msg.Payload, `"dolar_name":"blue"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no pub/sub message")
	}
}
