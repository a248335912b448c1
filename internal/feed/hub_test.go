package feed

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dolarwatch/internal/model"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	return dialQuery(t, srv, "")
}

func dialQuery(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishReachesClients(t *testing.T) {
	h := NewHub(nil)
	var last atomic.Int64
	h.OnClients = func(n int) { last.Store(int64(n)) }

	srv := httptest.NewServer(h)
	defer srv.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	waitClients(t, h, 2)
	assert.EqualValues(t, 2, last.Load())

	h.Publish(model.ChangeRecord{
		Instrument: model.Blue,
		Timestamp:  time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
		Buy:        decimal.NewFromInt(1205),
		Sell:       decimal.NewFromInt(1225),
	})

	for _, c := range []*websocket.Conn{a, b} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := c.ReadMessage()
		require.NoError(t, err)

		var env struct {
			Type string             `json:"type"`
			Data model.ChangeRecord `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, KindChange, env.Type)
		assert.Equal(t, model.Blue, env.Data.Instrument)
		assert.True(t, env.Data.Buy.Equal(decimal.NewFromInt(1205)))
	}
}

func TestHub_SessionEventAndDisconnect(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := dial(t, srv)
	waitClients(t, h, 1)

	h.PublishSession("open", time.Date(2026, 10, 15, 13, 0, 0, 0, time.UTC))
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"seq":1,"type":"session","data":{"event":"open","at":"2026-10-15T13:00:00Z"}}`, string(data))

	c.Close()
	waitClients(t, h, 0)

	// Publishing with nobody connected is a no-op.
	h.Publish(model.ChangeRecord{Instrument: model.Oficial})
}

func readSeq(t *testing.T, c *websocket.Conn) int64 {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env.Seq
}

func TestHub_ReplaysBacklogOnConnect(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	for i := 0; i < 3; i++ {
		h.Publish(model.ChangeRecord{Instrument: model.Blue})
	}
	assert.EqualValues(t, 3, h.Seq())

	all := dial(t, srv)
	defer all.Close()
	for want := int64(1); want <= 3; want++ {
		assert.Equal(t, want, readSeq(t, all))
	}

	late := dialQuery(t, srv, "?since=2")
	defer late.Close()
	assert.EqualValues(t, 3, readSeq(t, late))

	waitClients(t, h, 2)
	h.PublishSession("close", time.Now())
	assert.EqualValues(t, 4, readSeq(t, all))
	assert.EqualValues(t, 4, readSeq(t, late))
}

func TestHub_RejectsBadSince(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?since=abc"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
