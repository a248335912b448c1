// Package feed broadcasts change records and session events to websocket
// subscribers.
package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dolarwatch/internal/model"
)

// Event kinds sent on the wire.
const (
	KindChange  = "change"
	KindSession = "session"
)

// Envelope is the JSON message every client receives.
type Envelope struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	clientBuffer  = 64
	defaultReplay = 50
	writeTimeout  = 5 * time.Second
)

// Hub fans messages out to connected clients. Slow clients lose messages
// instead of blocking the publisher. New clients first receive the buffered
// envelopes newer than their ?since= sequence number.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	seq     int64
	replay  *ReplayBuffer

	upgrader websocket.Upgrader
	logger   *slog.Logger

	// OnClients, if set, is called with the client count after every
	// connect and disconnect.
	OnClients func(n int)
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]chan []byte),
		replay:  NewReplayBuffer(defaultReplay),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "feed")),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends a change record to every client.
func (h *Hub) Publish(rec model.ChangeRecord) {
	h.send(Envelope{Type: KindChange, Data: rec})
}

// PublishSession sends a session event ("open", "close").
func (h *Hub) PublishSession(event string, at time.Time) {
	h.send(Envelope{Type: KindSession, Data: map[string]string{
		"event": event,
		"at":    at.Format(time.RFC3339),
	}})
}

// Seq returns the sequence number of the last published envelope.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

func (h *Hub) send(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	env.Seq = h.seq + 1
	msg, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("marshal feed message", "type", env.Type, "error", err)
		return
	}
	h.seq = env.Seq
	h.replay.Push(env.Seq, msg)

	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default: // slow client, drop
		}
	}
}

// register adds conn and queues the replay backlog under the same lock as
// send, so the client sees no gap and no duplicate.
func (h *Hub) register(conn *websocket.Conn, since int64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	for _, msg := range h.replay.Since(since) {
		select {
		case ch <- msg:
		default:
		}
	}
	h.clients[conn] = ch
	n := len(h.clients)
	h.mu.Unlock()
	h.notify(n)
	return ch
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.clients[conn]
	if ok {
		close(ch)
		delete(h.clients, conn)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.notify(n)
	}
}

func (h *Hub) notify(n int) {
	if h.OnClients != nil {
		h.OnClients(n)
	}
}

// ServeHTTP upgrades the request and streams messages until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	h.logger.Debug("client connected", "remote", r.RemoteAddr)

	ch := h.register(conn, since)
	defer func() {
		h.unregister(conn)
		conn.Close()
		h.logger.Debug("client disconnected", "remote", r.RemoteAddr)
	}()

	// Read pump: only detects the peer closing.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister(conn)
				return
			}
		}
	}()

	for msg := range ch {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
