package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Pinger is any dependency that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DepStatus is the last probe result of one optional dependency.
type DepStatus struct {
	OK        bool    `json:"ok"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	LastTickTime  time.Time
	LastFetchAt   time.Time
	LastFetchOK   bool
	LastFetchErr  string
	MarketPhase   string
	FeedClients   int
	PendingWrites map[string]int
	Deps          map[string]DepStatus

	LastCheckAt time.Time
	StartedAt   time.Time

	now func() time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt:     time.Now(),
		PendingWrites: make(map[string]int),
		Deps:          make(map[string]DepStatus),
		now:           time.Now,
	}
}

// SetLastTick records the end of a tick and the outcome of its fetch.
// A tick outside the market window passes fetched=false and leaves the
// fetch fields untouched.
func (h *HealthStatus) SetLastTick(t time.Time, fetched bool, fetchErr error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastTickTime = t
	if !fetched {
		return
	}
	h.LastFetchAt = t
	h.LastFetchOK = fetchErr == nil
	h.LastFetchErr = ""
	if fetchErr != nil {
		h.LastFetchErr = fetchErr.Error()
	}
}

func (h *HealthStatus) SetMarketPhase(p string) {
	h.mu.Lock()
	h.MarketPhase = p
	h.mu.Unlock()
}

func (h *HealthStatus) SetFeedClients(n int) {
	h.mu.Lock()
	h.FeedClients = n
	h.mu.Unlock()
}

func (h *HealthStatus) SetPendingWrites(sink string, n int) {
	h.mu.Lock()
	h.PendingWrites[sink] = n
	h.mu.Unlock()
}

func (h *HealthStatus) record(name string, err error, latency time.Duration) {
	st := DepStatus{OK: err == nil, LatencyMs: float64(latency.Microseconds()) / 1000.0}
	if err != nil {
		st.Error = err.Error()
	}
	h.mu.Lock()
	h.Deps[name] = st
	h.LastCheckAt = h.now()
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	h.record("redis", err, time.Since(start))
}

// CheckSQLite pings the ledger and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	h.record("sqlite", err, time.Since(start))
}

// Check probes any named dependency.
func (h *HealthStatus) Check(ctx context.Context, name string, p Pinger) {
	start := time.Now()
	err := p.Ping(ctx)
	h.record(name, err, time.Since(start))
}

// Probes lists the optional dependencies checked by the liveness loop.
type Probes struct {
	Redis  *goredis.Client
	SQLite *sql.DB
	Others map[string]Pinger
}

// RunChecks probes every configured dependency once.
func (h *HealthStatus) RunChecks(ctx context.Context, p Probes) {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if p.Redis != nil {
		h.CheckRedis(probeCtx, p.Redis)
	}
	if p.SQLite != nil {
		h.CheckSQLite(probeCtx, p.SQLite)
	}
	for name, pinger := range p.Others {
		h.Check(probeCtx, name, pinger)
	}
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, p Probes, interval time.Duration) {
	go func() {
		h.RunChecks(ctx, p)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.RunChecks(ctx, p)
			}
		}
	}()
}

type healthBody struct {
	Status        string               `json:"status"`
	Uptime        string               `json:"uptime"`
	MarketPhase   string               `json:"market_phase"`
	LastTickTime  string               `json:"last_tick_time"`
	TickAge       string               `json:"tick_age"`
	LastFetchAt   string               `json:"last_fetch_at"`
	LastFetchOK   bool                 `json:"last_fetch_ok"`
	LastFetchErr  string               `json:"last_fetch_error,omitempty"`
	FeedClients   int                  `json:"feed_clients"`
	PendingWrites map[string]int       `json:"pending_writes"`
	Deps          map[string]DepStatus `json:"deps"`
	LastCheckAt   string               `json:"last_check_at"`
}

// ServeHTTP handles the /healthz endpoint. It answers 503 with a
// "degraded" status when the last fetch failed or a dependency is down.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.LastFetchAt.IsZero() && !h.LastFetchOK {
		overallStatus = "degraded"
	}
	for _, d := range h.Deps {
		if !d.OK {
			overallStatus = "degraded"
		}
	}
	if overallStatus != "healthy" {
		httpCode = http.StatusServiceUnavailable
	}

	tickAge := ""
	if !h.LastTickTime.IsZero() {
		tickAge = now.Sub(h.LastTickTime).Round(time.Millisecond).String()
	}

	body := healthBody{
		Status:        overallStatus,
		Uptime:        now.Sub(h.StartedAt).Round(time.Second).String(),
		MarketPhase:   h.MarketPhase,
		LastTickTime:  formatTime(h.LastTickTime),
		TickAge:       tickAge,
		LastFetchAt:   formatTime(h.LastFetchAt),
		LastFetchOK:   h.LastFetchOK,
		LastFetchErr:  h.LastFetchErr,
		FeedClients:   h.FeedClients,
		PendingWrites: h.PendingWrites,
		Deps:          h.Deps,
		LastCheckAt:   formatTime(h.LastCheckAt),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(body)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
