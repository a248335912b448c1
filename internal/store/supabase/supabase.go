// Package supabase writes change records to a Supabase table through its
// PostgREST endpoint.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dolarwatch/internal/httpx"
	"dolarwatch/internal/model"
)

// DefaultTable is the remote table holding change records.
const DefaultTable = "cotizaciones"

// Config configures the sink.
type Config struct {
	URL     string // project URL, e.g. https://xyz.supabase.co
	APIKey  string
	Table   string
	Timeout time.Duration
}

// Sink inserts one row per change record. It implements model.HistorySink.
type Sink struct {
	endpoint string
	apiKey   string
	http     *httpx.Client
}

// New validates cfg and returns a sink.
func New(cfg Config) (*Sink, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase: url and api key are required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Sink{
		endpoint: strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + cfg.Table,
		apiKey:   cfg.APIKey,
		http:     httpx.New(cfg.Timeout),
	}, nil
}

func (s *Sink) Name() string { return "supabase" }

// row is the table shape.
type row struct {
	DolarName  string          `json:"dolar_name"`
	Compra     decimal.Decimal `json:"compra"`
	Venta      decimal.Decimal `json:"venta"`
	DiffCompra decimal.Decimal `json:"diff_compra"`
	DiffVenta  decimal.Decimal `json:"diff_venta"`
	PctCompra  decimal.Decimal `json:"pct_compra"`
	PctVenta   decimal.Decimal `json:"pct_venta"`
	Timestamp  string          `json:"timestamp"`
}

func toRow(rec model.ChangeRecord) row {
	return row{
		DolarName:  string(rec.Instrument),
		Compra:     rec.Buy,
		Venta:      rec.Sell,
		DiffCompra: rec.DiffBuy,
		DiffVenta:  rec.DiffSell,
		PctCompra:  rec.PctBuy,
		PctVenta:   rec.PctSell,
		Timestamp:  rec.TimestampString(),
	}
}

// Write POSTs the record. Any non-2xx answer is an error.
func (s *Sink) Write(ctx context.Context, rec model.ChangeRecord) error {
	body, err := json.Marshal(toRow(rec))
	if err != nil {
		return fmt.Errorf("supabase: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("supabase: create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("supabase: insert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("supabase: insert: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
