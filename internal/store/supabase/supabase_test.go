package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dolarwatch/internal/model"
)

func sampleRecord() model.ChangeRecord {
	return model.ChangeRecord{
		Instrument: model.Oficial,
		Timestamp:  time.Date(2026, 10, 15, 12, 0, 0, 0, time.FixedZone("ART", -3*3600)),
		Buy:        decimal.NewFromInt(352),
		Sell:       decimal.NewFromInt(361),
		DiffBuy:    decimal.NewFromInt(2),
		DiffSell:   decimal.NewFromInt(1),
		PctBuy:     decimal.RequireFromString("0.57"),
		PctSell:    decimal.RequireFromString("0.28"),
	}
}

func TestSink_Write(t *testing.T) {
	var body []byte
	var hdr http.Header
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr = r.Header.Clone()
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL + "/", APIKey: "service-key"})
	require.NoError(t, err)
	assert.Equal(t, "supabase", s.Name())

	require.NoError(t, s.Write(context.Background(), sampleRecord()))

	assert.Equal(t, "/rest/v1/cotizaciones", path)
	assert.Equal(t, "service-key", hdr.Get("apikey"))
	assert.Equal(t, "Bearer service-key", hdr.Get("Authorization"))
	assert.Equal(t, "return=minimal", hdr.Get("Prefer"))
	assert.JSONEq(t, `{
		"dolar_name": "oficial",
		"compra": 352, "venta": 361,
		"diff_compra": 2, "diff_venta": 1,
		"pct_compra": 0.57, "pct_venta": 0.28,
		"timestamp": "2026-10-15T12:00:00-03:00"
	}`, string(body))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Len(t, decoded, 8)
}

func TestSink_WriteRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	s, err := New(Config{URL: srv.URL, APIKey: "bad", Table: "otra"})
	require.NoError(t, err)
	err = s.Write(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{URL: "https://x.supabase.co"})
	assert.Error(t, err)
}
