// Package quotesource fetches dollar quotes from the public rate API and
// normalizes them into the fixed instrument set.
package quotesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"dolarwatch/internal/httpx"
	"dolarwatch/internal/model"
)

// DefaultURL is the public endpoint listing every dollar quote.
const DefaultURL = "https://dolarapi.com/v1/dolares"

// FetchError reports a failed fetch. Callers skip the tick.
type FetchError struct {
	Op  string // "request", "status", "decode"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("quotesource: %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// apiQuote is the provider wire shape. Buy and sell are pointers so a
// missing or null field can be told apart from zero.
type apiQuote struct {
	Nombre             string           `json:"nombre"`
	Compra             *decimal.Decimal `json:"compra"`
	Venta              *decimal.Decimal `json:"venta"`
	FechaActualizacion string           `json:"fechaActualizacion"`
}

// Client is the DolarAPI adapter. It implements model.QuoteSource.
type Client struct {
	url    string
	http   *httpx.Client
	logger *slog.Logger
	now    func() time.Time
}

// New creates a client. A zero timeout defaults to 10s.
func New(url string, timeout time.Duration, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    url,
		http:   httpx.New(timeout),
		logger: logger.With(slog.String("component", "quotesource")),
		now:    time.Now,
	}
}

// Fetch performs one GET against the provider.
func (c *Client) Fetch(ctx context.Context) (model.QuoteSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return model.QuoteSet{}, &FetchError{Op: "request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return model.QuoteSet{}, &FetchError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.QuoteSet{}, &FetchError{
			Op:  "status",
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet),
		}
	}

	var items []apiQuote
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return model.QuoteSet{}, &FetchError{Op: "decode", Err: err}
	}

	qs := normalize(items, c.logger)
	qs.FetchedAt = c.now()
	if len(qs.Quotes) == 0 {
		return model.QuoteSet{}, &FetchError{Op: "decode", Err: errors.New("no usable quotes in response")}
	}
	return qs, nil
}

// normalize maps provider entries onto instruments. Entries without buy or
// sell, or with a name matching no instrument, are dropped. When two entries
// map to the same instrument the later one replaces the earlier.
func normalize(items []apiQuote, logger *slog.Logger) model.QuoteSet {
	qs := model.QuoteSet{Quotes: make(map[model.Instrument]model.Quote, len(model.Instruments))}
	for _, it := range items {
		if it.Compra == nil || it.Venta == nil {
			continue
		}
		inst, ok := model.MatchProviderName(it.Nombre)
		if !ok {
			continue
		}

		var updated time.Time
		if it.FechaActualizacion != "" {
			t, err := time.Parse(time.RFC3339, it.FechaActualizacion)
			if err != nil {
				if logger != nil {
					logger.Debug("unparseable provider timestamp", "nombre", it.Nombre, "value", it.FechaActualizacion)
				}
			} else {
				updated = t
				if t.After(qs.UpdatedAt) {
					qs.UpdatedAt = t
				}
			}
		}

		qs.Quotes[inst] = model.NewQuote(inst, *it.Compra, *it.Venta, updated)
	}
	return qs
}
