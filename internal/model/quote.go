package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one normalized provider quote. Produced fresh on every fetch and
// never mutated afterwards.
type Quote struct {
	Instrument        Instrument      `json:"instrument"`
	Buy               decimal.Decimal `json:"compra"`
	Sell              decimal.Decimal `json:"venta"`
	Mid               decimal.Decimal `json:"promedio"`
	ProviderUpdatedAt time.Time       `json:"fecha_actualizacion"` // zero if the provider omitted it
}

// NewQuote builds a quote and derives its mid price.
func NewQuote(i Instrument, buy, sell decimal.Decimal, updatedAt time.Time) Quote {
	return Quote{
		Instrument:        i,
		Buy:               buy,
		Sell:              sell,
		Mid:               buy.Add(sell).Div(decimal.NewFromInt(2)),
		ProviderUpdatedAt: updatedAt,
	}
}

// Rate returns the buy/sell pair of the quote.
func (q Quote) Rate() Rate {
	return Rate{Buy: q.Buy, Sell: q.Sell}
}

// QuoteSet is the result of one fetch.
type QuoteSet struct {
	Quotes    map[Instrument]Quote
	UpdatedAt time.Time // max provider timestamp; zero means unknown
	FetchedAt time.Time
}

// UpdatedAtKnown reports whether the provider sent any timestamp.
func (qs QuoteSet) UpdatedAtKnown() bool {
	return !qs.UpdatedAt.IsZero()
}

// Ordered returns the quotes in canonical instrument order.
func (qs QuoteSet) Ordered() []Quote {
	out := make([]Quote, 0, len(qs.Quotes))
	for _, i := range Instruments {
		if q, ok := qs.Quotes[i]; ok {
			out = append(out, q)
		}
	}
	return out
}

// Snapshot converts the set to the buy/sell mapping persisted by the stores.
func (qs QuoteSet) Snapshot() Snapshot {
	s := make(Snapshot, len(qs.Quotes))
	for i, q := range qs.Quotes {
		s[i] = q.Rate()
	}
	return s
}
