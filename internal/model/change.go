package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentDelta is the comparison of one instrument against a baseline.
type InstrumentDelta struct {
	Instrument  Instrument
	Current     Rate
	Baseline    Rate
	DiffBuy     decimal.Decimal
	DiffSell    decimal.Decimal
	PctBuy      decimal.Decimal // rounded to 2 decimals, zero when the baseline is zero
	PctSell     decimal.Decimal
	Significant bool
}

// Record converts a delta into the persisted change record.
func (d InstrumentDelta) Record(at time.Time) ChangeRecord {
	return ChangeRecord{
		Instrument: d.Instrument,
		Timestamp:  at,
		Buy:        d.Current.Buy,
		Sell:       d.Current.Sell,
		DiffBuy:    d.DiffBuy,
		DiffSell:   d.DiffSell,
		PctBuy:     d.PctBuy,
		PctSell:    d.PctSell,
	}
}

// ChangeRecord is one significant change, the unit written to every
// history sink. Field names follow the remote table columns.
type ChangeRecord struct {
	Instrument Instrument      `json:"dolar_name"`
	Timestamp  time.Time       `json:"timestamp"`
	Buy        decimal.Decimal `json:"compra"`
	Sell       decimal.Decimal `json:"venta"`
	DiffBuy    decimal.Decimal `json:"diff_compra"`
	DiffSell   decimal.Decimal `json:"diff_venta"`
	PctBuy     decimal.Decimal `json:"pct_compra"`
	PctSell    decimal.Decimal `json:"pct_venta"`
}

// TimestampString is the textual timestamp used by the file sinks.
func (c ChangeRecord) TimestampString() string {
	return c.Timestamp.Format(time.RFC3339)
}
