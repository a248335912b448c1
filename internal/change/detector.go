// Package change compares fresh quotes with a baseline snapshot and
// classifies each instrument's move against a significance threshold.
package change

import (
	"time"

	"github.com/shopspring/decimal"

	"dolarwatch/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Detector holds the significance threshold, in currency units.
type Detector struct {
	Threshold decimal.Decimal
}

// New returns a detector. A negative threshold is treated as zero.
func New(threshold decimal.Decimal) *Detector {
	if threshold.IsNegative() {
		threshold = decimal.Zero
	}
	return &Detector{Threshold: threshold}
}

// Detect compares every instrument present in current against baseline.
// It returns the change records for significant moves (stamped with at) and
// the deltas for all instruments, both in canonical instrument order.
//
// An instrument missing from baseline is compared against itself, so a new
// instrument never shows up as a change.
func (d *Detector) Detect(current model.QuoteSet, baseline model.Snapshot, at time.Time) ([]model.ChangeRecord, []model.InstrumentDelta) {
	var changes []model.ChangeRecord
	deltas := make([]model.InstrumentDelta, 0, len(current.Quotes))

	for _, q := range current.Ordered() {
		cur := q.Rate()
		base, ok := baseline[q.Instrument]
		if !ok {
			base = cur
		}

		delta := Compare(q.Instrument, cur, base)
		delta.Significant = d.IsSignificant(delta.DiffBuy) || d.IsSignificant(delta.DiffSell)
		deltas = append(deltas, delta)

		if delta.Significant {
			changes = append(changes, delta.Record(at))
		}
	}
	return changes, deltas
}

// IsSignificant reports |diff| >= threshold.
func (d *Detector) IsSignificant(diff decimal.Decimal) bool {
	return diff.Abs().GreaterThanOrEqual(d.Threshold)
}

// Compare computes absolute and percentage moves of cur against base. The
// result is not classified.
func Compare(i model.Instrument, cur, base model.Rate) model.InstrumentDelta {
	diffBuy := cur.Buy.Sub(base.Buy)
	diffSell := cur.Sell.Sub(base.Sell)
	return model.InstrumentDelta{
		Instrument: i,
		Current:    cur,
		Baseline:   base,
		DiffBuy:    diffBuy,
		DiffSell:   diffSell,
		PctBuy:     Percent(diffBuy, base.Buy),
		PctSell:    Percent(diffSell, base.Sell),
	}
}

// Percent returns diff/base*100 rounded to 2 decimals, or zero when base is zero.
func Percent(diff, base decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return diff.Mul(hundred).DivRound(base, 8).Round(2)
}

// CompareSnapshot compares every instrument of current against baseline in
// canonical order, without thresholding. Instruments absent from baseline
// compare against themselves. Used for intraday tables against the day's open.
func CompareSnapshot(current, baseline model.Snapshot) []model.InstrumentDelta {
	out := make([]model.InstrumentDelta, 0, len(current))
	for _, i := range model.Instruments {
		cur, ok := current[i]
		if !ok {
			continue
		}
		base, ok := baseline[i]
		if !ok {
			base = cur
		}
		out = append(out, Compare(i, cur, base))
	}
	return out
}
