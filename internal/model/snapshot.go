package model

import "github.com/shopspring/decimal"

func init() {
	// Stored files and the remote row carry plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Rate is a buy/sell pair.
type Rate struct {
	Buy  decimal.Decimal `json:"compra"`
	Sell decimal.Decimal `json:"venta"`
}

// Equal compares by numeric value.
func (r Rate) Equal(o Rate) bool {
	return r.Buy.Equal(o.Buy) && r.Sell.Equal(o.Sell)
}

// Snapshot maps each instrument to its last observed rate.
type Snapshot map[Instrument]Rate

// Clone returns an independent copy. Stores hand out clones so no caller
// holds a live reference to store-owned state.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a copy of s with every entry of next replacing the existing one.
func (s Snapshot) Merge(next Snapshot) Snapshot {
	out := s.Clone()
	for k, v := range next {
		out[k] = v
	}
	return out
}

// Equal compares two snapshots by numeric value.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		w, ok := o[k]
		if !ok || !v.Equal(w) {
			return false
		}
	}
	return true
}
