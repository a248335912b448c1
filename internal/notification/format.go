package notification

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dolarwatch/internal/model"
)

// Fixed session messages.
const (
	OpenMessage   = "🏦 ¡El mercado abrió! Comenzando monitoreo de cotizaciones..."
	CloseMessage  = "🏛️ ¡El mercado cerró! Monitoreo finalizado por hoy."
	ChangesHeader = "🚨 Actualización Dólar 🚨"
	SummaryHeader = "📊 Resumen diario de cotizaciones"

	// NoOpenNote closes a summary sent on a day without an opening snapshot.
	NoOpenNote = "⚠️ Sin cotización de apertura registrada hoy, variaciones no disponibles."
)

// Indicator returns 🟢 for a rise, 🔴 for a fall and 🟡 for no move.
func Indicator(diff decimal.Decimal) string {
	switch diff.Sign() {
	case 1:
		return "🟢"
	case -1:
		return "🔴"
	default:
		return "🟡"
	}
}

// Signed formats d with two decimals and an explicit sign.
func Signed(d decimal.Decimal) string {
	r := d.Round(2)
	if r.Sign() >= 0 {
		return "+" + r.StringFixed(2)
	}
	return r.StringFixed(2)
}

// FormatBlock renders one instrument:
//
//	💵 Blue
//	   Compra: 🟢 $1200.00 (+5.00, +0.42%)
//	   Venta:  🟢 $1220.00 (+5.00, +0.41%)
func FormatBlock(d model.InstrumentDelta, f Format) string {
	name := d.Instrument.DisplayName()
	if f == FormatHTML {
		name = "<b>" + html.EscapeString(name) + "</b>"
	}
	return fmt.Sprintf("%s %s\n   Compra: %s $%s (%s, %s%%)\n   Venta:  %s $%s (%s, %s%%)",
		d.Instrument.Icon(), name,
		Indicator(d.DiffBuy), d.Current.Buy.StringFixed(2), Signed(d.DiffBuy), Signed(d.PctBuy),
		Indicator(d.DiffSell), d.Current.Sell.StringFixed(2), Signed(d.DiffSell), Signed(d.PctSell),
	)
}

// FormatChanges builds the change alert: header plus one block per delta,
// separated by a blank line. Returns "" when there is nothing to report.
func FormatChanges(deltas []model.InstrumentDelta, f Format) string {
	if len(deltas) == 0 {
		return ""
	}
	blocks := make([]string, 0, len(deltas))
	for _, d := range deltas {
		blocks = append(blocks, FormatBlock(d, f))
	}
	return ChangesHeader + "\n\n" + strings.Join(blocks, "\n\n")
}

// FormatTable renders every delta followed by the provider update line.
func FormatTable(deltas []model.InstrumentDelta, updatedAt time.Time, loc *time.Location, f Format) string {
	blocks := make([]string, 0, len(deltas))
	for _, d := range deltas {
		blocks = append(blocks, FormatBlock(d, f))
	}
	return strings.Join(blocks, "\n") + "\n\n" + UpdatedAtLine(updatedAt, loc)
}

// FormatSummary is the end-of-day message comparing against the daily open.
func FormatSummary(deltas []model.InstrumentDelta, updatedAt time.Time, loc *time.Location, f Format) string {
	header := SummaryHeader
	if f == FormatHTML {
		header = "<b>" + header + "</b>"
	}
	return header + "\n\n" + FormatTable(deltas, updatedAt, loc, f)
}

// UpdatedAtLine renders the provider timestamp in loc, or "desconocida"
// when the provider did not report one.
func UpdatedAtLine(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "🕒 Última actualización: desconocida"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return "🕒 Última actualización: " + t.Format("02/01/2006 15:04")
}
