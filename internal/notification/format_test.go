package notification

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"dolarwatch/internal/change"
	"dolarwatch/internal/model"
)

func rate(buy, sell string) model.Rate {
	return model.Rate{Buy: decimal.RequireFromString(buy), Sell: decimal.RequireFromString(sell)}
}

func TestIndicatorAndSigned(t *testing.T) {
	assert.Equal(t, "🟢", Indicator(decimal.NewFromInt(2)))
	assert.Equal(t, "🔴", Indicator(decimal.NewFromInt(-2)))
	assert.Equal(t, "🟡", Indicator(decimal.Zero))

	assert.Equal(t, "+2.00", Signed(decimal.NewFromInt(2)))
	assert.Equal(t, "-0.57", Signed(decimal.RequireFromString("-0.571")))
	assert.Equal(t, "+0.00", Signed(decimal.Zero))
}

func TestFormatChanges(t *testing.T) {
	deltas := []model.InstrumentDelta{
		change.Compare(model.Oficial, rate("352", "361"), rate("350", "360")),
		change.Compare(model.Blue, rate("1195", "1215"), rate("1200", "1215")),
	}

	want := "🚨 Actualización Dólar 🚨\n\n" +
		"🏦 Oficial\n" +
		"   Compra: 🟢 $352.00 (+2.00, +0.57%)\n" +
		"   Venta:  🟢 $361.00 (+1.00, +0.28%)\n\n" +
		"💵 Blue\n" +
		"   Compra: 🔴 $1195.00 (-5.00, -0.42%)\n" +
		"   Venta:  🟡 $1215.00 (+0.00, +0.00%)"
	assert.Equal(t, want, FormatChanges(deltas, FormatPlain))
	assert.Empty(t, FormatChanges(nil, FormatPlain))
}

func TestFormatBlock_HTML(t *testing.T) {
	d := change.Compare(model.MEP, rate("1180", "1190"), rate("1180", "1190"))
	assert.Contains(t, FormatBlock(d, FormatHTML), "📊 <b>MEP</b>\n")
}

func TestFormatSummary(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	deltas := []model.InstrumentDelta{
		change.Compare(model.Oficial, rate("352", "361"), rate("350", "360")),
	}
	updated := time.Date(2026, 10, 15, 19, 58, 0, 0, time.UTC)

	got := FormatSummary(deltas, updated, loc, FormatPlain)
	assert.Equal(t, "📊 Resumen diario de cotizaciones\n\n"+
		"🏦 Oficial\n"+
		"   Compra: 🟢 $352.00 (+2.00, +0.57%)\n"+
		"   Venta:  🟢 $361.00 (+1.00, +0.28%)\n\n"+
		"🕒 Última actualización: 15/10/2026 16:58", got)

	unknown := FormatSummary(deltas, time.Time{}, loc, FormatHTML)
	assert.Contains(t, unknown, "<b>📊 Resumen diario de cotizaciones</b>")
	assert.Contains(t, unknown, "🕒 Última actualización: desconocida")
}
