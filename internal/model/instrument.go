package model

import "strings"

// Instrument identifies one tracked dollar quote variant.
type Instrument string

const (
	Oficial   Instrument = "oficial"
	Blue      Instrument = "blue"
	MEP       Instrument = "mep"
	CCL       Instrument = "ccl"
	Tarjeta   Instrument = "tarjeta"
	Cripto    Instrument = "cripto"
	Mayorista Instrument = "mayorista"
)

// Instruments is the canonical order. Every iteration that ends up in a
// message, a file or a table uses this order, never map order.
var Instruments = []Instrument{Oficial, Blue, MEP, CCL, Tarjeta, Cripto, Mayorista}

var displayNames = map[Instrument]string{
	Oficial:   "Oficial",
	Blue:      "Blue",
	MEP:       "MEP",
	CCL:       "CCL",
	Tarjeta:   "Tarjeta",
	Cripto:    "Cripto",
	Mayorista: "Mayorista",
}

var icons = map[Instrument]string{
	Oficial:   "🏦",
	Blue:      "💵",
	MEP:       "📊",
	CCL:       "💹",
	Tarjeta:   "💳",
	Cripto:    "🪙",
	Mayorista: "🏛️",
}

// Valid reports whether i belongs to the closed instrument set.
func (i Instrument) Valid() bool {
	_, ok := displayNames[i]
	return ok
}

// DisplayName returns the human label used in notifications.
func (i Instrument) DisplayName() string {
	if n, ok := displayNames[i]; ok {
		return n
	}
	return string(i)
}

// Icon returns the emoji shown next to the instrument in tables.
func (i Instrument) Icon() string {
	if e, ok := icons[i]; ok {
		return e
	}
	return "💰"
}

// providerRules maps provider free-text names to instruments. Order matters:
// the first rule with a matching substring wins.
var providerRules = []struct {
	needles    []string
	instrument Instrument
}{
	{[]string{"oficial"}, Oficial},
	{[]string{"blue"}, Blue},
	{[]string{"bolsa", "mep"}, MEP},
	{[]string{"contado con liqui", "ccl"}, CCL},
	{[]string{"tarjeta"}, Tarjeta},
	{[]string{"cripto"}, Cripto},
	{[]string{"mayorista"}, Mayorista},
}

// MatchProviderName maps a provider-side instrument name (e.g. "Contado con
// liquidación") to an Instrument using case-insensitive substring matching.
func MatchProviderName(name string) (Instrument, bool) {
	lower := strings.ToLower(name)
	for _, r := range providerRules {
		for _, n := range r.needles {
			if strings.Contains(lower, n) {
				return r.instrument, true
			}
		}
	}
	return "", false
}

// ParseInstrument resolves user input such as "blue", "/dolar_bolsa" or
// "CCL" to an instrument.
func ParseInstrument(s string) (Instrument, bool) {
	return MatchProviderName(strings.TrimSpace(s))
}
