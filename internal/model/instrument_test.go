package model

import "testing"

func TestMatchProviderName(t *testing.T) {
	cases := map[string]Instrument{
		"Oficial":                 Oficial,
		"BLUE":                    Blue,
		"Bolsa":                   MEP,
		"Dólar MEP":               MEP,
		"Contado con liquidación": CCL,
		"ccl":                     CCL,
		"Tarjeta":                 Tarjeta,
		"Cripto":                  Cripto,
		"Mayorista":               Mayorista,
		"/dolar_blue":             Blue,
	}
	for in, want := range cases {
		got, ok := MatchProviderName(in)
		if !ok || got != want {
			t.Errorf("MatchProviderName(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}

	if _, ok := MatchProviderName("Euro"); ok {
		t.Error("expected no match for unrelated name")
	}
}

func TestInstrumentsCanonicalOrder(t *testing.T) {
	want := []Instrument{Oficial, Blue, MEP, CCL, Tarjeta, Cripto, Mayorista}
	if len(Instruments) != len(want) {
		t.Fatalf("expected %d instruments, got %d", len(want), len(Instruments))
	}
	for i := range want {
		if Instruments[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], Instruments[i])
		}
		if !want[i].Valid() {
			t.Errorf("%s should be valid", want[i])
		}
	}
	if Instrument("euro").Valid() {
		t.Error("euro should not be valid")
	}
}
