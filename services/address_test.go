package services

import (
	"testing"

	"makelaarsland-notifier/models"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want models.Address
	}{
		{
			"H. Diemerstraat 37, 3555GR Utrecht",
			models.Address{Street: "H. Diemerstraat", HouseNumber: "37", Postcode: "3555GR", City: "Utrecht"},
		},
		{
			"Alfred Nobellaan 42, 3731DW De Bilt",
			models.Address{Street: "Alfred Nobellaan", HouseNumber: "42", Postcode: "3731DW", City: "De Bilt"},
		},
		{
			"Nieuw aanbod\nAlfred Nobellaan 42, 3731DW De Bilt\n€ 565.000 k.k.",
			models.Address{Street: "Alfred Nobellaan", HouseNumber: "42", Postcode: "3731DW", City: "De Bilt"},
		},
		{
			"Prinses Irenelaan 7a 1234AB Amersfoort",
			models.Address{Street: "Prinses Irenelaan", HouseNumber: "7a", Postcode: "1234AB", City: "Amersfoort"},
		},
		{
			"Ergens in 3731DW De Bilt",
			models.Address{Postcode: "3731DW", City: "De Bilt"},
		},
		{"geen adres hier", models.Address{}},
		{"", models.Address{}},
	}
	for _, tt := range tests {
		if got := ParseAddress(tt.in); got != tt.want {
			t.Errorf("ParseAddress(%q) = %+v; want %+v", tt.in, got, tt.want)
		}
	}
}

// Streets whose name contains digits are split at the first number.
func TestParseAddressNumberedStreetLimitation(t *testing.T) {
	got := ParseAddress("2e Hugo de Grootstraat 5, 1052LB Amsterdam")
	if got.HouseNumber != "5" || got.Postcode != "1052LB" {
		t.Fatalf("ParseAddress = %+v", got)
	}
	if got.Street != "e Hugo de Grootstraat" {
		t.Errorf("street = %q; the leading digit is expected to be lost", got.Street)
	}
}

func TestReferenceURL(t *testing.T) {
	tests := []struct {
		in   models.Address
		want string
	}{
		{
			models.Address{Street: "H. Diemerstraat", HouseNumber: "37", Postcode: "3555GR", City: "Utrecht"},
			"https://huispedia.nl/utrecht/3555gr/h.-diemerstraat/37",
		},
		{
			models.Address{Street: "Alfred Nobellaan", HouseNumber: "42A", Postcode: "3731DW", City: "De Bilt"},
			"https://huispedia.nl/de-bilt/3731dw/alfred-nobellaan/42a",
		},
		{models.Address{Postcode: "3731DW", City: "De Bilt"}, ""},
	}
	for _, tt := range tests {
		if got := ReferenceURL(tt.in); got != tt.want {
			t.Errorf("ReferenceURL(%+v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestFieldExtractor(t *testing.T) {
	tests := []struct {
		fe   FieldExtractor
		in   string
		want string
	}{
		{priceExtractor, "Vraagprijs € 565.000 k.k. nu", "€ 565.000 k.k."},
		{priceExtractor, "€ 565.000 v.o.n.", ""},
		{sizeExtractor, "120 m² • 300 m² • 5 kamers", "120 m² • 300 m² • 5 kamers"},
		{agentExtractor, "Aangeboden door:\nBilt Makelaardij B.V.", "Bilt Makelaardij"},
		{NewFieldExtractor("year", `bouwjaar (\d{4})`, `gebouwd in (\d{4})`), "gebouwd in 1965", "1965"},
	}
	for _, tt := range tests {
		if got := tt.fe.Extract(tt.in); got != tt.want {
			t.Errorf("%s.Extract(%q) = %q; want %q", tt.fe.Name, tt.in, got, tt.want)
		}
	}
}
