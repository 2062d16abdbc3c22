package services

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// askingPriceRegexp captures Dutch thousands-grouped euro amounts, e.g.
	// "€ 565.000 k.k." or "€1.250.000 v.o.n."
	askingPriceRegexp = regexp.MustCompile(`€\s*(\d{1,3}(?:\.\d{3})+|\d+)`)
	// livingAreaRegexp captures the first "<n> m²" of a size line.
	livingAreaRegexp = regexp.MustCompile(`(\d+)\s*m²`)
)

// ParseAskingPrice returns the whole-euro amount of a listing price.
// Prices on request ("Prijs op aanvraag") report false.
func ParseAskingPrice(raw string) (int, bool) {
	m := askingPriceRegexp.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ".", ""))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseLivingArea returns the first area of a "120 m² • 300 m² • 5 kamers"
// line, which is the living area.
func ParseLivingArea(raw string) (int, bool) {
	m := livingAreaRegexp.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FormatEuro renders n the way listings do: "€ 565.000".
func FormatEuro(n int) string {
	digits := strconv.Itoa(n)
	var b strings.Builder
	b.WriteString("€ ")
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}
