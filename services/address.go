package services

import (
	"regexp"
	"strings"

	"makelaarsland-notifier/models"
)

var (
	// fullAddressRegexp matches "H. Diemerstraat 37, 3555GR Utrecht".
	// The street group is greedy, so a street name that itself contains
	// digits ("Laan 1940-1945 12, ...") is split at the wrong number. This is
	// a known limitation.
	fullAddressRegexp = regexp.MustCompile(`([A-Za-z\.\-'\s]+)\s(\d+[A-Za-z]?),?\s*(\d{4}[A-Z]{2})\s+([A-Za-z ]+)`)
	// postcodeCityRegexp recovers only "3555GR Utrecht".
	postcodeCityRegexp = regexp.MustCompile(`(\d{4}[A-Z]{2}) ([A-Za-z ]+)`)
)

var addressStrategies = []Strategy[string, models.Address]{
	fullAddress,
	postcodeAndCity,
}

// ParseAddress extracts a structured address from free-form text. When
// nothing matches the zero Address is returned; that is not an error.
func ParseAddress(text string) models.Address {
	addr, _ := FirstMatch(text, addressStrategies...)
	return addr
}

func fullAddress(text string) (models.Address, bool) {
	m := fullAddressRegexp.FindStringSubmatch(text)
	if m == nil {
		return models.Address{}, false
	}
	// The street class spans whitespace, so keep only the line holding the number.
	street := m[1]
	if i := strings.LastIndexAny(street, "\r\n"); i >= 0 {
		street = street[i+1:]
	}
	addr := models.Address{
		Street:      strings.TrimSpace(street),
		HouseNumber: strings.TrimSpace(m[2]),
		Postcode:    strings.TrimSpace(m[3]),
		City:        strings.TrimSpace(m[4]),
	}
	if addr.Street == "" || addr.City == "" {
		return models.Address{}, false
	}
	return addr, true
}

func postcodeAndCity(text string) (models.Address, bool) {
	m := postcodeCityRegexp.FindStringSubmatch(text)
	if m == nil {
		return models.Address{}, false
	}
	city := strings.TrimSpace(m[2])
	if city == "" {
		return models.Address{}, false
	}
	return models.Address{Postcode: m[1], City: city}, true
}
