package services

import (
	"sort"

	"makelaarsland-notifier/models"
)

// CityCount is the number of published houses in one city.
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Summary holds statistics over every published house.
type Summary struct {
	Total         int                 `json:"total"`
	Priced        int                 `json:"priced"`
	AveragePrice  int                 `json:"average_price"`
	MinPrice      int                 `json:"min_price"`
	MaxPrice      int                 `json:"max_price"`
	AveragePerM2  int                 `json:"average_price_per_m2"`
	MostExpensive *models.HouseRecord `json:"-"`
	ByCity        []CityCount         `json:"by_city"`
}

// HasPrices reports whether any house carried a parseable price.
func (s Summary) HasPrices() bool { return s.Priced > 0 }

// Summarize computes a Summary over houses. Houses without a parseable price
// count towards Total and ByCity only.
func Summarize(houses []*models.HouseRecord) Summary {
	s := Summary{Total: len(houses)}

	var (
		total, perM2Total int
		perM2Count        int
		cities            = make(map[string]int)
	)
	for _, h := range houses {
		if h.Address.City != "" {
			cities[h.Address.City]++
		}

		price, ok := ParseAskingPrice(h.Listing.Price)
		if !ok {
			continue
		}
		s.Priced++
		total += price
		if s.MinPrice == 0 || price < s.MinPrice {
			s.MinPrice = price
		}
		if price > s.MaxPrice {
			s.MaxPrice = price
			s.MostExpensive = h
		}
		if area, ok := ParseLivingArea(h.Listing.SizeAndRooms); ok {
			perM2Total += price / area
			perM2Count++
		}
	}

	if s.Priced > 0 {
		s.AveragePrice = total / s.Priced
	}
	if perM2Count > 0 {
		s.AveragePerM2 = perM2Total / perM2Count
	}

	for city, n := range cities {
		s.ByCity = append(s.ByCity, CityCount{City: city, Count: n})
	}
	sort.Slice(s.ByCity, func(i, j int) bool {
		if s.ByCity[i].Count != s.ByCity[j].Count {
			return s.ByCity[i].Count > s.ByCity[j].Count
		}
		return s.ByCity[i].City < s.ByCity[j].City
	})

	return s
}
