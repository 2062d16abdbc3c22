package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"makelaarsland-notifier/models"
)

func TestNextDeparture(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		ams = time.UTC
	}
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		// Tuesday rolls a full week.
		{time.Date(2026, 10, 13, 8, 0, 0, 0, ams), time.Date(2026, 10, 20, 9, 0, 0, 0, ams)},
		{time.Date(2026, 10, 13, 23, 0, 0, 0, ams), time.Date(2026, 10, 20, 9, 0, 0, 0, ams)},
		// Wednesday
		{time.Date(2026, 10, 14, 12, 0, 0, 0, ams), time.Date(2026, 10, 20, 9, 0, 0, 0, ams)},
		// Monday
		{time.Date(2026, 10, 19, 12, 0, 0, 0, ams), time.Date(2026, 10, 20, 9, 0, 0, 0, ams)},
		// Sunday across a month boundary
		{time.Date(2026, 11, 29, 12, 0, 0, 0, ams), time.Date(2026, 12, 1, 9, 0, 0, 0, ams)},
	}
	for _, tt := range tests {
		got := NextDeparture(tt.now)
		if !got.Equal(tt.want) {
			t.Errorf("NextDeparture(%v) = %v; want %v", tt.now, got, tt.want)
		}
		if got.Weekday() != time.Tuesday {
			t.Errorf("NextDeparture(%v) is a %v", tt.now, got.Weekday())
		}
	}
}

type fakeMaps struct {
	geocodeErr error
	places     []models.Place
	nearbyErr  error
	legs       map[string][]models.RouteLeg
	failTo     map[string]bool
	departures []time.Time
}

func (f *fakeMaps) Geocode(context.Context, string) (models.Coordinate, error) {
	if f.geocodeErr != nil {
		return models.Coordinate{}, f.geocodeErr
	}
	return models.Coordinate{Lat: 52.1093, Lng: 5.1810}, nil
}

func (f *fakeMaps) Nearby(context.Context, models.Coordinate, uint, string) ([]models.Place, error) {
	return f.places, f.nearbyErr
}

func (f *fakeMaps) Directions(_ context.Context, _, destination, _ string, departure time.Time) ([]models.RouteLeg, error) {
	f.departures = append(f.departures, departure)
	if f.failTo[destination] {
		return nil, errors.New("ZERO_RESULTS")
	}
	return f.legs[destination], nil
}

var (
	testAddress = models.Address{Street: "Alfred Nobellaan", HouseNumber: "42", Postcode: "3731DW", City: "De Bilt"}
	referenceA  = Destination{Name: "Science Park", Address: "Science Park 904, 1098 XH Amsterdam"}
	referenceB  = Destination{Name: "Flux", Address: "De Groene Loper 19, 5612 AP Eindhoven"}
	wednesday   = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
)

func TestCommuteEnrich(t *testing.T) {
	m := &fakeMaps{
		places: []models.Place{{
			Name:     "Station Bilthoven",
			Vicinity: "Bilthoven",
			Location: models.Coordinate{Lat: 52.129, Lng: 5.204},
		}},
		legs: map[string][]models.RouteLeg{
			"52.129000,5.204000": {{Duration: "12 min", Distance: "1,0 km"}},
			referenceA.Address:   {{Duration: "55 min", Distance: "45 km", StartAddress: "De Bilt", EndAddress: "Amsterdam", Summary: "Intercity"}},
		},
		failTo: map[string]bool{referenceB.Address: true},
	}
	e := NewCommuteEnricher(m, referenceA, referenceB, wednesday, nil)

	info, loc := e.Enrich(context.Background(), testAddress)

	if loc == nil || loc.Geohash == "" || loc.Geohash[:4] != "u178" {
		t.Errorf("location = %+v; want geohash under u178", loc)
	}
	if info.Name != "Station Bilthoven" || info.WalkingTime != "12 min" || info.WalkingDistance != "1,0 km" {
		t.Errorf("station = %+v", info)
	}
	if !info.ToReferenceA.Available() || info.ToReferenceA.RouteSummary != "Intercity" || info.ToReferenceA.Mode != ModeTransit {
		t.Errorf("reference A = %+v", info.ToReferenceA)
	}
	if info.ToReferenceB.Available() || info.ToReferenceB.Duration != models.NotAvailable || info.ToReferenceB.Distance != models.NotAvailable {
		t.Errorf("reference B = %+v; want NotAvailable sentinel", info.ToReferenceB)
	}

	want := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	for _, d := range m.departures {
		if !d.Equal(want) {
			t.Errorf("departure = %v; want %v", d, want)
		}
	}
	if len(m.departures) != 3 {
		t.Errorf("directions calls = %d; want walk + two references", len(m.departures))
	}
}

func TestCommuteEnrichNoStation(t *testing.T) {
	m := &fakeMaps{legs: map[string][]models.RouteLeg{}}
	info, loc := NewCommuteEnricher(m, referenceA, referenceB, wednesday, nil).Enrich(context.Background(), testAddress)

	if loc == nil {
		t.Fatal("location = nil; want geocoded point")
	}
	if info.HasStation() || info.WalkingTime != "" {
		t.Errorf("station = %+v; want empty station fields", info)
	}
	if len(m.departures) != 2 {
		t.Errorf("directions calls = %d; want only the two references", len(m.departures))
	}
	// Empty route lists degrade to the sentinel.
	if info.ToReferenceA.Duration != models.NotAvailable {
		t.Errorf("reference A = %+v; want NotAvailable", info.ToReferenceA)
	}
}

func TestCommuteEnrichWalkFailure(t *testing.T) {
	m := &fakeMaps{
		places: []models.Place{{Name: "Station Bilthoven", Location: models.Coordinate{Lat: 52.129, Lng: 5.204}}},
		failTo: map[string]bool{"52.129000,5.204000": true},
	}
	info, _ := NewCommuteEnricher(m, referenceA, referenceB, wednesday, nil).Enrich(context.Background(), testAddress)
	if info.Name != "Station Bilthoven" || info.WalkingTime != models.NotAvailable || info.WalkingDistance != models.NotAvailable {
		t.Errorf("station = %+v; want name with NotAvailable walk", info)
	}
}

func TestCommuteEnrichDegrades(t *testing.T) {
	tests := []struct {
		name string
		maps Maps
		addr models.Address
	}{
		{"no address", &fakeMaps{}, models.Address{}},
		{"no maps", nil, testAddress},
	}
	for _, tt := range tests {
		info, loc := NewCommuteEnricher(tt.maps, referenceA, referenceB, wednesday, nil).Enrich(context.Background(), tt.addr)
		if loc != nil || info.HasStation() || info.ToReferenceA != nil || info.ToReferenceB != nil {
			t.Errorf("%s: Enrich = %+v, %v; want empty", tt.name, info, loc)
		}
	}
}

func TestCommuteEnrichGeocodeFailureKeepsReferenceLegs(t *testing.T) {
	m := &fakeMaps{
		geocodeErr: errors.New("REQUEST_DENIED"),
		legs: map[string][]models.RouteLeg{
			referenceA.Address: {{Duration: "55 min", Distance: "45 km"}},
		},
	}
	info, loc := NewCommuteEnricher(m, referenceA, referenceB, wednesday, nil).Enrich(context.Background(), testAddress)

	if loc != nil || info.HasStation() {
		t.Errorf("location = %v, station = %q; want neither after geocode failure", loc, info.Name)
	}
	if !info.ToReferenceA.Available() || info.ToReferenceA.Duration != "55 min" {
		t.Errorf("reference A = %+v; want routed from the address text", info.ToReferenceA)
	}
	if info.ToReferenceB == nil || info.ToReferenceB.Duration != models.NotAvailable {
		t.Errorf("reference B = %+v; want NotAvailable sentinel", info.ToReferenceB)
	}
	if len(m.departures) != 2 {
		t.Errorf("directions calls = %d; want the two references", len(m.departures))
	}
}
