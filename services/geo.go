package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmcloughlin/geohash"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/utils"
)

const (
	ModeWalking = "walking"
	ModeTransit = "transit"

	stationSearchRadius = 5000
	stationCategory     = "train_station"
	geohashPrecision    = 9
)

// ErrNoAddress marks an enrichment skipped because the address is absent.
var ErrNoAddress = errors.New("no usable address")

// Maps is the geocoding and directions capability.
type Maps interface {
	Geocode(ctx context.Context, address string) (models.Coordinate, error)
	Nearby(ctx context.Context, at models.Coordinate, radiusMeters uint, category string) ([]models.Place, error)
	Directions(ctx context.Context, origin, destination, mode string, departure time.Time) ([]models.RouteLeg, error)
}

// Destination is a fixed commute target.
type Destination struct {
	Name    string
	Address string
}

// CommuteEnricher resolves the nearest station and the reference commutes.
type CommuteEnricher struct {
	maps       Maps
	referenceA Destination
	referenceB Destination
	now        func() time.Time
	logger     *utils.Logger
}

// NewCommuteEnricher creates a CommuteEnricher. now may be nil, in which case
// time.Now is used.
func NewCommuteEnricher(maps Maps, a, b Destination, now func() time.Time, logger *utils.Logger) *CommuteEnricher {
	if now == nil {
		now = time.Now
	}
	return &CommuteEnricher{maps: maps, referenceA: a, referenceB: b, now: now, logger: logger}
}

// NextDeparture returns the next Tuesday at 09:00 in now's location. On a
// Tuesday it rolls a full week forward.
func NextDeparture(now time.Time) time.Time {
	days := (int(time.Tuesday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	d := now.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, now.Location())
}

// Enrich returns station and commute information for addr together with the
// geocoded location. Failures degrade to empty or NotAvailable values.
func (e *CommuteEnricher) Enrich(ctx context.Context, addr models.Address) (models.StationInfo, *models.Coordinate) {
	var info models.StationInfo

	origin := addr.String()
	if origin == "" || e.maps == nil {
		e.logger.Warn("[geo] Skipping commute lookup: %v", ErrNoAddress)
		return info, nil
	}

	departure := NextDeparture(e.now())

	// The reference commutes route from the address text, so they do not
	// depend on geocoding.
	var location *models.Coordinate
	if loc, err := e.maps.Geocode(ctx, origin); err != nil {
		e.logger.Error("[geo] Geocoding %q failed: %v", origin, err)
	} else {
		loc.Geohash = geohash.EncodeWithPrecision(loc.Lat, loc.Lng, geohashPrecision)
		location = &loc
		e.nearestStation(ctx, origin, loc, departure, &info)
	}

	info.ToReferenceA = e.commute(ctx, origin, e.referenceA.Address, ModeTransit, departure)
	info.ToReferenceB = e.commute(ctx, origin, e.referenceB.Address, ModeTransit, departure)

	e.logger.Info("[geo] %s: station=%q walk=%s, %s=%s, %s=%s", origin, info.Name, info.WalkingTime,
		e.referenceA.Name, info.ToReferenceA.Duration, e.referenceB.Name, info.ToReferenceB.Duration)

	return info, location
}

// nearestStation fills the station fields of info, leaving them empty when no
// station is found.
func (e *CommuteEnricher) nearestStation(ctx context.Context, origin string, loc models.Coordinate, departure time.Time, info *models.StationInfo) {
	places, err := e.maps.Nearby(ctx, loc, stationSearchRadius, stationCategory)
	switch {
	case err != nil:
		e.logger.Error("[geo] Station search near %q failed: %v", origin, err)
		return
	case len(places) == 0:
		e.logger.Info("[geo] No station within %dm of %q", stationSearchRadius, origin)
		return
	}

	station := places[0]
	info.Name = station.Name
	info.Address = station.Vicinity
	target := fmt.Sprintf("%f,%f", station.Location.Lat, station.Location.Lng)
	walk := e.commute(ctx, origin, target, ModeWalking, departure)
	if walk.Available() {
		info.WalkingTime = walk.Duration
		info.WalkingDistance = walk.Distance
	} else {
		info.WalkingTime = models.NotAvailable
		info.WalkingDistance = models.NotAvailable
	}
}

// commute queries one leg. It never fails: errors become a NotAvailable leg.
func (e *CommuteEnricher) commute(ctx context.Context, origin, destination, mode string, departure time.Time) *models.CommuteInfo {
	unavailable := &models.CommuteInfo{
		Duration:     models.NotAvailable,
		Distance:     models.NotAvailable,
		StartAddress: origin,
		EndAddress:   destination,
		Mode:         mode,
	}
	if destination == "" {
		return unavailable
	}

	legs, err := e.maps.Directions(ctx, origin, destination, mode, departure)
	if err != nil {
		e.logger.Error("[geo] %s directions %q -> %q failed: %v", mode, origin, destination, err)
		return unavailable
	}
	if len(legs) == 0 {
		e.logger.Warn("[geo] %s directions %q -> %q returned no route", mode, origin, destination)
		return unavailable
	}

	leg := legs[0]
	return &models.CommuteInfo{
		Duration:     leg.Duration,
		Distance:     leg.Distance,
		StartAddress: leg.StartAddress,
		EndAddress:   leg.EndAddress,
		RouteSummary: leg.Summary,
		Mode:         mode,
	}
}
