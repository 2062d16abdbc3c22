// Package maps adapts the Google Maps web services to services.Maps.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	googlemaps "googlemaps.github.io/maps"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/services"
)

const (
	language = "nl"
	region   = "nl"
)

// placeTypes maps the category names used by the enrichers onto the Places
// API types.
var placeTypes = map[string]googlemaps.PlaceType{
	"train_station":   googlemaps.PlaceTypeTrainStation,
	"transit_station": googlemaps.PlaceTypeTransitStation,
	"subway_station":  googlemaps.PlaceTypeSubwayStation,
	"bus_station":     googlemaps.PlaceTypeBusStation,
}

// api is the subset of *googlemaps.Client the adapter calls.
type api interface {
	Geocode(ctx context.Context, r *googlemaps.GeocodingRequest) ([]googlemaps.GeocodingResult, error)
	NearbySearch(ctx context.Context, r *googlemaps.NearbySearchRequest) (googlemaps.PlacesSearchResponse, error)
	Directions(ctx context.Context, r *googlemaps.DirectionsRequest) ([]googlemaps.Route, []googlemaps.GeocodedWaypoint, error)
}

// Client implements services.Maps.
type Client struct {
	api api
}

var _ services.Maps = (*Client)(nil)

// New creates a Client authenticated with apiKey.
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("maps: api key not configured")
	}
	c, err := googlemaps.NewClient(googlemaps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps: new client: %w", err)
	}
	return &Client{api: c}, nil
}

// Geocode resolves address to its first match.
func (c *Client) Geocode(ctx context.Context, address string) (models.Coordinate, error) {
	results, err := c.api.Geocode(ctx, &googlemaps.GeocodingRequest{
		Address:  address,
		Region:   region,
		Language: language,
	})
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("maps: geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return models.Coordinate{}, fmt.Errorf("maps: geocode %q: no results", address)
	}
	loc := results[0].Geometry.Location
	return models.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// Nearby lists places of category within radiusMeters of at, ordered by
// prominence as the Places API returns them.
func (c *Client) Nearby(ctx context.Context, at models.Coordinate, radiusMeters uint, category string) ([]models.Place, error) {
	req := &googlemaps.NearbySearchRequest{
		Location: &googlemaps.LatLng{Lat: at.Lat, Lng: at.Lng},
		Radius:   radiusMeters,
		Language: language,
	}
	if t, ok := placeTypes[category]; ok {
		req.Type = t
	} else {
		req.Keyword = category
	}

	resp, err := c.api.NearbySearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("maps: nearby %s: %w", category, err)
	}

	places := make([]models.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		places = append(places, models.Place{
			Name:     r.Name,
			Vicinity: r.Vicinity,
			Location: models.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
		})
	}
	return places, nil
}

// Directions returns the legs of the first route from origin to destination.
func (c *Client) Directions(ctx context.Context, origin, destination, mode string, departure time.Time) ([]models.RouteLeg, error) {
	req := &googlemaps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        travelMode(mode),
		Region:      region,
		Language:    language,
	}
	if !departure.IsZero() {
		req.DepartureTime = strconv.FormatInt(departure.Unix(), 10)
	}

	routes, _, err := c.api.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("maps: directions %s: %w", mode, err)
	}
	if len(routes) == 0 {
		return nil, nil
	}

	route := routes[0]
	legs := make([]models.RouteLeg, 0, len(route.Legs))
	for _, leg := range route.Legs {
		if leg == nil {
			continue
		}
		legs = append(legs, models.RouteLeg{
			Duration:     FormatDuration(leg.Duration),
			Distance:     leg.Distance.HumanReadable,
			StartAddress: leg.StartAddress,
			EndAddress:   leg.EndAddress,
			Summary:      route.Summary,
		})
	}
	return legs, nil
}

func travelMode(mode string) googlemaps.Mode {
	switch mode {
	case services.ModeWalking:
		return googlemaps.TravelModeWalking
	case services.ModeTransit:
		return googlemaps.TravelModeTransit
	default:
		return googlemaps.TravelModeDriving
	}
}

// FormatDuration renders d the way the Directions API text field does, e.g.
// "1 uur 5 min" or "12 min".
func FormatDuration(d time.Duration) string {
	minutes := int((d + 30*time.Second) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	hours, minutes := minutes/60, minutes%60
	switch {
	case hours == 0:
		return fmt.Sprintf("%d min", minutes)
	case minutes == 0:
		return fmt.Sprintf("%d uur", hours)
	default:
		return fmt.Sprintf("%d uur %d min", hours, minutes)
	}
}
