package models

import (
	"fmt"
	"time"
)

// NotAvailable is the human-readable marker used for commute fields that
// could not be resolved.
const NotAvailable = "Niet beschikbaar"

// Address is a structured Dutch address parsed from free-form listing text.
// A failed parse leaves every field empty.
type Address struct {
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
}

// IsEmpty reports whether nothing at all could be recovered.
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.HouseNumber == "" && a.Postcode == "" && a.City == ""
}

// IsComplete reports whether all four components are present.
func (a Address) IsComplete() bool {
	return a.Street != "" && a.HouseNumber != "" && a.Postcode != "" && a.City != ""
}

// PostcodePrefix returns the four digits of the postcode, or "".
func (a Address) PostcodePrefix() string {
	if len(a.Postcode) < 4 {
		return ""
	}
	return a.Postcode[:4]
}

// String formats the address as "Street 12, 1234AB City". Partial addresses
// render only what is known.
func (a Address) String() string {
	switch {
	case a.IsComplete():
		return fmt.Sprintf("%s %s, %s %s", a.Street, a.HouseNumber, a.Postcode, a.City)
	case a.Postcode != "":
		return fmt.Sprintf("%s %s", a.Postcode, a.City)
	default:
		return ""
	}
}

// ListingSummary holds what the notification itself says about a listing.
type ListingSummary struct {
	Title        string `json:"title"`
	Price        string `json:"price"`
	SizeAndRooms string `json:"size_rooms"`
	AgentName    string `json:"agent"`
	DetailURL    string `json:"url"`
}

// AgentContact is the selling agent's contact card. Missing parts are "".
type AgentContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Coordinate is a WGS84 point plus its geohash.
type Coordinate struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Geohash string  `json:"geohash,omitempty"`
}

// Place is a point of interest returned by a nearby search.
type Place struct {
	Name     string
	Vicinity string
	Location Coordinate
}

// RouteLeg is a single leg of a directions result.
type RouteLeg struct {
	Duration     string
	Distance     string
	StartAddress string
	EndAddress   string
	Summary      string
}

// CommuteInfo describes one commute leg. When the lookup failed Duration and
// Distance carry NotAvailable.
type CommuteInfo struct {
	Duration     string `json:"duration"`
	Distance     string `json:"distance"`
	StartAddress string `json:"start_address"`
	EndAddress   string `json:"end_address"`
	RouteSummary string `json:"summary"`
	Mode         string `json:"mode"`
}

// Available reports whether the leg was actually resolved.
func (c *CommuteInfo) Available() bool {
	return c != nil && c.Duration != NotAvailable && c.Duration != ""
}

// StationInfo is the nearest transit station plus the two reference commutes.
type StationInfo struct {
	Name            string       `json:"station_name"`
	Address         string       `json:"station_addr"`
	WalkingTime     string       `json:"walking_time"`
	WalkingDistance string       `json:"walking_distance"`
	ToReferenceA    *CommuteInfo `json:"to_reference_a"`
	ToReferenceB    *CommuteInfo `json:"to_reference_b"`
}

// HasStation reports whether a station was found.
func (s StationInfo) HasStation() bool { return s.Name != "" }

// ValuationEntry is one WOZ entry from the valuation timeline.
type ValuationEntry struct {
	Year   string `json:"year"`
	Amount string `json:"amount"`
	Change string `json:"change,omitempty"`
}

// String renders "WOZ <year>: <amount> (<change>)".
func (e ValuationEntry) String() string {
	if e.Change == "" {
		return fmt.Sprintf("WOZ %s: %s", e.Year, e.Amount)
	}
	return fmt.Sprintf("WOZ %s: %s (%s)", e.Year, e.Amount, e.Change)
}

// Valuation is a parsed valuation history plus its rendered fragment.
type Valuation struct {
	Entries  []ValuationEntry `json:"entries"`
	Fragment string           `json:"fragment"`
}

// HouseRecord is the aggregate produced for one notification. It is not
// mutated after it has been published.
type HouseRecord struct {
	ID                   string          `json:"id"`
	Listing              ListingSummary  `json:"listing"`
	Address              Address         `json:"address"`
	Location             *Coordinate     `json:"location,omitempty"`
	Images               []string        `json:"images"`
	AgentContact         AgentContact    `json:"agent_info"`
	Details              string          `json:"details"`
	DetailsSections      DetailSections  `json:"details_sections"`
	ImportantFields      ImportantFields `json:"important_info"`
	Station              StationInfo     `json:"nearest_station"`
	Valuation            *Valuation      `json:"woz_info,omitempty"`
	DemographicsFragment string          `json:"immigration_info"`
	ExternalReferenceURL string          `json:"huispedia_url,omitempty"`
	PublishFilename      string          `json:"filename,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// HeroImage returns the designated cover image, or "".
func (h *HouseRecord) HeroImage() string {
	if len(h.Images) == 0 {
		return ""
	}
	return h.Images[0]
}

// ValuationFragment returns the rendered valuation list, or "".
func (h *HouseRecord) ValuationFragment() string {
	if h.Valuation == nil {
		return ""
	}
	return h.Valuation.Fragment
}

// Clone returns a deep copy, so a published record can be handed out without
// sharing slices with the caller.
func (h *HouseRecord) Clone() *HouseRecord {
	c := *h
	c.Images = append([]string(nil), h.Images...)
	c.DetailsSections = h.DetailsSections.Clone()
	if h.Location != nil {
		loc := *h.Location
		c.Location = &loc
	}
	if h.Valuation != nil {
		v := *h.Valuation
		v.Entries = append([]ValuationEntry(nil), h.Valuation.Entries...)
		c.Valuation = &v
	}
	c.Station = h.Station.clone()
	return &c
}

func (s StationInfo) clone() StationInfo {
	if s.ToReferenceA != nil {
		a := *s.ToReferenceA
		s.ToReferenceA = &a
	}
	if s.ToReferenceB != nil {
		b := *s.ToReferenceB
		s.ToReferenceB = &b
	}
	return s
}
