// Package notify announces published houses over WhatsApp and email.
package notify

import (
	"fmt"
	"strings"

	"makelaarsland-notifier/models"
)

// Message is the content shared by every channel.
type Message struct {
	Title           string
	Address         string
	Price           string
	Details         string
	Agent           string
	HasStation      bool
	StationName     string
	WalkingDistance string
	WalkingTime     string
	Link            string
}

// NewMessage builds the announcement for record. The link points at the
// published page under siteBaseURL, or at the listing itself when the record
// was never published.
func NewMessage(record *models.HouseRecord, siteBaseURL string) Message {
	m := Message{
		Title:           record.Listing.Title,
		Address:         record.Address.String(),
		Price:           record.Listing.Price,
		Details:         record.Listing.SizeAndRooms,
		Agent:           record.Listing.AgentName,
		HasStation:      record.Station.HasStation(),
		StationName:     record.Station.Name,
		WalkingDistance: record.Station.WalkingDistance,
		WalkingTime:     record.Station.WalkingTime,
		Link:            record.Listing.DetailURL,
	}
	if record.PublishFilename != "" && siteBaseURL != "" {
		m.Link = strings.TrimRight(siteBaseURL, "/") + "/" + record.PublishFilename
	}
	return m
}

// Subject is the email subject line.
func (m Message) Subject() string {
	return "🏠 New House Alert: " + m.Title
}

// Text renders the plain-text body used for WhatsApp.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString("🏠 New House Alert!\n\n")
	fmt.Fprintf(&b, "Title: %s\n", m.Title)
	fmt.Fprintf(&b, "Address: %s\n", m.Address)
	fmt.Fprintf(&b, "Price: %s\n", m.Price)
	fmt.Fprintf(&b, "Details: %s\n", m.Details)
	fmt.Fprintf(&b, "Agent: %s\n", m.Agent)
	if m.HasStation {
		fmt.Fprintf(&b, "\n🚉 Nearest Station: %s\n", m.StationName)
		fmt.Fprintf(&b, "Distance: %s\n", m.WalkingDistance)
		fmt.Fprintf(&b, "Walking Time: %s\n", m.WalkingTime)
	}
	if m.Link != "" {
		fmt.Fprintf(&b, "\n🔗 View Details: %s", m.Link)
	}
	return b.String()
}
