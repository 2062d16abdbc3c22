package services

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/utils"
)

const viewDetailsLabel = "Bekijk details"

var (
	priceExtractor = NewFieldExtractor("price", `€ [\d\.,]+ k\.k\.`)
	sizeExtractor  = NewFieldExtractor("size_rooms", `\d+ m² • \d+ m² • \d+ kamers`)
	agentExtractor = NewFieldExtractor("agent", `[A-Za-z ]+ Makelaardij`)
)

// ListingExtractor turns a notification's HTML into a ListingSummary and an
// Address.
type ListingExtractor struct {
	logger *utils.Logger
}

// NewListingExtractor creates a ListingExtractor with the given logger.
func NewListingExtractor(logger *utils.Logger) *ListingExtractor {
	return &ListingExtractor{logger: logger}
}

// Extract parses rendered notification content. Each field is matched on its
// own; a miss leaves that field "".
func (e *ListingExtractor) Extract(content string) (models.ListingSummary, models.Address) {
	doc, err := ParseDocument(content)
	if err != nil {
		e.logger.Warn("[listing] %v", err)
		return models.ListingSummary{}, models.Address{}
	}

	var summary models.ListingSummary

	titleLink := firstTextLink(doc.Selection)
	if titleLink != nil {
		summary.Title = cleanText(titleLink)
		summary.DetailURL = strings.TrimSpace(titleLink.AttrOr("href", ""))
	}
	if btn := viewDetailsLink(doc.Selection); btn != "" {
		summary.DetailURL = btn
	}

	text := flattenText(doc.Selection, "\n")
	summary.Price = strings.TrimSpace(priceExtractor.Extract(text))
	summary.SizeAndRooms = strings.TrimSpace(sizeExtractor.Extract(text))
	summary.AgentName = strings.TrimSpace(agentExtractor.Extract(text))

	addr := ParseAddress(text)

	e.logger.Debug("[listing] title=%q price=%q size=%q agent=%q url=%q",
		summary.Title, summary.Price, summary.SizeAndRooms, summary.AgentName, summary.DetailURL)
	if addr.IsComplete() {
		e.logger.Info("[listing] Matched address: %s", addr)
	} else {
		e.logger.Warn("[listing] Failed to match complete address, got %q", addr.String())
	}

	return summary, addr
}

// firstTextLink returns the first anchor that has both an href and visible text.
func firstTextLink(root *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if cleanText(a) == "" || strings.TrimSpace(a.AttrOr("href", "")) == "" {
			return true
		}
		found = a
		return false
	})
	return found
}

func viewDetailsLink(root *goquery.Selection) string {
	var href string
	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(a.Text(), viewDetailsLabel) {
			return true
		}
		href = strings.TrimSpace(a.AttrOr("href", ""))
		return href == ""
	})
	return href
}
