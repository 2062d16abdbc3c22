package services

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/utils"
)

const (
	DefaultValuationBaseURL    = "https://walterliving.com/report/"
	DefaultDemographicsBaseURL = "http://www.allochtonenmeter.nl/"

	// DemographicsUnavailable is rendered when no demographic table exists.
	DemographicsUnavailable = "<p style='margin:0;color:#666;'>Geen immigratie informatie beschikbaar</p>"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	wozYearRegexp   = regexp.MustCompile(`WOZ\s*(\d{4})`)
	wozAmountRegexp = regexp.MustCompile(`€\s*[\d\.]+`)
	wozChangeRegexp = regexp.MustCompile(`(\d{1,2},\d)%`)
)

// newCollector returns a colly collector configured the same way for both
// public lookup sites.
func newCollector(timeout time.Duration) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(browserUserAgent),
		colly.AllowURLRevisit(),
	)
	if timeout > 0 {
		c.SetRequestTimeout(timeout)
	}
	return c
}

// ValuationEnricher fetches the public WOZ valuation history of an address.
type ValuationEnricher struct {
	baseURL   string
	collector *colly.Collector
	logger    *utils.Logger
}

// NewValuationEnricher creates a ValuationEnricher. An empty baseURL selects
// DefaultValuationBaseURL.
func NewValuationEnricher(baseURL string, timeout time.Duration, logger *utils.Logger) *ValuationEnricher {
	if baseURL == "" {
		baseURL = DefaultValuationBaseURL
	}
	return &ValuationEnricher{baseURL: baseURL, collector: newCollector(timeout), logger: logger}
}

// ValuationURL builds the report URL for addr, or "" when addr is incomplete.
func (e *ValuationEnricher) ValuationURL(addr models.Address) string {
	if !addr.IsComplete() {
		return ""
	}
	slug := strings.Join([]string{
		utils.Slug(addr.Street),
		utils.Slug(addr.HouseNumber),
		utils.Slug(addr.City),
	}, "-")
	return strings.TrimRight(e.baseURL, "/") + "/" + slug
}

// Enrich returns the valuation for addr, or nil when the address does not
// parse, the page has no timeline, or no entry is a WOZ valuation.
func (e *ValuationEnricher) Enrich(ctx context.Context, addr models.Address) *models.Valuation {
	url := e.ValuationURL(addr)
	if url == "" {
		e.logger.Warn("[woz] Skipping valuation: %v", ErrNoAddress)
		return nil
	}
	e.logger.Info("[woz] Querying %s", url)

	var (
		entries  []models.ValuationEntry
		found    bool
		fetchErr error
	)

	c := e.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnHTML("ul.group", func(el *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		entries = parseValuationList(el.DOM)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("GET %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil {
		e.logger.Error("[woz] %v", err)
		return nil
	}
	c.Wait()

	switch {
	case fetchErr != nil:
		e.logger.Error("[woz] %v", fetchErr)
		return nil
	case !found:
		e.logger.Warn("[woz] No valuation timeline on %s", url)
		return nil
	case len(entries) == 0:
		e.logger.Warn("[woz] No WOZ entries on %s", url)
		return nil
	}

	return &models.Valuation{Entries: entries, Fragment: renderValuation(entries)}
}

func parseValuationList(list *goquery.Selection) []models.ValuationEntry {
	var entries []models.ValuationEntry
	list.Find("li.timeline-events__item").Each(func(_ int, item *goquery.Selection) {
		if entry, ok := parseValuationItem(item); ok {
			entries = append(entries, entry)
		}
	})
	return entries
}

func parseValuationItem(item *goquery.Selection) (models.ValuationEntry, bool) {
	label := item.Find("span.timeline-events__item__type").First().Text()
	if !strings.Contains(label, "WOZ") {
		return models.ValuationEntry{}, false
	}

	var entry models.ValuationEntry
	if m := wozYearRegexp.FindStringSubmatch(label); m != nil {
		entry.Year = m[1]
	}

	content := item.Find("div.timeline-events__item__content").First().Text()
	entry.Amount = wozAmountRegexp.FindString(content)
	if m := wozChangeRegexp.FindStringSubmatch(content); m != nil {
		entry.Change = m[1] + "%"
	}

	if entry.Year == "" || entry.Amount == "" {
		return models.ValuationEntry{}, false
	}
	return entry, true
}

func renderValuation(entries []models.ValuationEntry) string {
	var b strings.Builder
	b.WriteString("<ul class='woz-data'>")
	for _, e := range entries {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(e.String()))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

// DemographicsEnricher fetches the neighbourhood demographic index for a
// four-digit postcode prefix.
type DemographicsEnricher struct {
	baseURL   string
	collector *colly.Collector
	logger    *utils.Logger
}

// NewDemographicsEnricher creates a DemographicsEnricher. An empty baseURL
// selects DefaultDemographicsBaseURL.
func NewDemographicsEnricher(baseURL string, timeout time.Duration, logger *utils.Logger) *DemographicsEnricher {
	if baseURL == "" {
		baseURL = DefaultDemographicsBaseURL
	}
	return &DemographicsEnricher{baseURL: baseURL, collector: newCollector(timeout), logger: logger}
}

// Enrich returns the first table of the lookup page as an HTML fragment, or
// DemographicsUnavailable.
func (e *DemographicsEnricher) Enrich(ctx context.Context, postcodePrefix string) string {
	if len(postcodePrefix) != 4 {
		e.logger.Warn("[demographics] Skipping lookup: %v", ErrNoAddress)
		return DemographicsUnavailable
	}

	url := strings.TrimRight(e.baseURL, "/") + "/?postcode=" + postcodePrefix
	e.logger.Info("[demographics] Querying %s", url)

	var (
		fragment string
		found    bool
		fetchErr error
	)

	c := e.collector.Clone()
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnHTML("table", func(el *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		fragment = renderTable(el.DOM)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("GET %s: status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil {
		e.logger.Error("[demographics] %v", err)
		return DemographicsUnavailable
	}
	c.Wait()

	if fetchErr != nil {
		e.logger.Error("[demographics] %v", fetchErr)
		return DemographicsUnavailable
	}
	if !found {
		e.logger.Warn("[demographics] No table on %s", url)
		return DemographicsUnavailable
	}
	return fragment
}

func renderTable(table *goquery.Selection) string {
	var b strings.Builder
	b.WriteString("<table style='width:100%;border-collapse:collapse;'>")
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() == 0 {
			return
		}
		b.WriteString("<tr>")
		cells.Each(func(_ int, cell *goquery.Selection) {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(strings.TrimSpace(cell.Text())))
			b.WriteString("</td>")
		})
		b.WriteString("</tr>")
	})
	b.WriteString("</table>")
	return b.String()
}
