package services

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/utils"
)

const sellingAgentHeading = "Verkopend makelaar"

// Renderer returns a fully rendered, post-login document for url.
type Renderer interface {
	Render(ctx context.Context, url string) (*goquery.Document, error)
}

// DetailResult is everything the detail page contributes to a record.
type DetailResult struct {
	Text     string
	Images   []string
	Sections models.DetailSections
	Agent    models.AgentContact
}

// DetailEnricher scrapes a listing's detail page.
type DetailEnricher struct {
	renderer Renderer
	logger   *utils.Logger
}

// NewDetailEnricher creates a DetailEnricher on top of an authenticated renderer.
func NewDetailEnricher(renderer Renderer, logger *utils.Logger) *DetailEnricher {
	return &DetailEnricher{renderer: renderer, logger: logger}
}

// Fetch loads url and extracts its details. Any failure is logged and
// yields an empty DetailResult.
func (e *DetailEnricher) Fetch(ctx context.Context, url string) (res DetailResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("[details] Parsing %s panicked: %v", url, r)
			res = DetailResult{}
		}
	}()

	if url == "" {
		e.logger.Warn("[details] No detail URL, skipping detail page")
		return DetailResult{}
	}
	if e.renderer == nil {
		e.logger.Warn("[details] No renderer configured, skipping %s", url)
		return DetailResult{}
	}

	doc, err := e.renderer.Render(ctx, url)
	if err == nil && doc == nil {
		err = errors.New("renderer returned no document")
	}
	if err != nil {
		e.logger.Error("[details] Fetching %s failed: %v", url, err)
		return DetailResult{}
	}

	res = ParseDetailDocument(doc)
	e.logger.Info("[details] %s: %d sections, %d images, agent=%q",
		url, res.Sections.Len(), len(res.Images), res.Agent.Name)
	return res
}

// ParseDetailDocument extracts sections, plain text, images and the selling
// agent from a rendered detail page.
func ParseDetailDocument(doc *goquery.Document) DetailResult {
	root := doc.Selection

	sections, _ := FirstMatch[*goquery.Selection, models.DetailSections](root,
		featuresModuleSections, headingTableSections)

	return DetailResult{
		Text:     detailText(root),
		Images:   detailImages(root),
		Sections: sections,
		Agent:    sellingAgent(root),
	}
}

// featuresModuleSections walks the features module in document order,
// filing every grey/darkgrey row under the most recent h3.
func featuresModuleSections(root *goquery.Selection) (models.DetailSections, bool) {
	var sections models.DetailSections

	module := root.Find("div#featuresModule").First()
	if module.Length() == 0 {
		return sections, false
	}

	current := ""
	haveSection := false
	module.Find("*").Each(func(_ int, el *goquery.Selection) {
		switch {
		case goquery.NodeName(el) == "h3":
			current = cleanText(el)
			haveSection = true
			sections.Reset(current)
		case goquery.NodeName(el) == "div" && el.HasClass("row"):
			key := el.Find("div.grey").First()
			value := el.Find("div.darkgrey").First()
			if !haveSection || key.Length() == 0 || value.Length() == 0 {
				return
			}
			sections.Set(current, cleanText(key), cleanText(value))
		}
	})

	return sections, sections.Len() > 0
}

// headingTableSections pairs every h2/h3/strong with the next table or
// definition list after it.
func headingTableSections(root *goquery.Selection) (models.DetailSections, bool) {
	var sections models.DetailSections
	order := newDocumentOrder(root)

	root.Find("h2, h3, strong").Each(func(_ int, heading *goquery.Selection) {
		table := order.nextAfter(heading, "table", "dl")
		if table == nil {
			return
		}

		var group []models.Attribute
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cols := row.Find("td, th")
			if cols.Length() != 2 {
				return
			}
			group = append(group, models.Attribute{
				Key:   cleanText(cols.Eq(0)),
				Value: cleanText(cols.Eq(1)),
			})
		})
		table.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			dd := order.nextAfter(dt, "dd")
			if dd == nil {
				return
			}
			group = append(group, models.Attribute{Key: cleanText(dt), Value: cleanText(dd)})
		})

		if len(group) > 0 {
			sections.Replace(cleanText(heading), group)
		}
	})

	return sections, sections.Len() > 0
}

var detailTextStrategies = []Strategy[*goquery.Selection, string]{
	containerText("div.object-details"),
	containerText("main"),
}

func containerText(selector string) Strategy[*goquery.Selection, string] {
	return func(root *goquery.Selection) (string, bool) {
		sel := root.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		return flattenText(sel, "\n"), true
	}
}

func detailText(root *goquery.Selection) string {
	if text, ok := FirstMatch(root, detailTextStrategies...); ok {
		return text
	}
	return flattenText(root, "\n")
}

func detailImages(root *goquery.Selection) []string {
	var images []string
	if src := strings.TrimSpace(root.Find("img#myHeightImage").First().AttrOr("src", "")); src != "" {
		images = append(images, src)
	}
	root.Find("div#links").First().Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		images = append(images, strings.TrimSpace(a.AttrOr("href", "")))
	})
	return utils.Dedup(images)
}

func sellingAgent(root *goquery.Selection) models.AgentContact {
	var agent models.AgentContact

	root.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(h.Text(), sellingAgentHeading) {
			return true
		}
		card := h.ParentsFiltered("div.card").First()
		if card.Length() == 0 {
			return true
		}
		agent.Name = cleanText(card.Find("p").First())
		agent.Phone = cleanText(card.Find(`a[href^="tel:"]`).First())
		agent.Email = cleanText(card.Find(`a[href^="mailto:"]`).First())
		return false
	})

	return agent
}
