package services

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"makelaarsland-notifier/utils"
)

// ParseDocument parses raw HTML into a goquery document.
func ParseDocument(raw string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// blockElements start a new line when flattening text. Text inside any
// other element joins the surrounding line.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"body": true, "br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"section": true, "table": true, "tbody": true, "td": true, "tfoot": true,
	"th": true, "thead": true, "tr": true, "ul": true,
}

// flattenText renders the text under sel one line per block element, with
// whitespace collapsed inside each line, and joins the lines with sep.
// Script and style contents are skipped.
func flattenText(sel *goquery.Selection, sep string) string {
	var (
		lines []string
		line  strings.Builder
	)
	flush := func() {
		if t := utils.NormaliseText(line.String()); t != "" {
			lines = append(lines, t)
		}
		line.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			line.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
		flush()
	}
	return strings.Join(lines, sep)
}

// cleanText returns the element's text with whitespace collapsed.
func cleanText(sel *goquery.Selection) string {
	return utils.NormaliseText(sel.Text())
}

// documentOrder indexes every element under root in document order, so
// "next following element" lookups can scan forward from any element.
type documentOrder struct {
	nodes []*goquery.Selection
	index map[*html.Node]int
}

func newDocumentOrder(root *goquery.Selection) *documentOrder {
	d := &documentOrder{index: make(map[*html.Node]int)}
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		d.index[s.Get(0)] = len(d.nodes)
		d.nodes = append(d.nodes, s)
	})
	return d
}

// nextAfter returns the first element after sel, in document order, whose
// tag is one of tags.
func (d *documentOrder) nextAfter(sel *goquery.Selection, tags ...string) *goquery.Selection {
	i, ok := d.index[sel.Get(0)]
	if !ok {
		return nil
	}
	for _, cand := range d.nodes[i+1:] {
		name := goquery.NodeName(cand)
		for _, t := range tags {
			if name == t {
				return cand
			}
		}
	}
	return nil
}
