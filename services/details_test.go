package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"makelaarsland-notifier/models"
)

const featuresPage = `<html><body>
<img id="myHeightImage" src="https://cdn.example/hero.jpg">
<div id="links">
  <a href="https://cdn.example/1.jpg">1</a>
  <a href="https://cdn.example/hero.jpg">hero</a>
  <a href="https://cdn.example/2.jpg">2</a>
</div>
<div class="object-details"><p>Ruime</p><p>gezinswoning</p></div>
<div id="featuresModule">
  <h3>Overdracht</h3>
  <div class="row"><div class="grey">Vraagprijs</div><div class="darkgrey">€ 565.000 k.k.</div></div>
  <div class="row"><div class="grey">Aanvaarding</div><div class="darkgrey">In overleg</div></div>
  <h3>Bouw</h3>
  <div class="row"><div class="grey">Bouwjaar</div><div class="darkgrey">1965</div></div>
  <div class="row"><div class="grey">Alleen sleutel</div></div>
</div>
<div class="card"><div class="card-body">
  <h3>Verkopend makelaar</h3>
  <p>Bilt Makelaardij</p>
  <a href="tel:0301234567">030 123 4567</a>
  <a href="mailto:info@bilt.example">info@bilt.example</a>
</div></div>
</body></html>`

const tablePage = `<html><body><main>
<h2>Oppervlakten</h2>
<table>
  <tr><td>Woonoppervlakte</td><td>120 m²</td></tr>
  <tr><td>losse cel</td></tr>
</table>
<strong>Energie</strong>
<dl><dt>Energielabel</dt><dd>A</dd><dt>Isolatie</dt><dd>Dakisolatie</dd></dl>
<h3>Leeg</h3>
</main></body></html>`

func mustDoc(t *testing.T, raw string) *goquery.Document {
	t.Helper()
	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParseDetailDocumentFeaturesModule(t *testing.T) {
	res := ParseDetailDocument(mustDoc(t, featuresPage))

	secs := res.Sections.Sections()
	if len(secs) != 2 || secs[0].Name != "Overdracht" || secs[1].Name != "Bouw" {
		t.Fatalf("sections = %+v", secs)
	}
	wantOverdracht := []models.Attribute{{Key: "Vraagprijs", Value: "€ 565.000 k.k."}, {Key: "Aanvaarding", Value: "In overleg"}}
	if !reflect.DeepEqual(secs[0].Attributes, wantOverdracht) {
		t.Errorf("Overdracht = %+v; want %+v", secs[0].Attributes, wantOverdracht)
	}
	if v, _ := res.Sections.Section("Bouw").Get("Bouwjaar"); v != "1965" {
		t.Errorf("Bouwjaar = %q; want 1965", v)
	}

	wantImages := []string{"https://cdn.example/hero.jpg", "https://cdn.example/1.jpg", "https://cdn.example/2.jpg"}
	if !reflect.DeepEqual(res.Images, wantImages) {
		t.Errorf("images = %q; want %q", res.Images, wantImages)
	}

	wantAgent := models.AgentContact{Name: "Bilt Makelaardij", Phone: "030 123 4567", Email: "info@bilt.example"}
	if res.Agent != wantAgent {
		t.Errorf("agent = %+v; want %+v", res.Agent, wantAgent)
	}

	if res.Text != "Ruime\ngezinswoning" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestParseDetailDocumentHeadingTableFallback(t *testing.T) {
	res := ParseDetailDocument(mustDoc(t, tablePage))

	secs := res.Sections.Sections()
	if len(secs) != 2 {
		t.Fatalf("sections = %+v; want Oppervlakten and Energie", secs)
	}
	if secs[0].Name != "Oppervlakten" || !reflect.DeepEqual(secs[0].Attributes, []models.Attribute{{Key: "Woonoppervlakte", Value: "120 m²"}}) {
		t.Errorf("first section = %+v", secs[0])
	}
	wantEnergie := []models.Attribute{{Key: "Energielabel", Value: "A"}, {Key: "Isolatie", Value: "Dakisolatie"}}
	if secs[1].Name != "Energie" || !reflect.DeepEqual(secs[1].Attributes, wantEnergie) {
		t.Errorf("second section = %+v", secs[1])
	}

	if res.Agent != (models.AgentContact{}) {
		t.Errorf("agent = %+v; want empty", res.Agent)
	}
	if len(res.Images) != 0 {
		t.Errorf("images = %q; want none", res.Images)
	}
}

func TestParseDetailDocumentNoStructure(t *testing.T) {
	res := ParseDetailDocument(mustDoc(t, `<html><body><p>Alleen tekst</p></body></html>`))
	if res.Sections.Len() != 0 {
		t.Errorf("sections = %+v; want none", res.Sections.Sections())
	}
	if res.Text != "Alleen tekst" {
		t.Errorf("text = %q; want whole-document fallback", res.Text)
	}
}

type fakeRenderer struct {
	doc   *goquery.Document
	err   error
	panic bool
	calls int
}

func (f *fakeRenderer) Render(context.Context, string) (*goquery.Document, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.doc, f.err
}

func TestDetailFetchFailuresYieldEmptyResult(t *testing.T) {
	tests := []struct {
		name     string
		renderer Renderer
		url      string
	}{
		{"render error", &fakeRenderer{err: errors.New("login failed")}, "https://x/1"},
		{"panic", &fakeRenderer{panic: true}, "https://x/1"},
		{"nil document", &fakeRenderer{}, "https://x/1"},
		{"no url", &fakeRenderer{}, ""},
		{"no renderer", nil, "https://x/1"},
	}
	for _, tt := range tests {
		res := NewDetailEnricher(tt.renderer, nil).Fetch(context.Background(), tt.url)
		if res.Text != "" || len(res.Images) != 0 || res.Sections.Len() != 0 || res.Agent != (models.AgentContact{}) {
			t.Errorf("%s: Fetch = %+v; want empty result", tt.name, res)
		}
	}
}

func TestDetailFetch(t *testing.T) {
	r := &fakeRenderer{doc: mustDoc(t, featuresPage)}
	res := NewDetailEnricher(r, nil).Fetch(context.Background(), "https://x/1")
	if r.calls != 1 || res.Sections.Len() != 2 {
		t.Errorf("calls = %d, sections = %d; want 1, 2", r.calls, res.Sections.Len())
	}
}
