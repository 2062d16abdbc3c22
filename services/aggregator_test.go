package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"makelaarsland-notifier/models"
)

type fakePublisher struct {
	filename string
	err      error
	records  []*models.HouseRecord
}

func (f *fakePublisher) Publish(_ context.Context, r *models.HouseRecord) (string, error) {
	f.records = append(f.records, r)
	return f.filename, f.err
}

type fakeNotifier struct {
	name     string
	err      error
	received []*models.HouseRecord
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, r *models.HouseRecord) error {
	f.received = append(f.received, r)
	return f.err
}

// newDegradedAggregator wires every enricher to a failing collaborator.
func newDegradedAggregator(t *testing.T, pub Publisher, notifiers ...Notifier) *Aggregator {
	t.Helper()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(down.Close)

	return NewAggregator(AggregatorDeps{
		Details:      NewDetailEnricher(&fakeRenderer{err: errors.New("login failed")}, nil),
		Commute:      NewCommuteEnricher(&fakeMaps{geocodeErr: errors.New("OVER_QUERY_LIMIT")}, referenceA, referenceB, wednesday, nil),
		Valuation:    NewValuationEnricher(down.URL+"/report/", time.Second, nil),
		Demographics: NewDemographicsEnricher(down.URL, time.Second, nil),
		Publisher:    pub,
		Notifiers:    notifiers,
		Now:          wednesday,
	})
}

func TestBuildDegradesWhenEverythingFails(t *testing.T) {
	record := newDegradedAggregator(t, nil).Build(context.Background(), notificationHTML)

	if record.Listing.Title != "Alfred Nobellaan 42" || record.Listing.Price != "€ 565.000 k.k." {
		t.Errorf("listing = %+v", record.Listing)
	}
	if record.Address != testAddress {
		t.Errorf("address = %+v; want %+v", record.Address, testAddress)
	}
	if record.ID == "" {
		t.Error("record has no id")
	}
	if record.DetailsSections.Len() != 0 || record.Details != "" || len(record.Images) != 0 {
		t.Errorf("detail data present after render failure: %+v", record.DetailsSections)
	}
	if record.ImportantFields != (models.ImportantFields{}) {
		t.Errorf("important fields = %+v; want empty", record.ImportantFields)
	}
	if record.Station.Name != "" || record.Location != nil {
		t.Errorf("station = %+v, location = %v; want empty", record.Station, record.Location)
	}
	if record.Valuation != nil {
		t.Errorf("valuation = %+v; want nil", record.Valuation)
	}
	if record.DemographicsFragment != DemographicsUnavailable {
		t.Errorf("demographics = %q; want unavailable fragment", record.DemographicsFragment)
	}
	if record.ExternalReferenceURL != "https://huispedia.nl/de-bilt/3731dw/alfred-nobellaan/42" {
		t.Errorf("reference url = %q", record.ExternalReferenceURL)
	}
	if !record.CreatedAt.Equal(wednesday()) {
		t.Errorf("created at = %v", record.CreatedAt)
	}
}

func TestBuildWithoutAddressSkipsLocation(t *testing.T) {
	m := &fakeMaps{}
	a := NewAggregator(AggregatorDeps{
		Commute: NewCommuteEnricher(m, referenceA, referenceB, wednesday, nil),
	})

	record := a.Build(context.Background(), `<a href="/a">Huis zonder adres</a>`)

	if record.Listing.Title != "Huis zonder adres" {
		t.Errorf("title = %q", record.Listing.Title)
	}
	if len(m.departures) != 0 {
		t.Errorf("directions queried %d times for a record without address", len(m.departures))
	}
	if record.DemographicsFragment != DemographicsUnavailable || record.ExternalReferenceURL != "" {
		t.Errorf("defaults = %q, %q", record.DemographicsFragment, record.ExternalReferenceURL)
	}
}

func TestProcessPublishesThenNotifies(t *testing.T) {
	pub := &fakePublisher{filename: "house_20261014_120000.html"}
	broken := &fakeNotifier{name: "whatsapp", err: errors.New("twilio down")}
	email := &fakeNotifier{name: "email"}

	record, err := newDegradedAggregator(t, pub, broken, email).Process(context.Background(), notificationHTML)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if record.PublishFilename != pub.filename {
		t.Errorf("filename = %q; want %q", record.PublishFilename, pub.filename)
	}
	if len(pub.records) != 1 {
		t.Errorf("publish calls = %d; want 1", len(pub.records))
	}
	for _, n := range []*fakeNotifier{broken, email} {
		if len(n.received) != 1 || n.received[0].PublishFilename != pub.filename {
			t.Errorf("%s notifier received %d records; want the published one", n.name, len(n.received))
		}
	}
}

func TestProcessPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("disk full")}
	notifier := &fakeNotifier{name: "email"}

	if _, err := newDegradedAggregator(t, pub, notifier).Process(context.Background(), notificationHTML); err == nil {
		t.Fatal("Process: want publish error")
	}
	if len(notifier.received) != 0 {
		t.Error("notifier ran after a failed publish")
	}
}
