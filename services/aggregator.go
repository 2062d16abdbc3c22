package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"makelaarsland-notifier/models"
	"makelaarsland-notifier/utils"
)

// Publisher persists a record and returns the filename of its artifact.
type Publisher interface {
	Publish(ctx context.Context, record *models.HouseRecord) (string, error)
}

// Notifier delivers a published record to its recipients. Per-recipient
// failures are handled inside; a returned error means nothing was sent.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, record *models.HouseRecord) error
}

// AggregatorDeps wires the Aggregator's collaborators. Any enricher may be
// nil, in which case its contribution stays at the default.
type AggregatorDeps struct {
	Listing      *ListingExtractor
	Details      *DetailEnricher
	Commute      *CommuteEnricher
	Valuation    *ValuationEnricher
	Demographics *DemographicsEnricher
	Publisher    Publisher
	Notifiers    []Notifier
	Logger       *utils.Logger
	Now          func() time.Time
}

// Aggregator composes the enrichers into one HouseRecord per notification.
type Aggregator struct {
	deps AggregatorDeps
}

// NewAggregator creates an Aggregator.
func NewAggregator(deps AggregatorDeps) *Aggregator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Listing == nil {
		deps.Listing = NewListingExtractor(deps.Logger)
	}
	return &Aggregator{deps: deps}
}

// Build assembles a complete record from notification content. It never
// fails: every enrichment degrades to its default on error.
func (a *Aggregator) Build(ctx context.Context, content string) *models.HouseRecord {
	log := a.deps.Logger

	summary, addr := a.deps.Listing.Extract(content)
	log.Info("[aggregator] Building record for %q", summary.Title)

	var detail DetailResult
	if a.deps.Details != nil {
		detail = a.deps.Details.Fetch(ctx, summary.DetailURL)
	}

	record := &models.HouseRecord{
		ID:                   uuid.NewString(),
		Listing:              summary,
		Address:              addr,
		Images:               utils.Dedup(detail.Images),
		AgentContact:         detail.Agent,
		Details:              detail.Text,
		DetailsSections:      detail.Sections,
		ImportantFields:      ExtractImportantInfo(detail.Sections),
		DemographicsFragment: DemographicsUnavailable,
		ExternalReferenceURL: ReferenceURL(addr),
		CreatedAt:            a.deps.Now(),
	}

	if addr.IsEmpty() {
		log.Warn("[aggregator] No address for %q, skipping location enrichment", summary.Title)
		return record
	}

	// Commute and valuation lookups depend only on the address.
	pool := utils.NewWorkerPool(3)
	if a.deps.Commute != nil {
		pool.Submit(func() {
			record.Station, record.Location = a.deps.Commute.Enrich(ctx, addr)
		})
	}
	if a.deps.Valuation != nil {
		pool.Submit(func() {
			record.Valuation = a.deps.Valuation.Enrich(ctx, addr)
		})
	}
	if a.deps.Demographics != nil {
		pool.Submit(func() {
			record.DemographicsFragment = a.deps.Demographics.Enrich(ctx, addr.PostcodePrefix())
		})
	}
	pool.Wait()

	return record
}

// Process builds, publishes and announces one notification. Only a publish
// failure is returned; notifier failures are logged.
func (a *Aggregator) Process(ctx context.Context, content string) (*models.HouseRecord, error) {
	record := a.Build(ctx, content)

	if a.deps.Publisher != nil {
		filename, err := a.deps.Publisher.Publish(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("aggregator: publish %q: %w", record.Listing.Title, err)
		}
		record.PublishFilename = filename
		a.deps.Logger.Info("[aggregator] Published %q as %s", record.Listing.Title, filename)
	}

	for _, n := range a.deps.Notifiers {
		if err := n.Notify(ctx, record); err != nil {
			a.deps.Logger.Error("[aggregator] %s notifier failed: %v", n.Name(), err)
		}
	}

	return record, nil
}
