package storage

import (
	"context"

	"makelaarsland-notifier/models"
)

// HouseStore is the interface any house collection backend must satisfy.
// List returns records newest first.
type HouseStore interface {
	Prepend(ctx context.Context, record *models.HouseRecord) error
	List(ctx context.Context) ([]*models.HouseRecord, error)
	Close() error
}

// Ledger records one line per published house.
type Ledger interface {
	Append(record *models.HouseRecord) error
	Close() error
}
