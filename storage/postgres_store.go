package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"makelaarsland-notifier/models"
)

// PostgresStore persists published houses to PostgreSQL. The full record is
// kept as JSONB next to a few indexed columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS houses (
			seq        BIGSERIAL    PRIMARY KEY,
			id         UUID         UNIQUE NOT NULL,
			title      TEXT         NOT NULL DEFAULT '',
			postcode   VARCHAR(6)   NOT NULL DEFAULT '',
			city       TEXT         NOT NULL DEFAULT '',
			geohash    VARCHAR(12)  NOT NULL DEFAULT '',
			filename   TEXT         NOT NULL DEFAULT '',
			record     JSONB        NOT NULL,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_houses_postcode ON houses(postcode);
		CREATE INDEX IF NOT EXISTS idx_houses_geohash  ON houses(geohash);
	`)
	return err
}

// Prepend inserts record. Newest-first order is produced by List.
func (ps *PostgresStore) Prepend(ctx context.Context, record *models.HouseRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("postgres: marshal: %w", err)
	}

	var geohash string
	if record.Location != nil {
		geohash = record.Location.Geohash
	}

	_, err = ps.db.ExecContext(ctx, `
		INSERT INTO houses (id, title, postcode, city, geohash, filename, record, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING
	`, record.ID, record.Listing.Title, record.Address.Postcode, record.Address.City,
		geohash, record.PublishFilename, payload, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", record.ID, err)
	}
	return nil
}

// List retrieves all stored houses, newest first.
func (ps *PostgresStore) List(ctx context.Context) ([]*models.HouseRecord, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT record FROM houses ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer rows.Close()

	var houses []*models.HouseRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		h := &models.HouseRecord{}
		if err := json.Unmarshal(payload, h); err != nil {
			return nil, fmt.Errorf("postgres: decode row: %w", err)
		}
		houses = append(houses, h)
	}
	return houses, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
