package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"makelaarsland-notifier/models"
)

var ledgerHeader = []string{
	"published_at", "id", "title", "address", "price", "url", "filename",
}

// CSVLedger appends one row per published house to a CSV file.
// It is safe for concurrent use.
type CSVLedger struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVLedger opens the CSV file at path for appending, writing the header
// row when the file is new. Intermediate directories are created
// automatically.
func NewCSVLedger(path string) (*CSVLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv: open file %q: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: stat %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(ledgerHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("csv: write header: %w", err)
		}
		w.Flush()
	}

	return &CSVLedger{file: f, writer: w}, nil
}

// Append writes one row for record.
func (c *CSVLedger) Append(record *models.HouseRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := []string{
		record.CreatedAt.Format(time.RFC3339),
		record.ID,
		record.Listing.Title,
		record.Address.String(),
		record.Listing.Price,
		record.Listing.DetailURL,
		record.PublishFilename,
	}
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVLedger) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
