package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"makelaarsland-notifier/models"
)

// JSONStore keeps the house collection as a single JSON array, newest first.
// Writes go through a temporary file so a crash never leaves a torn file.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore creates a store backed by the file at path. The file is
// created on the first Prepend.
func NewJSONStore(path string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("json: create dir: %w", err)
	}
	return &JSONStore{path: path}, nil
}

// Prepend inserts record at the front of the collection.
func (s *JSONStore) Prepend(_ context.Context, record *models.HouseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	houses, err := s.read()
	if err != nil {
		return err
	}
	houses = append([]*models.HouseRecord{record}, houses...)

	data, err := json.MarshalIndent(houses, "", "  ")
	if err != nil {
		return fmt.Errorf("json: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("json: replace %q: %w", s.path, err)
	}
	return nil
}

// List returns the stored records, newest first.
func (s *JSONStore) List(_ context.Context) ([]*models.HouseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *JSONStore) read() ([]*models.HouseRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json: read %q: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var houses []*models.HouseRecord
	if err := json.Unmarshal(data, &houses); err != nil {
		return nil, fmt.Errorf("json: decode %q: %w", s.path, err)
	}
	return houses, nil
}

// Close is a no-op; every Prepend is durable on return.
func (s *JSONStore) Close() error { return nil }
