// Package filestore keeps keyed entries in a single JSON file. It backs the
// snapshot cache when the primary table cannot be reached.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"liberandum-backend/infrastructure/persistence/abstractions"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultFileName is the file created under os.TempDir() when no path is configured
const DefaultFileName = "market_globals_cache.json"

// Store maps key -> entry in one JSON object on disk. Every operation is a
// full read-modify-write under one lock.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore creates a file store at path; an empty path uses the temp directory
func NewStore(path string, logger *zap.Logger) *Store {
	if path == "" {
		path = filepath.Join(os.TempDir(), DefaultFileName)
	}
	return &Store{path: path, logger: logger}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// readAll loads the keyspace. A missing or unreadable file is an empty keyspace.
func (s *Store) readAll() map[string]abstractions.Record {
	data := make(map[string]abstractions.Record)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to read cache file", zap.String("path", s.path), zap.Error(err))
		}
		return data
	}
	if len(raw) == 0 {
		return data
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("Discarding corrupt cache file", zap.String("path", s.path), zap.Error(err))
		return make(map[string]abstractions.Record)
	}
	return data
}

func (s *Store) writeAll(data map[string]abstractions.Record) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Get returns the entry stored under key, or nil
func (s *Store) Get(_ context.Context, key string) (abstractions.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readAll()[key], nil
}

// Create stores entry under its id, generating one when autoID is set
func (s *Store) Create(_ context.Context, entry abstractions.Record, autoID bool) (abstractions.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry = entry.Clone()
	key := entry.ID()
	if key == "" {
		if !autoID {
			return nil, errors.New("entry id is required")
		}
		key = uuid.New().String()
		entry[abstractions.FieldID] = key
	}

	data := s.readAll()
	data[key] = entry
	if err := s.writeAll(data); err != nil {
		return nil, err
	}
	return entry, nil
}

// Update replaces the entry stored under key
func (s *Store) Update(_ context.Context, key string, entry abstractions.Record) (abstractions.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.readAll()
	data[key] = entry.Clone()
	if err := s.writeAll(data); err != nil {
		return nil, err
	}
	return data[key], nil
}

// Delete removes key and reports whether it was present
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.readAll()
	if _, ok := data[key]; !ok {
		return false, nil
	}
	delete(data, key)
	if err := s.writeAll(data); err != nil {
		return false, err
	}
	return true, nil
}
