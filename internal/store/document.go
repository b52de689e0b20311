package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

// FileDocumentStore keeps the whole document in one JSON file. Writes go
// through a temp file and rename so readers never observe a half-written
// document; a mutex serializes read-modify-write passes.
type FileDocumentStore struct {
	path string
	mu   sync.Mutex
}

// NewFileDocumentStore creates the parent directory and, if the file does not
// exist yet, seeds it with a default document.
func NewFileDocumentStore(path string) (*FileDocumentStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &FileDocumentStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(domain.NewDocument()); err != nil {
			return nil, fmt.Errorf("seed document: %w", err)
		}
	}
	return s, nil
}

// Load returns the current document. Corruption is recovered by falling back
// to a fresh default document: the file is display data, not an authorization
// source, so it fails open to empty and the incident is logged for operators.
func (s *FileDocumentStore) Load(_ context.Context) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

// Update runs fn under the store lock and persists the result.
func (s *FileDocumentStore) Update(_ context.Context, fn func(*domain.Document) error) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	if err := fn(doc); err != nil {
		return nil, err
	}
	doc.Version++
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Close is a no-op for the file store.
func (s *FileDocumentStore) Close() error { return nil }

func (s *FileDocumentStore) read() *domain.Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to read document, using defaults", "path", s.path, "error", err)
		}
		return domain.NewDocument()
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("Document unreadable, starting from defaults", "path", s.path, "error", err)
		return domain.NewDocument()
	}
	doc.EnsureDefaults()
	return &doc
}

func (s *FileDocumentStore) write(doc *domain.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
