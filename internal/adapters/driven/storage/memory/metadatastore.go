package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore.
type MetadataStore struct {
	mu     sync.RWMutex
	access map[string]domain.DocumentAccess
	sets   map[string][]string
	boosts map[string]int
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		access: make(map[string]domain.DocumentAccess),
		sets:   make(map[string][]string),
		boosts: make(map[string]int),
	}
}

// Access returns the stored access of a document.
func (s *MetadataStore) Access(_ context.Context, documentID string) (domain.DocumentAccess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.access[documentID]
	if !ok {
		return domain.DocumentAccess{}, domain.ErrNotFound
	}
	return a.Clone(), nil
}

// DocumentSets returns the stored sets of a document.
func (s *MetadataStore) DocumentSets(_ context.Context, documentID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sets, ok := s.sets[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(sets), nil
}

// Boost returns the stored boost of a document.
func (s *MetadataStore) Boost(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boosts[documentID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return b, nil
}

// SetAccess replaces the access of a document.
func (s *MetadataStore) SetAccess(_ context.Context, documentID string, access domain.DocumentAccess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[documentID] = access.Clone()
	return nil
}

// SetDocumentSets replaces the sets of a document.
func (s *MetadataStore) SetDocumentSets(_ context.Context, documentID string, sets []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[documentID] = slices.Clone(sets)
	return nil
}

// SetBoost replaces the boost of a document.
func (s *MetadataStore) SetBoost(_ context.Context, documentID string, boost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boosts[documentID] = boost
	return nil
}
