package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
)

// Ensure EmbeddingModelStore implements the interface.
var _ driven.EmbeddingModelStore = (*EmbeddingModelStore)(nil)

// EmbeddingModelStore is an in-memory implementation of driven.EmbeddingModelStore.
type EmbeddingModelStore struct {
	mu     sync.RWMutex
	models map[int64]domain.EmbeddingModel
	nextID int64
}

// NewEmbeddingModelStore creates a new in-memory model store.
func NewEmbeddingModelStore() *EmbeddingModelStore {
	return &EmbeddingModelStore{
		models: make(map[int64]domain.EmbeddingModel),
		nextID: 1,
	}
}

// Current returns the present model.
func (s *EmbeddingModelStore) Current(_ context.Context) (*domain.EmbeddingModel, error) {
	return s.byStatus(domain.EmbeddingModelPresent)
}

// Secondary returns the future model.
func (s *EmbeddingModelStore) Secondary(_ context.Context) (*domain.EmbeddingModel, error) {
	return s.byStatus(domain.EmbeddingModelFuture)
}

func (s *EmbeddingModelStore) byStatus(status domain.EmbeddingModelStatus) (*domain.EmbeddingModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *domain.EmbeddingModel
	for _, m := range s.models {
		if m.Status != status {
			continue
		}
		// Newest record wins if several share a status.
		if found == nil || m.ID > found.ID {
			found = &m
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// Save inserts or updates a model.
func (s *EmbeddingModelStore) Save(_ context.Context, model domain.EmbeddingModel) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if model.ID == 0 {
		model.ID = s.nextID
		s.nextID++
	} else if _, ok := s.models[model.ID]; !ok {
		return 0, domain.ErrNotFound
	}
	s.models[model.ID] = model
	return model.ID, nil
}

// SetStatus changes the status of a model.
func (s *EmbeddingModelStore) SetStatus(_ context.Context, id int64, status domain.EmbeddingModelStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = status
	s.models[id] = m
	return nil
}
