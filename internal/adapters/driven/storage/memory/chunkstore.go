package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.DocMetadataAwareIndexChunk
	byDoc  map[string][]string
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[string]domain.DocMetadataAwareIndexChunk),
		byDoc:  make(map[string][]string),
	}
}

// Write replaces the stored chunks of every document in the batch.
func (s *ChunkStore) Write(_ context.Context, chunks []domain.DocMetadataAwareIndexChunk) ([]driven.InsertionRecord, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	var order []string
	grouped := make(map[string][]domain.DocMetadataAwareIndexChunk)
	for _, c := range chunks {
		id := c.SourceDocument.ID
		if _, ok := grouped[id]; !ok {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]driven.InsertionRecord, 0, len(order))
	for _, id := range order {
		_, existed := s.byDoc[id]
		s.deleteLocked(id)

		group := grouped[id]
		slices.SortFunc(group, func(a, b domain.DocMetadataAwareIndexChunk) int {
			return a.ChunkID - b.ChunkID
		})
		keys := make([]string, len(group))
		for i, c := range group {
			keys[i] = c.Key()
			s.chunks[keys[i]] = c
		}
		s.byDoc[id] = keys

		records = append(records, driven.InsertionRecord{
			DocumentID:     id,
			AlreadyExisted: existed,
			ChunkCount:     len(group),
		})
	}
	return records, nil
}

// DeleteDocument removes every chunk of a document.
func (s *ChunkStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(documentID)
	return nil
}

func (s *ChunkStore) deleteLocked(documentID string) {
	for _, key := range s.byDoc[documentID] {
		delete(s.chunks, key)
	}
	delete(s.byDoc, documentID)
}

// GetChunk retrieves a chunk by key.
func (s *ChunkStore) GetChunk(_ context.Context, chunkKey string) (*domain.DocMetadataAwareIndexChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[chunkKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// GetChunks retrieves all chunks of a document ordered by chunk id.
func (s *ChunkStore) GetChunks(_ context.Context, documentID string) ([]domain.DocMetadataAwareIndexChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.byDoc[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.DocMetadataAwareIndexChunk, len(keys))
	for i, key := range keys {
		out[i] = s.chunks[key]
	}
	return out, nil
}

// Count returns the number of stored chunks.
func (s *ChunkStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
