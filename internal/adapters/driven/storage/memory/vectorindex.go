package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an exact cosine-similarity index held in memory.
type VectorIndex struct {
	mu         sync.RWMutex
	dimensions int
	vectors    map[string][]float32
}

// NewVectorIndex creates an index. Zero dimensions accepts any vector size.
func NewVectorIndex(dimensions int) *VectorIndex {
	return &VectorIndex{
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
	}
}

// Add inserts or replaces the vector of a chunk.
func (v *VectorIndex) Add(_ context.Context, chunkKey string, embedding []float32) error {
	if err := v.checkDimensions(embedding); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vectors[chunkKey] = slices.Clone(embedding)
	return nil
}

// Delete removes a vector. Missing keys are ignored.
func (v *VectorIndex) Delete(_ context.Context, chunkKey string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.vectors, chunkKey)
	return nil
}

// Search returns the k most similar vectors, best first.
func (v *VectorIndex) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if err := v.checkDimensions(query); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	v.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(v.vectors))
	for key, vec := range v.vectors {
		hits = append(hits, driven.VectorHit{ChunkKey: key, Similarity: cosine(query, vec)})
	}
	v.mu.RUnlock()

	slices.SortFunc(hits, func(a, b driven.VectorHit) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return strings.Compare(a.ChunkKey, b.ChunkKey)
		}
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored vectors.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vectors)
}

// Close releases resources.
func (v *VectorIndex) Close() error {
	return nil
}

func (v *VectorIndex) checkDimensions(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}
	if v.dimensions > 0 && len(vec) != v.dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, index has %d", domain.ErrInvalidInput, len(vec), v.dimensions)
	}
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

