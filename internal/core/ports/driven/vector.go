package driven

import "context"

// VectorIndex provides semantic similarity search over chunk embeddings.
type VectorIndex interface {
	// Add inserts or replaces the vector for the given chunk key.
	Add(ctx context.Context, chunkKey string, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, chunkKey string) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkKey is the matched chunk (see domain.ChunkKey).
	ChunkKey string

	// Similarity is the cosine similarity score.
	Similarity float64
}
