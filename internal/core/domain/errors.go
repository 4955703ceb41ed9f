package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown normaliser, processor or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	// Semantic similarity search is disabled.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// Chunk construction errors.

	// ErrArityMismatch indicates the number of mini-chunk embeddings does not
	// match the number of mini-chunk texts of the chunk.
	ErrArityMismatch = errors.New("mini-chunk embedding arity mismatch")

	// ErrMissingRequiredField indicates a required chunk field was absent.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInconsistentTextReconstruction indicates that stripping the title
	// prefix and metadata suffix from the assembled text did not give back
	// the chunk content.
	ErrInconsistentTextReconstruction = errors.New("inconsistent text reconstruction")
)

// ChunkError reports a construction failure for a single chunk.
// Descriptor is the chunk's short descriptor and is meant for operators only.
type ChunkError struct {
	Descriptor string
	Err        error
}

// Error implements the error interface.
func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Descriptor, e.Err)
}

// Unwrap returns the underlying error so errors.Is matches the sentinels.
func (e *ChunkError) Unwrap() error {
	return e.Err
}

func chunkErr(descriptor string, sentinel error, format string, args ...any) error {
	return &ChunkError{
		Descriptor: descriptor,
		Err:        fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...),
	}
}
