package driven

import (
	"context"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// IndexWriter persists fully enriched chunks into the search store.
type IndexWriter interface {
	// Write stores the chunks, replacing any earlier chunks of the same
	// documents. Chunks of one document are written atomically.
	Write(ctx context.Context, chunks []domain.DocMetadataAwareIndexChunk) ([]InsertionRecord, error)

	// DeleteDocument removes every chunk of a document.
	DeleteDocument(ctx context.Context, documentID string) error
}

// InsertionRecord reports the outcome of writing one document's chunks.
type InsertionRecord struct {
	DocumentID string

	// AlreadyExisted is true when the document had been indexed before.
	AlreadyExisted bool

	// ChunkCount is the number of chunks written.
	ChunkCount int
}

// ChunkReader reads indexed chunks back, e.g. to hydrate search hits.
type ChunkReader interface {
	// GetChunk returns a chunk by key (see domain.ChunkKey).
	GetChunk(ctx context.Context, chunkKey string) (*domain.DocMetadataAwareIndexChunk, error)

	// GetChunks returns all chunks of a document ordered by chunk id.
	GetChunks(ctx context.Context, documentID string) ([]domain.DocMetadataAwareIndexChunk, error)
}

// ChunkStore is an index store that can be both written and read.
type ChunkStore interface {
	IndexWriter
	ChunkReader
}
