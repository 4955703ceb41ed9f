package driving

import (
	"context"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// Indexer runs documents through chunking, embedding and enrichment and
// writes the resulting chunks to the index.
type Indexer interface {
	// Index processes a single document.
	Index(ctx context.Context, doc *domain.Document) (*DocumentResult, error)

	// IndexBatch processes documents concurrently. A failing document does
	// not stop the batch; its error is reported in its DocumentResult.
	IndexBatch(ctx context.Context, docs []*domain.Document) (*BatchResult, error)

	// Delete removes a document from the index.
	Delete(ctx context.Context, documentID string) error

	// Status returns progress counters of the running or last attempt.
	Status() IndexStatus
}

// DocumentResult is the outcome of indexing one document.
type DocumentResult struct {
	// DocumentID identifies the document.
	DocumentID string

	// Descriptor is the document's short descriptor, for operators.
	Descriptor string

	// ChunkCount is the number of chunks written.
	ChunkCount int

	// AlreadyExisted is true when the document replaced an earlier version.
	AlreadyExisted bool

	// Err is set when the document failed.
	Err error
}

// BatchResult is the outcome of an IndexBatch call.
type BatchResult struct {
	// AttemptID identifies the indexing attempt in logs.
	AttemptID string

	// Model is the embedding model snapshot used for the attempt.
	Model domain.EmbeddingModelDetail

	// Documents holds one result per input document, in input order.
	Documents []DocumentResult
}

// Failed returns the results that carry an error.
func (r *BatchResult) Failed() []DocumentResult {
	var failed []DocumentResult
	for _, d := range r.Documents {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}

// ChunkCount returns the total number of chunks written.
func (r *BatchResult) ChunkCount() int {
	total := 0
	for _, d := range r.Documents {
		total += d.ChunkCount
	}
	return total
}

// IndexStatus represents the progress of an indexing attempt.
type IndexStatus struct {
	// Running indicates if an attempt is in progress.
	Running bool

	// DocumentsProcessed is the count of documents processed.
	DocumentsProcessed int

	// ChunksWritten is the count of chunks written.
	ChunksWritten int

	// ErrorCount is the number of failed documents.
	ErrorCount int

	// PendingVectors is the number of documents whose chunks are stored but
	// whose vectors still need to be added.
	PendingVectors int
}
