package driven

import (
	"context"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// PostProcessor turns a document into chunks or refines existing chunks.
// PostProcessors are chained in a pipeline (chunking, mini-chunks, large chunks).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// The first processor receives nil and creates chunks; later processors
	// receive the previous output and return a refined copy.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.DocAwareChunk) ([]domain.DocAwareChunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.Document) ([]domain.DocAwareChunk, error)
}
