package driven

import (
	"context"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// Connector fetches raw documents from a data source.
type Connector interface {
	// Type returns the connector type identifier (e.g., "filesystem").
	Type() string

	// Validate checks the connector configuration.
	Validate(ctx context.Context) error

	// FullSync fetches all documents from the source.
	// The error channel receives at most one (joined) error and is closed
	// after the document channel.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch streams changes until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}
