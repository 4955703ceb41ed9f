package driving

import (
	"context"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// Searcher runs semantic queries against indexed chunks.
type Searcher interface {
	// Search embeds the query with the current model and returns the
	// visible chunks closest to it.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
