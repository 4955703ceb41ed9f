package driven

import (
	"context"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// EmbeddingModelStore persists embedding model configuration records.
type EmbeddingModelStore interface {
	// Current returns the model with status present.
	// Returns domain.ErrNotFound when none is configured.
	Current(ctx context.Context) (*domain.EmbeddingModel, error)

	// Secondary returns the model with status future, if a swap is pending.
	// Returns domain.ErrNotFound when there is none.
	Secondary(ctx context.Context) (*domain.EmbeddingModel, error)

	// Save inserts a model, or updates it when ID is set, and returns its ID.
	Save(ctx context.Context, model domain.EmbeddingModel) (int64, error)

	// SetStatus changes the status of a model.
	SetStatus(ctx context.Context, id int64, status domain.EmbeddingModelStatus) error
}
