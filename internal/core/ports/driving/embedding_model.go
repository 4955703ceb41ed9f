package driving

import (
	"context"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// EmbeddingModelService manages embedding model configuration and hands out
// immutable snapshots of it.
type EmbeddingModelService interface {
	// Detail snapshots the current model.
	Detail(ctx context.Context) (domain.EmbeddingModelDetail, error)

	// SecondaryDetail snapshots the model a swap is moving to.
	// Returns domain.ErrNotFound when no swap is pending.
	SecondaryDetail(ctx context.Context) (domain.EmbeddingModelDetail, error)

	// Register stores a model. It becomes current if no model exists yet,
	// otherwise it becomes the secondary model.
	Register(ctx context.Context, model domain.EmbeddingModel) (domain.EmbeddingModelDetail, error)

	// Promote makes the secondary model current and retires the old one.
	Promote(ctx context.Context) error
}
