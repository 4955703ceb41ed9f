package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

func TestEmbeddingModelStore_Lifecycle(t *testing.T) {
	store := NewEmbeddingModelStore()
	ctx := context.Background()

	_, err := store.Current(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	id, err := store.Save(ctx, domain.EmbeddingModel{
		ModelName: "nomic-embed-text", ModelDim: 768, Status: domain.EmbeddingModelPresent,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	futureID, err := store.Save(ctx, domain.EmbeddingModel{
		ModelName: "all-minilm", ModelDim: 384, Status: domain.EmbeddingModelFuture,
	})
	require.NoError(t, err)

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", current.ModelName)

	secondary, err := store.Secondary(ctx)
	require.NoError(t, err)
	assert.Equal(t, futureID, secondary.ID)

	require.NoError(t, store.SetStatus(ctx, id, domain.EmbeddingModelPast))
	require.NoError(t, store.SetStatus(ctx, futureID, domain.EmbeddingModelPresent))

	current, err = store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", current.ModelName)
	_, err = store.Secondary(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmbeddingModelStore_Errors(t *testing.T) {
	store := NewEmbeddingModelStore()
	ctx := context.Background()

	_, err := store.Save(ctx, domain.EmbeddingModel{ID: 42, ModelName: "x", ModelDim: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.SetStatus(ctx, 42, domain.EmbeddingModelPast), domain.ErrNotFound)
	assert.ErrorIs(t, store.SetStatus(ctx, 1, "retired"), domain.ErrInvalidInput)
}
