package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-index/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

func TestEmbeddingModelService_RegisterAndPromote(t *testing.T) {
	store := memory.NewEmbeddingModelStore()
	svc := NewEmbeddingModelService(store)
	ctx := context.Background()

	_, err := svc.Detail(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	first, err := svc.Register(ctx, domain.EmbeddingModel{ModelName: "nomic-embed-text", ModelDim: 768})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", first.ModelName)

	_, err = svc.Register(ctx, domain.EmbeddingModel{ModelName: "all-minilm", ModelDim: 384})
	require.NoError(t, err)

	current, err := svc.Detail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", current.ModelName)
	secondary, err := svc.SecondaryDetail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", secondary.ModelName)

	require.NoError(t, svc.Promote(ctx))

	current, err = svc.Detail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", current.ModelName)
	assert.Equal(t, 384, current.ModelDim)
	_, err = svc.SecondaryDetail(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEmbeddingModelService_RegisterReplacesPendingSwap(t *testing.T) {
	svc := NewEmbeddingModelService(memory.NewEmbeddingModelStore())
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.EmbeddingModel{ModelName: "a", ModelDim: 8})
	require.NoError(t, err)
	_, err = svc.Register(ctx, domain.EmbeddingModel{ModelName: "b", ModelDim: 8})
	require.NoError(t, err)
	_, err = svc.Register(ctx, domain.EmbeddingModel{ModelName: "c", ModelDim: 8})
	require.NoError(t, err)

	secondary, err := svc.SecondaryDetail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", secondary.ModelName)
}

func TestEmbeddingModelService_RegisterInvalid(t *testing.T) {
	svc := NewEmbeddingModelService(memory.NewEmbeddingModelStore())

	_, err := svc.Register(context.Background(), domain.EmbeddingModel{ModelDim: 8})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	_, err = svc.Register(context.Background(), domain.EmbeddingModel{ModelName: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmbeddingModelService_PromoteWithoutPending(t *testing.T) {
	svc := NewEmbeddingModelService(memory.NewEmbeddingModelStore())
	assert.ErrorIs(t, svc.Promote(context.Background()), domain.ErrNotFound)
}

func TestEmbeddingModelService_Ensure(t *testing.T) {
	svc := NewEmbeddingModelService(memory.NewEmbeddingModelStore())
	ctx := context.Background()

	detail, err := svc.Ensure(ctx, domain.EmbeddingModel{ModelName: "a", ModelDim: 8})
	require.NoError(t, err)
	assert.Equal(t, "a", detail.ModelName)

	// Existing present model wins
	detail, err = svc.Ensure(ctx, domain.EmbeddingModel{ModelName: "b", ModelDim: 8})
	require.NoError(t, err)
	assert.Equal(t, "a", detail.ModelName)
}

func TestEmbeddingModelService_DetailDropsProviderName(t *testing.T) {
	store := memory.NewEmbeddingModelStore()
	providerID := int64(7)
	_, err := store.Save(context.Background(), domain.EmbeddingModel{
		ModelName:       "text-embedding-3-small",
		ModelDim:        1536,
		Status:          domain.EmbeddingModelPresent,
		CloudProviderID: &providerID,
		CloudProvider:   &domain.CloudEmbeddingProvider{ID: 7, Name: "openai"},
	})
	require.NoError(t, err)

	detail, err := NewEmbeddingModelService(store).Detail(context.Background())
	require.NoError(t, err)
	require.NotNil(t, detail.CloudProviderID)
	assert.Equal(t, int64(7), *detail.CloudProviderID)
	assert.Nil(t, detail.CloudProviderName)
}
