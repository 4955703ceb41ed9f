package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-index/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-index/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/services"
)

func TestNewEmbeddingService(t *testing.T) {
	svc, err := newEmbeddingService(domain.EmbeddingSettings{Provider: domain.AIProviderOllama})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", svc.ModelName())
	assert.Equal(t, 768, svc.Dimensions())

	_, err = newEmbeddingService(domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)

	_, err = newEmbeddingService(domain.EmbeddingSettings{Provider: "cohere"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestSetupEmbedding_RegistersConfiguredModel(t *testing.T) {
	ctx := context.Background()
	models := services.NewEmbeddingModelService(memory.NewEmbeddingModelStore())

	svc, detail, err := setupEmbedding(ctx, domain.EmbeddingSettings{
		Provider:  domain.AIProviderOllama,
		Model:     "mxbai-embed-large",
		Normalize: true,
	}, models)
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, "mxbai-embed-large", detail.ModelName)
	assert.Equal(t, 768, detail.ModelDim)
	assert.True(t, detail.Normalize)
}

func TestSetupEmbedding_KeepsIndexedModel(t *testing.T) {
	ctx := context.Background()
	models := services.NewEmbeddingModelService(memory.NewEmbeddingModelStore())
	_, err := models.Register(ctx, domain.EmbeddingModel{ModelName: "all-minilm", ModelDim: 384})
	require.NoError(t, err)

	svc, detail, err := setupEmbedding(ctx, domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text",
	}, models)
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, "all-minilm", detail.ModelName)
	assert.Equal(t, "all-minilm", svc.ModelName())
	assert.Equal(t, 384, svc.Dimensions())
}

func TestBootstrap_UnconfiguredProvider(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()

	svc, err := bootstrap(context.Background(), cli.Options{ConfigDir: configDir, DataDir: dataDir})
	require.NoError(t, err)
	// OpenAI without an API key cannot be set up.
	require.NoError(t, svc.Settings.SaveEmbedding(domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}))
	require.NoError(t, svc.Close())

	svc, err = bootstrap(context.Background(), cli.Options{ConfigDir: configDir, DataDir: dataDir})
	require.NoError(t, err)
	defer svc.Close()

	assert.ErrorIs(t, svc.EmbeddingErr, domain.ErrMissingRequiredField)
	assert.Nil(t, svc.Indexer)
	assert.NotNil(t, svc.Models)
}

func TestBootstrap_Ollama(t *testing.T) {
	svc, err := bootstrap(context.Background(), cli.Options{ConfigDir: t.TempDir(), DataDir: t.TempDir()})
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.EmbeddingErr)
	assert.NotNil(t, svc.Indexer)
	assert.NotNil(t, svc.Searcher)

	detail, err := svc.Models.Detail(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", detail.ModelName)
}
