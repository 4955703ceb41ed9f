package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-index/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// newConfigStore returns a TOML config store in a temporary directory.
func newConfigStore(t *testing.T) *file.ConfigStore {
	t.Helper()
	cfg, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestSettingsService_Get_Defaults(t *testing.T) {
	got := NewSettingsService(newConfigStore(t)).Get()
	want := domain.DefaultSettings()

	assert.Equal(t, want.Chunking, got.Chunking)
	assert.Equal(t, want.Indexing.Workers, got.Indexing.Workers)
	assert.True(t, got.Indexing.DefaultPublic)
	assert.Equal(t, domain.AIProviderOllama, got.Embedding.Provider)
	assert.True(t, got.Embedding.Normalize)
	assert.Nil(t, got.Embedding.QueryPrefix)
	assert.Nil(t, got.Embedding.PassagePrefix)
}

func TestSettingsService_Get_FromConfig(t *testing.T) {
	cfg := newConfigStore(t)
	values := map[string]any{
		"chunking.chunk_size":           int64(512),
		"chunking.enable_mini_chunks":   true,
		"embedding.provider":            "openai",
		"embedding.model":               "text-embedding-3-small",
		"embedding.dimensions":          int64(1536),
		"embedding.normalize":           false,
		"embedding.query_prefix":        "",
		"embedding.passage_prefix":      "passage: ",
		"embedding.requests_per_second": 2.5,
		"indexing.document_sets":        []any{"eng"},
		"indexing.boost":                int64(-1),
		"indexing.public":               false,
	}
	for k, v := range values {
		require.NoError(t, cfg.Set(k, v))
	}

	got := NewSettingsService(cfg).Get()
	assert.Equal(t, 512, got.Chunking.ChunkSize)
	assert.Equal(t, 128, got.Chunking.BlurbSize)
	assert.True(t, got.Chunking.EnableMiniChunks)
	assert.Equal(t, domain.AIProviderOpenAI, got.Embedding.Provider)
	assert.Equal(t, 1536, got.Embedding.Dimensions)
	assert.False(t, got.Embedding.Normalize)
	require.NotNil(t, got.Embedding.QueryPrefix)
	assert.Empty(t, *got.Embedding.QueryPrefix)
	require.NotNil(t, got.Embedding.PassagePrefix)
	assert.Equal(t, "passage: ", *got.Embedding.PassagePrefix)
	assert.InDelta(t, 2.5, got.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, []string{"eng"}, got.Indexing.DefaultDocumentSets)
	assert.Equal(t, -1, got.Indexing.DefaultBoost)
	assert.False(t, got.Indexing.DefaultPublic)
}

func TestSettingsService_Get_InvalidProviderFallsBack(t *testing.T) {
	cfg := newConfigStore(t)
	require.NoError(t, cfg.Set("embedding.provider", "cohere"))
	assert.Equal(t, domain.AIProviderOllama, NewSettingsService(cfg).Get().Embedding.Provider)
}

func TestSettingsService_SaveEmbedding(t *testing.T) {
	cfg := newConfigStore(t)
	svc := NewSettingsService(cfg)

	err := svc.SaveEmbedding(domain.EmbeddingSettings{
		Provider:   domain.AIProviderOllama,
		Model:      "nomic-embed-text",
		Dimensions: 768,
		BaseURL:    "http://localhost:11434",
		Normalize:  true,
	})
	require.NoError(t, err)

	got := svc.Get().Embedding
	assert.Equal(t, "nomic-embed-text", got.Model)
	assert.Equal(t, 768, got.Dimensions)
	assert.Equal(t, "http://localhost:11434", got.BaseURL)
	_, hasKey := cfg.Get("embedding.api_key")
	assert.False(t, hasKey)

	err = svc.SaveEmbedding(domain.EmbeddingSettings{Provider: "cohere"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
