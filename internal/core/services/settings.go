package services

import (
	"fmt"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driving"
)

// Verify interface implementation.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize         = "chunking.chunk_size"
	keyBlurbSize         = "chunking.blurb_size"
	keyMiniChunkSize     = "chunking.mini_chunk_size"
	keyEnableMiniChunks  = "chunking.enable_mini_chunks"
	keyEnableLargeChunks = "chunking.enable_large_chunks"
	keyLargeChunkRatio   = "chunking.large_chunk_ratio"

	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedDimensions    = "embedding.dimensions"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedNormalize     = "embedding.normalize"
	keyEmbedQueryPrefix   = "embedding.query_prefix"
	keyEmbedPassagePrefix = "embedding.passage_prefix"
	keyEmbedBatchSize     = "embedding.batch_size"
	keyEmbedRPS           = "embedding.requests_per_second"
	keyEmbedTitleCache    = "embedding.title_cache_size"

	keyIndexWorkers      = "indexing.workers"
	keyIndexDocumentSets = "indexing.document_sets"
	keyIndexBoost        = "indexing.boost"
	keyIndexPublic       = "indexing.public"
)

// SettingsService reads and writes application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get returns the settings, falling back to defaults for missing keys.
func (s *SettingsService) Get() domain.Settings {
	d := domain.DefaultSettings()

	return domain.Settings{
		Chunking: domain.ChunkingSettings{
			ChunkSize:         s.getInt(keyChunkSize, d.Chunking.ChunkSize),
			BlurbSize:         s.getInt(keyBlurbSize, d.Chunking.BlurbSize),
			MiniChunkSize:     s.getInt(keyMiniChunkSize, d.Chunking.MiniChunkSize),
			EnableMiniChunks:  s.getBool(keyEnableMiniChunks, d.Chunking.EnableMiniChunks),
			EnableLargeChunks: s.getBool(keyEnableLargeChunks, d.Chunking.EnableLargeChunks),
			LargeChunkRatio:   s.getInt(keyLargeChunkRatio, d.Chunking.LargeChunkRatio),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(d.Embedding.Provider),
			Model:             s.configStore.GetString(keyEmbedModel), // empty means provider default
			Dimensions:        s.configStore.GetInt(keyEmbedDimensions),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Normalize:         s.getBool(keyEmbedNormalize, d.Embedding.Normalize),
			QueryPrefix:       s.getOptionalString(keyEmbedQueryPrefix),
			PassagePrefix:     s.getOptionalString(keyEmbedPassagePrefix),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
			TitleCacheSize:    s.getInt(keyEmbedTitleCache, d.Embedding.TitleCacheSize),
		},
		Indexing: domain.IndexingSettings{
			Workers:             s.getInt(keyIndexWorkers, d.Indexing.Workers),
			DefaultDocumentSets: s.configStore.GetStringSlice(keyIndexDocumentSets),
			DefaultBoost:        s.configStore.GetInt(keyIndexBoost),
			DefaultPublic:       s.getBool(keyIndexPublic, d.Indexing.DefaultPublic),
		},
	}
}

// SaveEmbedding persists the embedding provider settings.
func (s *SettingsService) SaveEmbedding(e domain.EmbeddingSettings) error {
	if !e.Provider.IsValid() {
		return fmt.Errorf("%w: provider %q", domain.ErrUnsupportedType, e.Provider)
	}
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, e.Provider.String()},
		{keyEmbedModel, e.Model},
		{keyEmbedDimensions, e.Dimensions},
		{keyEmbedBaseURL, e.BaseURL},
		{keyEmbedNormalize, e.Normalize},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	if e.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, e.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}
	return nil
}

func (s *SettingsService) getInt(key string, def int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return def
	}
	if v := s.configStore.GetInt(key); v > 0 {
		return v
	}
	return def
}

func (s *SettingsService) getBool(key string, def bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return def
	}
	return s.configStore.GetBool(key)
}

// getOptionalString distinguishes an unset key (nil) from an empty value.
func (s *SettingsService) getOptionalString(key string) *string {
	if _, ok := s.configStore.Get(key); !ok {
		return nil
	}
	v := s.configStore.GetString(key)
	return &v
}

func (s *SettingsService) getProvider(def domain.AIProvider) domain.AIProvider {
	p := domain.AIProvider(s.configStore.GetString(keyEmbedProvider))
	if p.IsValid() {
		return p
	}
	return def
}
