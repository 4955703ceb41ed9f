package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-index/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-index/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/sercha-index/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-index/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-index/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-index/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/core/services"
	"github.com/custodia-labs/sercha-index/internal/logger"
	"github.com/custodia-labs/sercha-index/internal/normalisers"
	"github.com/custodia-labs/sercha-index/internal/normalisers/docx"
	"github.com/custodia-labs/sercha-index/internal/normalisers/html"
	"github.com/custodia-labs/sercha-index/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-index/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-index/internal/normalisers/plaintext"
	"github.com/custodia-labs/sercha-index/internal/postprocessors"
)

const titleCacheTTL = 30 * time.Minute

// bootstrap wires the adapters into the core services.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore)
	settings := settingsSvc.Get()

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	logger.Debug("Index database: %s", store.Path())

	models := services.NewEmbeddingModelService(store.EmbeddingModelStore())
	formats := normalisers.NewRegistry(
		markdown.New(),
		html.New(),
		docx.New(),
		pdf.New(),
		plaintext.New(),
	)
	svc := &cli.Services{
		Models:      models,
		Settings:    settingsSvc,
		Normalisers: formats,
		Close:       store.Close,
	}

	embedding, detail, err := setupEmbedding(ctx, settings.Embedding, models)
	if err != nil {
		svc.EmbeddingErr = err
		return svc, nil
	}

	embedder := services.NewEmbedder(embedding, detail,
		services.WithBatchSize(settings.Embedding.BatchSize),
		services.WithRateLimit(settings.Embedding.RequestsPerSecond),
		services.WithTitleCache(settings.Embedding.TitleCacheSize, titleCacheTTL),
	)

	vectors := memory.NewVectorIndex(detail.ModelDim)
	if err := loadVectors(ctx, store, vectors, detail.ModelDim); err != nil {
		_ = embedding.Close()
		_ = store.Close()
		return nil, err
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.NewPipelineFromSettings(registry, settings.Chunking)
	if err != nil {
		_ = embedding.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build chunking pipeline: %w", err)
	}

	chunks := store.ChunkStore()
	svc.Indexer = services.NewIndexingService(pipeline, embedder, store.MetadataStore(), chunks, vectors, settings.Indexing)
	svc.Searcher = services.NewSearchService(embedder, vectors, chunks)
	svc.Close = func() error {
		return errors.Join(vectors.Close(), embedding.Close(), store.Close())
	}
	return svc, nil
}

// setupEmbedding creates the embedding client for the present model,
// registering the configured model when the index has none yet.
func setupEmbedding(
	ctx context.Context,
	cfg domain.EmbeddingSettings,
	models *services.EmbeddingModelService,
) (driven.EmbeddingService, domain.EmbeddingModelDetail, error) {
	if !cfg.IsConfigured() {
		return nil, domain.EmbeddingModelDetail{}, fmt.Errorf("%w: embedding provider %q", domain.ErrMissingRequiredField, cfg.Provider)
	}
	embedding, err := newEmbeddingService(cfg)
	if err != nil {
		return nil, domain.EmbeddingModelDetail{}, err
	}

	record := cfg.ModelRecord()
	if record.ModelName == "" {
		record.ModelName = embedding.ModelName()
	}
	if record.ModelDim == 0 {
		record.ModelDim = embedding.Dimensions()
	}
	detail, err := models.Ensure(ctx, record)
	if err != nil {
		_ = embedding.Close()
		return nil, domain.EmbeddingModelDetail{}, fmt.Errorf("load embedding model: %w", err)
	}

	if detail.ModelName != embedding.ModelName() || detail.ModelDim != embedding.Dimensions() {
		logger.Warn("Index uses %s (%d dims), configured model is %s; promote a new model and re-index to switch",
			detail.ModelName, detail.ModelDim, embedding.ModelName())
		_ = embedding.Close()
		cfg.Model = detail.ModelName
		cfg.Dimensions = detail.ModelDim
		if embedding, err = newEmbeddingService(cfg); err != nil {
			return nil, domain.EmbeddingModelDetail{}, err
		}
	}
	return embedding, detail, nil
}

func newEmbeddingService(cfg domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case domain.AIProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case domain.AIProviderOpenAI:
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, cfg.Provider)
	}
}

// loadVectors fills the vector index from stored chunks. Vectors of a
// different size belong to a retired model and are skipped.
func loadVectors(ctx context.Context, store *sqlite.Store, vectors *memory.VectorIndex, dims int) error {
	skipped := 0
	err := store.LoadVectors(ctx, func(ctx context.Context, key string, emb []float32) error {
		if len(emb) != dims {
			skipped++
			return nil
		}
		return vectors.Add(ctx, key, emb)
	})
	if err != nil {
		return fmt.Errorf("load vectors: %w", err)
	}
	if skipped > 0 {
		logger.Warn("Skipped %d vectors from another embedding model; re-index to include them", skipped)
	}
	logger.Debug("Loaded %d vectors", vectors.Len())
	return nil
}
