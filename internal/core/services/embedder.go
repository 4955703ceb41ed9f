package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/logger"
)

const defaultEmbedBatchSize = 8

// Embedder turns document-aware chunks into index chunks by embedding their
// semantic text, mini-chunk texts and titles.
type Embedder struct {
	service   driven.EmbeddingService
	model     domain.EmbeddingModelDetail
	batchSize int
	limiter   *rate.Limiter
	titles    *expirable.LRU[string, domain.Embedding]
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithBatchSize sets how many texts are sent per embedding request.
func WithBatchSize(n int) EmbedderOption {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithRateLimit throttles embedding requests. Zero or less disables it.
func WithRateLimit(requestsPerSecond float64) EmbedderOption {
	return func(e *Embedder) {
		if requestsPerSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// WithTitleCache caches title embeddings. A ttl of zero never expires entries.
func WithTitleCache(size int, ttl time.Duration) EmbedderOption {
	return func(e *Embedder) {
		if size > 0 {
			e.titles = expirable.NewLRU[string, domain.Embedding](size, nil, ttl)
		}
	}
}

// NewEmbedder creates an embedder for the given model snapshot.
func NewEmbedder(service driven.EmbeddingService, model domain.EmbeddingModelDetail, opts ...EmbedderOption) *Embedder {
	e := &Embedder{
		service:   service,
		model:     model,
		batchSize: defaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the model snapshot used for every request.
func (e *Embedder) Model() domain.EmbeddingModelDetail {
	return e.model
}

// EmbedChunks computes the embeddings of the chunks, in input order.
// Titles are embedded once per distinct title, and only for chunks whose
// TitlePrefix is non-empty.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []domain.DocAwareChunk) ([]domain.IndexChunk, error) {
	if e.service == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	// Flatten full and mini texts into one request stream
	var texts []string
	for _, c := range chunks {
		passage, err := e.passageText(c)
		if err != nil {
			return nil, err
		}
		texts = append(texts, passage)
		for _, mini := range c.MiniChunkTexts {
			texts = append(texts, e.model.PassageText(mini))
		}
	}
	logger.Debug("Embedding %d texts for %d chunks with %s", len(texts), len(chunks), e.model.ModelName)

	vectors, err := e.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	titles, err := e.embedTitles(ctx, chunks)
	if err != nil {
		return nil, err
	}

	out := make([]domain.IndexChunk, 0, len(chunks))
	next := 0
	for _, c := range chunks {
		emb := domain.ChunkEmbedding{FullEmbedding: vectors[next]}
		next++
		if c.MiniChunkTexts != nil {
			emb.MiniChunkEmbeddings = make([]domain.Embedding, 0, len(c.MiniChunkTexts))
			for range c.MiniChunkTexts {
				emb.MiniChunkEmbeddings = append(emb.MiniChunkEmbeddings, vectors[next])
				next++
			}
		}

		var title domain.Embedding
		if c.TitlePrefix != "" {
			title = titles[c.SourceDocument.IndexTitle()]
		}

		ic, err := domain.NewIndexChunk(c, emb, title)
		if err != nil {
			return nil, err
		}
		out = append(out, ic)
	}
	return out, nil
}

// passageText is the text sent for the chunk's full embedding. It is
// checked to strip back to the chunk content before it leaves the process.
func (e *Embedder) passageText(c domain.DocAwareChunk) (string, error) {
	passage := e.model.PassageText(c.SemanticText())
	body, ok := e.model.StripPassagePrefix(passage)
	if !ok {
		return "", fmt.Errorf("%s: %w: passage prefix missing", c.ShortDescriptor(), domain.ErrInconsistentTextReconstruction)
	}
	if err := c.VerifyText(domain.SemanticPath, body); err != nil {
		return "", err
	}
	return passage, nil
}

// EmbedQuery embeds a search query with the model's query prefix.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) (domain.Embedding, error) {
	if e.service == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vectors, err := e.embedAll(ctx, []string{e.model.QueryText(query)})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embedTitles(ctx context.Context, chunks []domain.DocAwareChunk) (map[string]domain.Embedding, error) {
	found := make(map[string]domain.Embedding)
	var missing []string
	for _, c := range chunks {
		if c.TitlePrefix == "" {
			continue
		}
		title := c.SourceDocument.IndexTitle()
		if _, ok := found[title]; ok {
			continue
		}
		if e.titles != nil {
			if v, ok := e.titles.Get(e.titleKey(title)); ok {
				found[title] = v
				continue
			}
		}
		found[title] = nil
		missing = append(missing, title)
	}
	if len(missing) == 0 {
		return found, nil
	}

	texts := make([]string, len(missing))
	for i, t := range missing {
		texts[i] = e.model.PassageText(t)
	}
	vectors, err := e.embedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed titles: %w", err)
	}
	for i, t := range missing {
		found[t] = vectors[i]
		if e.titles != nil {
			e.titles.Add(e.titleKey(t), vectors[i])
		}
	}
	return found, nil
}

// titleKey scopes cached titles to the model so a model swap never reuses them.
func (e *Embedder) titleKey(title string) string {
	h := sha256.Sum256([]byte(e.model.ModelName + "\x00" + title))
	return hex.EncodeToString(h[:])
}

func (e *Embedder) embedAll(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out := make([]domain.Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		batch, err := e.service.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: %d embeddings for %d texts", domain.ErrArityMismatch, len(batch), end-start)
		}
		for _, v := range batch {
			if e.model.ModelDim > 0 && len(v) != e.model.ModelDim {
				return nil, fmt.Errorf("%w: embedding has %d dimensions, model %s has %d",
					domain.ErrInvalidInput, len(v), e.model.ModelName, e.model.ModelDim)
			}
			vec := domain.Embedding(v)
			if e.model.Normalize {
				vec = normalize(vec)
			}
			out = append(out, vec)
		}
	}
	return out, nil
}

// normalize scales v to unit length. Zero vectors are returned unchanged.
func normalize(v domain.Embedding) domain.Embedding {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make(domain.Embedding, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
