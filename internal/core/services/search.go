package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-index/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.Searcher = (*SearchService)(nil)

const (
	defaultSearchLimit = 20
	maxHighlights      = 3
	maxHighlightLength = 200
)

// SearchService runs semantic search over indexed chunks.
type SearchService struct {
	embedder    *Embedder
	vectorIndex driven.VectorIndex
	chunks      driven.ChunkReader
}

// NewSearchService creates a new search service.
func NewSearchService(embedder *Embedder, vectorIndex driven.VectorIndex, chunks driven.ChunkReader) *SearchService {
	return &SearchService{
		embedder:    embedder,
		vectorIndex: vectorIndex,
		chunks:      chunks,
	}
}

// Search embeds the query and returns the closest visible chunks.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	// Return empty for empty query
	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}
	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	// Request more results internally to account for filtering
	internalLimit := (opts.Offset + limit) * 2
	if len(opts.DocumentSets) > 0 || len(opts.ACL) > 0 {
		internalLimit = (opts.Offset + limit) * 3
	}
	logger.Debug("Limit: %d, Offset: %d, Internal limit: %d", limit, opts.Offset, internalLimit)

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}

	hits, err := s.vectorIndex.Search(ctx, embedding, internalLimit)
	if err != nil {
		logger.Warn("Vector index search failed: %v", err)
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search: %d hits", len(hits))

	results, err := s.hydrateResults(ctx, hits, query, opts)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	results = applyPagination(results, opts.Offset, limit)
	logger.Info("Final results: %d", len(results))

	return results, nil
}

// hydrateResults loads hit chunks, drops those the caller may not see and
// applies the document boost.
func (s *SearchService) hydrateResults(
	ctx context.Context, hits []driven.VectorHit, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.chunks.GetChunk(ctx, hit.ChunkKey)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Chunk was deleted, skip it
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkKey, err)
		}
		if !domain.Visible(*chunk, opts.ACL) || !domain.InAnySet(*chunk, opts.DocumentSets) {
			continue
		}
		results = append(results, domain.SearchResult{
			Chunk:      *chunk,
			Score:      hit.Similarity * boostMultiplier(chunk.Boost()),
			Highlights: generateHighlights(chunk.Content, query),
		})
	}
	return results, nil
}

// boostMultiplier maps a boost onto (0, 2). Zero boost leaves scores unchanged.
func boostMultiplier(boost int) float64 {
	return 2 / (1 + math.Exp(-float64(boost)/4))
}

// generateHighlights returns sentences of content that contain a query term.
func generateHighlights(content, query string) []string {
	queryTerms := strings.Fields(strings.ToLower(query))
	if len(queryTerms) == 0 {
		return nil
	}

	var highlights []string
	for _, sentence := range splitSentences(content) {
		sentenceLower := strings.ToLower(sentence)
		for _, term := range queryTerms {
			if strings.Contains(sentenceLower, term) {
				if len(sentence) > maxHighlightLength {
					sentence = truncateUTF8(sentence, maxHighlightLength) + "..."
				}
				highlights = append(highlights, sentence)
				break
			}
		}
		if len(highlights) >= maxHighlights {
			break
		}
	}
	return highlights
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// splitSentences splits content into sentences.
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// applyPagination applies offset and limit to results.
func applyPagination(results []domain.SearchResult, offset, limit int) []domain.SearchResult {
	if offset >= len(results) {
		return []domain.SearchResult{}
	}
	end := min(offset+limit, len(results))
	return results[offset:end]
}
