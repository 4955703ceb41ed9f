package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-index/internal/logger"
)

// Verify interface implementation.
var _ driving.Indexer = (*IndexingService)(nil)

const defaultIndexWorkers = 4

// IndexingService runs documents through the indexing pipeline:
// chunking, embedding, metadata enrichment and writing.
type IndexingService struct {
	pipeline    driven.PostProcessorPipeline
	embedder    *Embedder
	metadata    driven.MetadataResolver
	store       driven.ChunkStore
	vectorIndex driven.VectorIndex // optional
	defaults    domain.IndexingSettings

	mu     sync.RWMutex
	status driving.IndexStatus

	// pending holds documents whose chunks were written but whose vectors
	// were not. They are retried at the start of the next Index or IndexBatch.
	pending map[string]struct{}
}

// NewIndexingService creates a new indexing service.
// metadata and vectorIndex may be nil; documents then get the defaults.
func NewIndexingService(
	pipeline driven.PostProcessorPipeline,
	embedder *Embedder,
	metadata driven.MetadataResolver,
	store driven.ChunkStore,
	vectorIndex driven.VectorIndex,
	defaults domain.IndexingSettings,
) *IndexingService {
	if defaults.Workers <= 0 {
		defaults.Workers = defaultIndexWorkers
	}
	return &IndexingService{
		pipeline:    pipeline,
		embedder:    embedder,
		metadata:    metadata,
		store:       store,
		vectorIndex: vectorIndex,
		defaults:    defaults,
		pending:     make(map[string]struct{}),
	}
}

// Index processes a single document.
func (s *IndexingService) Index(ctx context.Context, doc *domain.Document) (*driving.DocumentResult, error) {
	s.retryPending(ctx)
	result := s.indexDocument(ctx, doc)
	s.record(result)
	return &result, result.Err
}

// IndexBatch processes documents with a bounded number of workers.
func (s *IndexingService) IndexBatch(ctx context.Context, docs []*domain.Document) (*driving.BatchResult, error) {
	batch := &driving.BatchResult{
		AttemptID: uuid.New().String(),
		Model:     s.embedder.Model(),
		Documents: make([]driving.DocumentResult, len(docs)),
	}
	logger.Section("Indexing")
	logger.Info("Attempt %s: %d documents with model %s", batch.AttemptID, len(docs), batch.Model.ModelName)

	s.retryPending(ctx)
	s.mu.Lock()
	s.status = driving.IndexStatus{Running: true}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.status.Running = false
		s.mu.Unlock()
	}()

	var g errgroup.Group
	g.SetLimit(s.defaults.Workers)
	for i, doc := range docs {
		g.Go(func() error {
			res := s.indexDocument(ctx, doc)
			s.record(res)
			batch.Documents[i] = res
			return nil
		})
	}
	_ = g.Wait() // per-document errors are carried in the results

	if err := ctx.Err(); err != nil {
		return batch, err
	}
	if failed := batch.Failed(); len(failed) > 0 {
		logger.Warn("Attempt %s: %d of %d documents failed", batch.AttemptID, len(failed), len(docs))
	}
	return batch, nil
}

// Delete removes a document and its vectors from the index.
func (s *IndexingService) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}
	existing, err := s.store.GetChunks(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load chunks: %w", err)
	}
	s.setPending(documentID, false)
	var errs []error
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		errs = append(errs, fmt.Errorf("delete document: %w", err))
	}
	if s.vectorIndex != nil {
		for _, c := range existing {
			if err := s.vectorIndex.Delete(ctx, c.Key()); err != nil {
				errs = append(errs, fmt.Errorf("delete vector %s: %w", c.Key(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Status returns progress counters of the running or last attempt.
func (s *IndexingService) Status() driving.IndexStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := s.status
	status.PendingVectors = len(s.pending)
	return status
}

func (s *IndexingService) record(res driving.DocumentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.DocumentsProcessed++
	s.status.ChunksWritten += res.ChunkCount
	if res.Err != nil {
		s.status.ErrorCount++
	}
}

func (s *IndexingService) indexDocument(ctx context.Context, doc *domain.Document) driving.DocumentResult {
	result := driving.DocumentResult{Descriptor: doc.ShortDescriptor()}
	if doc == nil || doc.ID == "" {
		result.Err = fmt.Errorf("%w: document without id", domain.ErrInvalidInput)
		return result
	}
	result.DocumentID = doc.ID
	fail := func(step string, err error) driving.DocumentResult {
		logger.Warn("Indexing failed for %s: %s: %v", result.Descriptor, step, err)
		result.Err = fmt.Errorf("%s: %s: %w", result.Descriptor, step, err)
		return result
	}

	// 1. Chunk
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return fail("chunk", err)
	}
	chunks = dropPlaceholders(chunks)
	logger.Debug("%s: %d chunks", result.Descriptor, len(chunks))
	if len(chunks) == 0 {
		if err := s.Delete(ctx, doc.ID); err != nil {
			return fail("remove empty document", err)
		}
		return result
	}

	// 2. Embed
	indexed, err := s.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return fail("embed", err)
	}

	// 3. Resolve metadata once per document
	access, sets, boost, err := s.resolveMetadata(ctx, doc.ID)
	if err != nil {
		return fail("metadata", err)
	}
	enriched := make([]domain.DocMetadataAwareIndexChunk, len(indexed))
	for i, c := range indexed {
		enriched[i] = domain.FromIndexChunk(c, access, sets, boost)
	}

	// 4. Drop vectors of chunks the new version no longer has
	stale, err := s.staleKeys(ctx, doc.ID, enriched)
	if err != nil {
		return fail("load previous chunks", err)
	}

	// 5. Write
	records, err := s.store.Write(ctx, enriched)
	if err != nil {
		return fail("write", err)
	}
	for _, r := range records {
		if r.DocumentID == doc.ID {
			result.AlreadyExisted = r.AlreadyExisted
		}
	}

	// 6. Vectors. The chunks are committed now, so a failure here leaves
	// the document pending until its vectors are added.
	if err := s.syncVectors(ctx, stale, enriched); err != nil {
		s.setPending(doc.ID, true)
		logger.Warn("Partial write for %s: chunks stored, vectors pending: %v", result.Descriptor, err)
		result.ChunkCount = len(enriched)
		result.Err = fmt.Errorf("%s: vectors: %w", result.Descriptor, err)
		return result
	}
	s.setPending(doc.ID, false)

	result.ChunkCount = len(enriched)
	return result
}

func (s *IndexingService) syncVectors(
	ctx context.Context,
	stale []string,
	chunks []domain.DocMetadataAwareIndexChunk,
) error {
	if s.vectorIndex == nil {
		return nil
	}
	for _, key := range stale {
		if err := s.vectorIndex.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete stale vector %s: %w", key, err)
		}
	}
	for _, c := range chunks {
		if err := s.vectorIndex.Add(ctx, c.Key(), c.Embeddings.FullEmbedding); err != nil {
			return fmt.Errorf("add vector %s: %w", c.Key(), err)
		}
	}
	return nil
}

func (s *IndexingService) setPending(documentID string, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pending {
		s.pending[documentID] = struct{}{}
	} else {
		delete(s.pending, documentID)
	}
}

// retryPending adds the stored vectors of documents left pending by an
// earlier partial write.
func (s *IndexingService) retryPending(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		chunks, err := s.store.GetChunks(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			s.setPending(id, false)
			continue
		}
		if err == nil {
			err = s.syncVectors(ctx, nil, chunks)
		}
		if err != nil {
			logger.Warn("Vectors for %s still pending: %v", id, err)
			continue
		}
		s.setPending(id, false)
		logger.Info("Added pending vectors for %s (%d chunks)", id, len(chunks))
	}
}

func (s *IndexingService) resolveMetadata(
	ctx context.Context,
	documentID string,
) (domain.DocumentAccess, domain.DocumentSets, int, error) {
	access := domain.DocumentAccess{IsPublic: s.defaults.DefaultPublic}
	sets := domain.NewDocumentSets(s.defaults.DefaultDocumentSets...)
	boost := s.defaults.DefaultBoost
	if s.metadata == nil {
		return access, sets, boost, nil
	}

	if a, err := s.metadata.Access(ctx, documentID); err == nil {
		access = a
	} else if !errors.Is(err, domain.ErrNotFound) {
		return access, nil, 0, err
	}
	if names, err := s.metadata.DocumentSets(ctx, documentID); err == nil {
		sets = domain.NewDocumentSets(names...)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return access, nil, 0, err
	}
	if b, err := s.metadata.Boost(ctx, documentID); err == nil {
		boost = b
	} else if !errors.Is(err, domain.ErrNotFound) {
		return access, nil, 0, err
	}
	return access, sets, boost, nil
}

func (s *IndexingService) staleKeys(
	ctx context.Context,
	documentID string,
	chunks []domain.DocMetadataAwareIndexChunk,
) ([]string, error) {
	if s.vectorIndex == nil {
		return nil, nil
	}
	previous, err := s.store.GetChunks(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	current := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		current[c.Key()] = struct{}{}
	}
	var stale []string
	for _, c := range previous {
		if _, ok := current[c.Key()]; !ok {
			stale = append(stale, c.Key())
		}
	}
	return stale, nil
}

// dropPlaceholders removes chunks with no content. A processor may emit
// them to mark an empty document.
func dropPlaceholders(chunks []domain.DocAwareChunk) []domain.DocAwareChunk {
	out := chunks[:0:0]
	for _, c := range chunks {
		if c.IsPlaceholder() {
			continue
		}
		out = append(out, c)
	}
	return out
}
