package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-index/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

type indexingFixture struct {
	service  *IndexingService
	store    *memory.ChunkStore
	vectors  *memory.VectorIndex
	metadata *memory.MetadataStore
	pipeline *sectionPipeline
}

func newIndexingFixture(defaults domain.IndexingSettings) *indexingFixture {
	f := &indexingFixture{
		store:    memory.NewChunkStore(),
		vectors:  memory.NewVectorIndex(4),
		metadata: memory.NewMetadataStore(),
		pipeline: &sectionPipeline{},
	}
	embedder := NewEmbedder(newMockEmbeddingService(4), testModel(4))
	f.service = NewIndexingService(f.pipeline, embedder, f.metadata, f.store, f.vectors, defaults)
	return f
}

func TestIndexingService_Index_WritesChunksAndVectors(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{
		DefaultPublic:       true,
		DefaultDocumentSets: []string{"general"},
		DefaultBoost:        0,
	})
	ctx := context.Background()

	result, err := f.service.Index(ctx, testDocument("doc-1", "Title", "one", "two"))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, 2, result.ChunkCount)
	assert.False(t, result.AlreadyExisted)
	assert.Equal(t, "FILESYSTEM Connector 'doc-1.md' with ID: 'doc-1'", result.Descriptor)

	chunks, err := f.store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.True(t, c.Access().IsPublic)
		assert.Equal(t, []string{"general"}, c.DocumentSets().Names())
		assert.NotNil(t, c.TitleEmbedding)
	}
	assert.Equal(t, 2, f.vectors.Len())

	status := f.service.Status()
	assert.Equal(t, 1, status.DocumentsProcessed)
	assert.Equal(t, 2, status.ChunksWritten)
	assert.Zero(t, status.ErrorCount)
}

// failingVectorIndex fails Add while addErr is set.
type failingVectorIndex struct {
	*memory.VectorIndex
	mu     sync.Mutex
	addErr error
}

func (v *failingVectorIndex) Add(ctx context.Context, chunkKey string, embedding []float32) error {
	v.mu.Lock()
	err := v.addErr
	v.mu.Unlock()
	if err != nil {
		return err
	}
	return v.VectorIndex.Add(ctx, chunkKey, embedding)
}

func (v *failingVectorIndex) setAddErr(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.addErr = err
}

func TestIndexingService_Index_RetriesVectorsAfterPartialWrite(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{DefaultPublic: true})
	errVector := errors.New("vector index unavailable")
	vectors := &failingVectorIndex{VectorIndex: memory.NewVectorIndex(4), addErr: errVector}
	embedder := NewEmbedder(newMockEmbeddingService(4), testModel(4))
	service := NewIndexingService(f.pipeline, embedder, f.metadata, f.store, vectors, domain.IndexingSettings{DefaultPublic: true})
	ctx := context.Background()

	result, err := service.Index(ctx, testDocument("doc-1", "", "one", "two"))
	require.ErrorIs(t, err, errVector)
	assert.Equal(t, 2, result.ChunkCount)
	stored, err := f.store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Zero(t, vectors.Len())
	assert.Equal(t, 1, service.Status().PendingVectors)

	// The next call adds the pending vectors before indexing its own document.
	vectors.setAddErr(nil)
	_, err = service.Index(ctx, testDocument("doc-2", "", "three"))
	require.NoError(t, err)
	assert.Equal(t, 3, vectors.Len())
	assert.Zero(t, service.Status().PendingVectors)
}

func TestIndexingService_Delete_ClearsPendingVectors(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{DefaultPublic: true})
	vectors := &failingVectorIndex{VectorIndex: memory.NewVectorIndex(4), addErr: errors.New("down")}
	embedder := NewEmbedder(newMockEmbeddingService(4), testModel(4))
	service := NewIndexingService(f.pipeline, embedder, f.metadata, f.store, vectors, domain.IndexingSettings{})
	ctx := context.Background()

	_, err := service.Index(ctx, testDocument("doc-1", "", "one"))
	require.Error(t, err)
	require.Equal(t, 1, service.Status().PendingVectors)

	require.NoError(t, service.Delete(ctx, "doc-1"))
	assert.Zero(t, service.Status().PendingVectors)
}

func TestIndexingService_Index_UsesStoredMetadata(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{DefaultPublic: true})
	ctx := context.Background()

	access := domain.DocumentAccess{UserEmails: []string{"alice@example.com"}}
	require.NoError(t, f.metadata.SetAccess(ctx, "doc-1", access))
	require.NoError(t, f.metadata.SetDocumentSets(ctx, "doc-1", []string{"eng", "eng", "ops"}))
	require.NoError(t, f.metadata.SetBoost(ctx, "doc-1", 3))

	_, err := f.service.Index(ctx, testDocument("doc-1", "", "body"))
	require.NoError(t, err)

	c, err := f.store.GetChunk(ctx, domain.ChunkKey("doc-1", 0))
	require.NoError(t, err)
	assert.False(t, c.Access().IsPublic)
	assert.Equal(t, []string{"alice@example.com"}, c.Access().UserEmails)
	assert.Equal(t, []string{"eng", "ops"}, c.DocumentSets().Names())
	assert.Equal(t, 3, c.Boost())
}

func TestIndexingService_Index_ReindexRemovesStaleVectors(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{DefaultPublic: true})
	ctx := context.Background()

	_, err := f.service.Index(ctx, testDocument("doc-1", "", "one", "two", "three"))
	require.NoError(t, err)
	assert.Equal(t, 3, f.vectors.Len())

	result, err := f.service.Index(ctx, testDocument("doc-1", "", "one"))
	require.NoError(t, err)
	assert.True(t, result.AlreadyExisted)
	assert.Equal(t, 1, f.vectors.Len())
	assert.Equal(t, 1, f.store.Count())
}

func TestIndexingService_Index_EmptyDocumentRemovesPrevious(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{DefaultPublic: true})
	ctx := context.Background()

	_, err := f.service.Index(ctx, testDocument("doc-1", "", "one"))
	require.NoError(t, err)

	result, err := f.service.Index(ctx, testDocument("doc-1", "", "   "))
	require.NoError(t, err)
	assert.Zero(t, result.ChunkCount)
	assert.Zero(t, f.store.Count())
	assert.Zero(t, f.vectors.Len())
}

func TestIndexingService_Index_InvalidDocument(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{})

	result, err := f.service.Index(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, "<nil document>", result.Descriptor)
}

func TestIndexingService_IndexBatch_IsolatesFailures(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{DefaultPublic: true, Workers: 2})
	f.pipeline.failFor = "bad"
	ctx := context.Background()

	docs := []*domain.Document{
		testDocument("doc-1", "", "one"),
		testDocument("bad", "", "two"),
		testDocument("doc-3", "", "three", "four"),
	}
	batch, err := f.service.IndexBatch(ctx, docs)
	require.NoError(t, err)

	assert.NotEmpty(t, batch.AttemptID)
	assert.Equal(t, "mock-embed", batch.Model.ModelName)
	require.Len(t, batch.Documents, 3)
	assert.Equal(t, "doc-1", batch.Documents[0].DocumentID)
	assert.Equal(t, "doc-3", batch.Documents[2].DocumentID)
	assert.Equal(t, 3, batch.ChunkCount())

	failed := batch.Failed()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, errPipeline)
	assert.Contains(t, failed[0].Err.Error(), "with ID: 'bad'")

	status := f.service.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 3, status.DocumentsProcessed)
	assert.Equal(t, 1, status.ErrorCount)
}

func TestIndexingService_IndexBatch_Cancelled(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{DefaultPublic: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.IndexBatch(ctx, []*domain.Document{testDocument("doc-1", "", "one")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndexingService_Delete(t *testing.T) {
	f := newIndexingFixture(domain.IndexingSettings{DefaultPublic: true})
	ctx := context.Background()

	_, err := f.service.Index(ctx, testDocument("doc-1", "", "one", "two"))
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, "doc-1"))
	assert.Zero(t, f.store.Count())
	assert.Zero(t, f.vectors.Len())

	assert.ErrorIs(t, f.service.Delete(ctx, ""), domain.ErrInvalidInput)
}
