package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors are derived from the text so equal texts get equal vectors.
type mockEmbeddingService struct {
	mu       sync.Mutex
	dims     int
	batches  [][]string
	embedErr error
}

func newMockEmbeddingService(dims int) *mockEmbeddingService {
	return &mockEmbeddingService{dims: dims}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for i, r := range text {
		v[i%m.dims] += float32(r%7) + 1
	}
	return v
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.batches = append(m.batches, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int            { return m.dims }
func (m *mockEmbeddingService) ModelName() string          { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error               { return nil }

func (m *mockEmbeddingService) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, b := range m.batches {
		all = append(all, b...)
	}
	return all
}

func (m *mockEmbeddingService) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// sectionPipeline implements driven.PostProcessorPipeline with one chunk
// per section, titled when the document has a title.
type sectionPipeline struct {
	mini    bool
	failFor string
}

var errPipeline = errors.New("pipeline failed")

func (p *sectionPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.DocAwareChunk, error) {
	if doc.ID == p.failFor {
		return nil, errPipeline
	}
	title := ""
	if doc.Title != "" {
		title = doc.Title + "\n"
	}
	var chunks []domain.DocAwareChunk
	for i, s := range doc.Sections {
		base, err := domain.NewBaseChunk(i, s.Text, s.Text, nil, false)
		if err != nil {
			return nil, err
		}
		var minis []string
		if p.mini {
			minis = strings.Fields(s.Text)
		}
		c, err := domain.NewDocAwareChunk(base, doc, title, "", "", minis)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func testDocument(id, title string, sections ...string) *domain.Document {
	doc := &domain.Document{
		ID:                 id,
		Source:             "filesystem",
		SemanticIdentifier: id + ".md",
		Title:              title,
	}
	for _, s := range sections {
		doc.Sections = append(doc.Sections, domain.Section{Text: s})
	}
	return doc
}

func testChunks(t *testing.T, doc *domain.Document, mini bool) []domain.DocAwareChunk {
	t.Helper()
	chunks, err := (&sectionPipeline{mini: mini}).Process(context.Background(), doc)
	require.NoError(t, err)
	return chunks
}

func testModel(dims int) domain.EmbeddingModelDetail {
	return domain.EmbeddingModelDetail{ModelName: "mock-embed", ModelDim: dims}
}
