package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// mockProcessor is a test processor that appends a chunk per call.
type mockProcessor struct {
	name string
	err  error
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, doc *domain.Document, chunks []domain.DocAwareChunk) ([]domain.DocAwareChunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	base, err := domain.NewBaseChunk(len(chunks), "", m.name, nil, false)
	if err != nil {
		return nil, err
	}
	c, err := domain.NewDocAwareChunk(base, doc, "", "", "", nil)
	if err != nil {
		return nil, err
	}
	return append(chunks, c), nil
}

func testDoc() *domain.Document {
	return &domain.Document{ID: "doc-1", Source: "filesystem"}
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	if p.Len() != 0 {
		t.Errorf("expected 0 processors, got %d", p.Len())
	}
	p.Add(&mockProcessor{name: "test"})
	if p.Len() != 1 {
		t.Errorf("expected 1 processor, got %d", p.Len())
	}
}

func TestPipeline_Process_NilDocument(t *testing.T) {
	_, err := NewPipeline().Process(context.Background(), nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPipeline_Process_EmptyPipeline(t *testing.T) {
	chunks, err := NewPipeline().Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestPipeline_Process_RunsInOrder(t *testing.T) {
	p := NewPipeline(&mockProcessor{name: "first"}, &mockProcessor{name: "second"})

	chunks, err := p.Process(context.Background(), testDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "first" || chunks[1].Content != "second" {
		t.Errorf("unexpected order: %q, %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	sentinel := errors.New("boom")
	p := NewPipeline(&mockProcessor{name: "ok"}, &mockProcessor{name: "broken", err: sentinel})

	_, err := p.Process(context.Background(), testDoc())
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if got := err.Error(); got != "processor broken: boom" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestPipeline_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipeline(&mockProcessor{name: "x"}).Process(ctx, testDoc())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
