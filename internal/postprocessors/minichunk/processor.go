// Package minichunk subdivides chunks into mini-chunks that are embedded
// alongside the full chunk.
package minichunk

import (
	"context"
	"slices"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/postprocessors/chunker"
)

// DefaultSize is the default mini-chunk length in bytes.
const DefaultSize = 150

// Processor fills MiniChunkTexts of each chunk.
type Processor struct {
	size int
}

// Option configures the processor.
type Option func(*Processor)

// WithSize sets the mini-chunk length in bytes.
func WithSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.size = size
		}
	}
}

// New creates a mini-chunk processor.
func New(opts ...Option) *Processor {
	p := &Processor{size: DefaultSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "minichunk"
}

// Process returns copies of the chunks with mini-chunk texts set.
// Placeholder and large chunks are left without mini-chunks.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.DocAwareChunk) ([]domain.DocAwareChunk, error) {
	out := slices.Clone(chunks)
	for i, c := range out {
		if c.IsPlaceholder() || c.IsLargeChunk() {
			continue
		}
		c.MiniChunkTexts = chunker.SplitText(c.Content, p.size)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
