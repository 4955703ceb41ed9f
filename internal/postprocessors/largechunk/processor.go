// Package largechunk appends chunks that merge runs of regular chunks, for
// retrieval with wider context.
package largechunk

import (
	"context"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// DefaultRatio is the default number of regular chunks per large chunk.
const DefaultRatio = 4

const separator = " "

// Processor appends large chunks after the regular chunks.
type Processor struct {
	ratio int
}

// Option configures the processor.
type Option func(*Processor)

// WithRatio sets how many regular chunks are merged into one large chunk.
func WithRatio(ratio int) Option {
	return func(p *Processor) {
		if ratio > 1 {
			p.ratio = ratio
		}
	}
}

// New creates a large chunk processor.
func New(opts ...Option) *Processor {
	p := &Processor{ratio: DefaultRatio}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "largechunk"
}

// Process returns the input chunks followed by one large chunk per run of
// ratio consecutive regular chunks. Runs of a single chunk are skipped.
// Large chunk ids continue after the highest input id.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.DocAwareChunk) ([]domain.DocAwareChunk, error) {
	var regular []domain.DocAwareChunk
	nextID := 0
	for _, c := range chunks {
		nextID = max(nextID, c.ChunkID+1)
		if !c.IsPlaceholder() && !c.IsLargeChunk() {
			regular = append(regular, c)
		}
	}

	out := slices.Clone(chunks)
	for start := 0; start < len(regular); start += p.ratio {
		group := regular[start:min(start+p.ratio, len(regular))]
		if len(group) < 2 {
			continue
		}
		large, err := merge(doc, group, nextID)
		if err != nil {
			return nil, err
		}
		out = append(out, large)
		nextID++
	}
	return out, nil
}

func merge(doc *domain.Document, group []domain.DocAwareChunk, id int) (domain.DocAwareChunk, error) {
	first := group[0]
	var content strings.Builder
	var links map[int]string
	ids := make([]int, len(group))
	for i, c := range group {
		if i > 0 {
			content.WriteString(separator)
		}
		offset := content.Len()
		for at, link := range c.SourceLinks {
			if links == nil {
				links = make(map[int]string)
			}
			links[offset+at] = link
		}
		content.WriteString(c.Content)
		ids[i] = c.ChunkID
	}

	base, err := domain.NewBaseChunk(id, first.Blurb, content.String(), links, first.SectionContinuation)
	if err != nil {
		return domain.DocAwareChunk{}, err
	}
	c, err := domain.NewDocAwareChunk(base, doc,
		first.TitlePrefix, first.MetadataSuffixSemantic, first.MetadataSuffixKeyword, nil)
	if err != nil {
		return domain.DocAwareChunk{}, err
	}
	c = c.WithLargeChunkReferences(ids)
	return c, c.Validate()
}
