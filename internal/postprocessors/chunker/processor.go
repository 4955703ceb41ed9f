// Package chunker packs document sections into size-bounded chunks.
package chunker

import (
	"context"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// DefaultChunkSize is the default chunk budget in bytes, including the
// title prefix and semantic metadata suffix.
const DefaultChunkSize = 2048

// DefaultBlurbSize is the default maximum blurb length in bytes.
const DefaultBlurbSize = 128

// sectionSeparator joins sections packed into one chunk.
const sectionSeparator = "\n\n"

// maxMetadataShare is the largest share of the chunk budget the title
// prefix or the semantic metadata suffix may take before it is dropped.
const maxMetadataShare = 4

// Processor splits a document's sections into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	blurbSize int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk budget in bytes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithBlurbSize sets the maximum blurb length in bytes.
func WithBlurbSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.blurbSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		blurbSize: DefaultBlurbSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process packs the document sections into chunks.
// Input chunks are ignored; this processor creates new chunks from the document.
// A document without text yields a single placeholder chunk.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.DocAwareChunk) ([]domain.DocAwareChunk, error) {
	titlePrefix := ""
	if title := doc.IndexTitle(); title != "" {
		titlePrefix = title + "\n"
	}
	semantic, keyword := MetadataSuffixes(doc.Metadata)
	if len(titlePrefix) > p.chunkSize/maxMetadataShare {
		titlePrefix = ""
	}
	if len(semantic) > p.chunkSize/maxMetadataShare {
		semantic = ""
	}
	budget := max(p.chunkSize-len(titlePrefix)-len(semantic), 1)

	b := &builder{blurbSize: p.blurbSize}
	for _, section := range doc.Sections {
		text := strings.TrimSpace(section.Text)
		if text == "" {
			continue
		}
		if len(text) > budget {
			b.flush()
			for i, piece := range SplitText(text, budget) {
				b.add(piece, section.Link, i > 0)
				b.flush()
			}
			continue
		}
		if b.size() > 0 && b.size()+len(sectionSeparator)+len(text) > budget {
			b.flush()
		}
		b.add(text, section.Link, false)
	}
	b.flush()
	if len(b.chunks) == 0 {
		b.chunks = append(b.chunks, domain.BaseChunk{})
	}

	out := make([]domain.DocAwareChunk, 0, len(b.chunks))
	for i, base := range b.chunks {
		base.ChunkID = i
		c, err := domain.NewDocAwareChunk(base, doc, titlePrefix, semantic, keyword, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// builder accumulates sections into the chunk being packed.
type builder struct {
	blurbSize int
	chunks    []domain.BaseChunk

	content      strings.Builder
	links        map[int]string
	blurb        string
	continuation bool
}

func (b *builder) size() int {
	return b.content.Len()
}

func (b *builder) add(text, link string, continuation bool) {
	if b.content.Len() == 0 {
		b.blurb = ExtractBlurb(text, b.blurbSize)
		b.continuation = continuation
	} else {
		b.content.WriteString(sectionSeparator)
	}
	if link != "" {
		if b.links == nil {
			b.links = make(map[int]string)
		}
		b.links[b.content.Len()] = link
	}
	b.content.WriteString(text)
}

func (b *builder) flush() {
	if b.content.Len() == 0 {
		return
	}
	b.chunks = append(b.chunks, domain.BaseChunk{
		Blurb:               b.blurb,
		Content:             b.content.String(),
		SourceLinks:         b.links,
		SectionContinuation: b.continuation,
	})
	b.content.Reset()
	b.links = nil
	b.blurb = ""
	b.continuation = false
}

// MetadataSuffixes renders document metadata for the semantic and keyword
// paths. Keys are sorted. Empty metadata gives empty suffixes.
func MetadataSuffixes(metadata map[string][]string) (semantic, keyword string) {
	if len(metadata) == 0 {
		return "", ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sem strings.Builder
	sem.WriteString("\nMetadata:")
	var values []string
	for _, k := range keys {
		sem.WriteString("\n\t" + k + " - " + strings.Join(metadata[k], ", "))
		values = append(values, metadata[k]...)
	}
	return sem.String(), "\n" + strings.Join(values, " ")
}

// ExtractBlurb returns the leading sentences of text that fit in limit bytes.
// When the first sentence is too long it is cut at a word boundary.
func ExtractBlurb(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	end := 0
	for i, r := range text {
		if i >= limit {
			break
		}
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			end = i + 1
		}
	}
	if end > 0 {
		return strings.TrimSpace(text[:end])
	}
	return SplitText(text, limit)[0]
}

// SplitText splits text into pieces of at most limit bytes, preferring to
// cut at whitespace and never cutting inside a UTF-8 sequence.
func SplitText(text string, limit int) []string {
	var out []string
	text = strings.TrimSpace(text)
	for len(text) > limit {
		cut := strings.LastIndexAny(text[:limit+1], " \n\t")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(text)
			}
		}
		if piece := strings.TrimSpace(text[:cut]); piece != "" {
			out = append(out, piece)
		}
		text = strings.TrimLeft(text[cut:], " \n\t")
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
