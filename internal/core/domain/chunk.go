package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Embedding is a fixed-length vector produced by an embedding model.
type Embedding []float32

// Clone returns an independent copy of the vector.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	return slices.Clone(e)
}

// Stage is the completeness level of a chunk in the indexing pipeline.
type Stage int

// Chunk stages in pipeline order.
const (
	StageBase Stage = iota + 1
	StageDocAware
	StageIndexed
	StageMetadataAware
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageBase:
		return "base"
	case StageDocAware:
		return "doc_aware"
	case StageIndexed:
		return "indexed"
	case StageMetadataAware:
		return "metadata_aware"
	default:
		return "unknown"
	}
}

// StagedChunk is implemented by every chunk stage.
type StagedChunk interface {
	// Stage reports how far through the pipeline the chunk is.
	Stage() Stage

	// ShortDescriptor identifies the chunk in logs and error messages.
	ShortDescriptor() string
}

var (
	_ StagedChunk = BaseChunk{}
	_ StagedChunk = DocAwareChunk{}
	_ StagedChunk = IndexChunk{}
	_ StagedChunk = DocMetadataAwareIndexChunk{}
)

// ChunkEmbedding bundles the embedding of a whole chunk with the
// embeddings of its mini-chunks, in mini-chunk order.
type ChunkEmbedding struct {
	FullEmbedding       Embedding
	MiniChunkEmbeddings []Embedding
}

// Clone returns a deep copy.
func (e ChunkEmbedding) Clone() ChunkEmbedding {
	out := ChunkEmbedding{FullEmbedding: e.FullEmbedding.Clone()}
	if e.MiniChunkEmbeddings != nil {
		out.MiniChunkEmbeddings = make([]Embedding, len(e.MiniChunkEmbeddings))
		for i, m := range e.MiniChunkEmbeddings {
			out.MiniChunkEmbeddings[i] = m.Clone()
		}
	}
	return out
}

// BaseChunk is a contiguous span of document text.
type BaseChunk struct {
	// ChunkID orders the chunk within its document and is unique there.
	ChunkID int

	// Blurb is the first sentence(s) of the chunk's first section, for display.
	Blurb string

	// Content is the raw chunk text.
	Content string

	// SourceLinks maps character offsets within Content to deep links.
	// Nil when the source has no addressable sub-locations.
	SourceLinks map[int]string

	// SectionContinuation is true when the chunk starts mid-section.
	SectionContinuation bool
}

// NewBaseChunk validates and builds a BaseChunk. The links map is copied.
func NewBaseChunk(
	chunkID int,
	blurb, content string,
	sourceLinks map[int]string,
	sectionContinuation bool,
) (BaseChunk, error) {
	c := BaseChunk{
		ChunkID:             chunkID,
		Blurb:               blurb,
		Content:             content,
		SourceLinks:         maps.Clone(sourceLinks),
		SectionContinuation: sectionContinuation,
	}
	if err := c.Validate(); err != nil {
		return BaseChunk{}, err
	}
	return c, nil
}

// Validate checks the structural invariants of the chunk.
func (c BaseChunk) Validate() error {
	return c.validate(c.ShortDescriptor())
}

func (c BaseChunk) validate(desc string) error {
	if c.ChunkID < 0 {
		return chunkErr(desc, ErrMissingRequiredField, "chunk id %d", c.ChunkID)
	}
	for offset := range c.SourceLinks {
		if offset < 0 || offset > len(c.Content) {
			return chunkErr(desc, ErrInvalidInput,
				"source link offset %d outside content of length %d", offset, len(c.Content))
		}
	}
	return nil
}

// IsPlaceholder reports whether the chunk has no searchable content.
// Placeholder chunks must be filtered out before indexing.
func (c BaseChunk) IsPlaceholder() bool {
	return strings.TrimSpace(c.Content) == ""
}

// Stage implements StagedChunk.
func (c BaseChunk) Stage() Stage { return StageBase }

// ShortDescriptor implements StagedChunk.
func (c BaseChunk) ShortDescriptor() string {
	return fmt.Sprintf("Chunk ID: '%d'", c.ChunkID)
}

// DocAwareChunk is a BaseChunk attached to its source document, carrying
// the text fragments needed to assemble the indexed text.
type DocAwareChunk struct {
	BaseChunk

	// SourceDocument is shared by all chunks of the document. Do not mutate.
	SourceDocument *Document

	// TitlePrefix may be empty even when the document has a title, if the
	// title would take too much of the chunk budget.
	TitlePrefix string

	// MetadataSuffixSemantic is appended to the text that gets embedded.
	MetadataSuffixSemantic string

	// MetadataSuffixKeyword is appended to the text of the keyword index.
	MetadataSuffixKeyword string

	// MiniChunkTexts are the sub-spans embedded separately.
	// Nil when the chunk is not subdivided.
	MiniChunkTexts []string

	// LargeChunkReferenceIDs lists the chunk ids merged into this chunk.
	// Empty when the chunk stands alone.
	LargeChunkReferenceIDs []int
}

// NewDocAwareChunk attaches a document and the derived text fragments to a
// BaseChunk. The result is validated.
func NewDocAwareChunk(
	base BaseChunk,
	doc *Document,
	titlePrefix, metadataSuffixSemantic, metadataSuffixKeyword string,
	miniChunkTexts []string,
) (DocAwareChunk, error) {
	c := DocAwareChunk{
		BaseChunk:              base,
		SourceDocument:         doc,
		TitlePrefix:            titlePrefix,
		MetadataSuffixSemantic: metadataSuffixSemantic,
		MetadataSuffixKeyword:  metadataSuffixKeyword,
		MiniChunkTexts:         slices.Clone(miniChunkTexts),
		LargeChunkReferenceIDs: []int{},
	}
	if err := c.Validate(); err != nil {
		return DocAwareChunk{}, err
	}
	return c, nil
}

// Validate checks the chunk and its document reference. The text
// round-trip is checked against embedded or stored text with VerifyText.
func (c DocAwareChunk) Validate() error {
	desc := c.ShortDescriptor()
	if err := c.BaseChunk.validate(desc); err != nil {
		return err
	}
	if c.SourceDocument == nil || c.SourceDocument.ID == "" {
		return chunkErr(desc, ErrMissingRequiredField, "source document")
	}
	for _, id := range c.LargeChunkReferenceIDs {
		if id < 0 {
			return chunkErr(desc, ErrInvalidInput, "large chunk reference id %d", id)
		}
	}
	return nil
}

// WithLargeChunkReferences returns a copy that records the merged chunk ids.
func (c DocAwareChunk) WithLargeChunkReferences(ids []int) DocAwareChunk {
	c.LargeChunkReferenceIDs = slices.Clone(ids)
	return c
}

// IsLargeChunk reports whether this chunk merges other chunks.
func (c DocAwareChunk) IsLargeChunk() bool {
	return len(c.LargeChunkReferenceIDs) > 0
}

// Stage implements StagedChunk.
func (c DocAwareChunk) Stage() Stage { return StageDocAware }

// ShortDescriptor implements StagedChunk.
func (c DocAwareChunk) ShortDescriptor() string {
	return fmt.Sprintf("Chunk ID: '%d'; %s", c.ChunkID, c.SourceDocument.ShortDescriptor())
}

// Key is the storage identity of the chunk: document id plus chunk id.
func (c DocAwareChunk) Key() string {
	return ChunkKey(c.SourceDocument.ID, c.ChunkID)
}

// ChunkKey builds the storage identity used by the index and vector stores.
func ChunkKey(documentID string, chunkID int) string {
	return fmt.Sprintf("%s__%d", documentID, chunkID)
}

// IndexChunk is a DocAwareChunk with its embeddings computed.
type IndexChunk struct {
	DocAwareChunk

	// Embeddings holds the full and mini-chunk vectors.
	Embeddings ChunkEmbedding

	// TitleEmbedding is set only when TitlePrefix is non-empty and a
	// separate title embedding was computed.
	TitleEmbedding Embedding
}

// NewIndexChunk attaches embeddings to a DocAwareChunk. Vectors are copied.
func NewIndexChunk(chunk DocAwareChunk, embeddings ChunkEmbedding, titleEmbedding Embedding) (IndexChunk, error) {
	c := IndexChunk{
		DocAwareChunk:  chunk,
		Embeddings:     embeddings.Clone(),
		TitleEmbedding: titleEmbedding.Clone(),
	}
	if err := c.Validate(); err != nil {
		return IndexChunk{}, err
	}
	return c, nil
}

// Validate checks the document-aware invariants and the embedding arity.
func (c IndexChunk) Validate() error {
	if err := c.DocAwareChunk.Validate(); err != nil {
		return err
	}
	desc := c.ShortDescriptor()
	if len(c.Embeddings.FullEmbedding) == 0 {
		return chunkErr(desc, ErrMissingRequiredField, "full embedding")
	}
	texts, vectors := len(c.MiniChunkTexts), len(c.Embeddings.MiniChunkEmbeddings)
	if c.MiniChunkTexts == nil && vectors > 0 {
		return chunkErr(desc, ErrArityMismatch, "%d mini-chunk embeddings for a chunk without mini-chunks", vectors)
	}
	if texts != vectors {
		return chunkErr(desc, ErrArityMismatch, "%d mini-chunk texts, %d embeddings", texts, vectors)
	}
	if c.TitleEmbedding != nil && c.TitlePrefix == "" {
		return chunkErr(desc, ErrInvalidInput, "title embedding without title prefix")
	}
	return nil
}

// Stage implements StagedChunk.
func (c IndexChunk) Stage() Stage { return StageIndexed }

// DocMetadataAwareIndexChunk is an IndexChunk with everything the index
// writer needs: access control, document set membership and boost.
// Build it with FromIndexChunk only.
type DocMetadataAwareIndexChunk struct {
	IndexChunk

	access       DocumentAccess
	documentSets DocumentSets
	boost        int
}

// FromIndexChunk extends an IndexChunk with access, document sets and boost.
// The IndexChunk is carried over unchanged; access and sets are copied so
// one resolved value can be shared by all chunks of a document.
func FromIndexChunk(
	chunk IndexChunk,
	access DocumentAccess,
	documentSets DocumentSets,
	boost int,
) DocMetadataAwareIndexChunk {
	return DocMetadataAwareIndexChunk{
		IndexChunk:   chunk,
		access:       access.Clone(),
		documentSets: documentSets.Clone(),
		boost:        boost,
	}
}

// Access returns who may retrieve the chunk's document.
func (c DocMetadataAwareIndexChunk) Access() DocumentAccess {
	return c.access.Clone()
}

// DocumentSets returns the document sets the chunk's document belongs to.
func (c DocMetadataAwareIndexChunk) DocumentSets() DocumentSets {
	return c.documentSets.Clone()
}

// Boost is the ranking adjustment: positive ranks higher, negative lower.
func (c DocMetadataAwareIndexChunk) Boost() int {
	return c.boost
}

// Stage implements StagedChunk.
func (c DocMetadataAwareIndexChunk) Stage() Stage { return StageMetadataAware }

// DocumentSets is a set of document set names.
type DocumentSets map[string]struct{}

// NewDocumentSets builds a set from names. Duplicates collapse.
func NewDocumentSets(names ...string) DocumentSets {
	s := make(DocumentSets, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s DocumentSets) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the sorted set members.
func (s DocumentSets) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns an independent copy. A nil set clones to an empty set.
func (s DocumentSets) Clone() DocumentSets {
	out := make(DocumentSets, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
