package domain

import "strings"

// SearchPath selects which metadata suffix is used to assemble chunk text.
type SearchPath int

// Search paths.
const (
	// SemanticPath is the text that gets embedded.
	SemanticPath SearchPath = iota

	// KeywordPath is the text written to the lexical index.
	KeywordPath
)

// String returns the path name.
func (p SearchPath) String() string {
	if p == KeywordPath {
		return "keyword"
	}
	return "semantic"
}

// MetadataSuffix returns the suffix used on the given path.
func (c DocAwareChunk) MetadataSuffix(path SearchPath) string {
	if path == KeywordPath {
		return c.MetadataSuffixKeyword
	}
	return c.MetadataSuffixSemantic
}

// AssembleText builds the indexed text for a path:
// title prefix, then content, then metadata suffix.
func (c DocAwareChunk) AssembleText(path SearchPath) string {
	return c.TitlePrefix + c.Content + c.MetadataSuffix(path)
}

// SemanticText is the text that is embedded for the chunk.
func (c DocAwareChunk) SemanticText() string {
	return c.AssembleText(SemanticPath)
}

// KeywordText is the text written to the keyword index.
func (c DocAwareChunk) KeywordText() string {
	return c.AssembleText(KeywordPath)
}

// StripText removes exactly this chunk's title prefix and the path's
// metadata suffix from previously assembled text.
func (c DocAwareChunk) StripText(path SearchPath, text string) (string, error) {
	return StripAssembledText(text, c.TitlePrefix, c.MetadataSuffix(path))
}

// VerifyText checks that text, as embedded or stored for the path, is this
// chunk's assembled text: stripping the title prefix and the path's metadata
// suffix must give back Content exactly.
func (c DocAwareChunk) VerifyText(path SearchPath, text string) error {
	got, err := c.StripText(path, text)
	if err != nil {
		return chunkErr(c.ShortDescriptor(), ErrInconsistentTextReconstruction,
			"%s path: prefix or suffix missing", path)
	}
	if got != c.Content {
		return chunkErr(c.ShortDescriptor(), ErrInconsistentTextReconstruction,
			"%s path: reconstructed %d bytes, content has %d", path, len(got), len(c.Content))
	}
	return nil
}

// StripAssembledText removes a known prefix and suffix from assembled text.
// It fails when either is missing or when they overlap.
func StripAssembledText(text, prefix, suffix string) (string, error) {
	if len(prefix)+len(suffix) > len(text) {
		return "", ErrInconsistentTextReconstruction
	}
	if !strings.HasPrefix(text, prefix) || !strings.HasSuffix(text, suffix) {
		return "", ErrInconsistentTextReconstruction
	}
	return text[len(prefix) : len(text)-len(suffix)], nil
}
