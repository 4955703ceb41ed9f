package normalisers

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// DocumentID derives a stable document id from the source and URI, so
// re-indexing a changed file replaces its earlier chunks.
func DocumentID(source, uri string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(source+"://"+uri)).String()
}

// TitleFromURI extracts a human-readable title from a URI.
func TitleFromURI(uri string) string {
	filename := filepath.Base(uri)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// NewDocument fills the fields every normaliser derives the same way.
func NewDocument(raw *domain.RawDocument) domain.Document {
	return domain.Document{
		ID:                 DocumentID(raw.Source, raw.URI),
		Source:             raw.Source,
		URI:                raw.URI,
		SemanticIdentifier: filepath.Base(raw.URI),
		Metadata:           CopyMetadata(raw.Metadata),
		UpdatedAt:          raw.ModifiedAt,
	}
}

// CopyMetadata creates a deep copy of metadata.
func CopyMetadata(src map[string][]string) map[string][]string {
	if src == nil {
		return nil
	}
	dst := make(map[string][]string, len(src))
	for k, v := range maps.All(src) {
		dst[k] = slices.Clone(v)
	}
	return dst
}
