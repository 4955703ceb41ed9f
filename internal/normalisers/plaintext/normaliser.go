package plaintext

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-go",
		"text/x-python",
		"text/x-shellscript",
		"text/csv",
		"text/yaml",
		"text/toml",
		"application/json",
		"application/xml",
	}
}

// SupportedConnectorTypes returns connector types for specialised handling.
func (n *Normaliser) SupportedConnectorTypes() []string {
	return nil // All connectors
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a raw document into a document with one section per
// paragraph. Chunking is handled by the PostProcessor pipeline.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc := normalisers.NewDocument(raw)
	doc.Title = titleFromMetadataOrURI(raw)
	delete(doc.Metadata, "title")
	for _, para := range paragraphBreak.Split(string(raw.Content), -1) {
		if para = strings.TrimSpace(para); para != "" {
			doc.Sections = append(doc.Sections, domain.Section{Text: para})
		}
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// titleFromMetadataOrURI prefers a connector supplied title.
func titleFromMetadataOrURI(raw *domain.RawDocument) string {
	if titles := raw.Metadata["title"]; len(titles) > 0 && titles[0] != "" {
		return titles[0]
	}
	return normalisers.TitleFromURI(raw.URI)
}
