package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document represents a source document ready for chunking.
// It is the canonical representation after normalisation and is shared,
// read-only, by every chunk derived from it.
type Document struct {
	// ID is the stable identifier for the document.
	ID string

	// Source is the connector type that produced this document (e.g. "filesystem").
	Source string

	// URI is the original location (file path, URL, etc).
	URI string

	// SemanticIdentifier is the human-readable name shown in results.
	SemanticIdentifier string

	// Title is used for the title prefix and the title embedding.
	// Falls back to SemanticIdentifier when empty.
	Title string

	// Sections are the ordered text blocks of the document.
	Sections []Section

	// Metadata contains key-value pairs rendered into the metadata suffixes.
	Metadata map[string][]string

	// UpdatedAt is when the document was last modified at the source.
	UpdatedAt time.Time
}

// Section is a contiguous block of document text with an optional deep link.
type Section struct {
	// Text is the section body.
	Text string

	// Link points back into the source at the start of this section.
	// Empty when the source format has no addressable sub-locations.
	Link string
}

// ShortDescriptor identifies the document in logs.
// It must never be parsed.
func (d *Document) ShortDescriptor() string {
	if d == nil {
		return "<nil document>"
	}
	source := d.Source
	if source == "" {
		source = "unknown"
	}
	return fmt.Sprintf("%s Connector '%s' with ID: '%s'",
		strings.ToUpper(source), d.SemanticIdentifier, d.ID)
}

// IndexTitle returns the title used for indexing.
func (d *Document) IndexTitle() string {
	if d.Title != "" {
		return d.Title
	}
	return d.SemanticIdentifier
}

// FullText joins all section texts with blank lines.
func (d *Document) FullText() string {
	parts := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n\n")
}
