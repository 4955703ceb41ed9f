// Package docx provides a Normaliser for Word documents. Paragraphs with a
// heading style start a new section.
package docx

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/normalisers"
)

// MIMEType is the media type of .docx files.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// SupportedConnectorTypes returns connector types for specialised handling.
func (n *Normaliser) SupportedConnectorTypes() []string {
	return nil // All connectors
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts a DOCX document into sections split at headings.
// The Title style, else the first heading, else the file name is the title.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	parsed, err := docx.Parse(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}

	doc := normalisers.NewDocument(raw)
	var (
		title        string
		firstHeading string
		current      []string
	)
	flush := func() {
		if len(current) > 0 {
			doc.Sections = append(doc.Sections, domain.Section{Text: strings.Join(current, "\n\n")})
		}
		current = nil
	}

	for _, item := range parsed.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		style := paragraphStyle(para)
		switch {
		case strings.EqualFold(style, "Title"):
			if title == "" {
				title = text
			}
			continue
		case headingLevel(style) > 0:
			flush()
			if firstHeading == "" {
				firstHeading = text
			}
		}
		current = append(current, text)
	}
	flush()

	switch {
	case title != "":
		doc.Title = title
	case firstHeading != "":
		doc.Title = firstHeading
	default:
		doc.Title = normalisers.TitleFromURI(raw.URI)
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

func paragraphStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// headingLevel parses styles such as "Heading2" or "heading 2".
func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if !strings.HasPrefix(s, "heading") {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
	if err != nil || level < 1 || level > 9 {
		return 0
	}
	return level
}

func paragraphText(para *docx.Paragraph) string {
	var b strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				b.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
