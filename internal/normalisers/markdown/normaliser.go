package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	headingLine  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`[^`]+`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote   = regexp.MustCompile(`(?m)^>\s*`)
	hr           = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// SupportedConnectorTypes returns connector types for specialised handling.
func (n *Normaliser) SupportedConnectorTypes() []string {
	return nil // All connectors
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts a markdown document into a document with one section
// per heading. YAML front matter becomes metadata; its title key, else the
// first H1, else the file name becomes the title.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	front, body, err := splitFrontMatter(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}

	doc := normalisers.NewDocument(raw)
	title := ""
	for key, value := range front {
		values := metadataValues(value)
		if len(values) == 0 {
			continue
		}
		if key == "title" {
			title = values[0]
			continue
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string][]string)
		}
		doc.Metadata[key] = values
	}
	if title == "" {
		title = extractMarkdownTitle(body, raw.URI)
	}
	doc.Title = title
	doc.Sections = splitSections(body, raw.URI)

	return &driven.NormaliseResult{Document: doc}, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block.
func splitFrontMatter(data []byte) (map[string]any, string, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return nil, string(data), nil
	}

	rest := data[len("---\n"):]
	var yamlData, body []byte
	if bytes.HasPrefix(rest, []byte("---")) {
		body = rest[len("---"):]
	} else {
		end := bytes.Index(rest, []byte("\n---"))
		if end < 0 {
			return nil, "", errors.New("front matter started but no closing delimiter found")
		}
		yamlData = rest[:end+1]
		body = rest[end+len("\n---"):]
	}
	// Drop the rest of the closing delimiter line
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}

	var front map[string]any
	if err := yaml.Unmarshal(yamlData, &front); err != nil {
		return nil, "", fmt.Errorf("parse front matter: %w", err)
	}
	return front, string(body), nil
}

// metadataValues flattens a front matter value into strings.
// Nested maps are skipped.
func metadataValues(v any) []string {
	switch val := v.(type) {
	case nil, map[string]any:
		return nil
	case time.Time:
		return []string{val.Format(time.DateOnly)}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if _, nested := item.(map[string]any); nested || item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(val)}
	}
}

// splitSections starts a new section at every heading outside code fences.
// Each section links to the heading anchor; text before the first heading
// links to the document itself.
func splitSections(body, uri string) []domain.Section {
	var sections []domain.Section
	var current []string
	link := uri
	inFence := false

	flush := func() {
		if text := stripMarkdown(strings.Join(current, "\n")); text != "" {
			sections = append(sections, domain.Section{Text: text, Link: link})
		}
		current = nil
	}

	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if m := headingLine.FindStringSubmatch(line); m != nil && !inFence {
			flush()
			link = uri + "#" + slug(m[2])
		}
		current = append(current, line)
	}
	flush()
	return sections
}

// slug renders a heading as a GitHub-style anchor.
func slug(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// extractMarkdownTitle extracts a title from the markdown content or falls back to filename.
func extractMarkdownTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return normalisers.TitleFromURI(uri)
}

// stripMarkdown removes common markdown formatting for plain text content.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")

	// Bold and italic markers
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = strings.ReplaceAll(content, "*", "")

	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = multiNewline.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
