package html

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// SupportedConnectorTypes returns connector types for specialised handling.
func (n *Normaliser) SupportedConnectorTypes() []string {
	return nil // All connectors
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts an HTML document into sections split at headings.
// A heading with an id attribute links its section to that anchor.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	root, err := html.Parse(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, raw.URI, err)
	}

	doc := normalisers.NewDocument(raw)
	doc.Title = findTitle(root)
	if doc.Title == "" {
		doc.Title = normalisers.TitleFromURI(raw.URI)
	}

	s := &sectioner{uri: raw.URI, link: raw.URI}
	s.walk(root)
	s.flush()
	doc.Sections = s.sections

	return &driven.NormaliseResult{Document: doc}, nil
}

// sectioner collects text blocks into sections, starting a new one at
// every heading.
type sectioner struct {
	uri      string
	link     string
	blocks   []string
	sections []domain.Section
}

func (s *sectioner) flush() {
	if len(s.blocks) > 0 {
		s.sections = append(s.sections, domain.Section{
			Text: strings.Join(s.blocks, "\n\n"),
			Link: s.link,
		})
	}
	s.blocks = nil
}

func (s *sectioner) add(text string) {
	if text != "" {
		s.blocks = append(s.blocks, text)
	}
}

func (s *sectioner) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Template,
			atom.Svg, atom.Nav, atom.Footer:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			s.flush()
			s.link = s.uri
			if id := attr(n, "id"); id != "" {
				s.link = s.uri + "#" + id
			}
			s.add(textContent(n))
			return
		case atom.P, atom.Li, atom.Pre, atom.Blockquote, atom.Td, atom.Th,
			atom.Dt, atom.Dd, atom.Figcaption, atom.Caption:
			s.add(textContent(n))
			return
		}
	}
	if n.Type == html.TextNode && isLooseText(n) {
		s.add(collapseSpace(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(c)
	}
}

// isLooseText reports whether a text node sits directly in a container
// such as body or div rather than inside a block handled above.
func isLooseText(n *html.Node) bool {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return false
	}
	switch n.Parent.DataAtom {
	case atom.Body, atom.Div, atom.Section, atom.Article, atom.Main:
		return true
	}
	return false
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return collapseSpace(b.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
