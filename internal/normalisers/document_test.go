package normalisers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

func TestDocumentID_Stable(t *testing.T) {
	a := DocumentID("filesystem", "/notes/a.md")
	assert.Equal(t, a, DocumentID("filesystem", "/notes/a.md"))
	assert.NotEqual(t, a, DocumentID("filesystem", "/notes/b.md"))
	assert.NotEqual(t, a, DocumentID("github", "/notes/a.md"))
}

func TestTitleFromURI(t *testing.T) {
	assert.Equal(t, "release notes v2", TitleFromURI("/docs/release_notes-v2.md"))
	assert.Equal(t, "README", TitleFromURI("README"))
}

func TestNewDocument(t *testing.T) {
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := &domain.RawDocument{
		Source:     "filesystem",
		URI:        "/docs/a.md",
		Metadata:   map[string][]string{"tags": {"x"}},
		ModifiedAt: modified,
	}

	doc := NewDocument(raw)
	assert.Equal(t, DocumentID("filesystem", "/docs/a.md"), doc.ID)
	assert.Equal(t, "a.md", doc.SemanticIdentifier)
	assert.Equal(t, modified, doc.UpdatedAt)

	doc.Metadata["tags"][0] = "changed"
	assert.Equal(t, "x", raw.Metadata["tags"][0])
	assert.Nil(t, CopyMetadata(nil))
}
