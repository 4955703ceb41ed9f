package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

func TestNormaliser_Descriptors(t *testing.T) {
	normaliser := New()
	assert.Contains(t, normaliser.SupportedMIMETypes(), "text/plain")
	assert.Nil(t, normaliser.SupportedConnectorTypes())
	assert.Equal(t, 5, normaliser.Priority())
}

func TestNormalise_Paragraphs(t *testing.T) {
	raw := &domain.RawDocument{
		Source:   "filesystem",
		URI:      "/docs/release-notes.txt",
		MIMEType: "text/plain",
		Content:  []byte("First paragraph\nstill first.\n\n  \nSecond paragraph.\n"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "release notes", doc.Title)
	assert.Equal(t, "release-notes.txt", doc.SemanticIdentifier)
	assert.Equal(t, []domain.Section{
		{Text: "First paragraph\nstill first."},
		{Text: "Second paragraph."},
	}, doc.Sections)
}

func TestNormalise_TitleFromMetadata(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "/a/b.txt",
		Content:  []byte("x"),
		Metadata: map[string][]string{"title": {"Quarterly Report"}, "owner": {"ops"}},
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Report", result.Document.Title)
	assert.Equal(t, map[string][]string{"owner": {"ops"}}, result.Document.Metadata)
	assert.Contains(t, raw.Metadata, "title")
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
