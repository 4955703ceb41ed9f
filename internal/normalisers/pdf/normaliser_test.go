package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// buildPDF writes an uncompressed PDF with one text line per page.
func buildPDF(title string, pages ...string) []byte {
	var objects []string
	fontRef := 3 + 2*len(pages)
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)),
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontRef, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects,
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	infoRef := 0
	if title != "" {
		objects = append(objects, fmt.Sprintf("<< /Title (%s) >>", title))
		infoRef = len(objects)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d %05d n \n", off, 0)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R", len(objects)+1)
	if infoRef > 0 {
		fmt.Fprintf(&buf, " /Info %d 0 R", infoRef)
	}
	fmt.Fprintf(&buf, " >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestNormaliser_Descriptors(t *testing.T) {
	normaliser := New()
	assert.Equal(t, []string{MIMEType}, normaliser.SupportedMIMETypes())
	assert.Nil(t, normaliser.SupportedConnectorTypes())
	assert.Equal(t, 50, normaliser.Priority())
}

func TestNormalise_PageSections(t *testing.T) {
	raw := &domain.RawDocument{
		Source:   "filesystem",
		URI:      "/docs/quarterly_report.pdf",
		MIMEType: MIMEType,
		Content:  buildPDF("Quarterly Report", "Revenue grew", "Costs fell"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Quarterly Report", doc.Title)
	assert.Equal(t, "quarterly_report.pdf", doc.SemanticIdentifier)
	require.Len(t, doc.Sections, 2)
	assert.Contains(t, doc.Sections[0].Text, "Revenue grew")
	assert.Equal(t, "/docs/quarterly_report.pdf#page=1", doc.Sections[0].Link)
	assert.Contains(t, doc.Sections[1].Text, "Costs fell")
	assert.Equal(t, "/docs/quarterly_report.pdf#page=2", doc.Sections[1].Link)
}

func TestNormalise_TitleFromURI(t *testing.T) {
	raw := &domain.RawDocument{
		Source:  "filesystem",
		URI:     "/docs/release-notes.pdf",
		Content: buildPDF("", "Version two"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "release notes", result.Document.Title)
	assert.Len(t, result.Document.Sections, 1)
}

func TestNormalise_InvalidInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	raw := &domain.RawDocument{URI: "/docs/broken.pdf", Content: []byte("not a pdf at all")}
	_, err = New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
