package driven

import (
	"context"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
)

// MetadataResolver supplies the per-document access, document sets and
// boost attached to every chunk of a document.
// Implementations return domain.ErrNotFound for documents without records.
type MetadataResolver interface {
	// Access returns the principals allowed to retrieve the document.
	Access(ctx context.Context, documentID string) (domain.DocumentAccess, error)

	// DocumentSets returns the names of the sets the document belongs to.
	DocumentSets(ctx context.Context, documentID string) ([]string, error)

	// Boost returns the ranking adjustment of the document.
	Boost(ctx context.Context, documentID string) (int, error)
}

// MetadataStore is a MetadataResolver that can also be written to.
type MetadataStore interface {
	MetadataResolver

	// SetAccess replaces the access of a document.
	SetAccess(ctx context.Context, documentID string, access domain.DocumentAccess) error

	// SetDocumentSets replaces the sets of a document.
	SetDocumentSets(ctx context.Context, documentID string, sets []string) error

	// SetBoost replaces the boost of a document.
	SetBoost(ctx context.Context, documentID string, boost int) error
}
