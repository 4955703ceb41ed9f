package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
)

// metadataStore implements driven.MetadataStore. A NULL column means the
// value was never set for the document.
type metadataStore struct {
	store *Store
}

var _ driven.MetadataStore = (*metadataStore)(nil)

// Access returns the stored access of a document.
func (s *metadataStore) Access(ctx context.Context, documentID string) (domain.DocumentAccess, error) {
	raw, err := s.column(ctx, documentID, "access")
	if err != nil {
		return domain.DocumentAccess{}, err
	}
	var row accessRow
	if err := json.Unmarshal([]byte(raw.String), &row); err != nil {
		return domain.DocumentAccess{}, fmt.Errorf("unmarshalling access: %w", err)
	}
	return row.toDomain(), nil
}

// DocumentSets returns the stored sets of a document.
func (s *metadataStore) DocumentSets(ctx context.Context, documentID string) ([]string, error) {
	raw, err := s.column(ctx, documentID, "document_sets")
	if err != nil {
		return nil, err
	}
	sets := []string{}
	if err := json.Unmarshal([]byte(raw.String), &sets); err != nil {
		return nil, fmt.Errorf("unmarshalling document sets: %w", err)
	}
	return sets, nil
}

// Boost returns the stored boost of a document.
func (s *metadataStore) Boost(ctx context.Context, documentID string) (int, error) {
	var boost sql.NullInt64
	err := s.store.db.QueryRowContext(ctx,
		"SELECT boost FROM document_metadata WHERE document_id = ?", documentID).Scan(&boost)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !boost.Valid) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("querying boost: %w", err)
	}
	return int(boost.Int64), nil
}

// SetAccess replaces the access of a document.
func (s *metadataStore) SetAccess(ctx context.Context, documentID string, access domain.DocumentAccess) error {
	data, err := json.Marshal(toAccessRow(access))
	if err != nil {
		return fmt.Errorf("marshalling access: %w", err)
	}
	return s.upsert(ctx, documentID, "access", string(data))
}

// SetDocumentSets replaces the sets of a document.
func (s *metadataStore) SetDocumentSets(ctx context.Context, documentID string, sets []string) error {
	names := domain.NewDocumentSets(sets...).Names()
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshalling document sets: %w", err)
	}
	return s.upsert(ctx, documentID, "document_sets", string(data))
}

// SetBoost replaces the boost of a document.
func (s *metadataStore) SetBoost(ctx context.Context, documentID string, boost int) error {
	return s.upsert(ctx, documentID, "boost", boost)
}

func (s *metadataStore) column(ctx context.Context, documentID, column string) (sql.NullString, error) {
	var raw sql.NullString
	// column is one of a fixed set of names, never user input.
	err := s.store.db.QueryRowContext(ctx,
		"SELECT "+column+" FROM document_metadata WHERE document_id = ?", documentID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return raw, domain.ErrNotFound
	}
	if err != nil {
		return raw, fmt.Errorf("querying %s: %w", column, err)
	}
	return raw, nil
}

func (s *metadataStore) upsert(ctx context.Context, documentID, column string, value any) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO document_metadata (document_id, `+column+`) VALUES (?, ?)
		ON CONFLICT(document_id) DO UPDATE SET `+column+` = excluded.`+column,
		documentID, value)
	if err != nil {
		return fmt.Errorf("saving %s: %w", column, err)
	}
	return nil
}
