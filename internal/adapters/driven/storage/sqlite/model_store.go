package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
)

// modelStore implements driven.EmbeddingModelStore.
type modelStore struct {
	store *Store
}

var _ driven.EmbeddingModelStore = (*modelStore)(nil)

// Current returns the newest model with status present.
func (s *modelStore) Current(ctx context.Context) (*domain.EmbeddingModel, error) {
	return s.byStatus(ctx, domain.EmbeddingModelPresent)
}

// Secondary returns the newest model with status future.
func (s *modelStore) Secondary(ctx context.Context) (*domain.EmbeddingModel, error) {
	return s.byStatus(ctx, domain.EmbeddingModelFuture)
}

func (s *modelStore) byStatus(ctx context.Context, status domain.EmbeddingModelStatus) (*domain.EmbeddingModel, error) {
	var (
		m             domain.EmbeddingModel
		queryPrefix   sql.NullString
		passagePrefix sql.NullString
		providerID    sql.NullInt64
		providerName  sql.NullString
		providerKey   sql.NullString
	)
	err := s.store.db.QueryRowContext(ctx, `
		SELECT m.id, m.model_name, m.model_dim, m.normalize, m.query_prefix, m.passage_prefix,
			m.status, m.cloud_provider_id, p.name, p.api_key
		FROM embedding_models m
		LEFT JOIN cloud_embedding_providers p ON p.id = m.cloud_provider_id
		WHERE m.status = ?
		ORDER BY m.id DESC
		LIMIT 1
	`, string(status)).Scan(&m.ID, &m.ModelName, &m.ModelDim, &m.Normalize, &queryPrefix, &passagePrefix,
		&m.Status, &providerID, &providerName, &providerKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying embedding model: %w", err)
	}

	m.QueryPrefix = stringPtr(queryPrefix)
	m.PassagePrefix = stringPtr(passagePrefix)
	if providerID.Valid {
		id := providerID.Int64
		m.CloudProviderID = &id
		if providerName.Valid {
			m.CloudProvider = &domain.CloudEmbeddingProvider{
				ID:     id,
				Name:   providerName.String,
				APIKey: providerKey.String,
			}
		}
	}
	return &m, nil
}

// Save inserts a model, or updates it when ID is set. A CloudProvider
// without an id is upserted by name and linked to the model.
func (s *modelStore) Save(ctx context.Context, model domain.EmbeddingModel) (int64, error) {
	if model.Status == "" {
		model.Status = domain.EmbeddingModelFuture
	}
	if err := model.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var providerID sql.NullInt64
	if model.CloudProviderID != nil {
		providerID = sql.NullInt64{Int64: *model.CloudProviderID, Valid: true}
	} else if p := model.CloudProvider; p != nil && p.Name != "" {
		var id int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO cloud_embedding_providers (name, api_key) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET api_key = excluded.api_key
			RETURNING id
		`, p.Name, p.APIKey).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("saving cloud provider: %w", err)
		}
		providerID = sql.NullInt64{Int64: id, Valid: true}
	}

	id := model.ID
	if id == 0 {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO embedding_models
				(model_name, model_dim, normalize, query_prefix, passage_prefix, status, cloud_provider_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, model.ModelName, model.ModelDim, model.Normalize, nullString(model.QueryPrefix),
			nullString(model.PassagePrefix), string(model.Status), providerID)
		if err != nil {
			return 0, fmt.Errorf("inserting embedding model: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("reading model id: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE embedding_models SET
				model_name = ?, model_dim = ?, normalize = ?, query_prefix = ?,
				passage_prefix = ?, status = ?, cloud_provider_id = ?
			WHERE id = ?
		`, model.ModelName, model.ModelDim, model.Normalize, nullString(model.QueryPrefix),
			nullString(model.PassagePrefix), string(model.Status), providerID, id)
		if err != nil {
			return 0, fmt.Errorf("updating embedding model: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, domain.ErrNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return id, nil
}

// SetStatus changes the status of a model.
func (s *modelStore) SetStatus(ctx context.Context, id int64, status domain.EmbeddingModelStatus) error {
	if !status.IsValid() {
		return domain.ErrInvalidInput
	}
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE embedding_models SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("updating model status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
