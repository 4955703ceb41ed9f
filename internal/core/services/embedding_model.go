package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-index/internal/logger"
)

// Verify interface implementation.
var _ driving.EmbeddingModelService = (*EmbeddingModelService)(nil)

// EmbeddingModelService manages embedding model records and the model swap
// lifecycle (future, present, past).
type EmbeddingModelService struct {
	store driven.EmbeddingModelStore
}

// NewEmbeddingModelService creates a new embedding model service.
func NewEmbeddingModelService(store driven.EmbeddingModelStore) *EmbeddingModelService {
	return &EmbeddingModelService{store: store}
}

// Detail returns a snapshot of the present model.
func (s *EmbeddingModelService) Detail(ctx context.Context) (domain.EmbeddingModelDetail, error) {
	m, err := s.store.Current(ctx)
	if err != nil {
		return domain.EmbeddingModelDetail{}, fmt.Errorf("current embedding model: %w", err)
	}
	return domain.EmbeddingModelDetailFromModel(*m), nil
}

// SecondaryDetail returns a snapshot of the model being swapped in.
func (s *EmbeddingModelService) SecondaryDetail(ctx context.Context) (domain.EmbeddingModelDetail, error) {
	m, err := s.store.Secondary(ctx)
	if err != nil {
		return domain.EmbeddingModelDetail{}, fmt.Errorf("secondary embedding model: %w", err)
	}
	return domain.EmbeddingModelDetailFromModel(*m), nil
}

// Register stores a new model. It becomes present when no model exists yet,
// otherwise it becomes future and replaces any earlier pending swap.
func (s *EmbeddingModelService) Register(
	ctx context.Context,
	model domain.EmbeddingModel,
) (domain.EmbeddingModelDetail, error) {
	if err := model.Validate(); err != nil {
		return domain.EmbeddingModelDetail{}, fmt.Errorf("register embedding model: %w", err)
	}

	model.ID = 0
	model.Status = domain.EmbeddingModelPresent
	_, err := s.store.Current(ctx)
	switch {
	case err == nil:
		model.Status = domain.EmbeddingModelFuture
		if pending, perr := s.store.Secondary(ctx); perr == nil {
			logger.Info("Replacing pending embedding model %s", pending.ModelName)
			if err := s.store.SetStatus(ctx, pending.ID, domain.EmbeddingModelPast); err != nil {
				return domain.EmbeddingModelDetail{}, err
			}
		} else if !errors.Is(perr, domain.ErrNotFound) {
			return domain.EmbeddingModelDetail{}, perr
		}
	case !errors.Is(err, domain.ErrNotFound):
		return domain.EmbeddingModelDetail{}, err
	}

	if _, err := s.store.Save(ctx, model); err != nil {
		return domain.EmbeddingModelDetail{}, fmt.Errorf("save embedding model: %w", err)
	}
	logger.Info("Registered embedding model %s (%d dims) as %s", model.ModelName, model.ModelDim, model.Status)
	return domain.EmbeddingModelDetailFromModel(model), nil
}

// Promote makes the future model present and retires the present one.
func (s *EmbeddingModelService) Promote(ctx context.Context) error {
	future, err := s.store.Secondary(ctx)
	if err != nil {
		return fmt.Errorf("no pending embedding model: %w", err)
	}
	current, err := s.store.Current(ctx)
	switch {
	case err == nil:
		if err := s.store.SetStatus(ctx, current.ID, domain.EmbeddingModelPast); err != nil {
			return err
		}
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	if err := s.store.SetStatus(ctx, future.ID, domain.EmbeddingModelPresent); err != nil {
		return err
	}
	logger.Info("Promoted embedding model %s", future.ModelName)
	return nil
}

// Ensure returns the present model, registering the given one if none exists.
func (s *EmbeddingModelService) Ensure(
	ctx context.Context,
	model domain.EmbeddingModel,
) (domain.EmbeddingModelDetail, error) {
	detail, err := s.Detail(ctx)
	if err == nil {
		return detail, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.EmbeddingModelDetail{}, err
	}
	return s.Register(ctx, model)
}
