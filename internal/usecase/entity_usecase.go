package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/domain/repository"
	"github.com/planning-data/entity-search/internal/pkg/errors"
)

// EntityUseCase - use case для выборки отдельных entities
type EntityUseCase struct {
	entityRepo   repository.EntityRepository
	redirectRepo repository.RedirectRepository
	logger       *zap.Logger
}

// NewEntityUseCase - создание нового EntityUseCase
func NewEntityUseCase(
	entityRepo repository.EntityRepository,
	redirectRepo repository.RedirectRepository,
	logger *zap.Logger,
) *EntityUseCase {
	return &EntityUseCase{
		entityRepo:   entityRepo,
		redirectRepo: redirectRepo,
		logger:       logger,
	}
}

// GetByID fetches one entity, consulting the redirect table first. No
// redirect means a plain lookup; gone is terminal; moved re-resolves against
// the replacement id once.
func (uc *EntityUseCase) GetByID(ctx context.Context, id int64) (*domain.Entity, error) {
	redirect, err := uc.redirectRepo.GetRedirect(ctx, id)
	if err != nil {
		return nil, err
	}

	if redirect != nil {
		switch redirect.Status {
		case domain.RedirectStatusGone:
			return nil, errors.ErrEntityGone
		case domain.RedirectStatusMoved:
			if redirect.NewEntity == nil {
				uc.logger.Warn("Redirect marked moved without a replacement id",
					zap.Int64("entity", id))
				return nil, errors.ErrEntityNotFound
			}
			uc.logger.Debug("Entity redirected",
				zap.Int64("from", id),
				zap.Int64("to", *redirect.NewEntity))
			id = *redirect.NewEntity
		}
	}

	return uc.entityRepo.GetByID(ctx, id)
}
