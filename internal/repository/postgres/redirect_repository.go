package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/domain/repository"
	"github.com/planning-data/entity-search/internal/pkg/errors"
)

type redirectRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRedirectRepository создает новый экземпляр RedirectRepository
func NewRedirectRepository(db *DB) repository.RedirectRepository {
	return &redirectRepository{
		db:     db.DB,
		logger: db.logger,
	}
}

// GetRedirect returns the redirect record for a retired entity id, or
// (nil, nil) when none exists and the lookup should proceed normally.
func (r *redirectRepository) GetRedirect(ctx context.Context, id int64) (*domain.Redirect, error) {
	query := `
		SELECT old_entity, status, new_entity
		FROM old_entity
		WHERE old_entity = $1
	`

	var redirect domain.Redirect
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&redirect.OldEntity, &redirect.Status, &redirect.NewEntity,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to look up redirect", zap.Int64("entity", id), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return &redirect, nil
}
