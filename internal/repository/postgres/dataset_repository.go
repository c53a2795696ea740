package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/domain/repository"
	"github.com/planning-data/entity-search/internal/pkg/errors"
)

const datasetListCacheKey = "dataset_list"

type datasetRepository struct {
	db       *sqlx.DB
	logger   *zap.Logger
	refCache *gocache.Cache
}

// NewDatasetRepository создает новый экземпляр DatasetRepository. The dataset
// reference list changes only at data load, so it is cached in process.
func NewDatasetRepository(db *DB, ttl time.Duration) repository.DatasetRepository {
	return &datasetRepository{
		db:       db.DB,
		logger:   db.logger,
		refCache: gocache.New(ttl, 2*ttl),
	}
}

// List возвращает все известные datasets
func (r *datasetRepository) List(ctx context.Context) ([]domain.Dataset, error) {
	if cached, ok := r.refCache.Get(datasetListCacheKey); ok {
		return cached.([]domain.Dataset), nil
	}

	query := `
		SELECT dataset, COALESCE(name, '') AS name, COALESCE(typology, '') AS typology
		FROM dataset
		ORDER BY dataset ASC
	`

	var datasets []domain.Dataset
	if err := r.db.SelectContext(ctx, &datasets, query); err != nil {
		r.logger.Error("Failed to list datasets", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	r.refCache.Set(datasetListCacheKey, datasets, gocache.DefaultExpiration)
	return datasets, nil
}

// UnknownDatasets returns the requested names that do not exist. An empty
// result means the whole request may proceed.
func (r *datasetRepository) UnknownDatasets(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	known, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	valid := make(map[string]bool, len(known))
	for _, d := range known {
		valid[d.Dataset] = true
	}

	var unknown []string
	for _, name := range names {
		if !valid[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown, nil
}
