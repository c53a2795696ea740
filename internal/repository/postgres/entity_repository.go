package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/domain/repository"
	"github.com/planning-data/entity-search/internal/pkg/errors"
)

const subdividedDatasetsCacheKey = "subdivided_datasets"

type entityRepository struct {
	db       *sqlx.DB
	logger   *zap.Logger
	refCache *gocache.Cache
}

// NewEntityRepository создает новый экземпляр EntityRepository
func NewEntityRepository(db *DB) repository.EntityRepository {
	return &entityRepository{
		db:       db.DB,
		logger:   db.logger,
		refCache: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Search runs the count query and the paginated result query from one
// compiled stage list, inside a single repeatable-read snapshot so the two
// cannot diverge under concurrent writes. They fail together or not at all.
func (r *entityRepository) Search(ctx context.Context, p domain.SearchParameters) (*domain.SearchResult, error) {
	spatial, err := r.resolveSpatialInput(ctx, p)
	if err != nil {
		return nil, err
	}

	stages := compileStages(p, spatial)

	countQuery, countArgs, err := buildCountQuery(stages)
	if err != nil {
		r.logger.Error("Failed to build count query", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	selectQuery, selectArgs, err := buildSelectQuery(stages, p)
	if err != nil {
		r.logger.Error("Failed to build select query", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		r.logger.Error("Failed to begin search transaction", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var count int
	if err := tx.QueryRowContext(ctx, tx.Rebind(countQuery), countArgs...).Scan(&count); err != nil {
		r.logger.Error("Failed to count entities", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	rows, err := tx.QueryContext(ctx, tx.Rebind(selectQuery), selectArgs...)
	if err != nil {
		r.logger.Error("Failed to query entities", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	entities := make([]domain.Entity, 0, p.Limit)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			r.logger.Error("Failed to scan entity", zap.Error(err))
			return nil, errors.ErrDatabaseError
		}
		entities = append(entities, *e)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating entity rows", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit search transaction", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	return &domain.SearchResult{
		Params:   p,
		Count:    count,
		Entities: entities,
	}, nil
}

// Count applies the same filter stages as Search with a counting reduction.
func (r *entityRepository) Count(ctx context.Context, p domain.SearchParameters) (int, error) {
	spatial, err := r.resolveSpatialInput(ctx, p)
	if err != nil {
		return 0, err
	}

	query, args, err := buildCountQuery(compileStages(p, spatial))
	if err != nil {
		r.logger.Error("Failed to build count query", zap.Error(err))
		return 0, errors.ErrDatabaseError
	}

	var count int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count entities", zap.Error(err))
		return 0, errors.ErrDatabaseError
	}
	return count, nil
}

// GetByID возвращает entity по идентификатору
func (r *entityRepository) GetByID(ctx context.Context, id int64) (*domain.Entity, error) {
	query := "SELECT " + entitySelectColumns + " FROM entity e WHERE e.entity = $1"

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to get entity by ID", zap.Int64("entity", id), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			r.logger.Error("Failed to get entity by ID", zap.Int64("entity", id), zap.Error(err))
			return nil, errors.ErrDatabaseError
		}
		return nil, errors.ErrEntityNotFound
	}

	e, err := scanEntity(rows)
	if err != nil {
		r.logger.Error("Failed to scan entity", zap.Int64("entity", id), zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return e, nil
}

// resolveSpatialInput flattens every spatial source into one comparison
// geometry list and attaches the subdivision-eligible dataset set. Returns
// nil when the request has no spatial filter.
func (r *entityRepository) resolveSpatialInput(ctx context.Context, p domain.SearchParameters) (*spatialInput, error) {
	if !p.HasSpatialFilter() {
		return nil, nil
	}

	in := &spatialInput{relation: p.GeometryRelation}

	for _, wkt := range p.Geometry {
		in.geometries = append(in.geometries, comparisonGeometry{wkt: wkt})
	}
	if p.Point != "" {
		in.geometries = append(in.geometries, comparisonGeometry{wkt: p.Point, isPoint: true})
	}

	if p.HasDerivedGeometry() {
		derived, err := r.fetchComparisonGeometries(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, wkt := range derived {
			in.geometries = append(in.geometries, comparisonGeometry{wkt: wkt})
		}
	}

	subdivided, err := r.subdividedDatasets(ctx)
	if err != nil {
		return nil, err
	}
	in.subdividedDatasets = subdivided

	return in, nil
}

func (r *entityRepository) fetchComparisonGeometries(ctx context.Context, p domain.SearchParameters) ([]string, error) {
	query, args, err := buildComparisonGeometryQuery(p)
	if err != nil {
		r.logger.Error("Failed to build comparison geometry query", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	if query == "" {
		return nil, nil
	}

	var wkts []string
	if err := r.db.SelectContext(ctx, &wkts, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to resolve comparison geometries", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}
	return wkts, nil
}

// subdividedDatasets returns the datasets routed through subdivision pieces.
// The set changes only at data load, so it is held in a short in-process
// TTL cache.
func (r *entityRepository) subdividedDatasets(ctx context.Context) ([]string, error) {
	if cached, ok := r.refCache.Get(subdividedDatasetsCacheKey); ok {
		return cached.([]string), nil
	}

	var datasets []string
	if err := r.db.SelectContext(ctx, &datasets, subdividedDatasetsQuery); err != nil {
		r.logger.Error("Failed to list subdivided datasets", zap.Error(err))
		return nil, errors.ErrDatabaseError
	}

	r.refCache.Set(subdividedDatasetsCacheKey, datasets, gocache.DefaultExpiration)
	return datasets, nil
}

// scanEntity maps one raw row onto the typed entity, decoding the schema-less
// extension map as-is. Different rows of the same dataset may carry different
// extension keys.
func scanEntity(rows *sql.Rows) (*domain.Entity, error) {
	var (
		e            domain.Entity
		entryDate    sql.NullTime
		startDate    sql.NullTime
		endDate      sql.NullTime
		organisation sql.NullInt64
		geojson      []byte
		extensions   []byte
	)

	err := rows.Scan(
		&e.Entity, &e.Name, &e.Dataset, &e.Typology, &e.Prefix, &e.Reference,
		&entryDate, &startDate, &endDate, &organisation, &e.Point,
		&geojson, &extensions,
	)
	if err != nil {
		return nil, err
	}

	if entryDate.Valid {
		e.EntryDate = &domain.Date{Time: entryDate.Time}
	}
	if startDate.Valid {
		e.StartDate = &domain.Date{Time: startDate.Time}
	}
	if endDate.Valid {
		e.EndDate = &domain.Date{Time: endDate.Time}
	}
	if organisation.Valid {
		e.OrganisationEntity = &organisation.Int64
	}
	if len(geojson) > 0 {
		e.GeoJSON = json.RawMessage(geojson)
	}
	if len(extensions) > 0 {
		if err := json.Unmarshal(extensions, &e.Extensions); err != nil {
			return nil, err
		}
	}

	return &e, nil
}
