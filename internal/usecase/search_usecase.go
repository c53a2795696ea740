package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/config"
	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/domain/repository"
	"github.com/planning-data/entity-search/internal/pkg/errors"
	"github.com/planning-data/entity-search/internal/usecase/dto"
)

// SearchUseCase - фасад поиска: validate -> normalize -> compile -> count ->
// fetch -> materialize, за одним cache-aside слоем.
type SearchUseCase struct {
	entityRepo  repository.EntityRepository
	datasetRepo repository.DatasetRepository
	cacheRepo   repository.CacheRepository
	logger      *zap.Logger
	cacheTTL    time.Duration
	search      config.SearchConfig
}

// NewSearchUseCase - создание нового SearchUseCase
func NewSearchUseCase(
	entityRepo repository.EntityRepository,
	datasetRepo repository.DatasetRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	cacheTTL time.Duration,
	search config.SearchConfig,
) *SearchUseCase {
	return &SearchUseCase{
		entityRepo:  entityRepo,
		datasetRepo: datasetRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
		cacheTTL:    cacheTTL,
		search:      search,
	}
}

// Search executes one entity search and returns the JSON response shape.
func (uc *SearchUseCase) Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, error) {
	p, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := uc.cached(ctx, p, func(ctx context.Context) ([]byte, error) {
		result, err := uc.entityRepo.Search(ctx, p)
		if err != nil {
			return nil, err
		}
		resp, err := buildSearchResponse(result, p)
		if err != nil {
			uc.logger.Error("Failed to materialize search response", zap.Error(err))
			return nil, errors.ErrInternalServer
		}
		return json.Marshal(resp)
	})
	if err != nil {
		return nil, err
	}

	var resp dto.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		uc.logger.Error("Failed to decode cached search response", zap.Error(err))
		return nil, errors.ErrInternalServer
	}
	return &resp, nil
}

// SearchGeoJSON executes one entity search and renders a FeatureCollection.
// Spatial output carries the full record, so field projection is not applied.
func (uc *SearchUseCase) SearchGeoJSON(ctx context.Context, req dto.SearchRequest) (*dto.FeatureCollection, error) {
	req.Format = string(domain.FormatGeoJSON)
	p, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := uc.cached(ctx, p, func(ctx context.Context) ([]byte, error) {
		result, err := uc.entityRepo.Search(ctx, p)
		if err != nil {
			return nil, err
		}
		fc, err := buildFeatureCollection(result)
		if err != nil {
			uc.logger.Error("Failed to materialize feature collection", zap.Error(err))
			return nil, errors.ErrInternalServer
		}
		return json.Marshal(fc)
	})
	if err != nil {
		return nil, err
	}

	var fc dto.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		uc.logger.Error("Failed to decode cached feature collection", zap.Error(err))
		return nil, errors.ErrInternalServer
	}
	return &fc, nil
}

// prepare rejects unknown datasets and empty field selections before any
// query reaches storage, then normalizes the raw request.
func (uc *SearchUseCase) prepare(ctx context.Context, req dto.SearchRequest) (domain.SearchParameters, error) {
	if _, err := domain.ParseGeometryRelation(req.GeometryRelation); err != nil {
		return domain.SearchParameters{}, errors.ErrInvalidGeometryRelation
	}

	if len(req.Dataset) > 0 {
		unknown, err := uc.datasetRepo.UnknownDatasets(ctx, req.Dataset)
		if err != nil {
			return domain.SearchParameters{}, err
		}
		if len(unknown) > 0 {
			valid, err := uc.datasetRepo.List(ctx)
			if err != nil {
				return domain.SearchParameters{}, err
			}
			names := make([]string, 0, len(valid))
			for _, d := range valid {
				names = append(names, d.Dataset)
			}
			return domain.SearchParameters{}, errors.ErrUnknownDataset.WithDetails(map[string]interface{}{
				"unknown_datasets": unknown,
				"valid_datasets":   names,
			})
		}
	}

	p := NormalizeSearchParameters(req, uc.search)

	if _, err := p.SelectFields(); err != nil {
		return domain.SearchParameters{}, errors.ErrEmptyFieldSelection
	}
	return p, nil
}

// cached runs compute through the cache-aside contract keyed on the
// normalized parameters, which are canonical: identical filter sets always
// produce the same key.
func (uc *SearchUseCase) cached(ctx context.Context, p domain.SearchParameters, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	encoded, err := json.Marshal(p)
	if err != nil {
		return nil, errors.ErrInternalServer
	}
	sum := sha256.Sum256(encoded)
	key := "entities:" + string(p.Format) + ":" + hex.EncodeToString(sum[:])

	return uc.cacheRepo.GetOrCompute(ctx, key, uc.cacheTTL, compute)
}

// buildSearchResponse converts typed entities to output maps, merging the
// extension attributes and applying field projection per record.
func buildSearchResponse(result *domain.SearchResult, p domain.SearchParameters) (*dto.SearchResponse, error) {
	entities := make([]map[string]json.RawMessage, 0, len(result.Entities))
	for _, e := range result.Entities {
		record, err := entityRecord(e)
		if err != nil {
			return nil, err
		}
		projectRecord(record, p)
		entities = append(entities, record)
	}

	return &dto.SearchResponse{
		Count:    result.Count,
		Entities: entities,
		Params:   p,
	}, nil
}

func buildFeatureCollection(result *domain.SearchResult) (*dto.FeatureCollection, error) {
	features := make([]dto.Feature, 0, len(result.Entities))
	for _, e := range result.Entities {
		record, err := entityRecord(e)
		if err != nil {
			return nil, err
		}
		delete(record, "geojson")

		geometry := e.GeoJSON
		if len(geometry) == 0 {
			geometry = json.RawMessage("null")
		}
		features = append(features, dto.Feature{
			Type:       "Feature",
			Geometry:   geometry,
			Properties: record,
		})
	}

	return &dto.FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}, nil
}

// entityRecord round-trips the entity through its JSON form so extension
// attributes are merged exactly as they serialize.
func entityRecord(e domain.Entity) (map[string]json.RawMessage, error) {
	encoded, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var record map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// projectRecord applies the include/exclude field lists. The include list
// narrows to named fields, the exclude list removes named fields; the entity
// id always survives.
func projectRecord(record map[string]json.RawMessage, p domain.SearchParameters) {
	if len(p.Field) > 0 {
		keep := map[string]bool{"entity": true}
		for _, f := range p.Field {
			keep[f] = true
		}
		for key := range record {
			if !keep[key] {
				delete(record, key)
			}
		}
	}
	for _, f := range p.ExcludeField {
		if f == "entity" {
			continue
		}
		delete(record, f)
	}
}
