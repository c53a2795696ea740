package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/domain/repository"
	"github.com/planning-data/entity-search/internal/pkg/errors"
	"github.com/planning-data/entity-search/internal/repository/postgres"
)

// EntityRepositoryTestSuite exercises the repositories against a real
// PostGIS instance. The suite is skipped unless TEST_DB_HOST is set.
type EntityRepositoryTestSuite struct {
	suite.Suite
	db           *sqlx.DB
	repo         repository.EntityRepository
	datasetRepo  repository.DatasetRepository
	redirectRepo repository.RedirectRepository
	ctx          context.Context
}

func (s *EntityRepositoryTestSuite) SetupSuite() {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		s.T().Skip("TEST_DB_HOST not set, skipping database suite")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host,
		getEnv("TEST_DB_PORT", "5432"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "entity_search_test"),
	)

	db, err := sqlx.Connect("pgx", dsn)
	s.Require().NoError(err, "Failed to connect to test database")
	s.db = db

	var version string
	s.Require().NoError(db.Get(&version, "SELECT PostGIS_Version()"), "PostGIS not available")

	schema, err := os.ReadFile("../../../migrations/000001_init.up.sql")
	s.Require().NoError(err)
	_, err = db.Exec(string(schema))
	s.Require().NoError(err, "Failed to apply schema")

	s.loadFixtures()

	wrapped := postgres.NewDBForTest(db, zap.NewNop())
	s.repo = postgres.NewEntityRepository(wrapped)
	s.datasetRepo = postgres.NewDatasetRepository(wrapped, 0)
	s.redirectRepo = postgres.NewRedirectRepository(wrapped)
}

func (s *EntityRepositoryTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *EntityRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *EntityRepositoryTestSuite) loadFixtures() {
	statements := []string{
		`TRUNCATE entity_subdivided, old_entity, entity, dataset CASCADE`,

		`INSERT INTO dataset (dataset, name, typology) VALUES
			('conservation-area', 'Conservation area', 'geography'),
			('forest', 'Forest', 'geography'),
			('flood-risk-zone', 'Flood risk zone', 'geography')`,

		`INSERT INTO entity (entity, name, dataset, typology, prefix, reference,
			start_date, end_date, geometry, point, json) VALUES
			(101, 'Old Town', 'conservation-area', 'geography', 'conservation-area', 'CA1',
				'1990-05-01', NULL,
				ST_GeomFromText('POLYGON((0 0, 0 10, 10 10, 10 0, 0 0))', 4326),
				ST_GeomFromText('POINT(5 5)', 4326),
				'{"designation_date": "1990-05-01"}'),
			(102, 'Felled Wood', 'forest', 'geography', 'forest', 'F1',
				'1970-01-01', '2000-01-01',
				ST_GeomFromText('POLYGON((20 20, 20 30, 30 30, 30 20, 20 20))', 4326),
				NULL, NULL),
			(103, 'North Wood', 'forest', 'geography', 'forest', 'F2',
				'2015-06-01', NULL, NULL, NULL, NULL),
			(104, 'River Basin', 'flood-risk-zone', 'geography', 'flood-risk-zone', 'FRZ1',
				'2005-01-01', NULL,
				ST_GeomFromText('POLYGON((40 40, 40 60, 60 60, 60 40, 40 40))', 4326),
				NULL, NULL)`,

		`INSERT INTO entity_subdivided (entity, dataset, geometry_subdivided) VALUES
			(104, 'flood-risk-zone', ST_GeomFromText('POLYGON((40 40, 40 60, 60 60, 60 40, 40 40))', 4326)),
			(104, 'flood-risk-zone', ST_GeomFromText('POLYGON((45 45, 45 55, 55 55, 55 45, 45 45))', 4326))`,

		`INSERT INTO old_entity (old_entity, status, new_entity) VALUES
			(900, '410', NULL),
			(901, '301', 103)`,
	}
	for _, stmt := range statements {
		_, err := s.db.Exec(stmt)
		s.Require().NoError(err, "Failed to load fixtures")
	}
}

func (s *EntityRepositoryTestSuite) TestSearch_ByDataset() {
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{
		Dataset: []string{"forest"},
		Limit:   10,
	})

	s.NoError(err)
	s.Equal(2, result.Count)
	s.Len(result.Entities, 2)
	// ordered by entity id ascending
	s.Equal(int64(102), result.Entities[0].Entity)
	s.Equal(int64(103), result.Entities[1].Entity)
}

func (s *EntityRepositoryTestSuite) TestSearch_CountSurvivesPagination() {
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{Limit: 1})

	s.NoError(err)
	s.Equal(4, result.Count)
	s.Len(result.Entities, 1)

	count, err := s.repo.Count(s.ctx, domain.SearchParameters{Limit: 1})
	s.NoError(err)
	s.Equal(result.Count, count)
}

func (s *EntityRepositoryTestSuite) TestSearch_PointWithin() {
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{
		Point: "POINT(5 5)",
		Limit: 10,
	})

	s.NoError(err)
	s.Equal(1, result.Count)
	s.Require().Len(result.Entities, 1)
	s.Equal(int64(101), result.Entities[0].Entity)
}

func (s *EntityRepositoryTestSuite) TestSearch_PointOutsideEverything() {
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{
		Point: "POINT(-50 -50)",
		Limit: 10,
	})

	s.NoError(err)
	s.Equal(0, result.Count)
	s.Empty(result.Entities)
}

func (s *EntityRepositoryTestSuite) TestSearch_DerivedGeometry() {
	// use entity 101's stored polygon as the comparison shape
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{
		GeometryEntity:   []int64{101},
		GeometryRelation: domain.RelationIntersects,
		Limit:            10,
	})

	s.NoError(err)
	s.Equal(1, result.Count)
	s.Equal(int64(101), result.Entities[0].Entity)
}

func (s *EntityRepositoryTestSuite) TestSearch_SubdividedEntityCountsOnce() {
	// entity 104 is routed through its pieces, and the probe point falls
	// inside both of them; set membership must still yield one row
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{
		Point: "POINT(50 50)",
		Limit: 10,
	})

	s.NoError(err)
	s.Equal(1, result.Count)
	s.Require().Len(result.Entities, 1)
	s.Equal(int64(104), result.Entities[0].Entity)
}

func (s *EntityRepositoryTestSuite) TestSearch_DerivedGeometryWithoutShapes() {
	// entity 103 has no geometry, so the comparison set is empty and the
	// spatial filter matches nothing rather than vanishing
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{
		GeometryEntity: []int64{103},
		Limit:          10,
	})

	s.NoError(err)
	s.Equal(0, result.Count)
	s.Empty(result.Entities)
}

func (s *EntityRepositoryTestSuite) TestSearch_PeriodHistorical() {
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{
		Period: domain.PeriodHistorical,
		Limit:  10,
	})

	s.NoError(err)
	s.Equal(1, result.Count)
	s.Equal(int64(102), result.Entities[0].Entity)
}

func (s *EntityRepositoryTestSuite) TestSearch_ExtensionAttributes() {
	result, err := s.repo.Search(s.ctx, domain.SearchParameters{
		Dataset: []string{"conservation-area"},
		Limit:   10,
	})

	s.NoError(err)
	s.Require().Len(result.Entities, 1)
	s.Equal("1990-05-01", result.Entities[0].Extensions["designation_date"])
}

func (s *EntityRepositoryTestSuite) TestGetByID() {
	entity, err := s.repo.GetByID(s.ctx, 103)

	s.NoError(err)
	s.Equal("North Wood", entity.Name)
	s.Equal("forest", entity.Dataset)
}

func (s *EntityRepositoryTestSuite) TestGetByID_NotFound() {
	_, err := s.repo.GetByID(s.ctx, 999999)
	s.ErrorIs(err, errors.ErrEntityNotFound)
}

func (s *EntityRepositoryTestSuite) TestGetRedirect() {
	redirect, err := s.redirectRepo.GetRedirect(s.ctx, 900)
	s.NoError(err)
	s.Require().NotNil(redirect)
	s.Equal(domain.RedirectStatusGone, redirect.Status)

	redirect, err = s.redirectRepo.GetRedirect(s.ctx, 901)
	s.NoError(err)
	s.Require().NotNil(redirect)
	s.Equal(domain.RedirectStatusMoved, redirect.Status)
	s.Require().NotNil(redirect.NewEntity)
	s.Equal(int64(103), *redirect.NewEntity)

	redirect, err = s.redirectRepo.GetRedirect(s.ctx, 103)
	s.NoError(err)
	s.Nil(redirect)
}

func (s *EntityRepositoryTestSuite) TestDatasets() {
	datasets, err := s.datasetRepo.List(s.ctx)
	s.NoError(err)
	s.Len(datasets, 3)

	unknown, err := s.datasetRepo.UnknownDatasets(s.ctx, []string{"forest", "car-park"})
	s.NoError(err)
	s.Equal([]string{"car-park"}, unknown)
}

func TestEntityRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(EntityRepositoryTestSuite))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
