package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planning-data/entity-search/internal/domain"
)

func TestSpatialStage_PointDefaultsToWithin(t *testing.T) {
	in := &spatialInput{
		geometries: []comparisonGeometry{{wkt: "POINT(-0.2 53.4)", isPoint: true}},
	}

	s, ok := spatialStage(in)
	require.True(t, ok)

	// Point-in-polygon reads point WITHIN candidate geometry
	assert.Contains(t, s.cond, "ST_Within(ST_GeomFromText(?, 4326), d.geometry)")
	assert.Contains(t, s.cond, "ST_Within(ST_GeomFromText(?, 4326), d.point)")
	assert.Contains(t, s.cond, "ST_Within(ST_GeomFromText(?, 4326), s.geometry_subdivided)")
}

func TestSpatialStage_PolygonDefaultsToIntersects(t *testing.T) {
	in := &spatialInput{
		geometries: []comparisonGeometry{{wkt: "POLYGON((0 0,0 1,1 1,0 0))"}},
	}

	s, ok := spatialStage(in)
	require.True(t, ok)
	assert.Contains(t, s.cond, "ST_Intersects(d.geometry, ST_GeomFromText(?, 4326))")
	// Comparison shapes get their own validity guard
	assert.Contains(t, s.cond, "ST_IsValid(ST_GeomFromText(?, 4326))")
}

func TestSpatialStage_ExplicitRelation(t *testing.T) {
	in := &spatialInput{
		geometries: []comparisonGeometry{{wkt: "POLYGON((0 0,0 1,1 1,0 0))"}},
		relation:   domain.RelationCrosses,
	}

	s, ok := spatialStage(in)
	require.True(t, ok)
	assert.Contains(t, s.cond, "ST_Crosses(")
	assert.NotContains(t, s.cond, "ST_Intersects(")
}

func TestSpatialStage_RoutesDirectOrSubdivided(t *testing.T) {
	in := &spatialInput{
		geometries:         []comparisonGeometry{{wkt: "POINT(-0.2 53.4)", isPoint: true}},
		subdividedDatasets: []string{"flood-risk-zone"},
	}

	s, ok := spatialStage(in)
	require.True(t, ok)

	// Membership over a UNION: direct arm excludes subdivided datasets, the
	// subdivided arm only ever contains them, and set union dedupes ids.
	assert.True(t, strings.HasPrefix(s.cond, "e.entity IN ("))
	assert.Contains(t, s.cond, "d.dataset NOT IN (?)")
	assert.Contains(t, s.cond, " UNION ")
	assert.Contains(t, s.cond, "FROM entity_subdivided s")
	assert.Contains(t, s.cond, "ST_IsValid(s.geometry_subdivided)")
	assert.Contains(t, s.cond, "ST_IsValid(d.geometry)")
	assert.Equal(t, []string{"flood-risk-zone"}, s.args[0])
}

func TestSpatialStage_NoSubdividedDatasets(t *testing.T) {
	in := &spatialInput{
		geometries: []comparisonGeometry{{wkt: "POINT(0 0)", isPoint: true}},
	}

	s, ok := spatialStage(in)
	require.True(t, ok)
	assert.NotContains(t, s.cond, "NOT IN")
	// The subdivided arm stays: with no pieces it contributes nothing.
	assert.Contains(t, s.cond, " UNION ")
}

func TestSpatialStage_MultipleGeometriesAreORed(t *testing.T) {
	in := &spatialInput{
		geometries: []comparisonGeometry{
			{wkt: "POLYGON((0 0,0 1,1 1,0 0))"},
			{wkt: "POLYGON((2 2,2 3,3 3,2 2))"},
		},
		relation: domain.RelationIntersects,
	}

	s, ok := spatialStage(in)
	require.True(t, ok)

	// An entity matching both input shapes still appears once: the OR sits
	// inside the membership subqueries.
	assert.Equal(t, 1, strings.Count(s.cond, "e.entity IN ("))
	assert.Contains(t, s.cond, " OR ")
}

// A spatial filter whose comparison set resolved to nothing matches nothing;
// it must not vanish and widen the request to the whole catalogue.
func TestSpatialStage_NoGeometriesMatchesNothing(t *testing.T) {
	s, ok := spatialStage(&spatialInput{})
	assert.True(t, ok)
	assert.Equal(t, "FALSE", s.cond)
	assert.Empty(t, s.args)
}

func TestBuildComparisonGeometryQuery(t *testing.T) {
	p := domain.SearchParameters{
		GeometryEntity:    []int64{10, 11},
		GeometryReference: []string{"Q1"},
		GeometryCurie:     []string{"wikidata:Q42", "broken"},
	}

	query, args, err := buildComparisonGeometryQuery(p)
	require.NoError(t, err)

	assert.Contains(t, query, "SELECT ST_AsText(g.geometry) FROM entity g")
	assert.Contains(t, query, "g.geometry IS NOT NULL AND ST_IsValid(g.geometry)")
	assert.Contains(t, query, "g.entity IN (?, ?)")
	assert.Contains(t, query, "g.reference IN (?)")
	assert.Contains(t, query, "g.prefix = ? AND g.reference = ?")
	assert.Equal(t, []interface{}{int64(10), int64(11), "Q1", "wikidata", "Q42"}, args)
}

func TestBuildComparisonGeometryQuery_NoSources(t *testing.T) {
	query, args, err := buildComparisonGeometryQuery(domain.SearchParameters{})
	require.NoError(t, err)
	assert.Empty(t, query)
	assert.Empty(t, args)
}

func TestRelationFunctions_CoverFullVocabulary(t *testing.T) {
	for _, rel := range []domain.GeometryRelation{
		domain.RelationIntersects, domain.RelationEquals, domain.RelationDisjoint,
		domain.RelationTouches, domain.RelationContains, domain.RelationCovers,
		domain.RelationCoveredBy, domain.RelationOverlaps, domain.RelationCrosses,
		domain.RelationWithin,
	} {
		assert.NotEmpty(t, relationFunctions[rel], "missing PostGIS mapping for %s", rel)
	}
}
