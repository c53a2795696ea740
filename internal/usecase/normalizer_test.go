package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planning-data/entity-search/internal/config"
	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/usecase"
	"github.com/planning-data/entity-search/internal/usecase/dto"
)

var testSearchConfig = config.SearchConfig{DefaultLimit: 10, MaxLimit: 500}

func TestNormalize_ListFilters(t *testing.T) {
	req := dto.SearchRequest{
		Dataset:   []string{"forest", "conservation-area", "forest", ""},
		Typology:  []string{"geography"},
		Entity:    []string{"42", "7", "not-a-number", "42"},
		Reference: []string{"B", "A"},
	}

	p := usecase.NormalizeSearchParameters(req, testSearchConfig)

	assert.Equal(t, []string{"conservation-area", "forest"}, p.Dataset)
	assert.Equal(t, []string{"geography"}, p.Typology)
	assert.Equal(t, []int64{7, 42}, p.Entities)
	assert.Equal(t, []string{"A", "B"}, p.Reference)
	assert.Nil(t, p.Prefix)
}

func TestNormalize_DateFilters(t *testing.T) {
	t.Run("full date", func(t *testing.T) {
		req := dto.SearchRequest{
			StartDateYear:  "2001",
			StartDateMonth: "3",
			StartDateDay:   "15",
			StartDateMatch: "since",
		}
		p := usecase.NormalizeSearchParameters(req, testSearchConfig)

		require.NotNil(t, p.StartDate.Value)
		assert.Equal(t, "2001-03-15", p.StartDate.Value.String())
		assert.Equal(t, domain.DateOptionSince, p.StartDate.Option)
		assert.True(t, p.StartDate.Active())
	})

	t.Run("year only defaults month and day to 1", func(t *testing.T) {
		req := dto.SearchRequest{EntryDateYear: "1999", EntryDateMatch: "before"}
		p := usecase.NormalizeSearchParameters(req, testSearchConfig)

		require.NotNil(t, p.EntryDate.Value)
		assert.Equal(t, "1999-01-01", p.EntryDate.Value.String())
	})

	t.Run("year zero means no filter", func(t *testing.T) {
		req := dto.SearchRequest{EndDateYear: "0", EndDateMatch: "match"}
		p := usecase.NormalizeSearchParameters(req, testSearchConfig)

		assert.Nil(t, p.EndDate.Value)
		assert.False(t, p.EndDate.Active())
	})

	t.Run("malformed year means no filter", func(t *testing.T) {
		req := dto.SearchRequest{EndDateYear: "soon"}
		p := usecase.NormalizeSearchParameters(req, testSearchConfig)
		assert.Nil(t, p.EndDate.Value)
	})
}

func TestNormalize_Point(t *testing.T) {
	req := dto.SearchRequest{Longitude: "-0.1276", Latitude: "51.5072"}
	p := usecase.NormalizeSearchParameters(req, testSearchConfig)
	assert.Equal(t, "POINT(-0.1276 51.5072)", p.Point)

	p = usecase.NormalizeSearchParameters(dto.SearchRequest{Longitude: "-0.1276"}, testSearchConfig)
	assert.Empty(t, p.Point, "a lone coordinate is ignored")
}

func TestNormalize_GeometryList(t *testing.T) {
	req := dto.SearchRequest{Geometry: []string{
		"POLYGON((0 0, 0 1, 1 1, 0 0))",
		"point(1 2)",
		"CIRCLE(0 0, 5)",
	}}
	p := usecase.NormalizeSearchParameters(req, testSearchConfig)

	assert.Equal(t, []string{
		"POLYGON((0 0, 0 1, 1 1, 0 0))",
		"point(1 2)",
	}, p.Geometry)
}

// Literals that fail WKT parsing must be dropped at the boundary: forwarded
// to the database they would raise a parse error and fail the whole request
// instead of degrading to an empty clause.
func TestNormalize_GeometryListDropsMalformedWKT(t *testing.T) {
	req := dto.SearchRequest{Geometry: []string{
		"POLYGON((garbage",
		"POLYGON((0 0, 0 1, 1 1))",
		"POINT(1)",
		"POINT(3 4)",
	}}
	p := usecase.NormalizeSearchParameters(req, testSearchConfig)

	assert.Equal(t, []string{"POINT(3 4)"}, p.Geometry)
}

func TestNormalize_Period(t *testing.T) {
	tests := []struct {
		name   string
		period []string
		want   domain.Period
	}{
		{"none", nil, domain.PeriodAll},
		{"current", []string{"current"}, domain.PeriodCurrent},
		{"historical", []string{"historical"}, domain.PeriodHistorical},
		{"both cancel out", []string{"current", "historical"}, domain.PeriodAll},
		{"all wins", []string{"all", "current"}, domain.PeriodAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := usecase.NormalizeSearchParameters(dto.SearchRequest{Period: tt.period}, testSearchConfig)
			assert.Equal(t, tt.want, p.Period)
		})
	}
}

func TestNormalize_Fields(t *testing.T) {
	req := dto.SearchRequest{
		Field:        []string{"start_date", "name", "favourite_colour"},
		ExcludeField: []string{"geojson"},
	}
	p := usecase.NormalizeSearchParameters(req, testSearchConfig)

	assert.Equal(t, []string{"name", "start-date"}, p.Field)
	assert.Equal(t, []string{"geojson"}, p.ExcludeField)
}

func TestNormalize_Pagination(t *testing.T) {
	p := usecase.NormalizeSearchParameters(dto.SearchRequest{}, testSearchConfig)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = usecase.NormalizeSearchParameters(dto.SearchRequest{Limit: 9000, Offset: -3}, testSearchConfig)
	assert.Equal(t, 500, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = usecase.NormalizeSearchParameters(dto.SearchRequest{Limit: 25, Offset: 50}, testSearchConfig)
	assert.Equal(t, 25, p.Limit)
	assert.Equal(t, 50, p.Offset)
}

func TestNormalize_Format(t *testing.T) {
	p := usecase.NormalizeSearchParameters(dto.SearchRequest{}, testSearchConfig)
	assert.Equal(t, domain.FormatJSON, p.Format)

	p = usecase.NormalizeSearchParameters(dto.SearchRequest{Format: "geojson"}, testSearchConfig)
	assert.Equal(t, domain.FormatGeoJSON, p.Format)
}
