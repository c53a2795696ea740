package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/planning-data/entity-search/internal/config"
	"github.com/planning-data/entity-search/internal/domain"
	"github.com/planning-data/entity-search/internal/usecase/dto"
)

// NormalizeSearchParameters cleans the raw request into the canonical,
// immutable parameter set: empty values dropped, list filters deduplicated
// and sorted, partial dates resolved, the longitude/latitude pair assembled
// into a point literal, and pagination clamped to configured bounds.
func NormalizeSearchParameters(req dto.SearchRequest, cfg config.SearchConfig) domain.SearchParameters {
	p := domain.SearchParameters{
		Dataset:            domain.CanonicalizeList(req.Dataset),
		Typology:           domain.CanonicalizeList(req.Typology),
		Entities:           normalizeIntList(req.Entity),
		Prefix:             domain.CanonicalizeList(req.Prefix),
		Reference:          domain.CanonicalizeList(req.Reference),
		OrganisationEntity: normalizeIntList(req.OrganisationEntity),
		Curie:              domain.CanonicalizeList(req.Curie),
		Organisation:       domain.CanonicalizeList(req.Organisation),

		EntryDate: normalizeDateFilter(req.EntryDateYear, req.EntryDateMonth, req.EntryDateDay, req.EntryDateMatch),
		StartDate: normalizeDateFilter(req.StartDateYear, req.StartDateMonth, req.StartDateDay, req.StartDateMatch),
		EndDate:   normalizeDateFilter(req.EndDateYear, req.EndDateMonth, req.EndDateDay, req.EndDateMatch),

		Geometry:          normalizeGeometryList(req.Geometry),
		Point:             normalizePoint(req.Longitude, req.Latitude),
		GeometryEntity:    normalizeIntList(req.GeometryEntity),
		GeometryReference: domain.CanonicalizeList(req.GeometryReference),
		GeometryCurie:     domain.CanonicalizeList(req.GeometryCurie),
		GeometryRelation:  domain.GeometryRelation(req.GeometryRelation),

		Period: normalizePeriod(req.Period),

		Field:        normalizeFieldList(req.Field),
		ExcludeField: normalizeFieldList(req.ExcludeField),
		Format:       domain.FormatJSON,

		Offset: req.Offset,
	}

	if req.Format == string(domain.FormatGeoJSON) {
		p.Format = domain.FormatGeoJSON
	}

	p.Limit = req.Limit
	if p.Limit <= 0 {
		p.Limit = cfg.DefaultLimit
	}
	if p.Limit > cfg.MaxLimit {
		p.Limit = cfg.MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	return p
}

// normalizeIntList parses numeric list values, silently dropping anything
// that is not an integer.
func normalizeIntList(values []string) []int64 {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return domain.CanonicalizeInt64List(out)
}

// normalizeDateFilter assembles a partial year/month/day into a concrete
// date. A present, non-zero year is required; missing month and day default
// to 1. Malformed numerics mean "no date filter for this dimension", never
// an error.
func normalizeDateFilter(year, month, day, match string) domain.DateFilter {
	f := domain.DateFilter{Option: domain.DateOption(match)}

	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y == 0 {
		return domain.DateFilter{Option: f.Option}
	}
	m := atoiOrDefault(month, 1)
	d := atoiOrDefault(day, 1)

	date := domain.NewDate(y, m, d)
	f.Value = &date
	return f
}

func atoiOrDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func normalizePoint(longitude, latitude string) string {
	if longitude == "" || latitude == "" {
		return ""
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(longitude), 64)
	if err != nil {
		return ""
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latitude), 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("POINT(%g %g)", lon, lat)
}

// normalizeGeometryList keeps only literals that parse as well-formed WKT.
// A malformed or invalid shape is dropped here, degrading to "no matches for
// that clause"; it must never reach the database parser, where it would fail
// the whole request.
func normalizeGeometryList(values []string) []string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, err := geom.UnmarshalWKT(strings.ToUpper(v)); err != nil {
			continue
		}
		kept = append(kept, v)
	}
	return domain.CanonicalizeList(kept)
}

// normalizePeriod reduces the lifecycle selection: picking both current and
// historical, or anything unrecognized, degrades to no constraint.
func normalizePeriod(values []string) domain.Period {
	var current, historical bool
	for _, v := range values {
		switch domain.Period(v) {
		case domain.PeriodCurrent:
			current = true
		case domain.PeriodHistorical:
			historical = true
		case domain.PeriodAll:
			return domain.PeriodAll
		}
	}
	switch {
	case current && historical:
		return domain.PeriodAll
	case current:
		return domain.PeriodCurrent
	case historical:
		return domain.PeriodHistorical
	default:
		return domain.PeriodAll
	}
}

// normalizeFieldList maps requested names onto the hyphenated field
// convention and drops anything that is not a known output field.
func normalizeFieldList(values []string) []string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		name := strings.ReplaceAll(strings.TrimSpace(v), "_", "-")
		if domain.IsEntityField(name) {
			kept = append(kept, name)
		}
	}
	return domain.CanonicalizeList(kept)
}
