package domain

import (
	"fmt"
	"sort"
)

// GeometryRelation is a DE-9IM topological relationship between two geometries.
type GeometryRelation string

const (
	RelationIntersects GeometryRelation = "intersects"
	RelationEquals     GeometryRelation = "equals"
	RelationDisjoint   GeometryRelation = "disjoint"
	RelationTouches    GeometryRelation = "touches"
	RelationContains   GeometryRelation = "contains"
	RelationCovers     GeometryRelation = "covers"
	RelationCoveredBy  GeometryRelation = "coveredby"
	RelationOverlaps   GeometryRelation = "overlaps"
	RelationCrosses    GeometryRelation = "crosses"
	RelationWithin     GeometryRelation = "within"
)

var geometryRelations = map[GeometryRelation]bool{
	RelationIntersects: true,
	RelationEquals:     true,
	RelationDisjoint:   true,
	RelationTouches:    true,
	RelationContains:   true,
	RelationCovers:     true,
	RelationCoveredBy:  true,
	RelationOverlaps:   true,
	RelationCrosses:    true,
	RelationWithin:     true,
}

// ParseGeometryRelation validates the relation vocabulary. The empty string
// is allowed and means "use the default for the spatial input kind".
func ParseGeometryRelation(s string) (GeometryRelation, error) {
	if s == "" {
		return "", nil
	}
	r := GeometryRelation(s)
	if !geometryRelations[r] {
		return "", fmt.Errorf("unknown geometry relation %q", s)
	}
	return r, nil
}

// Period is the lifecycle filter vocabulary.
type Period string

const (
	PeriodAll        Period = "all"
	PeriodCurrent    Period = "current"
	PeriodHistorical Period = "historical"
)

// DateOption is the comparison mode for a date filter dimension.
type DateOption string

const (
	DateOptionMatch  DateOption = "match"
	DateOptionBefore DateOption = "before"
	DateOptionSince  DateOption = "since"
)

// DateFilter is a resolved date dimension: a concrete target date plus a
// comparison mode. The predicate compiler skips dimensions missing either part.
// The JSON form participates in cache key material, so both parts must
// serialize.
type DateFilter struct {
	Value  *Date      `json:"value,omitempty"`
	Option DateOption `json:"option,omitempty"`
}

// Active reports whether this dimension contributes a predicate.
func (f DateFilter) Active() bool {
	return f.Value != nil && f.Option != ""
}

// Format selects the response encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
)

// SearchParameters is the normalized, immutable filter set for one request.
// List-valued filters are deduplicated and sorted so identical filter sets
// always normalize to the same value.
type SearchParameters struct {
	Dataset            []string `json:"dataset,omitempty"`
	Typology           []string `json:"typology,omitempty"`
	Entities           []int64  `json:"entity,omitempty"`
	Prefix             []string `json:"prefix,omitempty"`
	Reference          []string `json:"reference,omitempty"`
	OrganisationEntity []int64  `json:"organisation_entity,omitempty"`
	Curie              []string `json:"curie,omitempty"`
	Organisation       []string `json:"organisation,omitempty"`

	EntryDate DateFilter `json:"entry-date,omitzero"`
	StartDate DateFilter `json:"start-date,omitzero"`
	EndDate   DateFilter `json:"end-date,omitzero"`

	// Spatial input: explicit WKT geometries, a point assembled from
	// longitude/latitude, and geometry borrowed from other entities.
	Geometry          []string         `json:"geometry,omitempty"`
	Point             string           `json:"point,omitempty"`
	GeometryEntity    []int64          `json:"geometry_entity,omitempty"`
	GeometryReference []string         `json:"geometry_reference,omitempty"`
	GeometryCurie     []string         `json:"geometry_curie,omitempty"`
	GeometryRelation  GeometryRelation `json:"geometry_relation,omitempty"`

	Period Period `json:"period,omitempty"`

	Field        []string `json:"field,omitempty"`
	ExcludeField []string `json:"exclude_field,omitempty"`
	Format       Format   `json:"format,omitempty"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// HasSpatialFilter reports whether any spatial input is present.
func (p SearchParameters) HasSpatialFilter() bool {
	return len(p.Geometry) > 0 || p.Point != "" ||
		len(p.GeometryEntity) > 0 || len(p.GeometryReference) > 0 || len(p.GeometryCurie) > 0
}

// HasDerivedGeometry reports whether comparison geometry is borrowed from
// other entities and must be resolved before compiling the spatial stage.
func (p SearchParameters) HasDerivedGeometry() bool {
	return len(p.GeometryEntity) > 0 || len(p.GeometryReference) > 0 || len(p.GeometryCurie) > 0
}

// EntityFields is the full set of output fields, in serialization order.
// Names follow the hyphenated convention of the public API.
var EntityFields = []string{
	"entity",
	"name",
	"dataset",
	"typology",
	"prefix",
	"reference",
	"entry-date",
	"start-date",
	"end-date",
	"organisation-entity",
	"point",
	"geojson",
}

var entityFieldSet = func() map[string]bool {
	m := make(map[string]bool, len(EntityFields))
	for _, f := range EntityFields {
		m[f] = true
	}
	return m
}()

// IsEntityField reports whether name (hyphenated form) is a known output field.
func IsEntityField(name string) bool {
	return entityFieldSet[name]
}

// SelectFields resolves the include/exclude projection lists against the full
// field set: the include list narrows the base set, the exclude list is then
// removed. An empty outcome is the caller's error, not a silent empty result;
// the entity id is re-added afterwards so it is always present in output.
func (p SearchParameters) SelectFields() ([]string, error) {
	include := make(map[string]bool, len(p.Field))
	for _, f := range p.Field {
		include[f] = true
	}
	exclude := make(map[string]bool, len(p.ExcludeField))
	for _, f := range p.ExcludeField {
		exclude[f] = true
	}

	selected := make([]string, 0, len(EntityFields))
	for _, f := range EntityFields {
		if len(include) > 0 && !include[f] {
			continue
		}
		if exclude[f] {
			continue
		}
		selected = append(selected, f)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("field selection excludes every column")
	}

	if selected[0] != "entity" {
		selected = append([]string{"entity"}, selected...)
	}
	return selected, nil
}

// CanonicalizeList dedupes and sorts a list filter into its canonical form.
func CanonicalizeList(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// CanonicalizeInt64List dedupes and sorts an integer list filter.
func CanonicalizeInt64List(values []int64) []int64 {
	seen := make(map[int64]bool, len(values))
	out := make([]int64, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) == 0 {
		return nil
	}
	return out
}
