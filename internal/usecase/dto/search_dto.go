package dto

import (
	"encoding/json"

	"github.com/planning-data/entity-search/internal/domain"
)

// SearchRequest is the raw filter input as it arrives on the query string.
// Values are cleaned and canonicalized by the parameter normalizer; only
// format rules are enforced here, at the request boundary.
type SearchRequest struct {
	Dataset            []string `query:"dataset"`
	Typology           []string `query:"typology"`
	Entity             []string `query:"entity"`
	Prefix             []string `query:"prefix"`
	Reference          []string `query:"reference"`
	OrganisationEntity []string `query:"organisation_entity"`
	Curie              []string `query:"curie" validate:"omitempty,dive,curie"`
	Organisation       []string `query:"organisation" validate:"omitempty,dive,curie"`

	EntryDateYear  string `query:"entry_date_year"`
	EntryDateMonth string `query:"entry_date_month"`
	EntryDateDay   string `query:"entry_date_day"`
	EntryDateMatch string `query:"entry_date_match" validate:"omitempty,oneof=match before since"`

	StartDateYear  string `query:"start_date_year"`
	StartDateMonth string `query:"start_date_month"`
	StartDateDay   string `query:"start_date_day"`
	StartDateMatch string `query:"start_date_match" validate:"omitempty,oneof=match before since"`

	EndDateYear  string `query:"end_date_year"`
	EndDateMonth string `query:"end_date_month"`
	EndDateDay   string `query:"end_date_day"`
	EndDateMatch string `query:"end_date_match" validate:"omitempty,oneof=match before since"`

	Longitude string `query:"longitude" validate:"omitempty,longitude"`
	Latitude  string `query:"latitude" validate:"omitempty,latitude"`

	Geometry          []string `query:"geometry"`
	GeometryEntity    []string `query:"geometry_entity"`
	GeometryReference []string `query:"geometry_reference"`
	GeometryCurie     []string `query:"geometry_curie" validate:"omitempty,dive,curie"`
	GeometryRelation  string   `query:"geometry_relation" validate:"omitempty,oneof=intersects equals disjoint touches contains covers coveredby overlaps crosses within"`

	Period []string `query:"period" validate:"omitempty,dive,oneof=all current historical"`

	Field        []string `query:"field"`
	ExcludeField []string `query:"exclude_field"`
	Format       string   `query:"format" validate:"omitempty,oneof=json geojson"`

	Limit  int `query:"limit" validate:"omitempty,min=0"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

// SearchResponse carries the exact unpaginated total plus one page of
// entities, already shaped by any field projection. Raw JSON values survive
// the cache round trip without re-encoding.
type SearchResponse struct {
	Count    int                          `json:"count"`
	Entities []map[string]json.RawMessage `json:"entities"`
	Params   domain.SearchParameters      `json:"params"`
}

// Feature / FeatureCollection are the geojson output shape. Spatial output
// needs the full record, so projection is suppressed for this format.
type Feature struct {
	Type       string                     `json:"type"`
	Geometry   json.RawMessage            `json:"geometry"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// DatasetListResponse lists every known dataset.
type DatasetListResponse struct {
	Datasets []domain.Dataset `json:"datasets"`
	Total    int              `json:"total"`
}
