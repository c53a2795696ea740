package domain

import (
	"encoding/json"
	"strings"
)

// Entity is a single catalogued planning/land-use record. The identifier
// space is shared across all datasets: no two entities share an ID.
type Entity struct {
	Entity             int64           `json:"entity" db:"entity"`
	Name               string          `json:"name" db:"name"`
	Dataset            string          `json:"dataset" db:"dataset"`
	Typology           string          `json:"typology" db:"typology"`
	Prefix             string          `json:"prefix" db:"prefix"`
	Reference          string          `json:"reference" db:"reference"`
	EntryDate          *Date           `json:"entry-date,omitempty" db:"entry_date"`
	StartDate          *Date           `json:"start-date,omitempty" db:"start_date"`
	EndDate            *Date           `json:"end-date,omitempty" db:"end_date"`
	OrganisationEntity *int64          `json:"organisation-entity,omitempty" db:"organisation_entity"`
	Point              string          `json:"point,omitempty" db:"point"`
	GeoJSON            json.RawMessage `json:"geojson,omitempty" db:"geojson"`

	// Extensions holds per-dataset attributes that are not first-class
	// columns. They are merged into the serialized output one field per key;
	// the fixed struct above is never mutated.
	Extensions map[string]interface{} `json:"-" db:"-"`
}

// EntitySubdivided is one piece of a precomputed decomposition of an
// entity's geometry. Pieces exist only for datasets whose geometries are too
// complex to test spatial predicates against directly; the union of an
// entity's pieces is equivalent to its primary geometry.
type EntitySubdivided struct {
	Entity   int64  `db:"entity"`
	Dataset  string `db:"dataset"`
	Geometry string `db:"geometry_subdivided"`
}

// Redirect statuses as recorded in the old_entity table.
const (
	RedirectStatusGone  = "410"
	RedirectStatusMoved = "301"
)

// Redirect maps a retired entity id to its fate. Absence of a redirect row
// means a lookup proceeds normally, not that the entity is missing.
type Redirect struct {
	OldEntity int64  `db:"old_entity"`
	Status    string `db:"status"`
	NewEntity *int64 `db:"new_entity"`
}

// Dataset is a named category of entities.
type Dataset struct {
	Dataset  string `json:"dataset" db:"dataset"`
	Name     string `json:"name" db:"name"`
	Typology string `json:"typology" db:"typology"`
}

// SearchResult is the outcome of one search request. Count is the total
// number of matches with no limit/offset applied.
type SearchResult struct {
	Params   SearchParameters `json:"params"`
	Count    int              `json:"count"`
	Entities []Entity         `json:"entities"`
}

// Curie is a prefix:reference pair split out of a compact identifier.
type Curie struct {
	Prefix    string
	Reference string
}

// SplitCurie splits s on the colon. Values without exactly one colon return
// ok=false; the caller skips them rather than failing the request.
func SplitCurie(s string) (Curie, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Curie{}, false
	}
	return Curie{Prefix: parts[0], Reference: parts[1]}, true
}

// MarshalJSON merges extension attributes into the entity's own field set.
// Extension keys are normalized to the hyphenated convention used by the
// first-class fields, and never shadow a known field.
func (e Entity) MarshalJSON() ([]byte, error) {
	type plain Entity
	base, err := json.Marshal(plain(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extensions) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range e.Extensions {
		name := strings.ReplaceAll(key, "_", "-")
		if _, taken := merged[name]; taken {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[name] = raw
	}
	return json.Marshal(merged)
}
