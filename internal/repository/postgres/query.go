package postgres

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/planning-data/entity-search/internal/domain"
)

// stage is one predicate applied to the candidate entity set. The same
// ordered stage list drives both the count query and the result query; only
// ordering, pagination and the projected column list differ between the two.
type stage struct {
	name string
	cond string // boolean SQL over alias e, ? placeholders
	args []interface{}
}

// entitySelectColumns is the full projected row. Projection narrowing happens
// at the serialization boundary; the row itself is always complete so the
// extension map and geojson survive for every output format.
const entitySelectColumns = `
	e.entity,
	COALESCE(e.name, '') AS name,
	e.dataset,
	COALESCE(e.typology, '') AS typology,
	COALESCE(e.prefix, '') AS prefix,
	COALESCE(e.reference, '') AS reference,
	e.entry_date,
	e.start_date,
	e.end_date,
	e.organisation_entity,
	COALESCE(ST_AsText(e.point), '') AS point,
	e.geojson,
	e.json`

// secondaryOrdering maps a dataset to an extra sort expression applied after
// the primary entity id order.
var secondaryOrdering = map[string]string{
	"timetable": "(e.json ->> 'event-date') ASC",
}

// compileStages turns normalized parameters into the ordered predicate stage
// list. spatial may be nil when no spatial filter is present.
func compileStages(p domain.SearchParameters, spatial *spatialInput) []stage {
	stages := make([]stage, 0, 12)

	// 1. Base equality filters: OR within a filter's values, AND across filters.
	stages = appendListStage(stages, "dataset", "e.dataset", p.Dataset)
	stages = appendListStage(stages, "typology", "e.typology", p.Typology)
	stages = appendInt64ListStage(stages, "entity", "e.entity", p.Entities)
	stages = appendListStage(stages, "prefix", "e.prefix", p.Prefix)
	stages = appendListStage(stages, "reference", "e.reference", p.Reference)
	stages = appendInt64ListStage(stages, "organisation_entity", "e.organisation_entity", p.OrganisationEntity)

	// 2. Curie filters.
	if s, ok := curieStage("curie", "e", p.Curie); ok {
		stages = append(stages, s)
	}
	if s, ok := organisationStage(p.Organisation); ok {
		stages = append(stages, s)
	}

	// 3. Date filters.
	stages = appendDateStage(stages, "entry_date", "e.entry_date", p.EntryDate)
	stages = appendDateStage(stages, "start_date", "e.start_date", p.StartDate)
	stages = appendDateStage(stages, "end_date", "e.end_date", p.EndDate)

	// 4. Spatial filters.
	if spatial != nil {
		if s, ok := spatialStage(spatial); ok {
			stages = append(stages, s)
		}
	}

	// 5. Lifecycle filter.
	if s, ok := periodStage(p.Period); ok {
		stages = append(stages, s)
	}

	return stages
}

func appendListStage(stages []stage, name, column string, values []string) []stage {
	if len(values) == 0 {
		return stages
	}
	return append(stages, stage{
		name: name,
		cond: column + " IN (?)",
		args: []interface{}{values},
	})
}

func appendInt64ListStage(stages []stage, name, column string, values []int64) []stage {
	if len(values) == 0 {
		return stages
	}
	return append(stages, stage{
		name: name,
		cond: column + " IN (?)",
		args: []interface{}{values},
	})
}

// curieStage ORs (prefix, reference) pairs split out of compact identifiers.
// Malformed values were rejected at the request boundary; any that slip
// through are skipped here rather than failing the request.
func curieStage(name, alias string, curies []string) (stage, bool) {
	conds := make([]string, 0, len(curies))
	args := make([]interface{}, 0, len(curies)*2)
	for _, raw := range curies {
		c, ok := domain.SplitCurie(raw)
		if !ok {
			continue
		}
		conds = append(conds, fmt.Sprintf("(%s.prefix = ? AND %s.reference = ?)", alias, alias))
		args = append(args, c.Prefix, c.Reference)
	}
	if len(conds) == 0 {
		return stage{}, false
	}
	return stage{
		name: name,
		cond: "(" + strings.Join(conds, " OR ") + ")",
		args: args,
	}, true
}

// organisationStage constrains via the organisation entity's own
// prefix/reference rather than the candidate's.
func organisationStage(curies []string) (stage, bool) {
	inner, ok := curieStage("organisation", "o", curies)
	if !ok {
		return stage{}, false
	}
	return stage{
		name: "organisation",
		cond: "e.organisation_entity IN (SELECT o.entity FROM entity o WHERE " + inner.cond + ")",
		args: inner.args,
	}, true
}

var dateOperators = map[domain.DateOption]string{
	domain.DateOptionMatch:  "=",
	domain.DateOptionBefore: "<",
	domain.DateOptionSince:  ">=",
}

func appendDateStage(stages []stage, name, column string, f domain.DateFilter) []stage {
	if !f.Active() {
		return stages
	}
	op, ok := dateOperators[f.Option]
	if !ok {
		return stages
	}
	return append(stages, stage{
		name: name,
		cond: fmt.Sprintf("%s %s ?", column, op),
		args: []interface{}{f.Value.Time},
	})
}

// periodStage: "current" means no end date or one in the future, "historical"
// the opposite. Anything else, including the current+historical combination
// normalized to all, adds no constraint.
func periodStage(p domain.Period) (stage, bool) {
	switch p {
	case domain.PeriodCurrent:
		return stage{
			name: "period",
			cond: "(e.end_date IS NULL OR e.end_date >= CURRENT_DATE)",
		}, true
	case domain.PeriodHistorical:
		return stage{
			name: "period",
			cond: "(e.end_date IS NOT NULL AND e.end_date < CURRENT_DATE)",
		}, true
	default:
		return stage{}, false
	}
}

// whereClause joins the stage conditions. Slice args are expanded by sqlx.In;
// the returned query still uses ? bindvars and must be rebound by the caller.
func whereClause(stages []stage) (string, []interface{}, error) {
	if len(stages) == 0 {
		return "", nil, nil
	}
	conds := make([]string, 0, len(stages))
	var args []interface{}
	for _, s := range stages {
		conds = append(conds, s.cond)
		args = append(args, s.args...)
	}
	clause := " WHERE " + strings.Join(conds, " AND ")
	return sqlx.In(clause, args...)
}

// buildCountQuery reduces the stage list to a total. It must stay structurally
// identical to buildSelectQuery's filtering so count and results cannot drift.
func buildCountQuery(stages []stage) (string, []interface{}, error) {
	where, args, err := whereClause(stages)
	if err != nil {
		return "", nil, err
	}
	return "SELECT count(*) FROM entity e" + where, args, nil
}

// buildSelectQuery adds ordering, pagination and projection on top of the
// same stage list the count query consumed. Ordering is always entity id
// ascending, the only stable collision-free sort key.
func buildSelectQuery(stages []stage, p domain.SearchParameters) (string, []interface{}, error) {
	where, args, err := whereClause(stages)
	if err != nil {
		return "", nil, err
	}

	orderBy := " ORDER BY e.entity ASC"
	if len(p.Dataset) == 1 {
		if extra, ok := secondaryOrdering[p.Dataset[0]]; ok {
			orderBy += ", " + extra
		}
	}

	query := "SELECT " + entitySelectColumns + " FROM entity e" + where + orderBy
	if p.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", p.Limit)
	}
	if p.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", p.Offset)
	}
	return query, args, nil
}
