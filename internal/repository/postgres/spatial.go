package postgres

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/planning-data/entity-search/internal/domain"
)

// comparisonGeometry is one shape the relation operator is tested against.
// Points come from a longitude/latitude pair; polygons from WKT literals or
// from the geometry of other entities.
type comparisonGeometry struct {
	wkt     string
	isPoint bool
}

// spatialInput is everything the spatial stage needs, resolved up front:
// the flattened comparison geometry list (whatever its sources), the
// requested relation, and the data-driven set of subdivision-eligible
// datasets.
type spatialInput struct {
	geometries         []comparisonGeometry
	relation           domain.GeometryRelation
	subdividedDatasets []string
}

var relationFunctions = map[domain.GeometryRelation]string{
	domain.RelationIntersects: "ST_Intersects",
	domain.RelationEquals:     "ST_Equals",
	domain.RelationDisjoint:   "ST_Disjoint",
	domain.RelationTouches:    "ST_Touches",
	domain.RelationContains:   "ST_Contains",
	domain.RelationCovers:     "ST_Covers",
	domain.RelationCoveredBy:  "ST_CoveredBy",
	domain.RelationOverlaps:   "ST_Overlaps",
	domain.RelationCrosses:    "ST_Crosses",
	domain.RelationWithin:     "ST_Within",
}

// relationFor picks the PostGIS function for one comparison geometry. With no
// explicit relation the default is within for a point lookup and intersects
// for polygon comparisons.
func (in *spatialInput) relationFor(g comparisonGeometry) string {
	if in.relation != "" {
		return relationFunctions[in.relation]
	}
	if g.isPoint {
		return relationFunctions[domain.RelationWithin]
	}
	return relationFunctions[domain.RelationIntersects]
}

// relationPredicates builds the OR of the relation test between the candidate
// geometry expression and every comparison geometry. Point comparisons keep
// the point as the first operand so the default within reads as
// point-in-polygon; polygon comparisons test the candidate against the input.
// Invalid comparison shapes fail their ST_IsValid guard and simply never
// match.
func (in *spatialInput) relationPredicates(candidate string) (string, []interface{}) {
	conds := make([]string, 0, len(in.geometries))
	var args []interface{}
	for _, g := range in.geometries {
		fn := in.relationFor(g)
		if g.isPoint {
			conds = append(conds, fn+"(ST_GeomFromText(?, 4326), "+candidate+")")
			args = append(args, g.wkt)
		} else {
			conds = append(conds,
				"(ST_IsValid(ST_GeomFromText(?, 4326)) AND "+fn+"("+candidate+", ST_GeomFromText(?, 4326)))")
			args = append(args, g.wkt, g.wkt)
		}
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}

// spatialStage routes candidates either through their primary geometry/point
// or through their subdivision pieces, never both. Datasets with subdivision
// rows are excluded from the direct arm; the subdivided arm only ever sees
// such datasets because pieces exist for no others. IN over the UNION is set
// membership, so an entity matching several pieces, several comparison
// geometries or both arms still counts once.
func spatialStage(in *spatialInput) (stage, bool) {
	// A requested spatial filter whose comparison set resolved away (for
	// example geometry_entity naming entities without a valid geometry)
	// matches nothing. Dropping the stage would silently widen the request
	// to the whole catalogue.
	if len(in.geometries) == 0 {
		return stage{name: "geometry", cond: "FALSE"}, true
	}

	var args []interface{}

	direct := "SELECT d.entity FROM entity d WHERE "
	if len(in.subdividedDatasets) > 0 {
		direct += "d.dataset NOT IN (?) AND "
		args = append(args, in.subdividedDatasets)
	}
	geomPreds, geomArgs := in.relationPredicates("d.geometry")
	pointPreds, pointArgs := in.relationPredicates("d.point")
	direct += "((d.geometry IS NOT NULL AND ST_IsValid(d.geometry) AND " + geomPreds + ")" +
		" OR (d.point IS NOT NULL AND " + pointPreds + "))"
	args = append(args, geomArgs...)
	args = append(args, pointArgs...)

	subPreds, subArgs := in.relationPredicates("s.geometry_subdivided")
	subdivided := "SELECT s.entity FROM entity_subdivided s WHERE ST_IsValid(s.geometry_subdivided) AND " + subPreds
	args = append(args, subArgs...)

	return stage{
		name: "geometry",
		cond: "e.entity IN (" + direct + " UNION " + subdivided + ")",
		args: args,
	}, true
}

// buildComparisonGeometryQuery selects the WKT of geometries borrowed from
// other entities, identified by id, reference or curie. Entities without a
// valid geometry are silently left out of the comparison set.
func buildComparisonGeometryQuery(p domain.SearchParameters) (string, []interface{}, error) {
	conds := make([]string, 0, 3)
	var args []interface{}

	if len(p.GeometryEntity) > 0 {
		conds = append(conds, "g.entity IN (?)")
		args = append(args, p.GeometryEntity)
	}
	if len(p.GeometryReference) > 0 {
		conds = append(conds, "g.reference IN (?)")
		args = append(args, p.GeometryReference)
	}
	if s, ok := curieStage("geometry_curie", "g", p.GeometryCurie); ok {
		conds = append(conds, s.cond)
		args = append(args, s.args...)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}

	query := "SELECT ST_AsText(g.geometry) FROM entity g" +
		" WHERE g.geometry IS NOT NULL AND ST_IsValid(g.geometry)" +
		" AND (" + strings.Join(conds, " OR ") + ")"
	return sqlx.In(query, args...)
}

// subdividedDatasetsQuery lists datasets routed through subdivision pieces.
// Eligibility is data-driven: a dataset qualifies as soon as it has pieces.
const subdividedDatasetsQuery = `SELECT DISTINCT dataset FROM entity_subdivided`
