package sqlgen

import (
	"strconv"
	"strings"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// fragment is one lowered branch of a FROM clause: a table/CTE source
// plus the joins and loose predicates needed to reach it. Several
// fragments at once represent branches of a pending UNION ALL — a
// GraphRel whose valid TypeCombinations span more than one physical
// relationship table, or an `Either`-direction relationship that sqlgen
// could not resolve to one direction, each produce one fragment per
// alternative rather than a single one (spec.md §4.6).
type fragment struct {
	From  string
	Joins []string
	Where []string
	Ctes  []cteDef
}

type cteDef struct {
	Name string
	SQL  string
}

func (f *fragment) clone() *fragment {
	cp := &fragment{From: f.From}
	cp.Joins = append(cp.Joins, f.Joins...)
	cp.Where = append(cp.Where, f.Where...)
	cp.Ctes = append(cp.Ctes, f.Ctes...)
	return cp
}

// propertyColumn resolves alias.property to its quoted `"alias"."column"`
// physical form, consulting the node or relationship schema registered
// for alias's label(s).
func (g *Generator) propertyColumn(alias, property string) (string, error) {
	tc, ok := g.Ctx.Lookup(alias)
	if !ok || len(tc.Labels) == 0 {
		return "", cgerrors.ErrPropertyNotFound.New(property, alias)
	}
	label := tc.Labels[0]
	var pv catalog.PropertyValue
	var found bool
	if tc.IsRel {
		if rs, ok := g.Schema.LookupRelationship(label); ok {
			pv, found = rs.Property(property)
		}
	} else {
		if ns, ok := g.Schema.LookupNode(label); ok {
			pv, found = ns.Property(property)
		}
	}
	if !found {
		return "", cgerrors.ErrPropertyNotFound.New(property, label)
	}
	return quoteIdent(alias) + "." + quoteIdent(pv.Column), nil
}

func (g *Generator) renderExpr(e ast.Expression) (string, error) {
	return renderExpr(e, g.propertyColumn)
}

// lowerRelation walks the relational portion of the plan (everything
// below the nearest Projection/WithClause/GroupBy boundary) into one or
// more alternative fragments.
func (g *Generator) lowerRelation(n plan.Node) ([]*fragment, error) {
	switch v := n.(type) {
	case *plan.Empty:
		return []*fragment{{}}, nil

	case *plan.GraphNode:
		return g.lowerGraphNode(v)

	case *plan.GraphRel:
		return g.lowerGraphRel(v)

	case *plan.Filter:
		frags, err := g.lowerRelation(v.Input)
		if err != nil {
			return nil, err
		}
		pred, err := g.renderExpr(v.Predicate)
		if err != nil {
			return nil, err
		}
		out := make([]*fragment, len(frags))
		for i, f := range frags {
			cp := f.clone()
			cp.Where = append(cp.Where, pred)
			out[i] = cp
		}
		return out, nil

	case *plan.CartesianProduct:
		lefts, err := g.lowerRelation(v.Left)
		if err != nil {
			return nil, err
		}
		rights, err := g.lowerRelation(v.Right)
		if err != nil {
			return nil, err
		}
		out := make([]*fragment, 0, len(lefts)*len(rights))
		for _, l := range lefts {
			for _, r := range rights {
				out = append(out, mergeCross(l, r, v.IsOptional))
			}
		}
		return out, nil

	case *plan.GraphJoins:
		frags, err := g.lowerRelation(v.Input)
		if err != nil {
			return nil, err
		}
		for _, f := range frags {
			for _, jk := range v.Joins {
				leftCol, err := g.aliasColumn(jk.LeftAlias, jk.LeftColumn)
				if err != nil {
					return nil, err
				}
				rightCol, err := g.aliasColumn(jk.RightAlias, jk.RightColumn)
				if err != nil {
					return nil, err
				}
				f.Where = append(f.Where, leftCol+" = "+rightCol)
			}
		}
		return frags, nil

	default:
		return nil, cgerrors.ErrUnsupportedQueryType.New("relational plan node cannot be lowered to a FROM clause")
	}
}

// aliasColumn quotes a raw column already named in plan-space (e.g. a
// node id column a join key already carries), as opposed to
// propertyColumn which resolves a Cypher property name.
func (g *Generator) aliasColumn(alias, column string) (string, error) {
	return quoteIdent(alias) + "." + quoteIdent(column), nil
}

func mergeCross(l, r *fragment, optional bool) *fragment {
	out := l.clone()
	out.Ctes = append(out.Ctes, r.Ctes...)
	joinWord := "CROSS JOIN"
	if optional {
		joinWord = "LEFT JOIN"
	}
	if r.From != "" {
		onClause := ""
		if optional && len(r.Where) > 0 {
			onClause = " ON " + strings.Join(r.Where, " AND ")
		} else if optional {
			onClause = " ON 1 = 1"
		}
		out.Joins = append(out.Joins, joinWord+" "+r.From+onClause)
		out.Joins = append(out.Joins, r.Joins...)
		if !optional {
			out.Where = append(out.Where, r.Where...)
		}
	}
	return out
}

func (g *Generator) lowerGraphNode(gn *plan.GraphNode) ([]*fragment, error) {
	ns, label, err := nodeSchemaFor(g.Ctx, g.Schema, gn.Alias, gn.Label)
	if err != nil {
		return nil, err
	}
	_ = label
	table := qualify(ns.Database, ns.TableName)
	if ns.UseFinal {
		table += " FINAL"
	}
	return []*fragment{{From: table + " AS " + quoteIdent(gn.Alias)}}, nil
}

// lowerGraphRel builds one join fragment per (type-combination group,
// direction variant). A GraphRel whose valid combinations share one
// physical relationship table collapses to a single join plus a
// discriminator filter restricting the combination; combinations that
// resolve to genuinely distinct tables instead produce one fragment per
// table, merged by the caller into a UNION ALL (spec.md §4.6; see
// DESIGN.md's "polymorphic edge" entry for the split-vs-filter
// distinction).
func (g *Generator) lowerGraphRel(rel *plan.GraphRel) ([]*fragment, error) {
	lefts, err := g.lowerRelation(rel.Left)
	if err != nil {
		return nil, err
	}
	rights, err := g.lowerRelation(rel.Right)
	if err != nil {
		return nil, err
	}

	groups, err := g.relationshipGroups(rel)
	if err != nil {
		return nil, err
	}

	directions := []bool{false}
	if rel.Direction == ast.DirEither && rel.VariableLength == nil {
		// spec.md §4.6: "Either with a surviving Either expands into a
		// UNION ALL of the two directions." The recursive-CTE base case
		// below always walks from the Left-side alias, so an
		// undirected variable-length pattern keeps its single written
		// orientation rather than also emitting a swapped copy.
		directions = []bool{false, true}
	}

	out := make([]*fragment, 0, len(lefts)*len(rights)*len(groups)*len(directions))
	for _, l := range lefts {
		for _, r := range rights {
			for _, grp := range groups {
				for _, swapped := range directions {
					var base *fragment
					if rel.VariableLength != nil {
						// The recursive walk produces the far side's rows
						// itself; the right branch's own physical table
						// must not also be cross-joined in, or the
						// far alias would be bound twice.
						base = l.clone()
						base.Ctes = append(base.Ctes, r.Ctes...)
					} else {
						base = mergeCross(l, r, false)
					}
					f, err := g.joinRelationshipGroup(base, rel, grp, swapped)
					if err != nil {
						return nil, err
					}
					out = append(out, f)
				}
			}
		}
	}
	return out, nil
}

// relationshipGroup is one physical relationship table a GraphRel's
// valid TypeCombinations could resolve to, plus the combinations within
// it (for the discriminator filter when more than one applies).
type relationshipGroup struct {
	schema      *catalog.RelationshipSchema
	combos      []planctx.TypeCombination
}

func (g *Generator) relationshipGroups(rel *plan.GraphRel) ([]relationshipGroup, error) {
	combos := rel.PatternCombinations
	if len(combos) == 0 {
		if len(rel.Labels) != 1 {
			return nil, cgerrors.ErrInvalidPlan.New("GraphRel " + rel.Alias + " has no resolvable relationship type for SQL generation")
		}
		rs, ok := g.Schema.LookupRelationship(rel.Labels[0])
		if !ok {
			return nil, cgerrors.ErrSchemaNotFound.New(rel.Labels[0])
		}
		return []relationshipGroup{{schema: rs}}, nil
	}

	byTable := map[string]*relationshipGroup{}
	order := []string{}
	for _, c := range combos {
		key := catalog.CompositeRelKey(c.RelType, c.FromLabel, c.ToLabel)
		rs, ok := g.Schema.LookupRelationship(key)
		if !ok {
			rs, ok = g.Schema.LookupRelationship(c.RelType)
			if !ok {
				return nil, cgerrors.ErrSchemaNotFound.New(c.RelType)
			}
		}
		tableKey := rs.Database + "." + rs.TableName
		grp, seen := byTable[tableKey]
		if !seen {
			grp = &relationshipGroup{schema: rs}
			byTable[tableKey] = grp
			order = append(order, tableKey)
		}
		grp.combos = append(grp.combos, c)
	}
	out := make([]relationshipGroup, 0, len(order))
	for _, k := range order {
		out = append(out, *byTable[k])
	}
	return out, nil
}

func (g *Generator) joinRelationshipGroup(f *fragment, rel *plan.GraphRel, grp relationshipGroup, swapped bool) (*fragment, error) {
	rs := grp.schema
	table := qualify(rs.Database, rs.TableName)

	fromAlias, toAlias := rel.LeftConnection, rel.RightConnection
	if swapped {
		fromAlias, toAlias = toAlias, fromAlias
	}

	if rel.VariableLength != nil {
		return g.lowerVariableLength(f, rel, rs, fromAlias, toAlias)
	}

	fromNodeCol, err := g.resolveNodeIDColumn(fromAlias)
	if err != nil {
		return nil, err
	}
	toNodeCol, err := g.resolveNodeIDColumn(toAlias)
	if err != nil {
		return nil, err
	}

	relAlias := rel.Alias
	if relAlias == "" {
		relAlias = fromAlias + "_" + toAlias + "_rel"
	}

	joinWord := "INNER JOIN"
	if rel.IsOptional {
		joinWord = "LEFT JOIN"
	}

	onClause := quoteIdent(fromAlias) + "." + quoteIdent(fromNodeCol) + " = " +
		quoteIdent(relAlias) + "." + quoteIdent(rs.FromID) +
		" AND " + quoteIdent(relAlias) + "." + quoteIdent(rs.ToID) +
		" = " + quoteIdent(toAlias) + "." + quoteIdent(toNodeCol)

	f.Joins = append(f.Joins, joinWord+" "+table+" AS "+quoteIdent(relAlias)+" ON "+onClause)

	if len(grp.combos) > 1 {
		disc, err := discriminatorFilter(rs, relAlias, grp.combos)
		if err != nil {
			return nil, err
		}
		f.Where = append(f.Where, disc)
	}

	return f, nil
}

func (g *Generator) resolveNodeIDColumn(alias string) (string, error) {
	tc, ok := g.Ctx.Lookup(alias)
	if !ok || len(tc.Labels) == 0 {
		return "", cgerrors.ErrInvalidPlan.New("alias " + alias + " has no resolvable label for join generation")
	}
	return nodeIDColumnFor(g.Ctx, g.Schema, alias, tc.Labels[0])
}

// discriminatorFilter restricts a polymorphic relationship table's rows
// to the combinations Unified Type Inference proved valid, rather than
// re-splitting the query into one branch per combination — see
// DESIGN.md's grounding entry for why this is sound only when every
// combo shares one physical table.
func discriminatorFilter(rs *catalog.RelationshipSchema, relAlias string, combos []planctx.TypeCombination) (string, error) {
	if rs.TypeColumn == "" || rs.FromLabelColumn == "" || rs.ToLabelColumn == "" {
		return "", cgerrors.ErrInvalidPlan.New("relationship table " + rs.TableName + " has multiple valid type combinations but no discriminator columns to filter on")
	}
	clauses := make([]string, len(combos))
	for i, c := range combos {
		clauses[i] = "(" + quoteIdent(relAlias) + "." + quoteIdent(rs.TypeColumn) + " = '" + c.RelType + "'" +
			" AND " + quoteIdent(relAlias) + "." + quoteIdent(rs.FromLabelColumn) + " = '" + c.FromLabel + "'" +
			" AND " + quoteIdent(relAlias) + "." + quoteIdent(rs.ToLabelColumn) + " = '" + c.ToLabel + "')"
	}
	return strings.Join(clauses, " OR "), nil
}

// lowerVariableLength replaces a plain single-hop join with a recursive
// CTE bounded by the relationship's hop count, wrapping it with a
// minimum-hop aggregation when the pattern is a shortestPath/
// allShortestPaths (spec.md §4.6).
func (g *Generator) lowerVariableLength(f *fragment, rel *plan.GraphRel, rs *catalog.RelationshipSchema, fromAlias, toAlias string) (*fragment, error) {
	minHops, maxHops := 1, -1
	if rel.VariableLength.Min != nil {
		minHops = *rel.VariableLength.Min
	}
	if rel.VariableLength.Max != nil {
		maxHops = *rel.VariableLength.Max
	}
	if minHops == 0 && rel.ShortestPathMode == plan.ShortestPathNone {
		// Open Question (a), spec.md §9: reject *0 outside shortest-path
		// position; analyzer's SchemaInference already enforces this, but
		// sqlgen re-asserts it since it is the component that would
		// otherwise silently emit a degenerate CTE.
		return nil, cgerrors.ErrInvalidPlan.New("zero-hop variable-length relationship " + rel.Alias + " is only permitted inside shortestPath/allShortestPaths")
	}

	cteName, err := syntheticName("vlp", struct {
		Alias string
		From  string
		To    string
		Min   int
		Max   int
		Table string
	}{rel.Alias, fromAlias, toAlias, minHops, maxHops, rs.TableName})
	if err != nil {
		return nil, err
	}

	relTable := qualify(rs.Database, rs.TableName)
	fromNodeCol, err := g.resolveNodeIDColumn(fromAlias)
	if err != nil {
		return nil, err
	}

	baseTable := f.From
	upperBound := ""
	if maxHops >= 0 {
		upperBound = " AND hops < " + strconv.Itoa(maxHops)
	}

	recursiveSQL := "SELECT " + quoteIdent(fromAlias) + "." + quoteIdent(fromNodeCol) + " AS start_id, " +
		quoteIdent(fromAlias) + "." + quoteIdent(fromNodeCol) + " AS cur_id, 0 AS hops" +
		" FROM " + baseTable +
		" UNION ALL" +
		" SELECT walk.start_id, e." + quoteIdent(rs.ToID) + ", walk.hops + 1" +
		" FROM " + cteName + " AS walk" +
		" INNER JOIN " + relTable + " AS e ON e." + quoteIdent(rs.FromID) + " = walk.cur_id" +
		" WHERE 1 = 1" + upperBound

	f.Ctes = append(f.Ctes, cteDef{Name: cteName, SQL: "RECURSIVE " + cteName + " AS (" + recursiveSQL + ")"})

	walkedTable := cteName
	switch rel.ShortestPathMode {
	case plan.ShortestPathSingle, plan.ShortestPathAll:
		rankedName, err := syntheticName("vlp_ranked", cteName)
		if err != nil {
			return nil, err
		}
		rankedSQL := "SELECT *, min(hops) OVER (PARTITION BY start_id, cur_id) AS min_hops FROM " + cteName
		limitByClause := ""
		if rel.ShortestPathMode == plan.ShortestPathSingle {
			limitByClause = " LIMIT 1 BY start_id, cur_id"
		}
		f.Ctes = append(f.Ctes, cteDef{Name: rankedName, SQL: rankedName + " AS (SELECT * FROM (" + rankedSQL + ") WHERE hops = min_hops" + limitByClause + ")"})
		walkedTable = rankedName
	}

	f.From = walkedTable + " AS " + quoteIdent(toAlias)
	f.Where = append(f.Where, "hops >= "+strconv.Itoa(minHops))
	if maxHops >= 0 {
		f.Where = append(f.Where, "hops <= "+strconv.Itoa(maxHops))
	}
	return f, nil
}
