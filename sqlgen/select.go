package sqlgen

import (
	"strings"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/plan"
)

// selectStmt is the fully assembled shape of one SELECT (or UNION ALL of
// several), ready to print.
type selectStmt struct {
	Ctes     []cteDef
	Branches []selectBranch // more than one only for a polymorphic/Either-expanded GraphRel
	Distinct bool
	GroupBy  []string
	Having   string
	OrderBy  []string
	Skip     string
	Limit    string
	union    *unionOf
}

type selectBranch struct {
	Items []branchItem
	From  *fragment
}

type branchItem struct {
	Expr string
	Name string
}

// unionOf combines two already-built selects, used for an explicit UNION
// / UNION ALL clause in the source query (as opposed to the implicit
// fragment-level UNION ALL a polymorphic GraphRel produces).
type unionOf struct {
	Left, Right *selectStmt
	Distinct    bool
}

// Generate lowers root into the ordered list of SQL statements the
// caller must execute (spec.md §6.1). The list holds a single statement
// in both TraversalCte and TraversalTempTable mode; no CREATE TEMPORARY
// TABLE statement is generated.
func (g *Generator) Generate(root plan.Node) ([]string, error) {
	g.statements = nil
	stmt, err := g.buildSelect(root)
	if err != nil {
		return nil, err
	}
	text, err := g.print(stmt)
	if err != nil {
		return nil, err
	}
	return append(g.statements, text), nil
}

func (g *Generator) buildSelect(n plan.Node) (*selectStmt, error) {
	switch v := n.(type) {
	case *plan.Limit:
		inner, err := g.buildSelect(v.Input)
		if err != nil {
			return nil, err
		}
		lim, err := g.renderExpr(v.Count)
		if err != nil {
			return nil, err
		}
		inner.Limit = lim
		return inner, nil

	case *plan.Skip:
		inner, err := g.buildSelect(v.Input)
		if err != nil {
			return nil, err
		}
		sk, err := g.renderExpr(v.Count)
		if err != nil {
			return nil, err
		}
		inner.Skip = sk
		return inner, nil

	case *plan.OrderBy:
		inner, err := g.buildSelect(v.Input)
		if err != nil {
			return nil, err
		}
		items, err := g.renderOrderItems(v.Items)
		if err != nil {
			return nil, err
		}
		inner.OrderBy = items
		return inner, nil

	case *plan.GroupBy:
		inner, err := g.buildSelect(v.Input)
		if err != nil {
			return nil, err
		}
		exprs := make([]string, len(v.Expressions))
		for i, e := range v.Expressions {
			s, err := g.renderExpr(e)
			if err != nil {
				return nil, err
			}
			exprs[i] = s
		}
		inner.GroupBy = exprs
		if v.HavingClause != nil {
			h, err := g.renderExpr(v.HavingClause)
			if err != nil {
				return nil, err
			}
			inner.Having = h
		}
		return inner, nil

	case *plan.Union:
		return g.buildUnion(v)

	case *plan.WithClause:
		return g.buildProjection(v.Items, v.Distinct, v.WhereClause, v.Input)

	case *plan.Projection:
		return g.buildProjection(v.Items, v.Distinct, nil, v.Input)

	default:
		return nil, cgerrors.ErrUnsupportedQueryType.New("plan root is not a projection/terminal clause")
	}
}

func (g *Generator) buildUnion(u *plan.Union) (*selectStmt, error) {
	if len(u.Inputs) == 0 {
		return nil, cgerrors.ErrInvalidPlan.New("UNION with no branches")
	}
	result, err := g.buildSelect(u.Inputs[0])
	if err != nil {
		return nil, err
	}
	for _, in := range u.Inputs[1:] {
		next, err := g.buildSelect(in)
		if err != nil {
			return nil, err
		}
		result = &selectStmt{union: &unionOf{Left: result, Right: next, Distinct: u.Type == plan.UnionDistinct}}
	}
	return result, nil
}

// buildProjection lowers one Projection/WithClause boundary: the items
// decide the SELECT list (and, when any item is an aggregate call, the
// implicit GROUP BY over every non-aggregate item), where is promoted to
// HAVING when the boundary's own items contain an aggregate (scenario 6,
// spec.md §8) and otherwise left as a plain WHERE over the relational
// input.
func (g *Generator) buildProjection(items []plan.ProjectionItem, distinct bool, where ast.Expression, input plan.Node) (*selectStmt, error) {
	hasAggregate := false
	var groupExprs []ast.Expression
	for _, it := range items {
		if containsAggregate(it.Expr) {
			hasAggregate = true
		} else {
			groupExprs = append(groupExprs, it.Expr)
		}
	}

	frags, err := g.lowerRelation(input)
	if err != nil {
		return nil, err
	}

	if where != nil && !hasAggregate {
		pred, err := g.renderExpr(where)
		if err != nil {
			return nil, err
		}
		for _, f := range frags {
			f.Where = append(f.Where, pred)
		}
	}

	stmt := &selectStmt{Distinct: distinct}
	for _, f := range frags {
		branchItems := make([]branchItem, len(items))
		for i, it := range items {
			s, err := g.renderExpr(it.Expr)
			if err != nil {
				return nil, err
			}
			branchItems[i] = branchItem{Expr: s, Name: it.Alias}
		}
		stmt.Branches = append(stmt.Branches, selectBranch{Items: branchItems, From: f})
	}

	if hasAggregate {
		groupCols := make([]string, len(groupExprs))
		for i, e := range groupExprs {
			s, err := g.renderExpr(e)
			if err != nil {
				return nil, err
			}
			groupCols[i] = s
		}
		stmt.GroupBy = groupCols
		if where != nil {
			having, err := g.renderExpr(where)
			if err != nil {
				return nil, err
			}
			stmt.Having = having
		}
	}

	return stmt, nil
}

func containsAggregate(e ast.Expression) bool {
	if fc, ok := e.(*ast.FunctionCall); ok && fc.IsAggregate {
		return true
	}
	for _, c := range e.Children() {
		if ce, ok := c.(ast.Expression); ok && containsAggregate(ce) {
			return true
		}
	}
	return false
}

func (g *Generator) renderOrderItems(items []ast.OrderItem) ([]string, error) {
	out := make([]string, len(items))
	for i, it := range items {
		s, err := g.renderExpr(it.Expr)
		if err != nil {
			return nil, err
		}
		if it.Descending {
			s += " DESC"
		}
		out[i] = s
	}
	return out, nil
}

// print renders a fully built selectStmt tree into one SQL statement
// string, hoisting every CTE it collected (the variable-length path
// walks) into a single leading WITH [RECURSIVE] clause.
func (g *Generator) print(stmt *selectStmt) (string, error) {
	if stmt.union != nil {
		left, err := g.print(stmt.union.Left)
		if err != nil {
			return "", err
		}
		right, err := g.print(stmt.union.Right)
		if err != nil {
			return "", err
		}
		op := "UNION ALL"
		if stmt.union.Distinct {
			op = "UNION DISTINCT"
		}
		return left + " " + op + " " + right, nil
	}

	if len(stmt.Branches) == 0 {
		return "", cgerrors.ErrInvalidPlan.New("select statement has no branches")
	}

	var ctes []cteDef
	for _, b := range stmt.Branches {
		ctes = append(ctes, b.From.Ctes...)
	}

	branchSQL := make([]string, len(stmt.Branches))
	for i, b := range stmt.Branches {
		branchSQL[i] = g.printBranch(b, stmt)
	}

	var sb strings.Builder
	if len(ctes) > 0 {
		sb.WriteString("WITH ")
		parts := make([]string, len(ctes))
		for i, c := range ctes {
			parts[i] = c.SQL
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(" ")
	}
	sb.WriteString(strings.Join(branchSQL, " UNION ALL "))

	if len(stmt.OrderBy) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(stmt.OrderBy, ", "))
	}
	if stmt.Limit != "" {
		sb.WriteString(" LIMIT " + stmt.Limit)
	}
	if stmt.Skip != "" {
		sb.WriteString(" OFFSET " + stmt.Skip)
	}
	return sb.String(), nil
}

func (g *Generator) printBranch(b selectBranch, stmt *selectStmt) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if stmt.Distinct {
		sb.WriteString("DISTINCT ")
	}
	cols := make([]string, len(b.Items))
	for i, it := range b.Items {
		cols[i] = it.Expr + " AS " + quoteIdent(it.Name)
	}
	sb.WriteString(strings.Join(cols, ", "))

	if b.From.From != "" {
		sb.WriteString(" FROM " + b.From.From)
		for _, j := range b.From.Joins {
			sb.WriteString(" " + j)
		}
	}
	if len(b.From.Where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(b.From.Where, " AND "))
	}
	if len(stmt.GroupBy) > 0 {
		sb.WriteString(" GROUP BY " + strings.Join(stmt.GroupBy, ", "))
	}
	if stmt.Having != "" {
		sb.WriteString(" HAVING " + stmt.Having)
	}
	return sb.String()
}
