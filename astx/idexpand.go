// Package astx implements the C4 component: the two pre-planning rewrites
// that run over a parsed Query before it reaches the plan builder —
// id() expansion and label-driven statement splitting (spec.md §4.2).
package astx

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
)

// LabelRowIDs is the per-label row-id set decoded out of every id(v)
// predicate found for one variable, deduplicated via a roaring.Bitmap so
// the generated equality disjunction is both free of duplicates and
// enumerated in a stable sorted order (SPEC_FULL.md §4.2).
type LabelRowIDs struct {
	Labels []string // sorted
	Rows   map[string]*roaring.Bitmap
}

func newLabelRowIDs() *LabelRowIDs {
	return &LabelRowIDs{Rows: map[string]*roaring.Bitmap{}}
}

func (l *LabelRowIDs) add(label string, rowID uint64) {
	bm, ok := l.Rows[label]
	if !ok {
		bm = roaring.New()
		l.Rows[label] = bm
		l.Labels = append(l.Labels, label)
		sort.Strings(l.Labels)
	}
	bm.Add(uint32(rowID))
}

// restrictedTo returns a LabelRowIDs holding only label's bitmap, used by
// Split when specializing one branch of a multi-label variable.
func (l *LabelRowIDs) restrictedTo(label string) *LabelRowIDs {
	out := newLabelRowIDs()
	if bm, ok := l.Rows[label]; ok {
		out.Labels = []string{label}
		out.Rows[label] = bm
	}
	return out
}

// idPredicate is one matched `id(v) IN [...]` or `NOT id(v) IN [...]` site.
type idPredicate struct {
	variable string
	negated  bool
	items    []*ast.Literal // a nil entry stands for a non-literal list item, which Analyze rejects
}

// Analyze walks every WHERE expression reachable from q (MATCH/OPTIONAL
// MATCH and WITH clauses) and decodes each id(v) IN [...] predicate via
// schema's id encoding, returning the per-variable label/row-id sets the
// splitting decision in Split is based on. It does not mutate q.
func Analyze(q *ast.Query, schema *catalog.GraphSchema) (map[string]*LabelRowIDs, error) {
	out := map[string]*LabelRowIDs{}
	err := visitWhereExprs(q, func(e ast.Expression) error {
		preds := findIDPredicates(e)
		for _, p := range preds {
			lr, ok := out[p.variable]
			if !ok {
				lr = newLabelRowIDs()
				out[p.variable] = lr
			}
			for _, lit := range p.items {
				if lit == nil {
					return cgerrors.ErrMalformedIDPredicate.New(p.variable)
				}
				id, ok := lit.Value.(int64)
				if !ok {
					return cgerrors.ErrMalformedIDPredicate.New(p.variable)
				}
				label, rowID, err := schema.Decode(id)
				if err != nil {
					return cgerrors.ErrMalformedIDPredicate.New(p.variable)
				}
				lr.add(label, rowID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MultiLabelVars returns the variables in labelsByVar whose decoded ids
// span more than one label, sorted, so callers iterate deterministically.
func MultiLabelVars(labelsByVar map[string]*LabelRowIDs) []string {
	var out []string
	for v, lr := range labelsByVar {
		if len(lr.Labels) > 1 {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Expand rewrites every id(v) IN [...] predicate q's WHERE clauses contain
// into a disjunction of property-equality constraints keyed by each
// (label, row_id) recorded for v in labelsByVar; a variable with no entry
// there, or with no rows, rewrites to the literal false (true under NOT).
// Trivially-true/false forms are simplified away (spec.md §4.2).
func Expand(q *ast.Query, schema *catalog.GraphSchema, labelsByVar map[string]*LabelRowIDs) (*ast.Query, error) {
	return rewriteWhereExprs(q, func(e ast.Expression) (ast.Expression, error) {
		return expandExpr(e, schema, labelsByVar)
	})
}

func expandExpr(e ast.Expression, schema *catalog.GraphSchema, labelsByVar map[string]*LabelRowIDs) (ast.Expression, error) {
	if neg, inner, ok := asNegatedIDIn(e); ok {
		repl, err := buildDisjunction(inner, schema, labelsByVar)
		if err != nil {
			return nil, err
		}
		if neg {
			if lit, ok := repl.(*ast.Literal); ok {
				b, _ := lit.Value.(bool)
				return &ast.Literal{Value: !b, Sp: e.Span()}, nil
			}
			return &ast.UnaryOp{Op: "NOT", Expr: repl, Sp: e.Span()}, nil
		}
		return repl, nil
	}

	children := e.Children()
	if len(children) == 0 {
		return e, nil
	}
	newChildren := make([]ast.Node, len(children))
	changed := false
	for i, c := range children {
		ce, ok := c.(ast.Expression)
		if !ok {
			newChildren[i] = c
			continue
		}
		ne, err := expandExpr(ce, schema, labelsByVar)
		if err != nil {
			return nil, err
		}
		newChildren[i] = ne
		if ne != ce {
			changed = true
		}
	}
	if !changed {
		return e, nil
	}
	rebuilt, err := e.WithChildren(newChildren...)
	if err != nil {
		return nil, err
	}
	return rebuilt.(ast.Expression), nil
}

// asNegatedIDIn recognizes `id(v) IN [...]` and `NOT id(v) IN [...]`.
func asNegatedIDIn(e ast.Expression) (negated bool, inner *ast.BinaryOp, ok bool) {
	if u, isUnary := e.(*ast.UnaryOp); isUnary && u.Op == "NOT" {
		if b, isBin := u.Expr.(*ast.BinaryOp); isBin && isIDInForm(b) {
			return true, b, true
		}
		return false, nil, false
	}
	if b, isBin := e.(*ast.BinaryOp); isBin && isIDInForm(b) {
		return false, b, true
	}
	return false, nil, false
}

func isIDInForm(b *ast.BinaryOp) bool {
	if b.Op != "IN" {
		return false
	}
	fc, ok := b.Left.(*ast.FunctionCall)
	if !ok || fc.Name != "id" || len(fc.Args) != 1 {
		return false
	}
	_, ok = fc.Args[0].(*ast.Variable)
	if !ok {
		return false
	}
	_, ok = b.Right.(*ast.ListLiteral)
	return ok
}

// buildDisjunction rebuilds `id(v) IN [...]` as an OR of per-(label,row_id)
// equality terms, or the boolean literal true/false if the list decoded to
// zero rows for the labels this call is restricted to.
func buildDisjunction(b *ast.BinaryOp, schema *catalog.GraphSchema, labelsByVar map[string]*LabelRowIDs) (ast.Expression, error) {
	fc := b.Left.(*ast.FunctionCall)
	v := fc.Args[0].(*ast.Variable)
	sp := b.Sp

	lr, ok := labelsByVar[v.Name]
	if !ok {
		return &ast.Literal{Value: false, Sp: sp}, nil
	}

	var terms []ast.Expression
	for _, label := range lr.Labels {
		bm := lr.Rows[label]
		nodeSchema, ok := schema.LookupNode(label)
		if !ok {
			continue
		}
		it := bm.Iterator()
		for it.HasNext() {
			rowID := it.Next()
			terms = append(terms, &ast.BinaryOp{
				Op: "=",
				Left: &ast.PropertyAccess{
					Target:   &ast.Variable{Name: v.Name, Sp: sp},
					Property: nodeSchema.NodeIDColumn,
					Sp:       sp,
				},
				Right: &ast.Literal{Value: int64(rowID), Sp: sp},
				Sp:    sp,
			})
		}
	}
	if len(terms) == 0 {
		return &ast.Literal{Value: false, Sp: sp}, nil
	}
	expr := terms[0]
	for _, t := range terms[1:] {
		expr = &ast.BinaryOp{Op: "OR", Left: expr, Right: t, Sp: sp}
	}
	return expr, nil
}

// findIDPredicates collects every id(v) IN [...] / NOT id(v) IN [...] site
// reachable from e, recursing through the generic Children() tree.
func findIDPredicates(e ast.Expression) []idPredicate {
	var out []idPredicate
	var walk func(ast.Expression)
	walk = func(ex ast.Expression) {
		if neg, b, ok := asNegatedIDIn(ex); ok {
			fc := b.Left.(*ast.FunctionCall)
			v := fc.Args[0].(*ast.Variable)
			list := b.Right.(*ast.ListLiteral)
			items := make([]*ast.Literal, 0, len(list.Items))
			for _, it := range list.Items {
				lit, _ := it.(*ast.Literal)
				items = append(items, lit)
			}
			out = append(out, idPredicate{variable: v.Name, negated: neg, items: items})
			return
		}
		for _, c := range ex.Children() {
			if ce, ok := c.(ast.Expression); ok {
				walk(ce)
			}
		}
	}
	walk(e)
	return out
}
