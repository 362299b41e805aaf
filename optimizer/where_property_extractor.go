package optimizer

import (
	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// WherePropertyExtractor pulls `alias.prop = value` equalities out of
// per-alias FilterPredicates (already detached there by Filter Tagging)
// and merges them into the same TableCtx.Properties map an inline pattern
// property map `{prop: value}` populates, so the SQL generator has one
// source of truth for "this alias is equality-constrained on prop"
// regardless of whether the constraint was written inline or in WHERE
// (SPEC_FULL.md §4.5).
type WherePropertyExtractor struct{}

func (WherePropertyExtractor) Name() string { return "WherePropertyExtractor" }

func (WherePropertyExtractor) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	changed := false
	for s := ctx; s != nil; s = s.Parent {
		for _, tc := range s.Aliases {
			if extractEqualities(tc) {
				changed = true
			}
		}
		if s.IsWithScope {
			break
		}
	}
	if changed {
		return n, plan.NewTree, nil
	}
	return n, plan.SameTree, nil
}

func extractEqualities(tc *planctx.TableCtx) bool {
	var remaining []ast.Expression
	changed := false
	for _, pred := range tc.FilterPredicates {
		prop, value, ok := equalityOn(pred, tc.Alias)
		if !ok {
			remaining = append(remaining, pred)
			continue
		}
		if _, exists := tc.Properties[prop]; exists {
			remaining = append(remaining, pred)
			continue
		}
		tc.Properties[prop] = value
		changed = true
	}
	if changed {
		tc.FilterPredicates = remaining
	}
	return changed
}

// equalityOn reports the (property, value) pair if pred is
// `alias.prop = value` or `value = alias.prop`, with value a Literal or
// Parameter (never another property access — that can't be folded into a
// single bound-value equality).
func equalityOn(pred ast.Expression, alias string) (string, ast.Expression, bool) {
	b, ok := pred.(*ast.BinaryOp)
	if !ok || b.Op != "=" {
		return "", nil, false
	}
	if prop, ok := propertyOf(b.Left, alias); ok && isBoundValue(b.Right) {
		return prop, b.Right, true
	}
	if prop, ok := propertyOf(b.Right, alias); ok && isBoundValue(b.Left) {
		return prop, b.Left, true
	}
	return "", nil, false
}

func propertyOf(e ast.Expression, alias string) (string, bool) {
	pa, ok := e.(*ast.PropertyAccess)
	if !ok {
		return "", false
	}
	v, ok := pa.Target.(*ast.Variable)
	if !ok || v.Name != alias {
		return "", false
	}
	return pa.Property, true
}

func isBoundValue(e ast.Expression) bool {
	switch e.(type) {
	case *ast.Literal, *ast.Parameter:
		return true
	default:
		return false
	}
}
