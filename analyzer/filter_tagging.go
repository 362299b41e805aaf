package analyzer

import (
	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// FilterTagging walks every Filter's predicate, splitting it on its
// top-level AND conjuncts. A conjunct referencing exactly one table alias
// and no aggregate is detached onto that alias's TableCtx.FilterPredicates
// (spec.md §4.4 step 3); everything else — OR-chains whose leaves span more
// than one alias, predicates referencing an aggregate, or predicates
// referencing only projection aliases — stays behind as a residual Filter.
// This pass is run to a fixpoint: repeated passes over an already-tagged
// Filter detach nothing further and report TreeIdentity == SameTree, the
// idempotence property spec.md §8 requires of every rewriting pass.
type FilterTagging struct{}

// aggregateNames mirrors planbuilder's own table: aggregates are detected
// by function name (spec.md §4.3), and both packages need to recognize
// them without importing one another.
var aggregateNames = map[string]bool{"count": true, "min": true, "max": true, "avg": true, "sum": true}

func (FilterTagging) Name() string { return "FilterTagging" }

func (FilterTagging) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	changed := false

	out, same, err := plan.TransformUp(n, func(nd plan.Node) (plan.Node, plan.TreeIdentity, error) {
		f, ok := nd.(*plan.Filter)
		if !ok {
			return nd, plan.SameTree, nil
		}

		conjuncts := splitConjuncts(f.Predicate)
		var residual []ast.Expression
		for _, c := range conjuncts {
			alias, ok := singleAliasConjunct(c, ctx)
			if !ok {
				residual = append(residual, c)
				continue
			}
			tc, ok := ctx.Lookup(alias)
			if !ok {
				residual = append(residual, c)
				continue
			}
			tc.FilterPredicates = append(tc.FilterPredicates, c)
			changed = true
		}

		if len(residual) == len(conjuncts) {
			return nd, plan.SameTree, nil
		}
		if len(residual) == 0 {
			return f.Input, plan.NewTree, nil
		}
		cp := *f
		cp.Predicate = joinConjuncts(residual)
		return &cp, plan.NewTree, nil
	})
	if err != nil {
		return nil, plan.SameTree, err
	}
	if changed {
		return out, plan.NewTree, nil
	}
	return out, same, nil
}

// splitConjuncts flattens a top-level AND-chain into its leaves, left to
// right. A non-AND expression is returned as its own single-element slice.
func splitConjuncts(e ast.Expression) []ast.Expression {
	b, ok := e.(*ast.BinaryOp)
	if !ok || b.Op != "AND" {
		return []ast.Expression{e}
	}
	return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
}

// joinConjuncts rebuilds a left-associative AND-chain from conjuncts,
// which must be non-empty.
func joinConjuncts(conjuncts []ast.Expression) ast.Expression {
	out := conjuncts[0]
	for _, c := range conjuncts[1:] {
		out = &ast.BinaryOp{Op: "AND", Left: out, Right: c, Sp: out.Span()}
	}
	return out
}

// singleAliasConjunct reports the one table alias expr refers to, and
// false if expr references zero, more than one alias, or an aggregate
// function (aggregate arguments are never decomposed further per
// spec.md §4.4 step 3).
func singleAliasConjunct(expr ast.Expression, ctx *planctx.PlanCtx) (string, bool) {
	aliases := map[string]bool{}
	sawAggregate := false
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Variable:
			if _, ok := ctx.Lookup(v.Name); ok {
				aliases[v.Name] = true
			}
		case *ast.PropertyAccess:
			if vr, ok := v.Target.(*ast.Variable); ok {
				if _, ok := ctx.Lookup(vr.Name); ok {
					aliases[vr.Name] = true
				}
			} else {
				walk(v.Target)
			}
		case *ast.FunctionCall:
			if v.IsAggregate || aggregateNames[v.Name] {
				sawAggregate = true
			}
			for _, c := range v.Children() {
				walk(c)
			}
		default:
			for _, c := range n.Children() {
				walk(c)
			}
		}
	}
	walk(expr)
	if sawAggregate || len(aliases) != 1 {
		return "", false
	}
	for a := range aliases {
		return a, true
	}
	return "", false
}
