package optimizer

import (
	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// FilterPushDown moves a Filter sitting above a CartesianProduct down onto
// whichever branch alone supplies every alias the predicate references,
// shrinking the cartesian side that reaches the join instead of filtering
// after the fact. A predicate is never pushed across an optional branch:
// that would silently turn a row-preserving OPTIONAL MATCH into an inner
// join (SPEC_FULL.md §4.5).
type FilterPushDown struct{}

func (FilterPushDown) Name() string { return "FilterPushDown" }

func (FilterPushDown) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	return plan.TransformUp(n, func(nd plan.Node) (plan.Node, plan.TreeIdentity, error) {
		f, ok := nd.(*plan.Filter)
		if !ok {
			return nd, plan.SameTree, nil
		}
		cp, ok := f.Input.(*plan.CartesianProduct)
		if !ok || cp.IsOptional {
			return nd, plan.SameTree, nil
		}

		refs := referencedAliases(f.Predicate)
		if len(refs) == 0 {
			return nd, plan.SameTree, nil
		}

		if subsetOf(refs, aliasesInSubtree(cp.Left)) {
			newCP := plan.NewCartesianProduct(plan.NewFilter(f.Predicate, cp.Left), cp.Right, cp.IsOptional, cp.JoinCondition)
			return newCP, plan.NewTree, nil
		}
		if subsetOf(refs, aliasesInSubtree(cp.Right)) {
			newCP := plan.NewCartesianProduct(cp.Left, plan.NewFilter(f.Predicate, cp.Right), cp.IsOptional, cp.JoinCondition)
			return newCP, plan.NewTree, nil
		}
		return nd, plan.SameTree, nil
	})
}

// referencedAliases collects every bound-variable name expr's tree touches,
// through Variable nodes and PropertyAccess targets.
func referencedAliases(expr ast.Expression) map[string]bool {
	out := map[string]bool{}
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Variable:
			out[v.Name] = true
		case *ast.PropertyAccess:
			walk(v.Target)
		default:
			for _, c := range n.Children() {
				walk(c)
			}
		}
	}
	walk(expr)
	return out
}

// aliasesInSubtree collects every GraphNode/GraphRel alias reachable from
// n, the set of names a branch of a CartesianProduct actually supplies.
func aliasesInSubtree(n plan.Node) map[string]bool {
	out := map[string]bool{}
	var walk func(plan.Node)
	walk = func(nd plan.Node) {
		switch v := nd.(type) {
		case *plan.GraphNode:
			if v.Alias != "" {
				out[v.Alias] = true
			}
		case *plan.GraphRel:
			if v.Alias != "" {
				out[v.Alias] = true
			}
		}
		for _, c := range nd.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}

func subsetOf(a, b map[string]bool) bool {
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
