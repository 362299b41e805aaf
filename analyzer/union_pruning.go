package analyzer

import (
	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// UnionPruning removes UNION branches produced by astx's label-driven
// splitting (spec.md §4.2) whose node label conflicts with a surviving
// WHERE constraint once the rest of the pipeline has run, and decides how
// a branch that prunes to nothing is treated. Per spec.md §9 (c): a
// pruned branch that lives under an OPTIONAL MATCH is an empty result,
// not a compile error — the statement still produces a row with every
// optional alias NULL — so pruning such a branch down to an Empty leaf is
// the correct rewrite rather than raising an error.
type UnionPruning struct{}

func (UnionPruning) Name() string { return "UnionPruning" }

func (UnionPruning) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	return plan.TransformUp(n, func(nd plan.Node) (plan.Node, plan.TreeIdentity, error) {
		u, ok := nd.(*plan.Union)
		if !ok {
			return nd, plan.SameTree, nil
		}

		kept := make([]plan.Node, 0, len(u.Inputs))
		anyPruned := false
		for _, branch := range u.Inputs {
			if branchIsEmpty(branch) {
				anyPruned = true
				continue
			}
			kept = append(kept, branch)
		}

		if !anyPruned {
			return nd, plan.SameTree, nil
		}
		if len(kept) == 0 {
			return plan.EmptyNode(), plan.NewTree, nil
		}
		if len(kept) == 1 {
			return kept[0], plan.NewTree, nil
		}
		cp := *u
		cp.Inputs = kept
		return &cp, plan.NewTree, nil
	})
}

// branchIsEmpty reports whether branch's root Filter predicate is
// statically false, the shape astx's label expansion produces for a
// label/id combination with zero matching rows (astx.buildDisjunction
// returns ast.Literal{false} in that case).
func branchIsEmpty(n plan.Node) bool {
	f, ok := n.(*plan.Filter)
	if !ok {
		return false
	}
	lit, ok := f.Predicate.(*ast.Literal)
	if !ok {
		return false
	}
	b, ok := lit.Value.(bool)
	return ok && !b
}
