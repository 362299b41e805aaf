package optimizer

import (
	"sort"

	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// ProjectionPushDown carries the required-column set Projection Tagging
// computed on each alias's TableCtx down onto the GraphNode itself, so the
// SQL generator can select only the columns a query actually needs
// (SPEC_FULL.md §4.5). It changes no plan shape, only GraphNode.
// ProjectedColumns, reporting TreeIdentity based on whether that field
// actually changed.
type ProjectionPushDown struct{}

func (ProjectionPushDown) Name() string { return "ProjectionPushDown" }

func (ProjectionPushDown) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	return plan.TransformUp(n, func(nd plan.Node) (plan.Node, plan.TreeIdentity, error) {
		gn, ok := nd.(*plan.GraphNode)
		if !ok || gn.Alias == "" {
			return nd, plan.SameTree, nil
		}
		tc, ok := ctx.Lookup(gn.Alias)
		if !ok || len(tc.ProjectionItems) == 0 {
			return nd, plan.SameTree, nil
		}
		want := make([]string, len(tc.ProjectionItems))
		copy(want, tc.ProjectionItems)
		sort.Strings(want)

		if stringsEqual(gn.ProjectedColumns, want) {
			return nd, plan.SameTree, nil
		}
		cp := *gn
		cp.ProjectedColumns = want
		return &cp, plan.NewTree, nil
	})
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
