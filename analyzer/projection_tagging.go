package analyzer

import (
	"sort"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// ProjectionTagging determines, for every bound alias, which of its
// properties are actually needed downstream — by a Filter, a Projection
// item, an ORDER BY, a GROUP BY, or a join key — and records them on
// TableCtx.ProjectionItems (spec.md §4.4 step 4), so the SQL generator can
// select only the columns a query actually uses instead of every mapped
// property.
type ProjectionTagging struct{}

func (ProjectionTagging) Name() string { return "ProjectionTagging" }

func (ProjectionTagging) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	before := snapshotProjectionItems(ctx)

	_, _, err := plan.TransformUp(n, func(nd plan.Node) (plan.Node, plan.TreeIdentity, error) {
		switch v := nd.(type) {
		case *plan.Filter:
			collectProperties(v.Predicate, ctx)
		case *plan.Projection:
			for _, it := range v.Items {
				collectProperties(it.Expr, ctx)
			}
		case *plan.GroupBy:
			for _, e := range v.Expressions {
				collectProperties(e, ctx)
			}
			if v.HavingClause != nil {
				collectProperties(v.HavingClause, ctx)
			}
		case *plan.OrderBy:
			for _, it := range v.Items {
				collectProperties(it.Expr, ctx)
			}
		case *plan.WithClause:
			for _, it := range v.Items {
				collectProperties(it.Expr, ctx)
			}
			if v.WhereClause != nil {
				collectProperties(v.WhereClause, ctx)
			}
			for _, it := range v.OrderBy {
				collectProperties(it.Expr, ctx)
			}
		case *plan.GraphJoins:
			for _, jk := range v.Joins {
				addProjectionItem(ctx, jk.LeftAlias, jk.LeftColumn)
				addProjectionItem(ctx, jk.RightAlias, jk.RightColumn)
			}
		}
		return nd, plan.SameTree, nil
	})
	if err != nil {
		return nil, plan.SameTree, err
	}

	if projectionItemsEqual(before, snapshotProjectionItems(ctx)) {
		return n, plan.SameTree, nil
	}
	return n, plan.NewTree, nil
}

func collectProperties(e ast.Expression, ctx *planctx.PlanCtx) {
	if e == nil {
		return
	}
	if pa, ok := e.(*ast.PropertyAccess); ok {
		if vr, ok := pa.Target.(*ast.Variable); ok {
			addProjectionItem(ctx, vr.Name, pa.Property)
			return
		}
	}
	for _, c := range e.Children() {
		if ce, ok := c.(ast.Expression); ok {
			collectProperties(ce, ctx)
		}
	}
}

func addProjectionItem(ctx *planctx.PlanCtx, alias, column string) {
	if alias == "" || column == "" {
		return
	}
	tc, ok := ctx.Lookup(alias)
	if !ok {
		return
	}
	for _, existing := range tc.ProjectionItems {
		if existing == column {
			return
		}
	}
	tc.ProjectionItems = append(tc.ProjectionItems, column)
}

// snapshotProjectionItems captures the current ProjectionItems of every
// bound alias so Apply can report TreeIdentity accurately: this pass never
// changes the plan tree's shape, only the side-table, so its fixpoint
// signal has to come from whether that side-table grew.
func snapshotProjectionItems(ctx *planctx.PlanCtx) map[string][]string {
	out := map[string][]string{}
	for s := ctx; s != nil; s = s.Parent {
		for alias, tc := range s.Aliases {
			cp := make([]string, len(tc.ProjectionItems))
			copy(cp, tc.ProjectionItems)
			sort.Strings(cp)
			out[alias] = cp
		}
		if s.IsWithScope {
			break
		}
	}
	return out
}

func projectionItemsEqual(a, b map[string][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for alias, av := range a {
		bv, ok := b[alias]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}
