package analyzer

import (
	"sort"

	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// GraphJoinConstruction finds node aliases that are the shared endpoint of
// two otherwise-independent GraphRel patterns — e.g. `(a)-[r1]->(b),
// (c)-[r2]->(b)` where b is reached by two separate hops that are not a
// sequential chain like `(a)-[r1]->(b)-[r2]->(c)` — and records the join
// keys an explicit GraphJoins node must enforce (spec.md §4.4 step 5).
// A sequential chain already shares its physical node sub-plan (the
// builder reuses the same GraphNode across hops) and needs no join key
// here; only two independently-built GraphNode instances bound to the
// same alias need to be equated after the fact.
type GraphJoinConstruction struct{}

func (GraphJoinConstruction) Name() string { return "GraphJoinConstruction" }

func (GraphJoinConstruction) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	occurrences := map[string][]*plan.GraphNode{}
	collectGraphNodeOccurrences(n, occurrences)

	distinct := map[string][]*plan.GraphNode{}
	for alias, occ := range occurrences {
		distinct[alias] = distinctGraphNodes(occ)
	}

	var sharedAliases []string
	for alias, occ := range distinct {
		if len(occ) > 1 {
			sharedAliases = append(sharedAliases, alias)
		}
	}
	if len(sharedAliases) == 0 {
		return n, plan.SameTree, nil
	}
	sort.Strings(sharedAliases)

	var keys []plan.JoinKey
	var optional []string
	for _, alias := range sharedAliases {
		tc, ok := ctx.Lookup(alias)
		if !ok || len(tc.Labels) == 0 {
			continue
		}
		nodeSchema, ok := schema.LookupNode(tc.Labels[0])
		if !ok {
			continue
		}
		// Every distinct GraphNode instance bound to alias shares one
		// SQL-level name; the SQL generator disambiguates each branch's
		// physical scan and equates them pairwise on the node's identity
		// column. A sequential chain revisits the *same* instance from
		// two tree positions and must not count twice here.
		occurrenceCount := len(distinct[alias])
		for i := 0; i < occurrenceCount-1; i++ {
			keys = append(keys, plan.JoinKey{
				LeftAlias:   alias,
				LeftColumn:  nodeSchema.NodeIDColumn,
				RightAlias:  alias,
				RightColumn: nodeSchema.NodeIDColumn,
			})
		}
		if ctx.IsOptional(alias) {
			optional = append(optional, alias)
		}
	}
	if len(keys) == 0 {
		return n, plan.SameTree, nil
	}

	out := plan.NewGraphJoins(n, keys, optional, "")
	return out, plan.NewTree, nil
}

func collectGraphNodeOccurrences(n plan.Node, occ map[string][]*plan.GraphNode) {
	if gn, ok := n.(*plan.GraphNode); ok && gn.Alias != "" {
		occ[gn.Alias] = append(occ[gn.Alias], gn)
	}
	for _, c := range n.Children() {
		collectGraphNodeOccurrences(c, occ)
	}
}

// distinctGraphNodes collapses repeat visits to the same *GraphNode
// instance (a sequential chain reaches its shared middle node from two
// tree positions) down to the distinct instances bound to the alias —
// only the latter indicates two independently-built patterns that need
// an explicit join key.
func distinctGraphNodes(occ []*plan.GraphNode) []*plan.GraphNode {
	seen := map[*plan.GraphNode]bool{}
	out := make([]*plan.GraphNode, 0, len(occ))
	for _, gn := range occ {
		if seen[gn] {
			continue
		}
		seen[gn] = true
		out = append(out, gn)
	}
	return out
}
