// Package planbuilder implements the C6 component: a direct walk of the
// AST into an initial logical plan (LP₀), populating planctx.PlanCtx as
// it goes (spec.md §4.3).
package planbuilder

import (
	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

var aggregateNames = map[string]bool{"count": true, "min": true, "max": true, "avg": true, "sum": true}

// Build walks q producing LP₀ and populating ctx, per spec.md §4.3.
func Build(q *ast.Query, ctx *planctx.PlanCtx) (plan.Node, error) {
	b := &builder{ctx: ctx}
	return b.buildQuery(q)
}

type builder struct {
	ctx *planctx.PlanCtx
}

func (b *builder) buildQuery(q *ast.Query) (plan.Node, error) {
	var result plan.Node
	for _, m := range q.Reading {
		sub, err := b.buildMatch(m)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = sub
			continue
		}
		result = plan.NewCartesianProduct(result, sub, m.Optional, nil)
	}
	if result == nil {
		result = plan.EmptyNode()
	}

	for _, u := range q.Unwind {
		tc := b.ctx.Bind(u.Alias, false)
		tc.ExplicitAlias = true
		result = plan.NewUnwind(result, u.Expr, u.Alias)
	}

	for _, w := range q.With {
		result = b.buildWith(result, w)
		b.ctx = b.ctx.Child(true)
	}

	if q.Return != nil {
		result = b.buildReturn(result, q.Return)
	}

	for _, u := range q.Unions {
		childBuilder := &builder{ctx: planctx.NewPlanCtx(b.ctx.TenantID)}
		branch, err := childBuilder.buildQuery(u.Query)
		if err != nil {
			return nil, err
		}
		typ := plan.UnionAll
		if !u.All {
			typ = plan.UnionDistinct
		}
		result = plan.NewUnion([]plan.Node{result, branch}, typ)
	}

	return result, nil
}

// buildMatch builds the plan for one MATCH/OPTIONAL MATCH clause. Every
// comma-separated pattern after the first must share an alias with
// something already bound in this clause; otherwise DisconnectedPatternFound
// is raised (spec.md §4.3).
func (b *builder) buildMatch(m ast.MatchClause) (plan.Node, error) {
	var result plan.Node
	clauseAliases := map[string]bool{}

	for _, p := range m.Patterns {
		sub, aliases, err := b.buildPattern(p)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = sub
			for a := range aliases {
				clauseAliases[a] = true
			}
			continue
		}
		shared := false
		for a := range aliases {
			if clauseAliases[a] {
				shared = true
				break
			}
		}
		if !shared {
			return nil, cgerrors.ErrDisconnectedPatternFound.New(patternLabel(p))
		}
		result = plan.NewCartesianProduct(result, sub, m.Optional, nil)
		for a := range aliases {
			clauseAliases[a] = true
		}
	}

	if result == nil {
		result = plan.EmptyNode()
	}

	if m.Optional {
		for a := range clauseAliases {
			b.ctx.MarkOptional(a)
		}
	}

	if m.Where != nil {
		result = plan.NewFilter(m.Where, result)
	}

	return result, nil
}

func patternLabel(p ast.PathPattern) string {
	switch v := p.(type) {
	case *ast.SingleNodePattern:
		return v.Node.Name
	case *ast.ConnectedPattern:
		if len(v.Nodes) > 0 {
			return v.Nodes[0].Name
		}
	}
	return ""
}

// buildPattern builds one comma-separated path pattern, chaining
// GraphRel/GraphNode constructors per hop (spec.md §4.3): the first node
// of a component seeds a new GraphNode, each subsequent relationship
// attaches by identifying which endpoint is already bound.
func (b *builder) buildPattern(p ast.PathPattern) (plan.Node, map[string]bool, error) {
	switch v := p.(type) {
	case *ast.SingleNodePattern:
		n, err := b.buildNode(v.Node)
		if err != nil {
			return nil, nil, err
		}
		return n, map[string]bool{v.Node.Name: true}, nil
	case *ast.ConnectedPattern:
		return b.buildConnected(v)
	case *ast.ShortestPath:
		inner, aliases, err := b.buildPattern(v.Inner)
		if err != nil {
			return nil, nil, err
		}
		return markShortestPathMode(inner, plan.ShortestPathSingle), aliases, nil
	case *ast.AllShortestPaths:
		inner, aliases, err := b.buildPattern(v.Inner)
		if err != nil {
			return nil, nil, err
		}
		return markShortestPathMode(inner, plan.ShortestPathAll), aliases, nil
	default:
		return nil, nil, cgerrors.ErrEmptyNode.New()
	}
}

func (b *builder) buildNode(np *ast.NodePattern) (plan.Node, error) {
	alias := np.Name
	tc := b.ctx.Bind(alias, false)
	tc.ExplicitAlias = alias != ""
	tc.Labels = np.Labels
	if err := b.bufferProperties(tc, np.Properties); err != nil {
		return nil, err
	}

	label := ""
	if len(np.Labels) > 0 {
		label = np.Labels[0]
	}
	n := plan.NewGraphNode(plan.EmptyNode(), alias, label)
	return n, nil
}

// bufferProperties buffers {k: literal} map entries on tc for later
// materialization as equality filters; {k: $param} raises
// FoundParamInProperties (spec.md §4.3).
func (b *builder) bufferProperties(tc *planctx.TableCtx, props *ast.MapLiteral) error {
	if props == nil {
		return nil
	}
	for _, e := range props.Entries {
		if _, isParam := e.Value.(*ast.Parameter); isParam {
			return cgerrors.ErrFoundParamInProperties.New(e.Key)
		}
		tc.Properties[e.Key] = e.Value
	}
	return nil
}

func (b *builder) buildConnected(c *ast.ConnectedPattern) (plan.Node, map[string]bool, error) {
	nodes := make([]plan.Node, len(c.Nodes))
	aliases := map[string]bool{}
	for i, np := range c.Nodes {
		n, err := b.buildNode(np)
		if err != nil {
			return nil, nil, err
		}
		nodes[i] = n
		if np.Name != "" {
			aliases[np.Name] = true
		}
	}

	// current[i] is whatever sub-plan currently stands in for node index
	// i: the bare GraphNode until a hop folds it in, after which it's the
	// GraphRel chain built so far. Each new hop attaches to that running
	// sub-plan rather than the bare endpoint, so a chain of more than one
	// hop keeps every earlier hop in the tree (spec.md §4.3: "identify
	// which endpoint is already connected and attach the new endpoint on
	// the opposite side, chaining the running plan").
	current := make([]plan.Node, len(nodes))
	copy(current, nodes)

	var result plan.Node = nodes[0]
	for _, hop := range c.Hops {
		left := current[hop.Start]
		right := current[hop.End]
		leftAlias := c.Nodes[hop.Start].Name
		rightAlias := c.Nodes[hop.End].Name

		// Direction invariant: left_connection is always FROM, right
		// is always TO regardless of how the pattern was written
		// (spec.md §3.3). Incoming syntax swaps which written node
		// supplies FROM vs TO.
		fromAlias, toAlias := leftAlias, rightAlias
		fromNode, toNode := left, right
		if hop.Rel.Direction == ast.DirIncoming {
			fromAlias, toAlias = rightAlias, leftAlias
			fromNode, toNode = right, left
		}

		rel := plan.NewGraphRel(fromNode, toNode, hop.Rel.Name, hop.Rel.Direction, fromAlias, toAlias)
		rel.Labels = hop.Rel.Types
		rel.VariableLength = hop.Rel.VariableLength
		rel.WasUndirected = hop.Rel.Direction == ast.DirEither

		if hop.Rel.Name != "" {
			tc := b.ctx.Bind(hop.Rel.Name, true)
			tc.ExplicitAlias = true
			aliases[hop.Rel.Name] = true
		}

		current[hop.Start] = rel
		current[hop.End] = rel
		result = rel
	}
	return result, aliases, nil
}

// buildWith turns a WITH clause into a WithClause plan node and installs
// an is_with_scope=true child PlanCtx for everything below it, so
// variables introduced after WITH shadow cleanly (spec.md §4.3).
func (b *builder) buildWith(input plan.Node, w ast.WithClause) plan.Node {
	items := make([]plan.ProjectionItem, len(w.Items))
	exported := make([]string, len(w.Items))
	for i, it := range w.Items {
		items[i] = plan.ProjectionItem{Expr: it.Expr, Alias: it.Name()}
		exported[i] = it.Name()
		b.ctx.ProjectionAliases[it.Name()] = it.Expr
	}
	return plan.NewWithClause(input, items, w.Distinct, w.Where, w.OrderBy, w.Skip, w.Limit, exported)
}

func (b *builder) buildReturn(input plan.Node, r *ast.ReturnClause) plan.Node {
	items := make([]plan.ProjectionItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = plan.ProjectionItem{Expr: it.Expr, Alias: it.Name()}
		if isAggregateItem(it.Expr) {
			b.ctx.ProjectionAliases[it.Name()] = it.Expr
		}
	}
	out := plan.Node(plan.NewProjection(input, items, r.Distinct, plan.ProjectionReturn))
	if len(r.OrderBy) > 0 {
		out = plan.NewOrderBy(out, r.OrderBy)
	}
	if r.Skip != nil {
		out = plan.NewSkip(out, r.Skip)
	}
	if r.Limit != nil {
		out = plan.NewLimit(out, r.Limit)
	}
	return out
}

// markShortestPathMode tags every GraphRel in n's tree with mode: a
// shortestPath()/allShortestPaths() wrapper applies to every hop of the
// pattern it wraps, not just the outermost one.
func markShortestPathMode(n plan.Node, mode plan.ShortestPathMode) plan.Node {
	out, _, _ := plan.TransformUp(n, func(nd plan.Node) (plan.Node, plan.TreeIdentity, error) {
		rel, ok := nd.(*plan.GraphRel)
		if !ok {
			return nd, plan.SameTree, nil
		}
		cp := *rel
		cp.ShortestPathMode = mode
		return &cp, plan.NewTree, nil
	})
	return out
}

// isAggregateItem reports whether expr is itself an aggregate function
// call, detected by name per spec.md §4.3; an aggregate nested inside a
// larger expression is not detected.
func isAggregateItem(expr ast.Expression) bool {
	fc, ok := expr.(*ast.FunctionCall)
	if !ok {
		return false
	}
	return fc.IsAggregate || aggregateNames[fc.Name]
}
