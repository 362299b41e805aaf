package astx

import (
	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
)

// Transform is C4's single entry point: it decodes every id() predicate in
// q, and — when the decoded ids show a variable spanning more than one
// node label — clones q once per label, pushes the label into that
// variable's node pattern, restricts its id() predicate to that label's
// rows, and combines the clones with UNION ALL (spec.md §4.2).
func Transform(q *ast.Query, schema *catalog.GraphSchema) (*ast.Query, error) {
	labelsByVar, err := Analyze(q, schema)
	if err != nil {
		return nil, err
	}
	multi := MultiLabelVars(labelsByVar)
	if len(multi) == 0 {
		return Expand(q, schema, labelsByVar)
	}
	return splitAndExpand(q, schema, labelsByVar, multi)
}

func splitAndExpand(q *ast.Query, schema *catalog.GraphSchema, labelsByVar map[string]*LabelRowIDs, multi []string) (*ast.Query, error) {
	combos := cartesianLabels(multi, labelsByVar)

	branches := make([]*ast.Query, 0, len(combos))
	for _, combo := range combos {
		clone := cloneQuery(q)
		effective := make(map[string]*LabelRowIDs, len(labelsByVar))
		for v, lr := range labelsByVar {
			effective[v] = lr
		}
		for i, v := range multi {
			label := combo[i]
			effective[v] = labelsByVar[v].restrictedTo(label)
			pushNodeLabel(clone, v, label)
		}
		expanded, err := Expand(clone, schema, effective)
		if err != nil {
			return nil, err
		}
		branches = append(branches, expanded)
	}

	head := branches[0]
	for _, b := range branches[1:] {
		head.Unions = append(head.Unions, ast.UnionClause{All: true, Query: b})
	}
	return head, nil
}

// cartesianLabels enumerates every combination of one label choice per
// variable in vars, in the order vars lists them.
func cartesianLabels(vars []string, labelsByVar map[string]*LabelRowIDs) [][]string {
	if len(vars) == 0 {
		return [][]string{{}}
	}
	rest := cartesianLabels(vars[1:], labelsByVar)
	labels := labelsByVar[vars[0]].Labels
	out := make([][]string, 0, len(labels)*len(rest))
	for _, l := range labels {
		for _, r := range rest {
			combo := append([]string{l}, r...)
			out = append(out, combo)
		}
	}
	return out
}

// pushNodeLabel sets variable's node pattern label to exactly [label] in
// every pattern of q's MATCH/OPTIONAL MATCH and CREATE clauses.
func pushNodeLabel(q *ast.Query, variable, label string) {
	for i := range q.Reading {
		patterns := make([]ast.PathPattern, len(q.Reading[i].Patterns))
		for j, p := range q.Reading[i].Patterns {
			patterns[j] = mapNodePatterns(p, variable, label)
		}
		q.Reading[i].Patterns = patterns
	}
	for i := range q.Create {
		patterns := make([]ast.PathPattern, len(q.Create[i].Patterns))
		for j, p := range q.Create[i].Patterns {
			patterns[j] = mapNodePatterns(p, variable, label)
		}
		q.Create[i].Patterns = patterns
	}
}

func mapNodePatterns(p ast.PathPattern, variable, label string) ast.PathPattern {
	switch v := p.(type) {
	case *ast.SingleNodePattern:
		return &ast.SingleNodePattern{Node: relabelNode(v.Node, variable, label)}
	case *ast.ConnectedPattern:
		nodes := make([]*ast.NodePattern, len(v.Nodes))
		for i, n := range v.Nodes {
			nodes[i] = relabelNode(n, variable, label)
		}
		return &ast.ConnectedPattern{Nodes: nodes, Hops: v.Hops}
	case *ast.ShortestPath:
		return &ast.ShortestPath{Inner: mapNodePatterns(v.Inner, variable, label)}
	case *ast.AllShortestPaths:
		return &ast.AllShortestPaths{Inner: mapNodePatterns(v.Inner, variable, label)}
	default:
		return p
	}
}

func relabelNode(n *ast.NodePattern, variable, label string) *ast.NodePattern {
	if n.Name != variable {
		return n
	}
	cp := *n
	cp.Labels = []string{label}
	return &cp
}

// cloneQuery makes a shallow-per-field copy of q deep enough that
// rewriting one branch's WHERE/node patterns never mutates another
// branch or the original query. Expression/pattern leaves themselves are
// treated as immutable and shared until a rewrite produces a new one.
func cloneQuery(q *ast.Query) *ast.Query {
	cp := *q

	cp.Reading = make([]ast.MatchClause, len(q.Reading))
	for i, m := range q.Reading {
		cp.Reading[i] = ast.MatchClause{
			Optional: m.Optional,
			Patterns: append([]ast.PathPattern{}, m.Patterns...),
			Where:    m.Where,
		}
	}

	cp.Create = make([]ast.CreateClause, len(q.Create))
	for i, c := range q.Create {
		cp.Create[i] = ast.CreateClause{Patterns: append([]ast.PathPattern{}, c.Patterns...)}
	}

	cp.With = append([]ast.WithClause{}, q.With...)
	cp.Unwind = append([]ast.UnwindClause{}, q.Unwind...)
	cp.Set = append([]ast.SetItem{}, q.Set...)
	cp.Unions = nil // branches never carry their own nested unions here

	return &cp
}
