package analyzer

import (
	"sort"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// UnifiedTypeInference resolves every GraphRel's concrete (from_label,
// rel_type, to_label) combinations against the catalog in one query per
// relationship, rather than inferring each endpoint independently
// (spec.md §9: "do not infer endpoints independently or valid combinations
// will leak"). A GraphRel with no explicit type is checked against every
// registered relationship type.
//
// When more than one combination survives, the choice is not lowered into
// a plan-level UNION: unlike id() label multiplicity (astx, which must
// reach into physically distinct node tables), a relationship row already
// carries its own type/from-label/to-label discriminator columns in one
// physical table, so the remaining ambiguity is carried forward as
// PatternCombinations metadata and resolved by the SQL generator as a
// disjunctive filter over those discriminator columns.
type UnifiedTypeInference struct {
	MaxInferredTypes int
	MaxCombinations  int
}

func (UnifiedTypeInference) Name() string { return "UnifiedTypeInference" }

func (u UnifiedTypeInference) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	maxPerRel := u.MaxInferredTypes
	if maxPerRel <= 0 {
		maxPerRel = 5
	}

	totalCombinations := 0
	var firstErr error

	out, same, err := plan.TransformUp(n, func(nd plan.Node) (plan.Node, plan.TreeIdentity, error) {
		if firstErr != nil {
			return nd, plan.SameTree, nil
		}
		rel, ok := nd.(*plan.GraphRel)
		if !ok {
			return nd, plan.SameTree, nil
		}

		leftLabels := sideLabels(rel.Left, ctx, rel.LeftConnection)
		rightLabels := sideLabels(rel.Right, ctx, rel.RightConnection)

		types := rel.Labels
		if len(types) == 0 {
			types = schema.AllRelationshipTypes()
		}

		var combos []planctx.TypeCombination
		for _, t := range types {
			for _, rs := range schema.RelationshipsOfType(t) {
				combos = append(combos, matchCombos(rs, t, leftLabels, rightLabels, rel.WasUndirected)...)
			}
		}
		sortCombinations(combos)

		if len(combos) == 0 {
			firstErr = cgerrors.ErrInvalidPlan.New("no registered relationship type connects the endpoints of " + rel.Alias)
			return nd, plan.SameTree, nil
		}
		if len(combos) > maxPerRel {
			firstErr = cgerrors.ErrTooManyInferredTypes.New(rel.Alias, len(combos), maxPerRel)
			return nd, plan.SameTree, nil
		}
		totalCombinations += len(combos)
		if u.MaxCombinations > 0 && totalCombinations > u.MaxCombinations {
			firstErr = cgerrors.ErrTooManyInferredTypes.New("query", totalCombinations, u.MaxCombinations)
			return nd, plan.SameTree, nil
		}

		cp := *rel
		cp.PatternCombinations = combos

		typeSet := map[string]bool{}
		for _, c := range combos {
			typeSet[c.RelType] = true
		}
		relTypes := make([]string, 0, len(typeSet))
		for t := range typeSet {
			relTypes = append(relTypes, t)
		}
		sort.Strings(relTypes)
		cp.Labels = relTypes

		if len(combos) == 1 && rel.WasUndirected {
			c := combos[0]
			fwd := labelMatches(leftLabels, c.FromLabel) && labelMatches(rightLabels, c.ToLabel)
			rev := labelMatches(rightLabels, c.FromLabel) && labelMatches(leftLabels, c.ToLabel)
			if rev && !fwd {
				cp.LeftConnection, cp.RightConnection = rel.RightConnection, rel.LeftConnection
				cp.Left, cp.Right = rel.Right, rel.Left
			}
			// Only one orientation fits: fold to a directed Left->Right rel.
			// When both fit, Direction stays Either and both are emitted.
			if fwd != rev {
				cp.Direction = ast.DirOutgoing
			}
			cp.WasUndirected = false
		}

		return &cp, plan.NewTree, nil
	})

	if firstErr != nil {
		return n, plan.SameTree, firstErr
	}
	if err != nil {
		return nil, plan.SameTree, err
	}
	return out, same, nil
}

// sideLabels returns the statically known label set for one endpoint of a
// GraphRel: the GraphNode's own Label if resolved, else whatever labels
// were written on the pattern and recorded in the bound TableCtx. A nil
// result means "unconstrained", matching any registered label.
func sideLabels(n plan.Node, ctx *planctx.PlanCtx, alias string) []string {
	if gn, ok := n.(*plan.GraphNode); ok && gn.Label != "" {
		return []string{gn.Label}
	}
	if tc, ok := ctx.Lookup(alias); ok && len(tc.Labels) > 0 {
		return tc.Labels
	}
	return nil
}

func labelMatches(candidates []string, want string) bool {
	if len(candidates) == 0 || want == catalog.RelEndpointAny {
		return true
	}
	for _, c := range candidates {
		if c == want {
			return true
		}
	}
	return false
}

// matchCombos returns the TypeCombination(s) rs contributes for relation
// type t, given the statically known endpoint label sets. An undirected
// pattern is checked in both orientations, but both orientations describe
// the same physically-stored (FromNode, ToNode) edge, so a schema with
// FromNode == ToNode (e.g. a User-User relationship) must not contribute
// the identical combination twice.
func matchCombos(rs *catalog.RelationshipSchema, t string, leftLabels, rightLabels []string, undirected bool) []planctx.TypeCombination {
	forward := labelMatches(leftLabels, rs.FromNode) && labelMatches(rightLabels, rs.ToNode)
	reverse := undirected && labelMatches(rightLabels, rs.FromNode) && labelMatches(leftLabels, rs.ToNode)
	if !forward && !reverse {
		return nil
	}
	return []planctx.TypeCombination{{FromLabel: rs.FromNode, RelType: t, ToLabel: rs.ToNode}}
}

func sortCombinations(combos []planctx.TypeCombination) {
	sort.Slice(combos, func(i, j int) bool {
		if combos[i].FromLabel != combos[j].FromLabel {
			return combos[i].FromLabel < combos[j].FromLabel
		}
		if combos[i].RelType != combos[j].RelType {
			return combos[i].RelType < combos[j].RelType
		}
		return combos[i].ToLabel < combos[j].ToLabel
	})
}
