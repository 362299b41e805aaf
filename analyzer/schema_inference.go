package analyzer

import (
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// SchemaInference checks every explicitly labeled GraphNode against the
// catalog, raising ErrSchemaNotFound for an unregistered label, and
// enforces Open Question (a): a 0-hop minimum variable length is only legal
// inside a shortestPath()/allShortestPaths() wrapper (spec.md §9(a)). It
// attaches no catalog handle to GraphNode or GraphRel and returns the plan
// unchanged; relationship types are checked by UnifiedTypeInference.
type SchemaInference struct{}

func (SchemaInference) Name() string { return "SchemaInference" }

func (s SchemaInference) Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error) {
	var firstErr error
	out, same, err := plan.TransformUp(n, func(nd plan.Node) (plan.Node, plan.TreeIdentity, error) {
		if firstErr != nil {
			return nd, plan.SameTree, nil
		}
		switch v := nd.(type) {
		case *plan.GraphNode:
			if v.Label == "" {
				return nd, plan.SameTree, nil
			}
			if _, ok := schema.LookupNode(v.Label); !ok {
				firstErr = cgerrors.ErrSchemaNotFound.New(v.Label)
			}
			return nd, plan.SameTree, nil
		case *plan.GraphRel:
			if vl := v.VariableLength; vl != nil && vl.Min != nil && *vl.Min == 0 {
				if v.ShortestPathMode == plan.ShortestPathNone {
					firstErr = cgerrors.ErrInvalidPlan.New("0-hop minimum variable length outside shortestPath/allShortestPaths for relationship " + v.Alias)
				}
			}
			return nd, plan.SameTree, nil
		default:
			return nd, plan.SameTree, nil
		}
	})
	if firstErr != nil {
		return n, plan.SameTree, firstErr
	}
	if err != nil {
		return nil, plan.SameTree, err
	}
	return out, same, nil
}
