// Package analyzer implements the C7 component: an ordered pipeline of
// passes that rewrite the logical plan using the catalog (spec.md §4.4).
package analyzer

import (
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// Pass is one analyzer/optimizer pass, matching the teacher's
// sql/analyzer rule-function shape seen in its tests, trimmed to this
// core's narrower dependency set: no *sql.Context, no rule selector — the
// pipeline here is a fixed, documented order, not a cost-based rule engine
// (SPEC_FULL.md §4.4).
type Pass interface {
	Name() string
	Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error)
}

// fixpointPasses run to a fixpoint; the rest run exactly once per
// statement, per spec.md §4.4 ("The pipeline continues until a fixpoint
// is reached for rewriting passes (projection / filter pushdown) and
// otherwise runs once per pass").
var fixpointPasses = map[string]bool{
	"FilterTagging":     true,
	"ProjectionTagging": true,
}

// maxFixpointIterations bounds the fixpoint loop so a buggy pass that
// never settles fails loudly instead of hanging the driver.
const maxFixpointIterations = 64

// Pipeline is the canonical, fixed pass order from spec.md §4.4.
func Pipeline(maxInferredTypes, maxCombinations int) []Pass {
	return []Pass{
		&SchemaInference{},
		&UnifiedTypeInference{MaxInferredTypes: maxInferredTypes, MaxCombinations: maxCombinations},
		&FilterTagging{},
		&ProjectionTagging{},
		&GraphJoinConstruction{},
		&UnionPruning{},
	}
}

// Run applies every pass in order, short-circuiting on the first error
// (spec.md §7 "the driver short-circuits on the first error").
func Run(passes []Pass, n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, error) {
	for _, p := range passes {
		if fixpointPasses[p.Name()] {
			var err error
			n, err = runToFixpoint(p, n, ctx, schema)
			if err != nil {
				return nil, cgerrors.WithPass(p.Name(), err)
			}
			continue
		}
		out, _, err := p.Apply(n, ctx, schema)
		if err != nil {
			return nil, cgerrors.WithPass(p.Name(), err)
		}
		n = out
	}
	return n, nil
}

func runToFixpoint(p Pass, n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, error) {
	for i := 0; i < maxFixpointIterations; i++ {
		out, same, err := p.Apply(n, ctx, schema)
		if err != nil {
			return nil, err
		}
		n = out
		if same == plan.SameTree {
			return n, nil
		}
	}
	return nil, cgerrors.ErrInvalidPlan.New(p.Name() + " did not reach a fixpoint within the iteration limit")
}
