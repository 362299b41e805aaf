// Package optimizer implements the C8 component: equivalence-preserving
// plan rewrites that run after the analyzer (C7) has resolved every
// GraphRel's schema and tagged filters/projections onto PlanCtx
// (SPEC_FULL.md §4.5).
package optimizer

import (
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// Pass is one optimizer rewrite, same shape as analyzer.Pass so both
// pipelines compose through the same Run contract.
type Pass interface {
	Name() string
	Apply(n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, plan.TreeIdentity, error)
}

// maxIterations bounds every pass's internal fixpoint loop.
const maxIterations = 64

// Pipeline is the fixed optimizer pass order (SPEC_FULL.md §4.5): push
// filters across cartesian joins toward the branch they constrain, push
// required-column information down onto each GraphNode, then pull literal
// property equalities out of residual WHERE predicates so they read from
// the same source as inline pattern properties.
func Pipeline() []Pass {
	return []Pass{
		&FilterPushDown{},
		&ProjectionPushDown{},
		&WherePropertyExtractor{},
	}
}

// Run applies every pass to its own fixpoint, in order, short-circuiting
// on the first error.
func Run(passes []Pass, n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, error) {
	for _, p := range passes {
		out, err := runToFixpoint(p, n, ctx, schema)
		if err != nil {
			return nil, cgerrors.WithPass(p.Name(), err)
		}
		n = out
	}
	return n, nil
}

func runToFixpoint(p Pass, n plan.Node, ctx *planctx.PlanCtx, schema *catalog.GraphSchema) (plan.Node, error) {
	for i := 0; i < maxIterations; i++ {
		out, same, err := p.Apply(n, ctx, schema)
		if err != nil {
			return nil, err
		}
		n = out
		if same == plan.SameTree {
			return n, nil
		}
	}
	return n, nil
}
