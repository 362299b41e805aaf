package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

func testSchema(t *testing.T) *catalog.GraphSchema {
	t.Helper()
	g := catalog.NewGraphSchema("graph")
	require.NoError(t, g.RegisterNode("User", &catalog.NodeSchema{
		TableName: "users", NodeIDColumn: "id", NodeIDDType: "UInt64",
		PropertyMappings: map[string]catalog.PropertyValue{"name": {Column: "name", DType: "String"}},
	}))
	return g
}

func TestFilterPushDownMovesSingleSidePredicate(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false)
	ctx.Bind("b", false)

	left := plan.NewGraphNode(plan.EmptyNode(), "a", "User")
	right := plan.NewGraphNode(plan.EmptyNode(), "b", "User")
	cp := plan.NewCartesianProduct(left, right, false, nil)
	pred := &ast.BinaryOp{
		Op:   "=",
		Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "a"}, Property: "name"},
		Right: &ast.Literal{Value: "alice"},
	}
	f := plan.NewFilter(pred, cp)

	out, same, err := (FilterPushDown{}).Apply(f, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.NewTree, same)

	newCP, ok := out.(*plan.CartesianProduct)
	require.True(t, ok)
	_, ok = newCP.Left.(*plan.Filter)
	require.True(t, ok, "predicate over alias a must move onto the left branch")
	_, ok = newCP.Right.(*plan.GraphNode)
	require.True(t, ok, "right branch must be untouched")
}

func TestFilterPushDownLeavesOptionalJoinAlone(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false)
	ctx.Bind("b", false)

	left := plan.NewGraphNode(plan.EmptyNode(), "a", "User")
	right := plan.NewGraphNode(plan.EmptyNode(), "b", "User")
	cp := plan.NewCartesianProduct(left, right, true, nil)
	pred := &ast.BinaryOp{
		Op:   "=",
		Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "a"}, Property: "name"},
		Right: &ast.Literal{Value: "alice"},
	}
	f := plan.NewFilter(pred, cp)

	_, same, err := (FilterPushDown{}).Apply(f, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.SameTree, same)
}

func TestFilterPushDownIsIdempotent(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false)
	ctx.Bind("b", false)

	cp := plan.NewCartesianProduct(plan.NewGraphNode(plan.EmptyNode(), "a", "User"), plan.NewGraphNode(plan.EmptyNode(), "b", "User"), false, nil)
	pred := &ast.BinaryOp{Op: "=", Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "a"}, Property: "name"}, Right: &ast.Literal{Value: "alice"}}
	first, _, err := (FilterPushDown{}).Apply(plan.NewFilter(pred, cp), ctx, schema)
	require.NoError(t, err)

	_, same, err := (FilterPushDown{}).Apply(first, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.SameTree, same)
}

func TestProjectionPushDownSetsProjectedColumns(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	tc := ctx.Bind("n", false)
	tc.ProjectionItems = []string{"name"}

	gn := plan.NewGraphNode(plan.EmptyNode(), "n", "User")
	out, same, err := (ProjectionPushDown{}).Apply(gn, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.NewTree, same)
	require.Equal(t, []string{"name"}, out.(*plan.GraphNode).ProjectedColumns)

	_, same2, err := (ProjectionPushDown{}).Apply(out, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.SameTree, same2)
}

func TestWherePropertyExtractorMovesEqualityToProperties(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	tc := ctx.Bind("n", false)
	tc.FilterPredicates = []ast.Expression{
		&ast.BinaryOp{Op: "=", Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Property: "name"}, Right: &ast.Literal{Value: "alice"}},
	}
	gn := plan.NewGraphNode(plan.EmptyNode(), "n", "User")

	_, same, err := (WherePropertyExtractor{}).Apply(gn, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.NewTree, same)
	require.Empty(t, tc.FilterPredicates)
	require.Contains(t, tc.Properties, "name")

	_, same2, err := (WherePropertyExtractor{}).Apply(gn, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.SameTree, same2)
}

func TestRunAppliesEveryPassToFixpoint(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false)
	tcB := ctx.Bind("b", false)
	tcB.FilterPredicates = []ast.Expression{
		&ast.BinaryOp{Op: "=", Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "b"}, Property: "name"}, Right: &ast.Literal{Value: "bob"}},
	}

	cp := plan.NewCartesianProduct(plan.NewGraphNode(plan.EmptyNode(), "a", "User"), plan.NewGraphNode(plan.EmptyNode(), "b", "User"), false, nil)

	out, err := Run(Pipeline(), cp, ctx, schema)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Contains(t, tcB.Properties, "name")
}
