package analyzer

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
	require.NoError(t, g.RegisterNode("Post", &catalog.NodeSchema{
		TableName: "posts", NodeIDColumn: "post_id", NodeIDDType: "UInt64",
	}))
	require.NoError(t, g.RegisterRelationship(catalog.CompositeRelKey("FOLLOWS", "User", "User"), &catalog.RelationshipSchema{
		TableName: "follows", FromNode: "User", ToNode: "User",
	}))
	require.NoError(t, g.RegisterRelationship(catalog.CompositeRelKey("AUTHORED", "User", "Post"), &catalog.RelationshipSchema{
		TableName: "authored", FromNode: "User", ToNode: "Post",
	}))
	require.NoError(t, g.RegisterRelationship(catalog.CompositeRelKey("LIKED", "User", "Post"), &catalog.RelationshipSchema{
		TableName: "liked", FromNode: "User", ToNode: "Post",
	}))
	return g
}

func newGraphRel(alias, leftAlias, rightAlias string, types []string, direction ast.Direction) *plan.GraphRel {
	left := plan.NewGraphNode(plan.EmptyNode(), leftAlias, "")
	right := plan.NewGraphNode(plan.EmptyNode(), rightAlias, "")
	rel := plan.NewGraphRel(left, right, alias, direction, leftAlias, rightAlias)
	rel.Labels = types
	return rel
}

func TestSchemaInferenceAcceptsKnownLabel(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	n := plan.NewGraphNode(plan.EmptyNode(), "n", "User")
	_, _, err := (SchemaInference{}).Apply(n, ctx, schema)
	require.NoError(t, err)
}

func TestSchemaInferenceRejectsUnknownLabel(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	n := plan.NewGraphNode(plan.EmptyNode(), "n", "Widget")
	_, _, err := (SchemaInference{}).Apply(n, ctx, schema)
	require.Error(t, err)
}

func TestUnifiedTypeInferenceSingleCombinationBinds(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false).Labels = []string{"User"}
	ctx.Bind("b", false).Labels = []string{"Post"}

	rel := newGraphRel("r", "a", "b", []string{"AUTHORED"}, ast.DirOutgoing)
	out, same, err := (UnifiedTypeInference{MaxInferredTypes: 5, MaxCombinations: 10}).Apply(rel, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.NewTree, same)

	got := out.(*plan.GraphRel)
	require.Len(t, got.PatternCombinations, 1)
	require.Equal(t, "AUTHORED", got.PatternCombinations[0].RelType)
}

func TestUnifiedTypeInferenceMultipleCombinationsRecorded(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false).Labels = []string{"User"}
	ctx.Bind("b", false).Labels = []string{"Post"}

	// No explicit type: both AUTHORED and LIKED connect User->Post.
	rel := newGraphRel("r", "a", "b", nil, ast.DirOutgoing)
	out, _, err := (UnifiedTypeInference{MaxInferredTypes: 5, MaxCombinations: 10}).Apply(rel, ctx, schema)
	require.NoError(t, err)

	got := out.(*plan.GraphRel)
	require.Len(t, got.PatternCombinations, 2)
	require.ElementsMatch(t, []string{"AUTHORED", "LIKED"}, got.Labels)
}

func TestUnifiedTypeInferenceRejectsInvalidEndpointPair(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false).Labels = []string{"Post"}
	ctx.Bind("b", false).Labels = []string{"Post"}

	rel := newGraphRel("r", "a", "b", []string{"FOLLOWS"}, ast.DirOutgoing)
	_, _, err := (UnifiedTypeInference{MaxInferredTypes: 5, MaxCombinations: 10}).Apply(rel, ctx, schema)
	require.Error(t, err)
}

func TestUnifiedTypeInferenceEnforcesCap(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false).Labels = []string{"User"}
	ctx.Bind("b", false).Labels = []string{"Post"}

	rel := newGraphRel("r", "a", "b", nil, ast.DirOutgoing)
	_, _, err := (UnifiedTypeInference{MaxInferredTypes: 1, MaxCombinations: 10}).Apply(rel, ctx, schema)
	require.Error(t, err)
}

func TestFilterTaggingDetachesSingleAliasConjunct(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("n", false).Labels = []string{"User"}

	pred := &ast.BinaryOp{
		Op:   "=",
		Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Property: "name"},
		Right: &ast.Literal{Value: "alice"},
	}
	input := plan.NewGraphNode(plan.EmptyNode(), "n", "User")
	f := plan.NewFilter(pred, input)

	out, same, err := (FilterTagging{}).Apply(f, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.NewTree, same)
	require.Equal(t, input, out)

	tc, ok := ctx.Lookup("n")
	require.True(t, ok)
	require.Len(t, tc.FilterPredicates, 1)
}

func TestFilterTaggingIsIdempotent(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("n", false).Labels = []string{"User"}

	pred := &ast.BinaryOp{
		Op:   "=",
		Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Property: "name"},
		Right: &ast.Literal{Value: "alice"},
	}
	f := plan.NewFilter(pred, plan.NewGraphNode(plan.EmptyNode(), "n", "User"))

	first, _, err := (FilterTagging{}).Apply(f, ctx, schema)
	require.NoError(t, err)

	_, same, err := (FilterTagging{}).Apply(first, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.SameTree, same)
}

func TestFilterTaggingKeepsMultiAliasResidual(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false).Labels = []string{"User"}
	ctx.Bind("b", false).Labels = []string{"User"}

	pred := &ast.BinaryOp{
		Op:   "=",
		Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "a"}, Property: "name"},
		Right: &ast.PropertyAccess{Target: &ast.Variable{Name: "b"}, Property: "name"},
	}
	f := plan.NewFilter(pred, plan.NewGraphNode(plan.EmptyNode(), "a", "User"))

	out, _, err := (FilterTagging{}).Apply(f, ctx, schema)
	require.NoError(t, err)
	_, ok := out.(*plan.Filter)
	require.True(t, ok, "residual predicate referencing two aliases must remain a Filter")
}

func TestProjectionTaggingCollectsRequiredColumns(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("n", false).Labels = []string{"User"}

	proj := plan.NewProjection(
		plan.NewGraphNode(plan.EmptyNode(), "n", "User"),
		[]plan.ProjectionItem{{Expr: &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Property: "name"}, Alias: "name"}},
		false, plan.ProjectionReturn,
	)
	_, same, err := (ProjectionTagging{}).Apply(proj, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.NewTree, same)

	tc, _ := ctx.Lookup("n")
	require.Contains(t, tc.ProjectionItems, "name")

	_, same2, err := (ProjectionTagging{}).Apply(proj, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.SameTree, same2)
}

func TestGraphJoinConstructionDetectsCrossBranchSharedAlias(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("b", false).Labels = []string{"User"}

	left := newGraphRel("r1", "a", "b", []string{"FOLLOWS"}, ast.DirOutgoing)
	right := newGraphRel("r2", "c", "b", []string{"FOLLOWS"}, ast.DirOutgoing)
	cp := plan.NewCartesianProduct(left, right, false, nil)

	out, same, err := (GraphJoinConstruction{}).Apply(cp, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.NewTree, same)

	gj, ok := out.(*plan.GraphJoins)
	require.True(t, ok)
	require.Len(t, gj.Joins, 1)
	require.Equal(t, "id", gj.Joins[0].LeftColumn)
}

func TestGraphJoinConstructionIgnoresSequentialChain(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("b", false).Labels = []string{"User"}

	// A single ConnectedPattern reuses the same *plan.GraphNode for b
	// across both hops, so only one occurrence is ever seen.
	b := plan.NewGraphNode(plan.EmptyNode(), "b", "User")
	hop1 := plan.NewGraphRel(plan.NewGraphNode(plan.EmptyNode(), "a", "User"), b, "r1", ast.DirOutgoing, "a", "b")
	hop2 := plan.NewGraphRel(b, plan.NewGraphNode(plan.EmptyNode(), "c", "User"), "r2", ast.DirOutgoing, "b", "c")
	chain := plan.NewGraphRel(hop1, hop2, "", ast.DirOutgoing, "a", "c")

	_, same, err := (GraphJoinConstruction{}).Apply(chain, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.SameTree, same)
}

func TestUnionPruningDropsEmptyBranch(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")

	live := plan.NewGraphNode(plan.EmptyNode(), "n", "User")
	pruned := plan.NewFilter(&ast.Literal{Value: false}, plan.NewGraphNode(plan.EmptyNode(), "n", "Post"))
	u := plan.NewUnion([]plan.Node{live, pruned}, plan.UnionAll)

	out, same, err := (UnionPruning{}).Apply(u, ctx, schema)
	require.NoError(t, err)
	require.Equal(t, plan.NewTree, same)
	require.Equal(t, live, out)
}

func TestUnionPruningAllBranchesPrunedYieldsEmpty(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")

	a := plan.NewFilter(&ast.Literal{Value: false}, plan.NewGraphNode(plan.EmptyNode(), "n", "User"))
	b := plan.NewFilter(&ast.Literal{Value: false}, plan.NewGraphNode(plan.EmptyNode(), "n", "Post"))
	u := plan.NewUnion([]plan.Node{a, b}, plan.UnionAll)

	out, _, err := (UnionPruning{}).Apply(u, ctx, schema)
	require.NoError(t, err)
	_, ok := out.(*plan.Empty)
	require.True(t, ok)
}

func TestRunShortCircuitsOnFirstError(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	n := plan.NewGraphNode(plan.EmptyNode(), "n", "Widget")

	_, err := Run(Pipeline(5, 50), n, ctx, schema)
	require.Error(t, err)
}

func TestPipelineRunsFixpointPassesToStability(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("n", false).Labels = []string{"User"}

	pred := &ast.BinaryOp{
		Op:   "=",
		Left: &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Property: "name"},
		Right: &ast.Literal{Value: "alice"},
	}
	plan0 := plan.NewProjection(
		plan.NewFilter(pred, plan.NewGraphNode(plan.EmptyNode(), "n", "User")),
		[]plan.ProjectionItem{{Expr: &ast.Variable{Name: "n"}, Alias: "n"}},
		false, plan.ProjectionReturn,
	)

	out, err := Run([]Pass{&SchemaInference{}, &FilterTagging{}, &ProjectionTagging{}}, plan0, ctx, schema)
	require.NoError(t, err)
	require.NotNil(t, out)

	tc, _ := ctx.Lookup("n")
	require.Len(t, tc.FilterPredicates, 1)
}
