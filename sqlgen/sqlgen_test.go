package sqlgen

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
		PropertyMappings: map[string]catalog.PropertyValue{
			"name": {Column: "name", DType: "String"},
			"age":  {Column: "age", DType: "UInt8"},
		},
	}))
	require.NoError(t, g.RegisterRelationship("FOLLOWS", &catalog.RelationshipSchema{
		TableName: "follows", FromNode: "User", ToNode: "User",
		FromID: "from_User", ToID: "to_User",
		FromNodeIDDType: "UInt64", ToNodeIDDType: "UInt64",
		TypeColumn: "FOLLOWS",
	}))
	return g
}

func TestGenerateNodeWithLiteralProperty(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("n", false).Labels = []string{"User"}

	gn := plan.NewGraphNode(plan.EmptyNode(), "n", "User")
	pred := &ast.BinaryOp{
		Op: "AND",
		Left: &ast.BinaryOp{Op: "=",
			Left:  &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Property: "age"},
			Right: &ast.Literal{Value: int64(30)}},
		Right: &ast.BinaryOp{Op: "=",
			Left:  &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Property: "name"},
			Right: &ast.Literal{Value: "Alice"}},
	}
	f := plan.NewFilter(pred, gn)
	proj := plan.NewProjection(f, []plan.ProjectionItem{
		{Expr: &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Property: "name"}, Alias: "n.name"},
	}, false, plan.ProjectionReturn)

	gen := New(schema, ctx, TraversalCte)
	stmts, err := gen.Generate(proj)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	sql := stmts[0]
	require.Contains(t, sql, `"n"."age" = 30`)
	require.Contains(t, sql, `"n"."name" = 'Alice'`)
	require.Contains(t, sql, `AS "n.name"`)
	require.Contains(t, sql, "users")
}

func TestGenerateDirectedSingleHop(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("u", false).Labels = []string{"User"}
	ctx.Bind("f", false).Labels = []string{"User"}

	u := plan.NewGraphNode(plan.EmptyNode(), "u", "User")
	f := plan.NewGraphNode(plan.EmptyNode(), "f", "User")
	rel := plan.NewGraphRel(u, f, "r", ast.DirOutgoing, "u", "f")
	rel.Labels = []string{"FOLLOWS"}

	proj := plan.NewProjection(rel, []plan.ProjectionItem{
		{Expr: &ast.Variable{Name: "u"}, Alias: "u"},
		{Expr: &ast.Variable{Name: "f"}, Alias: "f"},
	}, false, plan.ProjectionReturn)

	gen := New(schema, ctx, TraversalCte)
	stmts, err := gen.Generate(proj)
	require.NoError(t, err)
	sql := stmts[0]
	require.Contains(t, sql, "INNER JOIN")
	require.Contains(t, sql, `"u"."id" = "r"."from_User"`)
	require.Contains(t, sql, `"r"."to_User" = "f"."id"`)
	require.NotContains(t, sql, "UNION")
}

func TestGenerateVariableLengthPath(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false).Labels = []string{"User"}
	ctx.Bind("b", false).Labels = []string{"User"}

	a := plan.NewGraphNode(plan.EmptyNode(), "a", "User")
	b := plan.NewGraphNode(plan.EmptyNode(), "b", "User")
	rel := plan.NewGraphRel(a, b, "", ast.DirOutgoing, "a", "b")
	rel.Labels = []string{"FOLLOWS"}
	lo, hi := 1, 3
	rel.VariableLength = &ast.VariableLengthSpec{Min: &lo, Max: &hi}

	proj := plan.NewProjection(rel, []plan.ProjectionItem{
		{Expr: &ast.Variable{Name: "b"}, Alias: "b"},
	}, false, plan.ProjectionReturn)

	gen := New(schema, ctx, TraversalCte)
	stmts, err := gen.Generate(proj)
	require.NoError(t, err)
	sql := stmts[0]
	require.Contains(t, sql, "WITH RECURSIVE")
	require.Contains(t, sql, "hops >= 1")
	require.Contains(t, sql, "hops <= 3")
}

func TestGenerateShortestPathPicksMinimumHop(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("a", false).Labels = []string{"User"}
	ctx.Bind("b", false).Labels = []string{"User"}

	a := plan.NewGraphNode(plan.EmptyNode(), "a", "User")
	b := plan.NewGraphNode(plan.EmptyNode(), "b", "User")
	rel := plan.NewGraphRel(a, b, "", ast.DirOutgoing, "a", "b")
	rel.Labels = []string{"FOLLOWS"}
	rel.VariableLength = &ast.VariableLengthSpec{}
	rel.ShortestPathMode = plan.ShortestPathSingle

	proj := plan.NewProjection(rel, []plan.ProjectionItem{
		{Expr: &ast.Variable{Name: "b"}, Alias: "b"},
	}, false, plan.ProjectionReturn)

	gen := New(schema, ctx, TraversalCte)
	stmts, err := gen.Generate(proj)
	require.NoError(t, err)
	sql := stmts[0]
	require.Contains(t, sql, "min(hops) OVER")
	require.Contains(t, sql, "LIMIT 1 BY start_id, cur_id")
}

func TestGenerateAggregationProducesGroupByAndHaving(t *testing.T) {
	schema := testSchema(t)
	ctx := planctx.NewPlanCtx("")
	ctx.Bind("u", false).Labels = []string{"User"}
	ctx.Bind("b", false).Labels = []string{"User"}

	u := plan.NewGraphNode(plan.EmptyNode(), "u", "User")
	b := plan.NewGraphNode(plan.EmptyNode(), "b", "User")
	rel := plan.NewGraphRel(u, b, "", ast.DirOutgoing, "u", "b")
	rel.Labels = []string{"FOLLOWS"}

	countCall := &ast.FunctionCall{Name: "count", Args: []ast.Expression{&ast.Variable{Name: "b"}}, IsAggregate: true}
	items := []plan.ProjectionItem{
		{Expr: &ast.Variable{Name: "u"}, Alias: "u"},
		{Expr: countCall, Alias: "follows"},
	}
	having := &ast.BinaryOp{Op: ">", Left: &ast.Variable{Name: "follows"}, Right: &ast.Literal{Value: int64(5)}}

	with := plan.NewWithClause(rel, items, false, having, nil, nil, nil, []string{"u", "follows"})

	gen := New(schema, ctx, TraversalCte)
	stmts, err := gen.Generate(with)
	require.NoError(t, err)
	sql := stmts[0]
	require.Contains(t, sql, "GROUP BY")
	require.Contains(t, sql, "HAVING")
	require.Contains(t, sql, "count(")
}

func TestGenerateNodeTableDDL(t *testing.T) {
	schema := &catalog.NodeSchema{
		Database: "graph", TableName: "users", Columns: []string{"id", "name"},
		PrimaryKey: []string{"id"}, NodeIDColumn: "id", NodeIDDType: "UInt64",
		PropertyMappings: map[string]catalog.PropertyValue{
			"id":   {Column: "id", DType: "UInt64"},
			"name": {Column: "name", DType: "String"},
		},
	}
	ddl := GenerateNodeTableDDL(schema)
	require.Contains(t, ddl, `"graph"."users"`)
	require.Contains(t, ddl, "ENGINE = MergeTree")
	require.Contains(t, ddl, `ORDER BY ("id")`)
}

func TestGenerateRelTableDDLWithAdjIndex(t *testing.T) {
	schema := &catalog.RelationshipSchema{
		Database: "graph", TableName: "follows",
		Columns:         []string{"from_User", "to_User"},
		FromID:          "from_User",
		ToID:            "to_User",
		FromNodeIDDType: "UInt64",
		ToNodeIDDType:   "UInt64",
		PrimaryKey:      []string{"from_User", "to_User"},
	}
	stmts := GenerateRelTableDDL(schema, true)
	require.Len(t, stmts, 5)
	require.Contains(t, stmts[0], `"graph"."follows"`)
	require.Contains(t, stmts[1], "follows_outgoing")
	require.Contains(t, stmts[2], "MATERIALIZED VIEW")
	require.Contains(t, stmts[2], "groupBitmapState")
	require.Contains(t, stmts[3], "follows_incoming")
}

func TestAdjacencyRowIDsModelsBitmapMembership(t *testing.T) {
	bm := adjacencyRowIDs([]uint32{1, 2, 2, 5})
	require.EqualValues(t, 3, bm.GetCardinality())
	require.True(t, bm.Contains(5))
	require.False(t, bm.Contains(9))
}

func TestSyntheticNameIsDeterministic(t *testing.T) {
	seed := struct{ A, B string }{"x", "y"}
	n1, err := syntheticName("vlp", seed)
	require.NoError(t, err)
	n2, err := syntheticName("vlp", seed)
	require.NoError(t, err)
	require.Equal(t, n1, n2)
}
