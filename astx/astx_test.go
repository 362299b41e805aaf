package astx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/catalog"
)

func testSchema(t *testing.T) *catalog.GraphSchema {
	t.Helper()
	g := catalog.NewGraphSchema("graph")
	require.NoError(t, g.RegisterNode("User", &catalog.NodeSchema{NodeIDColumn: "id"}))
	require.NoError(t, g.RegisterNode("Post", &catalog.NodeSchema{NodeIDColumn: "post_id"}))
	return g
}

func idInQuery(varName string, ids ...int64) *ast.Query {
	items := make([]ast.Expression, len(ids))
	for i, id := range ids {
		items[i] = &ast.Literal{Value: id}
	}
	where := &ast.BinaryOp{
		Op:   "IN",
		Left: &ast.FunctionCall{Name: "id", Args: []ast.Expression{&ast.Variable{Name: varName}}},
		Right: &ast.ListLiteral{Items: items},
	}
	return &ast.Query{
		Reading: []ast.MatchClause{{
			Patterns: []ast.PathPattern{&ast.SingleNodePattern{Node: &ast.NodePattern{Name: varName}}},
			Where:    where,
		}},
	}
}

func TestAnalyzeSingleLabel(t *testing.T) {
	schema := testSchema(t)
	id1, err := schema.Encode("User", 1)
	require.NoError(t, err)
	id2, err := schema.Encode("User", 2)
	require.NoError(t, err)

	q := idInQuery("a", id1, id2)
	labelsByVar, err := Analyze(q, schema)
	require.NoError(t, err)
	require.Contains(t, labelsByVar, "a")
	require.Equal(t, []string{"User"}, labelsByVar["a"].Labels)
	require.Equal(t, uint64(2), labelsByVar["a"].Rows["User"].GetCardinality())
	require.Empty(t, MultiLabelVars(labelsByVar))
}

func TestAnalyzeMultiLabel(t *testing.T) {
	schema := testSchema(t)
	userID, err := schema.Encode("User", 1)
	require.NoError(t, err)
	postID, err := schema.Encode("Post", 1)
	require.NoError(t, err)

	q := idInQuery("a", userID, postID)
	labelsByVar, err := Analyze(q, schema)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a"}, MultiLabelVars(labelsByVar))
	require.ElementsMatch(t, []string{"User", "Post"}, labelsByVar["a"].Labels)
}

func TestExpandBuildsEqualityDisjunction(t *testing.T) {
	schema := testSchema(t)
	id1, err := schema.Encode("User", 1)
	require.NoError(t, err)
	id2, err := schema.Encode("User", 2)
	require.NoError(t, err)

	q := idInQuery("a", id1, id2)
	labelsByVar, err := Analyze(q, schema)
	require.NoError(t, err)

	expanded, err := Expand(q, schema, labelsByVar)
	require.NoError(t, err)

	where := expanded.Reading[0].Where
	or, ok := where.(*ast.BinaryOp)
	require.True(t, ok)
	require.Equal(t, "OR", or.Op)
}

func TestExpandEmptyListIsAlwaysFalse(t *testing.T) {
	schema := testSchema(t)
	q := idInQuery("a")
	labelsByVar, err := Analyze(q, schema)
	require.NoError(t, err)

	expanded, err := Expand(q, schema, labelsByVar)
	require.NoError(t, err)

	lit, ok := expanded.Reading[0].Where.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, false, lit.Value)
}

func TestExpandNegatedEmptyListIsAlwaysTrue(t *testing.T) {
	schema := testSchema(t)
	q := idInQuery("a")
	q.Reading[0].Where = &ast.UnaryOp{Op: "NOT", Expr: q.Reading[0].Where}

	labelsByVar, err := Analyze(q, schema)
	require.NoError(t, err)

	expanded, err := Expand(q, schema, labelsByVar)
	require.NoError(t, err)

	lit, ok := expanded.Reading[0].Where.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, true, lit.Value)
}

func TestTransformSplitsByLabel(t *testing.T) {
	schema := testSchema(t)
	userID, err := schema.Encode("User", 1)
	require.NoError(t, err)
	postID, err := schema.Encode("Post", 7)
	require.NoError(t, err)

	q := idInQuery("a", userID, postID)
	out, err := Transform(q, schema)
	require.NoError(t, err)

	require.Len(t, out.Unions, 1, "one extra branch besides the head query")
	require.True(t, out.Unions[0].All)

	branches := []*ast.Query{out, out.Unions[0].Query}
	var labels []string
	for _, b := range branches {
		single := b.Reading[0].Patterns[0].(*ast.SingleNodePattern)
		labels = append(labels, single.Node.Labels[0])
	}
	require.ElementsMatch(t, []string{"User", "Post"}, labels)
}

func TestTransformNoopWhenSingleLabel(t *testing.T) {
	schema := testSchema(t)
	id1, err := schema.Encode("User", 1)
	require.NoError(t, err)

	q := idInQuery("a", id1)
	out, err := Transform(q, schema)
	require.NoError(t, err)
	require.Empty(t, out.Unions)
}
