package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/brahmanddb/cyphercompiler/ast"
)

// TestParserDeterminism asserts the testable property from spec.md §8:
// parsing the same input twice yields equal ASTs.
func TestParserDeterminism(t *testing.T) {
	inputs := []string{
		`MATCH (n:User {age: 30}) WHERE n.name = 'Alice' RETURN n.name;`,
		`MATCH (u:User)-[:FOLLOWS]->(f:User) RETURN u, f;`,
		`MATCH (a:User)-[:FOLLOWS*1..3]->(b:User) RETURN b;`,
		`MATCH (a)-[:R1]->(b), (a)-[:R2]->(c) RETURN a, b, c;`,
		`MATCH (u:User)-[:FOLLOWS]->(b) WITH u, count(b) AS follows WHERE follows > 5 RETURN u, follows;`,
	}
	for _, in := range inputs {
		a, err := Parse(in)
		require.NoError(t, err, in)
		b, err := Parse(in)
		require.NoError(t, err, in)
		diff := cmp.Diff(a, b, cmp.AllowUnexported(ast.Span{}))
		require.Empty(t, diff, "parsing %q twice produced different ASTs:\n%s", in, diff)
	}
}

func TestParseNodeWithLiteralProperty(t *testing.T) {
	stmt, err := Parse(`MATCH (n:User {age: 30}) WHERE n.name = 'Alice' RETURN n.name;`)
	require.NoError(t, err)
	qs := stmt.(*ast.QueryStatement)
	require.Len(t, qs.Query.Reading, 1)
	mc := qs.Query.Reading[0]
	require.False(t, mc.Optional)
	single := mc.Patterns[0].(*ast.SingleNodePattern)
	require.Equal(t, "n", single.Node.Name)
	require.Equal(t, []string{"User"}, single.Node.Labels)
	require.NotNil(t, single.Node.Properties)
	require.Equal(t, "age", single.Node.Properties.Entries[0].Key)
	require.Equal(t, int64(30), single.Node.Properties.Entries[0].Value.(*ast.Literal).Value)

	require.NotNil(t, mc.Where)
	bin := mc.Where.(*ast.BinaryOp)
	require.Equal(t, "=", bin.Op)

	require.Len(t, qs.Query.Return.Items, 1)
	require.Equal(t, "n.name", qs.Query.Return.Items[0].Name())
}

func TestParseDirectedSingleHop(t *testing.T) {
	stmt, err := Parse(`MATCH (u:User)-[:FOLLOWS]->(f:User) RETURN u, f;`)
	require.NoError(t, err)
	qs := stmt.(*ast.QueryStatement)
	cp := qs.Query.Reading[0].Patterns[0].(*ast.ConnectedPattern)
	require.Len(t, cp.Nodes, 2)
	require.Len(t, cp.Hops, 1)
	require.Equal(t, ast.DirOutgoing, cp.Hops[0].Rel.Direction)
	require.Equal(t, []string{"FOLLOWS"}, cp.Hops[0].Rel.Types)
}

func TestParseIncomingDirectionSwapsEndpoints(t *testing.T) {
	// spec.md §8 "Direction normalization" is a plan-builder invariant, but
	// the parser must at least preserve the written arrow shape and node
	// order so the builder can apply it.
	stmt, err := Parse(`MATCH (a)<-[r]-(b) RETURN a;`)
	require.NoError(t, err)
	qs := stmt.(*ast.QueryStatement)
	cp := qs.Query.Reading[0].Patterns[0].(*ast.ConnectedPattern)
	require.Equal(t, "a", cp.Nodes[0].Name)
	require.Equal(t, "b", cp.Nodes[1].Name)
	require.Equal(t, ast.DirIncoming, cp.Hops[0].Rel.Direction)
}

func TestParseVariableLengthPath(t *testing.T) {
	stmt, err := Parse(`MATCH (a:User)-[:FOLLOWS*1..3]->(b:User) RETURN b;`)
	require.NoError(t, err)
	qs := stmt.(*ast.QueryStatement)
	cp := qs.Query.Reading[0].Patterns[0].(*ast.ConnectedPattern)
	vlp := cp.Hops[0].Rel.VariableLength
	require.NotNil(t, vlp)
	require.Equal(t, 1, *vlp.Min)
	require.Equal(t, 3, *vlp.Max)
}

func TestParseVariableLengthRejectsMinGreaterThanMax(t *testing.T) {
	_, err := Parse(`MATCH (a)-[:FOLLOWS*5..2]->(b) RETURN b;`)
	require.Error(t, err)
}

func TestParseCrossBranchPattern(t *testing.T) {
	stmt, err := Parse(`MATCH (a)-[:R1]->(b), (a)-[:R2]->(c) RETURN a, b, c;`)
	require.NoError(t, err)
	qs := stmt.(*ast.QueryStatement)
	require.Len(t, qs.Query.Reading[0].Patterns, 2)
}

func TestParseAggregationWithHaving(t *testing.T) {
	stmt, err := Parse(`MATCH (u:User)-[:FOLLOWS]->(b) WITH u, count(b) AS follows WHERE follows > 5 RETURN u, follows;`)
	require.NoError(t, err)
	qs := stmt.(*ast.QueryStatement)
	require.Len(t, qs.Query.With, 1)
	wc := qs.Query.With[0]
	require.Len(t, wc.Items, 2)
	fn := wc.Items[1].Expr.(*ast.FunctionCall)
	require.True(t, fn.IsAggregate)
	require.Equal(t, "follows", wc.Items[1].Name())
	require.NotNil(t, wc.Where)
}

func TestParseFoundParamInProperties(t *testing.T) {
	_, err := Parse(`MATCH (n:User {age: $age}) RETURN n;`)
	require.Error(t, err)
}

func TestParseDDLCreateNodeTable(t *testing.T) {
	stmt, err := Parse(`CREATE NODE TABLE User (id UInt64, name String, PRIMARY KEY(id), NODE ID(id));`)
	require.NoError(t, err)
	ddl := stmt.(*ast.DDLStatement)
	require.NotNil(t, ddl.CreateNodeTable)
	require.Equal(t, "User", ddl.CreateNodeTable.Label)
	require.Equal(t, "id", ddl.CreateNodeTable.NodeID)
	require.Equal(t, []string{"id"}, ddl.CreateNodeTable.PrimaryKey)
	require.Len(t, ddl.CreateNodeTable.Columns, 2)
}

func TestParseDDLCreateRelTable(t *testing.T) {
	stmt, err := Parse(`CREATE REL TABLE FOLLOWS (FROM User TO User, since UInt32, ADJ INDEX true);`)
	require.NoError(t, err)
	ddl := stmt.(*ast.DDLStatement)
	require.NotNil(t, ddl.CreateRelTable)
	require.Equal(t, "User", ddl.CreateRelTable.From)
	require.Equal(t, "User", ddl.CreateRelTable.To)
	require.True(t, ddl.CreateRelTable.AdjIndex)
}

func TestParseUnionAll(t *testing.T) {
	stmt, err := Parse(`MATCH (a:User) RETURN a.name UNION ALL MATCH (b:Admin) RETURN b.name;`)
	require.NoError(t, err)
	qs := stmt.(*ast.QueryStatement)
	require.Len(t, qs.Query.Unions, 1)
	require.True(t, qs.Query.Unions[0].All)
}

func TestParseRequiresTrailingSemicolon(t *testing.T) {
	_, err := Parse(`MATCH (n) RETURN n`)
	require.Error(t, err)
}
