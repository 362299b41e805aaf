package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brahmanddb/cyphercompiler/catalog"
)

func readSchema(t *testing.T) *catalog.GraphSchema {
	t.Helper()
	g := catalog.NewGraphSchema("graph")
	require.NoError(t, g.RegisterNode("User", &catalog.NodeSchema{
		TableName: "users", NodeIDColumn: "id", NodeIDDType: "UInt64",
		PropertyMappings: map[string]catalog.PropertyValue{
			"name": {Column: "name", DType: "String"},
		},
	}))
	return g
}

func TestCompileReadQueryEndToEnd(t *testing.T) {
	schema := readSchema(t)
	result, err := Compile(`MATCH (n:User) RETURN n.name;`, schema, SessionParams{})
	require.NoError(t, err)
	require.Equal(t, StatementRead, result.StatementKind)
	require.Len(t, result.SQLStatements, 1)
	require.Contains(t, result.SQLStatements[0], "users")
	require.Contains(t, result.SQLStatements[0], `"n"."name"`)
	require.Equal(t, []string{"n.name"}, result.ColumnNameHints)
	require.Empty(t, result.SchemaMutation.Node)
	require.Empty(t, result.SchemaMutation.Relationship)
}

func TestCompileDDLCreateNodeTable(t *testing.T) {
	schema := catalog.NewGraphSchema("graph")
	result, err := Compile(`CREATE NODE TABLE User (id UInt64, name String, PRIMARY KEY(id), NODE ID(id));`, schema, SessionParams{})
	require.NoError(t, err)
	require.Equal(t, StatementDdl, result.StatementKind)
	require.Len(t, result.SQLStatements, 1)
	require.Contains(t, result.SQLStatements[0], `"User"`)
	require.NotNil(t, result.SchemaMutation.Node)
	require.Equal(t, "id", result.SchemaMutation.Node.NodeIDColumn)
}

func TestCompileDDLCreateRelTableWithAdjIndex(t *testing.T) {
	schema := catalog.NewGraphSchema("graph")
	_, err := Compile(`CREATE NODE TABLE User (id UInt64, PRIMARY KEY(id), NODE ID(id));`, schema, SessionParams{})
	require.NoError(t, err)
	require.NoError(t, schema.RegisterNode("User", &catalog.NodeSchema{
		TableName: "User", NodeIDColumn: "id", NodeIDDType: "UInt64",
	}))

	result, err := Compile(`CREATE REL TABLE FOLLOWS (FROM User TO User, since UInt32, ADJ INDEX true);`, schema, SessionParams{})
	require.NoError(t, err)
	require.Equal(t, StatementDdl, result.StatementKind)
	require.Len(t, result.SQLStatements, 5)
	require.NotNil(t, result.SchemaMutation.Relationship)
	require.Equal(t, "from_User", result.SchemaMutation.Relationship.FromID)
}

func TestCompileRejectsWriteClause(t *testing.T) {
	schema := readSchema(t)
	_, err := Compile(`MATCH (n:User) DETACH DELETE n;`, schema, SessionParams{})
	require.Error(t, err)
}

func TestNewSessionParamsFromMapCoercesFields(t *testing.T) {
	raw := map[string]any{
		"tenant_id":          "acme",
		"traversal_mode":     "TempTable",
		"max_inferred_types": "4",
		"max_combinations":   32,
	}
	params, err := NewSessionParamsFromMap(raw)
	require.NoError(t, err)
	require.Equal(t, "acme", params.TenantID)
	require.Equal(t, TraversalTempTable, params.TraversalMode)
	require.Equal(t, 4, params.MaxInferredTypes)
	require.Equal(t, 32, params.MaxCombinations)
}

func TestNewSessionParamsFromMapRejectsUnknownTraversalMode(t *testing.T) {
	_, err := NewSessionParamsFromMap(map[string]any{"traversal_mode": "bogus"})
	require.Error(t, err)
}
