package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brahmanddb/cyphercompiler/ast"
)

func userNodeSchema() *NodeSchema {
	return &NodeSchema{
		TableName:    "users",
		Columns:      []string{"id", "name", "age"},
		PrimaryKey:   []string{"id"},
		NodeIDColumn: "id",
		NodeIDDType:  "UInt64",
		PropertyMappings: map[string]PropertyValue{
			"name": {Column: "name", DType: "String"},
			"age":  {Column: "age", DType: "UInt8"},
		},
	}
}

func TestIDEncodeDecodeRoundTrip(t *testing.T) {
	g := NewGraphSchema("graph")
	require.NoError(t, g.RegisterNode("User", userNodeSchema()))
	require.NoError(t, g.RegisterNode("Post", userNodeSchema()))

	id, err := g.Encode("User", 42)
	require.NoError(t, err)
	label, rowID, err := g.Decode(id)
	require.NoError(t, err)
	require.Equal(t, "User", label)
	require.Equal(t, uint64(42), rowID)

	id2, err := g.Encode("Post", 42)
	require.NoError(t, err)
	require.NotEqual(t, id, id2, "distinct labels must not collide for the same row id")
}

func TestRelationshipsOfTypeUsesCompositeIndex(t *testing.T) {
	g := NewGraphSchema("graph")
	require.NoError(t, g.RegisterRelationship(CompositeRelKey("FOLLOWS", "User", "User"), &RelationshipSchema{FromNode: "User", ToNode: "User"}))
	require.NoError(t, g.RegisterRelationship(CompositeRelKey("AUTHORED", "User", "Post"), &RelationshipSchema{FromNode: "User", ToNode: "Post"}))
	require.NoError(t, g.RegisterRelationship(CompositeRelKey("LIKED", "User", "Post"), &RelationshipSchema{FromNode: "User", ToNode: "Post"}))

	follows := g.RelationshipsOfType("FOLLOWS")
	require.Len(t, follows, 1)

	require.ElementsMatch(t, []string{"User", "User"}, []string{follows[0].FromNode, follows[0].ToNode})
}

func TestBuildNodeSchemaFromDDL(t *testing.T) {
	ddl := &ast.CreateNodeTable{
		Label: "User",
		Columns: []ast.ColumnDef{
			{Name: "id", DType: "UInt64"},
			{Name: "name", DType: "String"},
		},
		PrimaryKey: []string{"id"},
		NodeID:     "id",
	}
	schema, err := BuildNodeSchemaFromDDL("graph", ddl)
	require.NoError(t, err)
	require.Equal(t, "UInt64", schema.NodeIDDType)
	require.Contains(t, schema.PrimaryKey, "id")
	require.NotEmpty(t, schema.SchemaVersion)
}

func TestBuildNodeSchemaFromDDLRejectsMissingPrimaryKey(t *testing.T) {
	ddl := &ast.CreateNodeTable{
		Label:   "User",
		Columns: []ast.ColumnDef{{Name: "id", DType: "UInt64"}},
		NodeID:  "id",
	}
	_, err := BuildNodeSchemaFromDDL("graph", ddl)
	require.Error(t, err)
}

func TestBuildNodeSchemaFromDDLRejectsBadNodeIDDType(t *testing.T) {
	ddl := &ast.CreateNodeTable{
		Label:      "User",
		Columns:    []ast.ColumnDef{{Name: "id", DType: "String"}},
		PrimaryKey: []string{"id"},
		NodeID:     "id",
	}
	_, err := BuildNodeSchemaFromDDL("graph", ddl)
	require.Error(t, err)
}

func TestBuildRelationshipSchemaFromDDLRejectsUnknownLabels(t *testing.T) {
	g := NewGraphSchema("graph")
	require.NoError(t, g.RegisterNode("User", userNodeSchema()))

	_, err := BuildRelationshipSchemaFromDDL("graph", g, &ast.CreateRelTable{
		Type: "AUTHORED", From: "User", To: "Post",
	})
	require.Error(t, err)
}

func TestBuildRelationshipSchemaFromDDLDerivesColumns(t *testing.T) {
	g := NewGraphSchema("graph")
	require.NoError(t, g.RegisterNode("User", userNodeSchema()))
	require.NoError(t, g.RegisterNode("Post", userNodeSchema()))

	rel, err := BuildRelationshipSchemaFromDDL("graph", g, &ast.CreateRelTable{
		Type: "AUTHORED", From: "User", To: "Post",
		Columns: []ast.ColumnDef{{Name: "created_at", DType: "DateTime"}},
	})
	require.NoError(t, err)
	require.Equal(t, "from_User", rel.FromID)
	require.Equal(t, "to_Post", rel.ToID)
	require.Equal(t, []string{"from_User", "to_Post"}, rel.PrimaryKey)
	require.Equal(t, "UInt64", rel.FromNodeIDDType)
}
