package planbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

func TestBuildSingleNodeReturn(t *testing.T) {
	q := &ast.Query{
		Reading: []ast.MatchClause{{
			Patterns: []ast.PathPattern{&ast.SingleNodePattern{Node: &ast.NodePattern{Name: "n", Labels: []string{"User"}}}},
		}},
		Return: &ast.ReturnClause{
			Items: []ast.ReturnItem{{Expr: &ast.Variable{Name: "n"}, SourceText: "n"}},
		},
	}
	ctx := planctx.NewPlanCtx("")
	out, err := Build(q, ctx)
	require.NoError(t, err)

	proj, ok := out.(*plan.Projection)
	require.True(t, ok)
	require.Len(t, proj.Items, 1)
	require.Equal(t, "n", proj.Items[0].Alias)

	gn, ok := proj.Children()[0].(*plan.GraphNode)
	require.True(t, ok)
	require.Equal(t, "User", gn.Label)

	tc, ok := ctx.Lookup("n")
	require.True(t, ok)
	require.Equal(t, []string{"User"}, tc.Labels)
}

func TestBuildDirectionInvariantOnIncoming(t *testing.T) {
	// (a)<-[r]-(b): a is written first, but the connection assignment
	// still points FROM=b, TO=a (spec.md §3.3).
	q := &ast.Query{
		Reading: []ast.MatchClause{{
			Patterns: []ast.PathPattern{&ast.ConnectedPattern{
				Nodes: []*ast.NodePattern{{Name: "a"}, {Name: "b"}},
				Hops:  []ast.PatternHop{{Start: 0, End: 1, Rel: &ast.RelationshipPattern{Name: "r", Direction: ast.DirIncoming}}},
			}},
		}},
	}
	ctx := planctx.NewPlanCtx("")
	out, err := Build(q, ctx)
	require.NoError(t, err)

	rel, ok := out.(*plan.GraphRel)
	require.True(t, ok)
	require.Equal(t, "b", rel.LeftConnection)
	require.Equal(t, "a", rel.RightConnection)
}

func TestBuildMultiHopChainKeepsEveryHop(t *testing.T) {
	// MATCH (a)-[r1]->(b)-[r2]->(c)
	q := &ast.Query{
		Reading: []ast.MatchClause{{
			Patterns: []ast.PathPattern{&ast.ConnectedPattern{
				Nodes: []*ast.NodePattern{{Name: "a"}, {Name: "b"}, {Name: "c"}},
				Hops: []ast.PatternHop{
					{Start: 0, End: 1, Rel: &ast.RelationshipPattern{Name: "r1", Direction: ast.DirOutgoing}},
					{Start: 1, End: 2, Rel: &ast.RelationshipPattern{Name: "r2", Direction: ast.DirOutgoing}},
				},
			}},
		}},
	}
	ctx := planctx.NewPlanCtx("")
	out, err := Build(q, ctx)
	require.NoError(t, err)

	outer, ok := out.(*plan.GraphRel)
	require.True(t, ok)
	require.Equal(t, "r2", outer.Alias)
	require.Equal(t, "b", outer.LeftConnection)
	require.Equal(t, "c", outer.RightConnection)

	inner, ok := outer.Left.(*plan.GraphRel)
	require.True(t, ok)
	require.Equal(t, "r1", inner.Alias)
	require.Equal(t, "a", inner.LeftConnection)
	require.Equal(t, "b", inner.RightConnection)

	aNode, ok := inner.Left.(*plan.GraphNode)
	require.True(t, ok)
	require.Equal(t, "a", aNode.Alias)

	bNode, ok := inner.Right.(*plan.GraphNode)
	require.True(t, ok)
	require.Equal(t, "b", bNode.Alias)

	cNode, ok := outer.Right.(*plan.GraphNode)
	require.True(t, ok)
	require.Equal(t, "c", cNode.Alias)
}

func TestBuildDisconnectedPatternsError(t *testing.T) {
	q := &ast.Query{
		Reading: []ast.MatchClause{{
			Patterns: []ast.PathPattern{
				&ast.SingleNodePattern{Node: &ast.NodePattern{Name: "a"}},
				&ast.SingleNodePattern{Node: &ast.NodePattern{Name: "b"}},
			},
		}},
	}
	ctx := planctx.NewPlanCtx("")
	_, err := Build(q, ctx)
	require.Error(t, err)
}

func TestBuildRejectsParamInProperties(t *testing.T) {
	q := &ast.Query{
		Reading: []ast.MatchClause{{
			Patterns: []ast.PathPattern{&ast.SingleNodePattern{Node: &ast.NodePattern{
				Name: "a",
				Properties: &ast.MapLiteral{Entries: []ast.MapEntry{
					{Key: "id", Value: &ast.Parameter{Name: "id"}},
				}},
			}}},
		}},
	}
	ctx := planctx.NewPlanCtx("")
	_, err := Build(q, ctx)
	require.Error(t, err)
}

func TestBuildWithRecordsProjectionAlias(t *testing.T) {
	q := &ast.Query{
		Reading: []ast.MatchClause{{
			Patterns: []ast.PathPattern{&ast.SingleNodePattern{Node: &ast.NodePattern{Name: "n"}}},
		}},
		With: []ast.WithClause{{
			Items: []ast.ReturnItem{{Expr: &ast.Variable{Name: "n"}, Alias: "m"}},
		}},
		Return: &ast.ReturnClause{
			Items: []ast.ReturnItem{{Expr: &ast.Variable{Name: "m"}, SourceText: "m"}},
		},
	}
	ctx := planctx.NewPlanCtx("")
	_, err := Build(q, ctx)
	require.NoError(t, err)
	require.Contains(t, ctx.ProjectionAliases, "m")
}
