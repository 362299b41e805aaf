package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brahmanddb/cyphercompiler/ast"
)

func TestTransformUpRebuildsOnlyChangedAncestors(t *testing.T) {
	leaf := &Scan{TableAlias: "a", TableName: "users"}
	root := &Filter{unaryNode: unaryNode{Input: leaf}, Predicate: &ast.Literal{Value: true}}

	out, same, err := TransformUp(root, func(n Node) (Node, TreeIdentity, error) {
		if s, ok := n.(*Scan); ok && s.TableAlias == "a" {
			return &Scan{TableAlias: "a", TableName: "renamed"}, NewTree, nil
		}
		return n, SameTree, nil
	})
	require.NoError(t, err)
	require.Equal(t, NewTree, same)

	f := out.(*Filter)
	s := f.Input.(*Scan)
	require.Equal(t, "renamed", s.TableName)
}

func TestTransformUpReportsSameTreeWhenNothingChanges(t *testing.T) {
	root := &Filter{unaryNode: unaryNode{Input: &Scan{TableAlias: "a"}}, Predicate: &ast.Literal{Value: true}}
	out, same, err := TransformUp(root, func(n Node) (Node, TreeIdentity, error) {
		return n, SameTree, nil
	})
	require.NoError(t, err)
	require.Equal(t, SameTree, same)
	require.Same(t, root, out)
}

func TestGraphRelDirectionInvariant(t *testing.T) {
	// (a)<-[r]-(b) parses to left=b, right=a, direction=Incoming
	// (spec.md §3.3), which this plan node must preserve structurally:
	// LeftConnection/RightConnection always carry FROM/TO regardless of
	// Direction.
	b := &GraphNode{unaryNode: unaryNode{Input: &Empty{}}, Alias: "b"}
	a := &GraphNode{unaryNode: unaryNode{Input: &Empty{}}, Alias: "a"}
	rel := &GraphRel{
		Left:            b,
		Right:           a,
		Alias:           "r",
		Direction:       ast.DirIncoming,
		LeftConnection:  "b",
		RightConnection: "a",
	}
	require.Equal(t, "b", rel.LeftConnection)
	require.Equal(t, "a", rel.RightConnection)
	require.Len(t, rel.Children(), 2)
}

func TestUnionWithChildrenReplacesAllInputs(t *testing.T) {
	u := &Union{Inputs: []Node{&Scan{TableName: "x"}, &Scan{TableName: "y"}}, Type: UnionAll}
	rebuilt, err := u.WithChildren(&Scan{TableName: "z"})
	require.NoError(t, err)
	require.Len(t, rebuilt.Children(), 1)
}

func TestWithChildrenRejectsWrongArity(t *testing.T) {
	f := &Filter{unaryNode: unaryNode{Input: &Scan{}}, Predicate: &ast.Literal{Value: true}}
	_, err := f.WithChildren(&Scan{}, &Scan{})
	require.Error(t, err)
}
