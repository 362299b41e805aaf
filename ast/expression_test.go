package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBinaryOpWithChildren(t *testing.T) {
	left := &Variable{Name: "a"}
	right := &Literal{Value: int64(1)}
	b := &BinaryOp{Op: "=", Left: left, Right: right}

	got, err := b.WithChildren(left, &Literal{Value: int64(2)})
	require.NoError(t, err)

	rewritten, ok := got.(*BinaryOp)
	require.True(t, ok)
	require.Equal(t, "=", rewritten.Op)
	require.Equal(t, int64(2), rewritten.Right.(*Literal).Value)
	// original node is untouched: passes must build new nodes, not mutate.
	require.Equal(t, int64(1), b.Right.(*Literal).Value)
}

func TestListLiteralChildrenRoundTrip(t *testing.T) {
	l := &ListLiteral{Items: []Expression{
		&Literal{Value: int64(1)},
		&Literal{Value: int64(2)},
	}}
	children := l.Children()
	require.Len(t, children, 2)

	got, err := l.WithChildren(children...)
	require.NoError(t, err)
	require.Equal(t, l, got)
}

func TestSubscriptSliceChildren(t *testing.T) {
	target := &Variable{Name: "xs"}
	lo := &Literal{Value: int64(0)}
	hi := &Literal{Value: int64(3)}
	s := &Subscript{Target: target, Lo: lo, Hi: hi, IsSlice: true}

	require.Len(t, s.Children(), 3)

	got, err := s.WithChildren(target, &Literal{Value: int64(1)}, hi)
	require.NoError(t, err)
	rewritten := got.(*Subscript)
	require.Equal(t, int64(1), rewritten.Lo.(*Literal).Value)
}

func TestWrongChildKindError(t *testing.T) {
	b := &BinaryOp{Op: "+", Left: &Literal{}, Right: &Literal{}}
	_, err := b.WithChildren(&NodePattern{})
	require.Error(t, err)
}
