// Package plan implements the C5 component: the logical plan, an
// immutable tree of operator nodes rewritten by the analyzer (C7) and
// optimizer (C8) passes before the SQL generator (C9) lowers it to text.
//
// The tree shape and rewrite contract (Node/Children/WithChildren plus
// TreeIdentity) mirror the teacher's sql.Node / sql/transform package,
// generalized from a row-execution plan to a pattern-compilation plan:
// this core never executes a node, it only rewrites and prints it.
package plan

// Node is the common interface every logical plan operator implements.
type Node interface {
	// Children returns this node's direct plan children, in a stable
	// order every WithChildren call must accept back unchanged in shape.
	Children() []Node
	// WithChildren returns a copy of this node with its children
	// replaced; len(children) must equal len(Children()).
	WithChildren(children ...Node) (Node, error)
}

// TreeIdentity records whether a rewrite produced a new node/tree or
// returned the input unchanged, so callers can skip re-processing
// identical subtrees — mirrors the teacher's sql/transform.TreeIdentity.
type TreeIdentity bool

const (
	SameTree TreeIdentity = false
	NewTree  TreeIdentity = true
)

// NodeFunc is the rewrite callback passed to the generic tree walkers
// below, matching the teacher's sql/transform.NodeFunc shape.
type NodeFunc func(Node) (Node, TreeIdentity, error)

// TransformUp applies fn to every node in n's tree, children before
// parents, rebuilding any ancestor whose children changed. It is the one
// piece of the teacher's sql/transform package every analyzer/optimizer
// pass in this core is built on.
func TransformUp(n Node, fn NodeFunc) (Node, TreeIdentity, error) {
	children := n.Children()
	if len(children) == 0 {
		return fn(n)
	}

	newChildren := make([]Node, len(children))
	anyChanged := false
	for i, c := range children {
		nc, same, err := TransformUp(c, fn)
		if err != nil {
			return nil, SameTree, err
		}
		newChildren[i] = nc
		if same == NewTree {
			anyChanged = true
		}
	}

	cur := n
	if anyChanged {
		rebuilt, err := n.WithChildren(newChildren...)
		if err != nil {
			return nil, SameTree, err
		}
		cur = rebuilt
	}

	out, same, err := fn(cur)
	if err != nil {
		return nil, SameTree, err
	}
	if same == NewTree || anyChanged {
		return out, NewTree, nil
	}
	return out, SameTree, nil
}

// WrongChildCountError is raised by WithChildren implementations when a
// caller passes the wrong number of children; a caller bug, not part of
// the public error taxonomy.
type WrongChildCountError struct {
	Kind     string
	Expected int
	Got      int
}

func (e *WrongChildCountError) Error() string {
	return "plan: " + e.Kind + ": wrong child count"
}
