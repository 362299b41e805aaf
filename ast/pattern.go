package ast

// Direction is the arrow shape a relationship pattern was written with.
// spec.md §3.3 "Direction invariant": this enum only records original
// syntax for display/SQL direction selection; left/right connection
// assignment is normalized separately by the plan builder.
type Direction int

const (
	DirEither Direction = iota
	DirOutgoing
	DirIncoming
)

func (d Direction) String() string {
	switch d {
	case DirOutgoing:
		return "->"
	case DirIncoming:
		return "<-"
	default:
		return "--"
	}
}

// VariableLengthSpec is `*`, `*n`, `*n..m`, `*..m`, `*n..`.
type VariableLengthSpec struct {
	Min *int
	Max *int
}

func FixedLength(n int) VariableLengthSpec      { return VariableLengthSpec{Min: &n, Max: &n} }
func RangeLength(lo, hi int) VariableLengthSpec { return VariableLengthSpec{Min: &lo, Max: &hi} }
func MaxOnlyLength(hi int) VariableLengthSpec    { return VariableLengthSpec{Max: &hi} }
func MinOnlyLength(lo int) VariableLengthSpec    { return VariableLengthSpec{Min: &lo} }
func UnboundedLength() VariableLengthSpec        { return VariableLengthSpec{} }

// Valid enforces the invariant from spec.md §3.1: if both bounds are set,
// min <= max. min == 0 is allowed here (callers restrict it to
// shortest-path position, per Open Question (a) in §9).
func (v VariableLengthSpec) Valid() bool {
	if v.Min != nil && v.Max != nil {
		return *v.Min <= *v.Max
	}
	return true
}

// NodePattern is `(name? :Label1:Label2 {props}?)`.
type NodePattern struct {
	Name       string // empty if anonymous
	Labels     []string
	Properties *MapLiteral // nil if absent
	Sp         Span
}

func (n *NodePattern) Children() []Node {
	if n.Properties != nil {
		return []Node{n.Properties}
	}
	return nil
}

func (n *NodePattern) WithChildren(children ...Node) (Node, error) {
	if len(children) == 0 {
		cp := *n
		cp.Properties = nil
		return &cp, nil
	}
	m, ok := children[0].(*MapLiteral)
	if !ok {
		return nil, &WrongChildKindError{Kind: "NodePattern", Index: 0}
	}
	cp := *n
	cp.Properties = m
	return &cp, nil
}

// RelationshipPattern is `[name? :TYPE1|TYPE2 *vlp? {props}?]` plus the
// surrounding arrow direction.
type RelationshipPattern struct {
	Name           string
	Direction      Direction
	Types          []string
	Properties     *MapLiteral
	VariableLength *VariableLengthSpec
	Sp             Span
}

func (r *RelationshipPattern) Children() []Node {
	if r.Properties != nil {
		return []Node{r.Properties}
	}
	return nil
}

func (r *RelationshipPattern) WithChildren(children ...Node) (Node, error) {
	if len(children) == 0 {
		cp := *r
		cp.Properties = nil
		return &cp, nil
	}
	m, ok := children[0].(*MapLiteral)
	if !ok {
		return nil, &WrongChildKindError{Kind: "RelationshipPattern", Index: 0}
	}
	cp := *r
	cp.Properties = m
	return &cp, nil
}

// PathPattern is the sum type Node | ConnectedPattern | ShortestPath |
// AllShortestPaths from spec.md §3.1.
type PathPattern interface {
	Node
	isPathPattern()
}

// SingleNodePattern wraps a lone node pattern, e.g. `(n:User)`.
type SingleNodePattern struct {
	Node *NodePattern
}

func (s *SingleNodePattern) isPathPattern()                  {}
func (s *SingleNodePattern) Children() []Node                { return []Node{s.Node} }
func (s *SingleNodePattern) WithChildren(children ...Node) (Node, error) {
	np, ok := children[0].(*NodePattern)
	if !ok {
		return nil, &WrongChildKindError{Kind: "SingleNodePattern", Index: 0}
	}
	return &SingleNodePattern{Node: np}, nil
}

// PatternHop is one `{start, rel, end}` leg of a ConnectedPattern; Start
// and End are indices into ConnectedPattern.Nodes sharing references
// across hops exactly as spec.md describes.
type PatternHop struct {
	Start int
	Rel   *RelationshipPattern
	End   int
}

// ConnectedPattern is a chain of nodes joined by relationships, e.g.
// `(a)-[r1]->(b)-[r2]->(c)`.
type ConnectedPattern struct {
	Nodes []*NodePattern
	Hops  []PatternHop
}

func (c *ConnectedPattern) isPathPattern() {}

func (c *ConnectedPattern) Children() []Node {
	out := make([]Node, 0, len(c.Nodes)+len(c.Hops))
	for _, n := range c.Nodes {
		out = append(out, n)
	}
	for _, h := range c.Hops {
		out = append(out, h.Rel)
	}
	return out
}

func (c *ConnectedPattern) WithChildren(children ...Node) (Node, error) {
	if len(children) != len(c.Nodes)+len(c.Hops) {
		return nil, &WrongChildKindError{Kind: "ConnectedPattern", Index: -1}
	}
	cp := &ConnectedPattern{
		Nodes: make([]*NodePattern, len(c.Nodes)),
		Hops:  make([]PatternHop, len(c.Hops)),
	}
	for i := range c.Nodes {
		np, ok := children[i].(*NodePattern)
		if !ok {
			return nil, &WrongChildKindError{Kind: "ConnectedPattern", Index: i}
		}
		cp.Nodes[i] = np
	}
	for i, h := range c.Hops {
		rp, ok := children[len(c.Nodes)+i].(*RelationshipPattern)
		if !ok {
			return nil, &WrongChildKindError{Kind: "ConnectedPattern", Index: len(c.Nodes) + i}
		}
		cp.Hops[i] = PatternHop{Start: h.Start, Rel: rp, End: h.End}
	}
	return cp, nil
}

// ShortestPath wraps `shortestPath(pattern)`.
type ShortestPath struct {
	Inner PathPattern
}

func (s *ShortestPath) isPathPattern()   {}
func (s *ShortestPath) Children() []Node { return []Node{s.Inner} }
func (s *ShortestPath) WithChildren(children ...Node) (Node, error) {
	pp, ok := children[0].(PathPattern)
	if !ok {
		return nil, &WrongChildKindError{Kind: "ShortestPath", Index: 0}
	}
	return &ShortestPath{Inner: pp}, nil
}

// AllShortestPaths wraps `allShortestPaths(pattern)`.
type AllShortestPaths struct {
	Inner PathPattern
}

func (a *AllShortestPaths) isPathPattern()   {}
func (a *AllShortestPaths) Children() []Node { return []Node{a.Inner} }
func (a *AllShortestPaths) WithChildren(children ...Node) (Node, error) {
	pp, ok := children[0].(PathPattern)
	if !ok {
		return nil, &WrongChildKindError{Kind: "AllShortestPaths", Index: 0}
	}
	return &AllShortestPaths{Inner: pp}, nil
}
