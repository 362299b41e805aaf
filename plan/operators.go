package plan

import (
	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// unaryNode is the embeddable shape for every operator with exactly one
// child input, mirroring the teacher's sql/plan.UnaryNode.
type unaryNode struct {
	Input Node
}

func (u *unaryNode) children() []Node { return []Node{u.Input} }

func one(kind string, children []Node) (Node, error) {
	if len(children) != 1 {
		return nil, &WrongChildCountError{Kind: kind, Expected: 1, Got: len(children)}
	}
	return children[0], nil
}

// Empty is the neutral input for statements that bind no table, e.g. a
// RETURN of only literals/parameters.
type Empty struct{}

func (e *Empty) Children() []Node                    { return nil }
func (e *Empty) WithChildren(children ...Node) (Node, error) {
	if len(children) != 0 {
		return nil, &WrongChildCountError{Kind: "Empty", Expected: 0, Got: len(children)}
	}
	return e, nil
}

// Scan is a pre-view-resolution physical table read.
type Scan struct {
	TableAlias string
	TableName  string
}

func (s *Scan) Children() []Node { return nil }
func (s *Scan) WithChildren(children ...Node) (Node, error) {
	if len(children) != 0 {
		return nil, &WrongChildCountError{Kind: "Scan", Expected: 0, Got: len(children)}
	}
	return s, nil
}

// ViewScan is the post-resolution physical read carrying the catalog's
// property mappings, id column, and denormalization metadata.
type ViewScan struct {
	TableAlias       string
	TableName        string
	Label            string
	PropertyMappings map[string]string // property -> physical column
	IDColumn         string
	IsDenormalized   bool
}

func (v *ViewScan) Children() []Node { return nil }
func (v *ViewScan) WithChildren(children ...Node) (Node, error) {
	if len(children) != 0 {
		return nil, &WrongChildCountError{Kind: "ViewScan", Expected: 0, Got: len(children)}
	}
	return v, nil
}

// GraphNode is one node of a matched pattern.
type GraphNode struct {
	unaryNode
	Alias             string
	Label             string // empty if not statically known
	NodeTypes         []string // all labels when multi-typed
	IsDenormalized    bool
	ProjectedColumns  []string
}

func (g *GraphNode) Children() []Node { return g.children() }
func (g *GraphNode) WithChildren(children ...Node) (Node, error) {
	input, err := one("GraphNode", children)
	if err != nil {
		return nil, err
	}
	cp := *g
	cp.Input = input
	return &cp, nil
}

// GraphRel connects two node sub-plans. left_connection is always FROM
// and right_connection always TO regardless of how the pattern was
// written (spec.md §3.3 "Direction invariant"); Direction records only
// the original written arrow shape.
type GraphRel struct {
	Left, Right         Node
	Center              Node // nil unless the relationship itself carries a sub-plan (e.g. variable length base case)
	Alias               string
	Direction           ast.Direction
	LeftConnection      string // alias bound on the FROM side
	RightConnection     string // alias bound on the TO side
	IsRelAnchor         bool
	VariableLength      *ast.VariableLengthSpec
	ShortestPathMode    ShortestPathMode
	PathVariable        string
	WherePredicate      ast.Expression
	Labels              []string // relationship type(s)
	IsOptional          bool
	AnchorConnection    string
	CTEReferences       []string
	PatternCombinations []planctx.TypeCombination
	WasUndirected       bool
}

// ShortestPathMode distinguishes shortestPath()/allShortestPaths() from a
// plain variable-length traversal.
type ShortestPathMode int

const (
	ShortestPathNone ShortestPathMode = iota
	ShortestPathSingle
	ShortestPathAll
)

func (g *GraphRel) Children() []Node {
	out := []Node{g.Left, g.Right}
	if g.Center != nil {
		out = append(out, g.Center)
	}
	return out
}

func (g *GraphRel) WithChildren(children ...Node) (Node, error) {
	want := 2
	if g.Center != nil {
		want = 3
	}
	if len(children) != want {
		return nil, &WrongChildCountError{Kind: "GraphRel", Expected: want, Got: len(children)}
	}
	cp := *g
	cp.Left, cp.Right = children[0], children[1]
	if g.Center != nil {
		cp.Center = children[2]
	}
	return &cp, nil
}

// Filter applies predicate over input rows.
type Filter struct {
	unaryNode
	Predicate ast.Expression
}

func (f *Filter) Children() []Node { return f.children() }
func (f *Filter) WithChildren(children ...Node) (Node, error) {
	input, err := one("Filter", children)
	if err != nil {
		return nil, err
	}
	cp := *f
	cp.Input = input
	return &cp, nil
}

// ProjectionKind distinguishes a WITH-boundary projection from a terminal
// RETURN projection.
type ProjectionKind int

const (
	ProjectionReturn ProjectionKind = iota
	ProjectionWith
)

// Projection is a RETURN/WITH projection list.
type Projection struct {
	unaryNode
	Items                []ProjectionItem
	Distinct             bool
	PatternComprehensions []ast.Expression
	Kind                 ProjectionKind
}

// ProjectionItem is one output column.
type ProjectionItem struct {
	Expr  ast.Expression
	Alias string
}

func (p *Projection) Children() []Node { return p.children() }
func (p *Projection) WithChildren(children ...Node) (Node, error) {
	input, err := one("Projection", children)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.Input = input
	return &cp, nil
}

// GroupBy is an aggregation boundary.
type GroupBy struct {
	unaryNode
	Expressions  []ast.Expression
	HavingClause ast.Expression // nil if absent
}

func (g *GroupBy) Children() []Node { return g.children() }
func (g *GroupBy) WithChildren(children ...Node) (Node, error) {
	input, err := one("GroupBy", children)
	if err != nil {
		return nil, err
	}
	cp := *g
	cp.Input = input
	return &cp, nil
}

// OrderBy sorts input rows.
type OrderBy struct {
	unaryNode
	Items []ast.OrderItem
}

func (o *OrderBy) Children() []Node { return o.children() }
func (o *OrderBy) WithChildren(children ...Node) (Node, error) {
	input, err := one("OrderBy", children)
	if err != nil {
		return nil, err
	}
	cp := *o
	cp.Input = input
	return &cp, nil
}

// Skip discards the first Count rows.
type Skip struct {
	unaryNode
	Count ast.Expression
}

func (s *Skip) Children() []Node { return s.children() }
func (s *Skip) WithChildren(children ...Node) (Node, error) {
	input, err := one("Skip", children)
	if err != nil {
		return nil, err
	}
	cp := *s
	cp.Input = input
	return &cp, nil
}

// Limit caps input to the first Count rows.
type Limit struct {
	unaryNode
	Count ast.Expression
}

func (l *Limit) Children() []Node { return l.children() }
func (l *Limit) WithChildren(children ...Node) (Node, error) {
	input, err := one("Limit", children)
	if err != nil {
		return nil, err
	}
	cp := *l
	cp.Input = input
	return &cp, nil
}

// Unwind flattens a list-valued expression into rows bound to Alias.
type Unwind struct {
	unaryNode
	Expr            ast.Expression
	Alias           string
	Label           string   // empty if not statically known
	TupleProperties []string // set when unwinding a list of maps
}

func (u *Unwind) Children() []Node { return u.children() }
func (u *Unwind) WithChildren(children ...Node) (Node, error) {
	input, err := one("Unwind", children)
	if err != nil {
		return nil, err
	}
	cp := *u
	cp.Input = input
	return &cp, nil
}

// UnionType distinguishes UNION (deduplicated) from UNION ALL.
type UnionType int

const (
	UnionAll UnionType = iota
	UnionDistinct
)

// Union combines multiple branch plans.
type Union struct {
	Inputs []Node
	Type   UnionType
}

func (u *Union) Children() []Node { return u.Inputs }
func (u *Union) WithChildren(children ...Node) (Node, error) {
	cp := *u
	cp.Inputs = children
	return &cp, nil
}

// Cte wraps input as a named common table expression.
type Cte struct {
	unaryNode
	Name string
}

func (c *Cte) Children() []Node { return c.children() }
func (c *Cte) WithChildren(children ...Node) (Node, error) {
	input, err := one("Cte", children)
	if err != nil {
		return nil, err
	}
	cp := *c
	cp.Input = input
	return &cp, nil
}

// WithClause is a WITH boundary: it both projects and re-scopes the
// plan below it (spec.md §3.4, scope shielding).
type WithClause struct {
	unaryNode
	Items          []ProjectionItem
	Distinct       bool
	WhereClause    ast.Expression // nil if absent
	OrderBy        []ast.OrderItem
	Skip           ast.Expression
	Limit          ast.Expression
	ExportedAliases []string
}

func (w *WithClause) Children() []Node { return w.children() }
func (w *WithClause) WithChildren(children ...Node) (Node, error) {
	input, err := one("WithClause", children)
	if err != nil {
		return nil, err
	}
	cp := *w
	cp.Input = input
	return &cp, nil
}

// CartesianProduct joins two otherwise-unconnected branches.
type CartesianProduct struct {
	Left, Right   Node
	IsOptional    bool
	JoinCondition ast.Expression // nil if absent
}

func (c *CartesianProduct) Children() []Node { return []Node{c.Left, c.Right} }
func (c *CartesianProduct) WithChildren(children ...Node) (Node, error) {
	if len(children) != 2 {
		return nil, &WrongChildCountError{Kind: "CartesianProduct", Expected: 2, Got: len(children)}
	}
	cp := *c
	cp.Left, cp.Right = children[0], children[1]
	return &cp, nil
}

// JoinKey is one (alias, column) pair a GraphJoins node equates across
// branches.
type JoinKey struct {
	LeftAlias, RightAlias   string
	LeftColumn, RightColumn string
}

// GraphJoins materializes cross-branch joins detected by Graph-Join
// Construction (spec.md §4.4 step 5): a node alias that is the shared
// endpoint of two otherwise-independent GraphRel patterns.
type GraphJoins struct {
	unaryNode
	Joins           []JoinKey
	OptionalAliases []string
	AnchorTable     string
}

func (g *GraphJoins) Children() []Node { return g.children() }
func (g *GraphJoins) WithChildren(children ...Node) (Node, error) {
	input, err := one("GraphJoins", children)
	if err != nil {
		return nil, err
	}
	cp := *g
	cp.Input = input
	return &cp, nil
}

// PageRank represents a page-rank-style graph algorithm call embedded in
// a query (the CALL procedure surface, spec.md §3.1).
type PageRank struct {
	unaryNode
	NodeAlias   string
	RelAlias    string
	ScoreAlias  string
	Iterations  int
	DampingFactor float64
}

func (p *PageRank) Children() []Node { return p.children() }
func (p *PageRank) WithChildren(children ...Node) (Node, error) {
	input, err := one("PageRank", children)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.Input = input
	return &cp, nil
}
