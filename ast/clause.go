package ast

// ReturnItem stores the original source slice of an unaliased expression
// so the driver can expose it verbatim as the client-visible column name
// (spec.md §3.1, "ReturnItem stores the original source slice").
type ReturnItem struct {
	Expr      Expression
	Alias     string // empty if unaliased
	SourceText string // original slice, used as implicit name when Alias == ""
}

// Name returns the effective column name for this item.
func (r ReturnItem) Name() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.SourceText
}

// MatchClause is one MATCH or OPTIONAL MATCH clause with zero or more
// comma-separated path patterns and an optional WHERE.
type MatchClause struct {
	Optional bool
	Patterns []PathPattern
	Where    Expression // nil if absent
}

// UnwindClause is `UNWIND expr AS alias`.
type UnwindClause struct {
	Expr  Expression
	Alias string
}

// OrderItem is one ORDER BY expression with direction.
type OrderItem struct {
	Expr       Expression
	Descending bool
}

// WithClause is `WITH [DISTINCT] items [WHERE] [ORDER BY] [SKIP] [LIMIT]`.
// It both projects and re-scopes subsequent clauses (spec.md §4.3, scope
// shielding).
type WithClause struct {
	Distinct bool
	Items    []ReturnItem
	Where    Expression // nil if absent
	OrderBy  []OrderItem
	Skip     Expression // nil if absent
	Limit    Expression // nil if absent
}

// ReturnClause is the terminal projection of a query.
type ReturnClause struct {
	Distinct bool
	Items    []ReturnItem
	OrderBy  []OrderItem
	Skip     Expression
	Limit    Expression
}

// SetItem is one `target.prop = expr` or `target = expr` assignment.
type SetItem struct {
	Target   Expression
	Property string // empty when assigning the whole target
	Value    Expression
}

// DeleteClause is `[DETACH] DELETE items`.
type DeleteClause struct {
	Detach bool
	Items  []Expression
}

// CreateClause is `CREATE pattern` reusing the same pattern grammar as
// MATCH (spec.md does not define separate AST for CREATE/SET/REMOVE/DELETE
// beyond "carries optional clauses in canonical order").
type CreateClause struct {
	Patterns []PathPattern
}

// RemoveClause is `REMOVE target.prop` / `REMOVE var:Label`.
type RemoveClause struct {
	Properties []Expression
	Labels     []LabelPredicate
}

// CallClause is a procedure CALL embedded inside a query (distinct from the
// top-level Statement.ProcedureCall).
type CallClause struct {
	Name       string
	Args       []Expression
	YieldItems []string
}

// UseClause selects a database/graph namespace, `USE name`.
type UseClause struct {
	Name string
}

// UnionClause is `UNION [ALL] Query`.
type UnionClause struct {
	All   bool
	Query *Query
}

// Query is a full query body. Clauses are interleaved in canonical source
// order via the Reading slice (MATCH/OPTIONAL MATCH in written order),
// matching spec.md §3.1.
type Query struct {
	Use     *UseClause
	Reading []MatchClause // MATCH / OPTIONAL MATCH, interleaved, in source order
	Call    *CallClause
	Unwind  []UnwindClause
	With    []WithClause // zero or more WITH boundaries
	Create  []CreateClause
	Set     []SetItem
	Remove  *RemoveClause
	Delete  *DeleteClause
	Return  *ReturnClause // nil if the query ends at a WITH with no RETURN (not legal in practice but tolerated by the parser)

	Unions []UnionClause
}

func (q *Query) Children() []Node { return nil } // Query is a container walked structurally, not via the generic Node tree
func (q *Query) WithChildren(...Node) (Node, error) {
	return q, nil
}

// Statement is the top-level parse result.
type Statement interface {
	isStatement()
}

// QueryStatement wraps a Query plus trailing UNION clauses already merged
// into Query.Unions.
type QueryStatement struct {
	Query *Query
}

func (*QueryStatement) isStatement() {}

// ProcedureCallStatement is a standalone `CALL proc(args) YIELD ...`
// statement (not embedded in a MATCH/RETURN query).
type ProcedureCallStatement struct {
	Name       string
	Args       []Expression
	YieldItems []string
}

func (*ProcedureCallStatement) isStatement() {}

// DDLStatement is CREATE NODE TABLE / CREATE REL TABLE (spec.md §6.3).
type DDLStatement struct {
	CreateNodeTable *CreateNodeTable
	CreateRelTable  *CreateRelTable
}

func (*DDLStatement) isStatement() {}

// ColumnDef is one column of a CREATE NODE/REL TABLE statement.
type ColumnDef struct {
	Name    string
	DType   string
	Default Expression // nil if absent
}

// CreateNodeTable is `CREATE NODE TABLE T (col dtype [DEFAULT expr], ...,
// PRIMARY KEY(cols), NODE ID(col))`.
type CreateNodeTable struct {
	Label      string
	Columns    []ColumnDef
	PrimaryKey []string
	NodeID     string // the single NODE ID column name
}

// CreateRelTable is `CREATE REL TABLE R (FROM A TO B, col dtype ...,
// PRIMARY KEY(cols), ADJ INDEX <bool>)`.
type CreateRelTable struct {
	Type       string
	From       string
	To         string
	Columns    []ColumnDef
	PrimaryKey []string
	AdjIndex   bool
}
