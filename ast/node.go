package ast

// Node is implemented by every AST node, expression or otherwise. Mirrors
// the teacher's sql.Node Children()/WithChildren() shape (sql/plan,
// sql/expression) so that generic tree-walking helpers (astx, analyzer)
// work identically over both the AST and the logical plan.
type Node interface {
	Children() []Node
	WithChildren(children ...Node) (Node, error)
}
