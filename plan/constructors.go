package plan

import "github.com/brahmanddb/cyphercompiler/ast"

// The New* constructors below mirror the teacher's sql/plan package
// (e.g. NewFilter(predicate, child)): every operator is built through a
// constructor rather than a bare struct literal from other packages,
// since unaryNode's embedded field is unexported.

func NewScan(alias, table string) *Scan { return &Scan{TableAlias: alias, TableName: table} }

func NewViewScan(alias, table, label string, propertyMappings map[string]string, idColumn string, denormalized bool) *ViewScan {
	return &ViewScan{
		TableAlias:       alias,
		TableName:        table,
		Label:            label,
		PropertyMappings: propertyMappings,
		IDColumn:         idColumn,
		IsDenormalized:   denormalized,
	}
}

func NewGraphNode(input Node, alias, label string) *GraphNode {
	return &GraphNode{unaryNode: unaryNode{Input: input}, Alias: alias, Label: label}
}

func NewGraphRel(left, right Node, alias string, direction ast.Direction, leftConn, rightConn string) *GraphRel {
	return &GraphRel{
		Left:            left,
		Right:           right,
		Alias:           alias,
		Direction:       direction,
		LeftConnection:  leftConn,
		RightConnection: rightConn,
	}
}

func NewFilter(predicate ast.Expression, input Node) *Filter {
	return &Filter{unaryNode: unaryNode{Input: input}, Predicate: predicate}
}

func NewProjection(input Node, items []ProjectionItem, distinct bool, kind ProjectionKind) *Projection {
	return &Projection{unaryNode: unaryNode{Input: input}, Items: items, Distinct: distinct, Kind: kind}
}

func NewGroupBy(input Node, expressions []ast.Expression, having ast.Expression) *GroupBy {
	return &GroupBy{unaryNode: unaryNode{Input: input}, Expressions: expressions, HavingClause: having}
}

func NewOrderBy(input Node, items []ast.OrderItem) *OrderBy {
	return &OrderBy{unaryNode: unaryNode{Input: input}, Items: items}
}

func NewSkip(input Node, count ast.Expression) *Skip {
	return &Skip{unaryNode: unaryNode{Input: input}, Count: count}
}

func NewLimit(input Node, count ast.Expression) *Limit {
	return &Limit{unaryNode: unaryNode{Input: input}, Count: count}
}

func NewUnwind(input Node, expr ast.Expression, alias string) *Unwind {
	return &Unwind{unaryNode: unaryNode{Input: input}, Expr: expr, Alias: alias}
}

func NewUnion(inputs []Node, typ UnionType) *Union { return &Union{Inputs: inputs, Type: typ} }

func NewCte(input Node, name string) *Cte { return &Cte{unaryNode: unaryNode{Input: input}, Name: name} }

func NewWithClause(input Node, items []ProjectionItem, distinct bool, where ast.Expression, orderBy []ast.OrderItem, skip, limit ast.Expression, exported []string) *WithClause {
	return &WithClause{
		unaryNode:       unaryNode{Input: input},
		Items:           items,
		Distinct:        distinct,
		WhereClause:     where,
		OrderBy:         orderBy,
		Skip:            skip,
		Limit:           limit,
		ExportedAliases: exported,
	}
}

func NewCartesianProduct(left, right Node, isOptional bool, joinCondition ast.Expression) *CartesianProduct {
	return &CartesianProduct{Left: left, Right: right, IsOptional: isOptional, JoinCondition: joinCondition}
}

func NewGraphJoins(input Node, joins []JoinKey, optionalAliases []string, anchorTable string) *GraphJoins {
	return &GraphJoins{unaryNode: unaryNode{Input: input}, Joins: joins, OptionalAliases: optionalAliases, AnchorTable: anchorTable}
}

func NewPageRank(input Node, nodeAlias, relAlias, scoreAlias string, iterations int, damping float64) *PageRank {
	return &PageRank{
		unaryNode:     unaryNode{Input: input},
		NodeAlias:     nodeAlias,
		RelAlias:      relAlias,
		ScoreAlias:    scoreAlias,
		Iterations:    iterations,
		DampingFactor: damping,
	}
}

// EmptyNode returns a new Empty{} leaf, matching spec.md §3.3.
func EmptyNode() Node { return &Empty{} }
