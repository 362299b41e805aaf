package parser

import (
	"strconv"
	"strings"

	"github.com/brahmanddb/cyphercompiler/ast"
)

// aggregateNames lists the function names recognized as aggregates by
// name, per spec.md §3.1 ("aggregate function calls (aggregates
// recognized by name: count, min, max, avg, sum)").
var aggregateNames = map[string]bool{
	"count": true, "min": true, "max": true, "avg": true, "sum": true,
}

// binaryPrecedence is a precedence-climbing table, low to high. Multi-word
// operators (NOT IN, STARTS WITH, ENDS WITH) and CONTAINS have no entry of
// their own: peekBinaryOp gives them IN's precedence. IS [NOT] NULL is a
// postfix operator, handled in parsePostfix.
var binaryPrecedence = map[string]int{
	"OR": 1, "XOR": 2, "AND": 3,
	"=": 5, "<>": 5, "<": 5, "<=": 5, ">": 5, ">=": 5,
	"IN": 5, "=~": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
}

func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseBinary(1)
}

func (p *parser) parseBinary(minPrec int) (ast.Expression, error) {
	left, err := p.parseUnaryNot()
	if err != nil {
		return nil, err
	}
	for {
		op, prec, ok := p.peekBinaryOp()
		if !ok || prec < minPrec {
			return left, nil
		}
		p.consumeBinaryOp(op)
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{
			Op: op, Left: left, Right: right,
			Sp: ast.Span{Start: left.Span().Start, End: right.Span().End},
		}
	}
}

// peekBinaryOp recognizes the current position as a binary operator
// without consuming it, including the multi-token forms (NOT IN, STARTS
// WITH, ENDS WITH, CONTAINS, IS [NOT] NULL is handled separately as a
// postfix, since it has no right operand).
func (p *parser) peekBinaryOp() (string, int, bool) {
	t := p.peek()
	switch {
	case p.atKeyword("AND"):
		return "AND", binaryPrecedence["AND"], true
	case p.atKeyword("OR"):
		return "OR", binaryPrecedence["OR"], true
	case p.atKeyword("XOR"):
		return "XOR", binaryPrecedence["XOR"], true
	case p.atKeyword("IN"):
		return "IN", binaryPrecedence["IN"], true
	case p.atKeyword("NOT", "IN"):
		return "NOT IN", binaryPrecedence["IN"], true
	case p.atKeyword("STARTS", "WITH"):
		return "STARTS WITH", binaryPrecedence["IN"], true
	case p.atKeyword("ENDS", "WITH"):
		return "ENDS WITH", binaryPrecedence["IN"], true
	case p.atKeyword("CONTAINS"):
		return "CONTAINS", binaryPrecedence["IN"], true
	case t.Kind == "Op" || t.Kind == "Punct":
		if prec, ok := binaryPrecedence[t.Value]; ok {
			return t.Value, prec, true
		}
	}
	return "", 0, false
}

func (p *parser) consumeBinaryOp(op string) {
	switch op {
	case "AND", "OR", "XOR", "IN", "CONTAINS":
		p.advance()
	case "NOT IN", "STARTS WITH", "ENDS WITH":
		p.advance()
		p.advance()
	default:
		p.advance()
	}
}

func (p *parser) parseUnaryNot() (ast.Expression, error) {
	if p.atKeyword("NOT") {
		start := p.advance()
		// NOT's operand takes in comparisons and arithmetic and stops at
		// AND/XOR/OR, so NOT id(v) IN [...] negates the whole IN test.
		inner, err := p.parseBinary(binaryPrecedence["AND"] + 1)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: "NOT", Expr: inner, Sp: ast.Span{Start: start.Start, End: inner.Span().End}}, nil
	}
	return p.parseUnaryMinus()
}

func (p *parser) parseUnaryMinus() (ast.Expression, error) {
	if p.atPunct("-") {
		start := p.advance()
		inner, err := p.parseUnaryMinus()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: "-", Expr: inner, Sp: ast.Span{Start: start.Start, End: inner.Span().End}}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles property access, subscript/slicing, and the
// trailing IS [NOT] NULL / label predicate forms, all of which bind
// tighter than any binary operator.
func (p *parser) parsePostfix() (ast.Expression, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atPunct("."):
			p.advance()
			prop, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			e = &ast.PropertyAccess{Target: e, Property: prop.Value,
				Sp: ast.Span{Start: e.Span().Start, End: prop.End}}
		case p.atPunct(":") :
			p.advance()
			label, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			v, ok := e.(*ast.Variable)
			if !ok {
				return nil, newParseErr(label, "label predicate must follow a variable")
			}
			e = &ast.LabelPredicate{Variable: v.Name, Label: label.Value,
				Sp: ast.Span{Start: e.Span().Start, End: label.End}}
		case p.atPunct("["):
			sub, err := p.parseSubscript(e)
			if err != nil {
				return nil, err
			}
			e = sub
		case p.atKeyword("IS", "NOT", "NULL"):
			start := e.Span().Start
			p.advance()
			p.advance()
			end := p.advance()
			e = &ast.IsNull{Expr: e, Not: true, Sp: ast.Span{Start: start, End: end.End}}
		case p.atKeyword("IS", "NULL"):
			start := e.Span().Start
			p.advance()
			end := p.advance()
			e = &ast.IsNull{Expr: e, Not: false, Sp: ast.Span{Start: start, End: end.End}}
		default:
			return e, nil
		}
	}
}

func (p *parser) parseSubscript(target ast.Expression) (ast.Expression, error) {
	p.advance() // '['
	var lo, hi, idx ast.Expression
	isSlice := false
	if !p.atPunct("..") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		idx = e
		lo = e
	}
	if p.eatPunct("..") {
		isSlice = true
		lo = idx
		idx = nil
		if !p.atPunct("]") {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			hi = e
		}
	}
	end, err := p.expectPunct("]")
	if err != nil {
		return nil, err
	}
	sp := ast.Span{Start: target.Span().Start, End: end.End}
	if isSlice {
		return &ast.Subscript{Target: target, Lo: lo, Hi: hi, IsSlice: true, Sp: sp}, nil
	}
	return &ast.Subscript{Target: target, Index: idx, Sp: sp}, nil
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	t := p.peek()
	switch {
	case t.Kind == "Int":
		p.advance()
		v, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, newParseErr(t, "invalid integer literal")
		}
		return &ast.Literal{Value: v, Sp: spanOf(t)}, nil
	case t.Kind == "Float":
		p.advance()
		v, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, newParseErr(t, "invalid float literal")
		}
		return &ast.Literal{Value: v, Sp: spanOf(t)}, nil
	case t.Kind == "String":
		p.advance()
		return &ast.Literal{Value: unquote(t.Value), Sp: spanOf(t)}, nil
	case t.Kind == "Param":
		p.advance()
		return &ast.Parameter{Name: t.Value[1:], Sp: spanOf(t)}, nil
	case p.atKeyword("true"):
		p.advance()
		return &ast.Literal{Value: true, Sp: spanOf(t)}, nil
	case p.atKeyword("false"):
		p.advance()
		return &ast.Literal{Value: false, Sp: spanOf(t)}, nil
	case p.atKeyword("null"):
		p.advance()
		return &ast.Literal{Value: nil, Sp: spanOf(t)}, nil
	case p.atKeyword("DISTINCT"):
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.DistinctExpr{Expr: inner, Sp: ast.Span{Start: t.Start, End: inner.Span().End}}, nil
	case p.atKeyword("CASE"):
		return p.parseCase()
	case p.atKeyword("EXISTS"):
		return p.parseExists()
	case p.atKeyword("reduce") && p.peekAt(1).Value == "(":
		return p.parseReduce()
	case p.atPunct("("):
		return p.parseParenOrLambda()
	case p.atPunct("["):
		return p.parseListOrComprehension()
	case p.atPunct("{"):
		return p.parseMapLiteral()
	case t.Kind == "Ident":
		return p.parseIdentLed()
	}
	return nil, newParseErr(t, "expected expression")
}

func spanOf(t token) ast.Span { return ast.Span{Start: t.Start, End: t.End} }

func unquote(s string) string {
	inner := s[1 : len(s)-1]
	inner = strings.ReplaceAll(inner, `\'`, `'`)
	inner = strings.ReplaceAll(inner, `\"`, `"`)
	inner = strings.ReplaceAll(inner, `\\`, `\`)
	return inner
}

// parseIdentLed disambiguates a bare variable reference from a function
// call. Lambda forms are parsed by parseParenOrLambda, not here.
func (p *parser) parseIdentLed() (ast.Expression, error) {
	id := p.advance()
	if p.atPunct("(") {
		return p.parseFunctionCallAfterName(id)
	}
	return &ast.Variable{Name: id.Value, Sp: spanOf(id)}, nil
}

func (p *parser) parseFunctionCallAfterName(name token) (ast.Expression, error) {
	p.advance() // '('
	fn := &ast.FunctionCall{Name: name.Value, IsAggregate: aggregateNames[strings.ToLower(name.Value)]}
	for !p.atPunct(")") {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, wrap(err, "parsing arguments of "+name.Value+"()")
		}
		fn.Args = append(fn.Args, arg)
		if !p.eatPunct(",") {
			break
		}
	}
	end, err := p.expectPunct(")")
	if err != nil {
		return nil, err
	}
	fn.Sp = ast.Span{Start: name.Start, End: end.End}
	return fn, nil
}

func (p *parser) parseCase() (ast.Expression, error) {
	start := p.advance() // CASE
	c := &ast.CaseExpr{}
	if !p.atKeyword("WHEN") {
		operand, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Operand = operand
	}
	for p.eatKeyword("WHEN") {
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("THEN"); err != nil {
			return nil, err
		}
		res, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Whens = append(c.Whens, ast.CaseWhen{Condition: cond, Result: res})
	}
	if p.eatKeyword("ELSE") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		c.Else = e
	}
	end, err := p.expectKeyword("END")
	if err != nil {
		return nil, err
	}
	c.Sp = ast.Span{Start: start.Start, End: end.End}
	return c, nil
}

func (p *parser) parseExists() (ast.Expression, error) {
	start := p.advance() // EXISTS
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	pp, err := p.parsePathPattern()
	if err != nil {
		return nil, err
	}
	e := &ast.ExistsExpr{Pattern: pp}
	if p.eatKeyword("WHERE") {
		w, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		e.Where = w
	}
	end, err := p.expectPunct("}")
	if err != nil {
		return nil, err
	}
	e.Sp = ast.Span{Start: start.Start, End: end.End}
	return e, nil
}

func (p *parser) parseReduce() (ast.Expression, error) {
	start := p.advance() // reduce
	p.advance()          // '('
	acc, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("="); err != nil {
		return nil, err
	}
	init, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	v, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("IN"); err != nil {
		return nil, err
	}
	list, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("|"); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	end, err := p.expectPunct(")")
	if err != nil {
		return nil, err
	}
	return &ast.ReduceExpr{
		Accumulator: acc.Value, Init: init, Variable: v.Value, List: list, Expr: body,
		Sp: ast.Span{Start: start.Start, End: end.End},
	}, nil
}

// parseParenOrLambda parses a parenthesized expression, or a lambda
// parameter list `(x, y) -> body` when followed by `->`.
func (p *parser) parseParenOrLambda() (ast.Expression, error) {
	start := p.advance() // '('
	// Try lambda: a comma-separated identifier list closed by ')' then '->'.
	save := p.pos
	if params, ok := p.tryParseIdentListClose(); ok && p.atPunct("->") {
		p.advance()
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.LambdaExpr{Params: params, Body: body, Sp: ast.Span{Start: start.Start, End: body.Span().End}}, nil
	}
	p.pos = save

	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) tryParseIdentListClose() ([]string, bool) {
	var params []string
	for p.peek().Kind == "Ident" {
		params = append(params, p.advance().Value)
		if !p.eatPunct(",") {
			break
		}
	}
	if !p.eatPunct(")") {
		return nil, false
	}
	return params, true
}

// parseListOrComprehension parses `[e1, e2, ...]` or a pattern
// comprehension `[pattern WHERE? | proj]`. Disambiguated by trying the
// pattern-comprehension form first when the content starts with `(`.
func (p *parser) parseListOrComprehension() (ast.Expression, error) {
	start := p.advance() // '['
	if p.atPunct("(") {
		save := p.pos
		if pp, ok := p.tryParsePatternComprehensionBody(); ok {
			end, err := p.expectPunct("]")
			if err != nil {
				return nil, err
			}
			pp.Sp = ast.Span{Start: start.Start, End: end.End}
			return pp, nil
		}
		p.pos = save
	}
	l := &ast.ListLiteral{}
	for !p.atPunct("]") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, e)
		if !p.eatPunct(",") {
			break
		}
	}
	end, err := p.expectPunct("]")
	if err != nil {
		return nil, err
	}
	l.Sp = ast.Span{Start: start.Start, End: end.End}
	return l, nil
}

func (p *parser) tryParsePatternComprehensionBody() (*ast.PatternComprehension, bool) {
	pp, err := p.parsePathPattern()
	if err != nil {
		return nil, false
	}
	pc := &ast.PatternComprehension{Pattern: pp}
	if p.eatKeyword("WHERE") {
		w, err := p.parseExpression()
		if err != nil {
			return nil, false
		}
		pc.Where = w
	}
	if !p.eatPunct("|") {
		return nil, false
	}
	proj, err := p.parseExpression()
	if err != nil {
		return nil, false
	}
	pc.Projection = proj
	if !p.atPunct("]") {
		return nil, false
	}
	return pc, true
}
