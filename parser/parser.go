// Package parser implements the C2 component: a hand-written
// recursive-descent parser, tokenized by participle/v2's lexer, that turns
// Cypher source text into the ast package's zero-copy syntax tree. See
// SPEC_FULL.md §4.1 for why a combinator engine isn't used for the
// grammar itself.
package parser

import (
	"strconv"
	"strings"

	"github.com/brahmanddb/cyphercompiler/ast"
)

// Parse parses a single top-level Cypher statement. Trailing semicolon is
// required (spec.md §4.1). No partial statement is ever returned: either a
// full ast.Statement comes back, or a *ParseError does.
func Parse(src string) (ast.Statement, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, &ParseError{Span: ast.Span{Start: 0, End: len(src)}, Messages: []string{"tokenizing statement", err.Error()}}
	}
	p := &parser{src: src, toks: toks}

	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, wrap(err, "expected trailing semicolon")
	}
	if p.peek().Kind != "EOF" {
		return nil, newParseErr(p.peek(), "unexpected trailing input after statement")
	}
	return stmt, nil
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return eofToken(len(p.src))
}

func (p *parser) peekAt(offset int) token {
	idx := p.pos + offset
	if idx < len(p.toks) {
		return p.toks[idx]
	}
	return eofToken(len(p.src))
}

func (p *parser) advance() token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(t token, kw string) bool {
	return t.Kind == "Ident" && strings.EqualFold(t.Value, kw)
}

// atKeyword checks the current token, and optionally a second keyword
// immediately after it (for two-word keywords like "OPTIONAL MATCH",
// "ORDER BY", "IS NOT", "STARTS WITH").
func (p *parser) atKeyword(kw ...string) bool {
	for i, k := range kw {
		if !p.isKeyword(p.peekAt(i), k) {
			return false
		}
	}
	return true
}

func (p *parser) eatKeyword(kw ...string) bool {
	if !p.atKeyword(kw...) {
		return false
	}
	for range kw {
		p.advance()
	}
	return true
}

func (p *parser) expectKeyword(kw string) (token, error) {
	if !p.isKeyword(p.peek(), kw) {
		return token{}, newParseErr(p.peek(), "expected keyword "+strings.ToUpper(kw))
	}
	return p.advance(), nil
}

func (p *parser) atPunct(val string) bool {
	t := p.peek()
	return (t.Kind == "Punct" || t.Kind == "Op") && t.Value == val
}

func (p *parser) eatPunct(val string) bool {
	if !p.atPunct(val) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) expectPunct(val string) (token, error) {
	if !p.atPunct(val) {
		return token{}, newParseErr(p.peek(), "expected '"+val+"'")
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (token, error) {
	if p.peek().Kind != "Ident" {
		return token{}, newParseErr(p.peek(), "expected identifier")
	}
	return p.advance(), nil
}

// ---- statements ----

func (p *parser) parseStatement() (ast.Statement, error) {
	if p.atKeyword("CREATE") && (p.isKeyword(p.peekAt(1), "NODE") || p.isKeyword(p.peekAt(1), "REL")) {
		return p.parseDDL()
	}
	if p.atKeyword("CALL") && !p.isQueryLead() {
		return p.parseProcedureCallStatement()
	}
	q, err := p.parseQuery()
	if err != nil {
		return nil, wrap(err, "parsing query")
	}
	return &ast.QueryStatement{Query: q}, nil
}

// isQueryLead disambiguates a standalone CALL statement from CALL embedded
// as a reading clause inside a larger query: if anything reading-clause
// shaped follows the procedure call, it is the embedded form.
func (p *parser) isQueryLead() bool {
	// Look past "CALL name(args)" for YIELD/RETURN/MATCH/WITH.
	save := p.pos
	defer func() { p.pos = save }()
	if !p.eatKeyword("CALL") {
		return false
	}
	if p.peek().Kind != "Ident" {
		return false
	}
	p.advance()
	depth := 0
	for {
		t := p.peek()
		if t.Kind == "EOF" {
			return false
		}
		if t.Value == "(" {
			depth++
			p.advance()
			continue
		}
		if t.Value == ")" {
			depth--
			p.advance()
			if depth == 0 {
				break
			}
			continue
		}
		if depth == 0 {
			break
		}
		p.advance()
	}
	return p.atKeyword("YIELD") || p.atKeyword("RETURN") || p.atKeyword("MATCH") ||
		p.atKeyword("WITH") || p.atKeyword("OPTIONAL", "MATCH")
}

func (p *parser) parseProcedureCallStatement() (ast.Statement, error) {
	p.advance() // CALL
	name, err := p.parseProcedureName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []ast.Expression
	for !p.atPunct(")") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if !p.eatPunct(",") {
			break
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	var yields []string
	if p.eatKeyword("YIELD") {
		for {
			id, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			yields = append(yields, id.Value)
			if !p.eatPunct(",") {
				break
			}
		}
	}
	return &ast.ProcedureCallStatement{Name: name, Args: args, YieldItems: yields}, nil
}

func (p *parser) parseProcedureName() (string, error) {
	first, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	name := first.Value
	for p.eatPunct(".") {
		next, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		name += "." + next.Value
	}
	return name, nil
}

// ---- query ----

func (p *parser) parseQuery() (*ast.Query, error) {
	q := &ast.Query{}

	if p.eatKeyword("USE") {
		id, err := p.expectIdent()
		if err != nil {
			return nil, wrap(err, "parsing USE clause")
		}
		q.Use = &ast.UseClause{Name: id.Value}
	}

	for {
		switch {
		case p.atKeyword("OPTIONAL", "MATCH"):
			mc, err := p.parseMatchClause(true)
			if err != nil {
				return nil, err
			}
			q.Reading = append(q.Reading, *mc)
		case p.atKeyword("MATCH"):
			mc, err := p.parseMatchClause(false)
			if err != nil {
				return nil, err
			}
			q.Reading = append(q.Reading, *mc)
		case p.atKeyword("UNWIND"):
			p.advance()
			e, err := p.parseExpression()
			if err != nil {
				return nil, wrap(err, "parsing UNWIND expression")
			}
			if _, err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}
			id, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			q.Unwind = append(q.Unwind, ast.UnwindClause{Expr: e, Alias: id.Value})
		case p.atKeyword("WITH"):
			wc, err := p.parseWithClause()
			if err != nil {
				return nil, err
			}
			q.With = append(q.With, *wc)
		case p.atKeyword("CREATE"):
			cc, err := p.parseCreateClause()
			if err != nil {
				return nil, err
			}
			q.Create = append(q.Create, *cc)
		case p.atKeyword("SET"):
			p.advance()
			items, err := p.parseSetItems()
			if err != nil {
				return nil, err
			}
			q.Set = append(q.Set, items...)
		case p.atKeyword("REMOVE"):
			p.advance()
			rc, err := p.parseRemoveClause()
			if err != nil {
				return nil, err
			}
			q.Remove = rc
		case p.atKeyword("DETACH", "DELETE") || p.atKeyword("DELETE"):
			dc, err := p.parseDeleteClause()
			if err != nil {
				return nil, err
			}
			q.Delete = dc
		case p.atKeyword("RETURN"):
			rc, err := p.parseReturnClause()
			if err != nil {
				return nil, err
			}
			q.Return = rc
		default:
			goto doneClauses
		}
	}
doneClauses:

	for p.atKeyword("UNION") {
		p.advance()
		all := p.eatKeyword("ALL")
		sub, err := p.parseQuery()
		if err != nil {
			return nil, wrap(err, "parsing UNION branch")
		}
		q.Unions = append(q.Unions, ast.UnionClause{All: all, Query: sub})
	}

	return q, nil
}

func (p *parser) parseMatchClause(optional bool) (*ast.MatchClause, error) {
	if optional {
		p.advance() // OPTIONAL
	}
	p.advance() // MATCH

	mc := &ast.MatchClause{Optional: optional}
	for {
		pp, err := p.parsePathPattern()
		if err != nil {
			return nil, wrap(err, "parsing MATCH pattern")
		}
		mc.Patterns = append(mc.Patterns, pp)
		if !p.eatPunct(",") {
			break
		}
	}
	if p.eatKeyword("WHERE") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, wrap(err, "parsing MATCH WHERE clause")
		}
		mc.Where = e
	}
	return mc, nil
}

func (p *parser) parseWithClause() (*ast.WithClause, error) {
	p.advance() // WITH
	wc := &ast.WithClause{}
	wc.Distinct = p.eatKeyword("DISTINCT")
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, wrap(err, "parsing WITH items")
	}
	wc.Items = items
	if p.eatKeyword("WHERE") {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		wc.Where = e
	}
	if ob, err := p.parseOptionalOrderBy(); err != nil {
		return nil, err
	} else {
		wc.OrderBy = ob
	}
	if s, err := p.parseOptionalSkip(); err != nil {
		return nil, err
	} else {
		wc.Skip = s
	}
	if l, err := p.parseOptionalLimit(); err != nil {
		return nil, err
	} else {
		wc.Limit = l
	}
	return wc, nil
}

func (p *parser) parseReturnClause() (*ast.ReturnClause, error) {
	p.advance() // RETURN
	rc := &ast.ReturnClause{}
	rc.Distinct = p.eatKeyword("DISTINCT")
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, wrap(err, "parsing RETURN items")
	}
	rc.Items = items
	if ob, err := p.parseOptionalOrderBy(); err != nil {
		return nil, err
	} else {
		rc.OrderBy = ob
	}
	if s, err := p.parseOptionalSkip(); err != nil {
		return nil, err
	} else {
		rc.Skip = s
	}
	if l, err := p.parseOptionalLimit(); err != nil {
		return nil, err
	} else {
		rc.Limit = l
	}
	return rc, nil
}

func (p *parser) parseReturnItems() ([]ast.ReturnItem, error) {
	var items []ast.ReturnItem
	for {
		start := p.peek().Start
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		end := p.toks[p.pos-1].End
		alias := ""
		if p.eatKeyword("AS") {
			id, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			alias = id.Value
		}
		items = append(items, ast.ReturnItem{
			Expr:       e,
			Alias:      alias,
			SourceText: strings.TrimSpace(p.src[start:end]),
		})
		if !p.eatPunct(",") {
			break
		}
	}
	return items, nil
}

func (p *parser) parseOptionalOrderBy() ([]ast.OrderItem, error) {
	if !p.atKeyword("ORDER", "BY") {
		return nil, nil
	}
	p.advance()
	p.advance()
	var items []ast.OrderItem
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, wrap(err, "parsing ORDER BY")
		}
		desc := false
		if p.eatKeyword("DESC") || p.eatKeyword("DESCENDING") {
			desc = true
		} else {
			p.eatKeyword("ASC")
			p.eatKeyword("ASCENDING")
		}
		items = append(items, ast.OrderItem{Expr: e, Descending: desc})
		if !p.eatPunct(",") {
			break
		}
	}
	return items, nil
}

func (p *parser) parseOptionalSkip() (ast.Expression, error) {
	if !p.eatKeyword("SKIP") {
		return nil, nil
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, wrap(err, "parsing SKIP")
	}
	return e, nil
}

func (p *parser) parseOptionalLimit() (ast.Expression, error) {
	if !p.eatKeyword("LIMIT") {
		return nil, nil
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, wrap(err, "parsing LIMIT")
	}
	return e, nil
}

func (p *parser) parseCreateClause() (*ast.CreateClause, error) {
	p.advance() // CREATE
	cc := &ast.CreateClause{}
	for {
		pp, err := p.parsePathPattern()
		if err != nil {
			return nil, wrap(err, "parsing CREATE pattern")
		}
		cc.Patterns = append(cc.Patterns, pp)
		if !p.eatPunct(",") {
			break
		}
	}
	return cc, nil
}

func (p *parser) parseSetItems() ([]ast.SetItem, error) {
	var items []ast.SetItem
	for {
		target, err := p.parsePrimary()
		if err != nil {
			return nil, wrap(err, "parsing SET target")
		}
		prop := ""
		if pa, ok := target.(*ast.PropertyAccess); ok {
			prop = pa.Property
			target = pa.Target
		}
		if _, err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, ast.SetItem{Target: target, Property: prop, Value: val})
		if !p.eatPunct(",") {
			break
		}
	}
	return items, nil
}

func (p *parser) parseRemoveClause() (*ast.RemoveClause, error) {
	rc := &ast.RemoveClause{}
	for {
		start := p.peek()
		id, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if p.eatPunct(":") {
			label, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			rc.Labels = append(rc.Labels, ast.LabelPredicate{
				Variable: id.Value, Label: label.Value,
				Sp: ast.Span{Start: start.Start, End: p.toks[p.pos-1].End},
			})
		} else if p.eatPunct(".") {
			prop, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			rc.Properties = append(rc.Properties, &ast.PropertyAccess{
				Target:   &ast.Variable{Name: id.Value, Sp: ast.Span{Start: start.Start, End: start.End}},
				Property: prop.Value,
				Sp:       ast.Span{Start: start.Start, End: p.toks[p.pos-1].End},
			})
		} else {
			return nil, newParseErr(p.peek(), "expected '.' or ':' after REMOVE target")
		}
		if !p.eatPunct(",") {
			break
		}
	}
	return rc, nil
}

func (p *parser) parseDeleteClause() (*ast.DeleteClause, error) {
	detach := p.eatKeyword("DETACH")
	if _, err := p.expectKeyword("DELETE"); err != nil {
		return nil, err
	}
	dc := &ast.DeleteClause{Detach: detach}
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, wrap(err, "parsing DELETE items")
		}
		dc.Items = append(dc.Items, e)
		if !p.eatPunct(",") {
			break
		}
	}
	return dc, nil
}

// ---- numeric helpers ----

func parseIntLiteral(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
