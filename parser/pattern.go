package parser

import (
	"github.com/brahmanddb/cyphercompiler/ast"
)

// parsePathPattern parses one comma-separated pattern of a MATCH/CREATE
// clause: a bare node, a chain of node-relationship-node hops, or a
// shortestPath()/allShortestPaths() wrapper around either.
func (p *parser) parsePathPattern() (ast.PathPattern, error) {
	if p.atKeyword("shortestPath") && p.peekAt(1).Value == "(" {
		p.advance()
		p.advance()
		inner, err := p.parsePathPattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.ShortestPath{Inner: inner}, nil
	}
	if p.atKeyword("allShortestPaths") && p.peekAt(1).Value == "(" {
		p.advance()
		p.advance()
		inner, err := p.parsePathPattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.AllShortestPaths{Inner: inner}, nil
	}

	first, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}

	if !p.atPunct("-") && !p.atPunct("<") {
		return &ast.SingleNodePattern{Node: first}, nil
	}

	cp := &ast.ConnectedPattern{Nodes: []*ast.NodePattern{first}}
	for p.atPunct("-") || p.atPunct("<") {
		rel, err := p.parseRelationshipPattern()
		if err != nil {
			return nil, wrap(err, "parsing relationship pattern")
		}
		node, err := p.parseNodePattern()
		if err != nil {
			return nil, wrap(err, "parsing node pattern")
		}
		startIdx := len(cp.Nodes) - 1
		cp.Nodes = append(cp.Nodes, node)
		endIdx := len(cp.Nodes) - 1
		cp.Hops = append(cp.Hops, ast.PatternHop{Start: startIdx, Rel: rel, End: endIdx})
	}
	return cp, nil
}

func (p *parser) parseNodePattern() (*ast.NodePattern, error) {
	start := p.peek()
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	np := &ast.NodePattern{}
	if p.peek().Kind == "Ident" && !p.atPunct(":") {
		// could be a name, possibly followed directly by labels
		if !p.isReservedWord(p.peek().Value) {
			id := p.advance()
			np.Name = id.Value
		}
	}
	for p.eatPunct(":") {
		label, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		np.Labels = append(np.Labels, label.Value)
	}
	if p.atPunct("{") {
		m, err := p.parseMapLiteral()
		if err != nil {
			return nil, err
		}
		np.Properties = m
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	np.Sp = ast.Span{Start: start.Start, End: p.toks[p.pos-1].End}
	return np, nil
}

func (p *parser) parseRelationshipPattern() (*ast.RelationshipPattern, error) {
	start := p.peek()
	leftArrow := p.eatPunct("<")
	if _, err := p.expectPunct("-"); err != nil {
		return nil, err
	}
	rel := &ast.RelationshipPattern{}
	bracketed := p.eatPunct("[")
	if bracketed {
		if p.peek().Kind == "Ident" && !p.atPunct(":") && !p.atPunct("*") {
			id := p.advance()
			rel.Name = id.Value
		}
		for p.eatPunct(":") {
			typ, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			rel.Types = append(rel.Types, typ.Value)
			for p.eatPunct("|") {
				p.eatPunct(":") // tolerate `:TYPE1|:TYPE2` as well as `:TYPE1|TYPE2`
				typ2, err := p.expectIdent()
				if err != nil {
					return nil, err
				}
				rel.Types = append(rel.Types, typ2.Value)
			}
		}
		if p.atPunct("*") {
			vlp, err := p.parseVariableLength()
			if err != nil {
				return nil, err
			}
			rel.VariableLength = vlp
		}
		if p.atPunct("{") {
			m, err := p.parseMapLiteral()
			if err != nil {
				return nil, err
			}
			rel.Properties = m
		}
		if _, err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		if _, err := p.expectPunct("-"); err != nil {
			return nil, err
		}
	} else {
		if _, err := p.expectPunct("-"); err != nil {
			return nil, err
		}
	}
	rightArrow := p.eatPunct(">")

	switch {
	case leftArrow && !rightArrow:
		rel.Direction = ast.DirIncoming
	case rightArrow && !leftArrow:
		rel.Direction = ast.DirOutgoing
	default:
		rel.Direction = ast.DirEither
	}
	rel.Sp = ast.Span{Start: start.Start, End: p.toks[p.pos-1].End}
	return rel, nil
}

// parseVariableLength parses `*`, `*n`, `*n..m`, `*..m`, `*n..`, validating
// min<=max in-parser per spec.md §4.1. A 0-hop minimum is accepted here
// with the diagnostic left to the caller (astx/analyzer decide whether the
// position is a shortest-path wrapper).
func (p *parser) parseVariableLength() (*ast.VariableLengthSpec, error) {
	star := p.advance() // '*'
	if p.peek().Kind != "Int" && !p.atPunct("..") {
		return &ast.VariableLengthSpec{}, nil
	}
	var lo, hi *int
	if p.peek().Kind == "Int" {
		v, err := parseIntLiteral(p.advance().Value)
		if err != nil {
			return nil, newParseErr(star, "invalid variable-length bound")
		}
		n := int(v)
		lo = &n
	}
	if p.eatPunct("..") {
		if p.peek().Kind == "Int" {
			v, err := parseIntLiteral(p.advance().Value)
			if err != nil {
				return nil, newParseErr(star, "invalid variable-length bound")
			}
			n := int(v)
			hi = &n
		}
	} else if lo != nil {
		hi = lo // bare `*n` means exactly n hops
	}
	spec := &ast.VariableLengthSpec{Min: lo, Max: hi}
	if !spec.Valid() {
		return nil, newParseErr(star, "variable-length pattern has min > max")
	}
	return spec, nil
}

func (p *parser) parseMapLiteral() (*ast.MapLiteral, error) {
	start := p.peek()
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	m := &ast.MapLiteral{}
	for !p.atPunct("}") {
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, ok := val.(*ast.Parameter); ok {
			return nil, newParseErr(start, "parameter used inside inline property map")
		}
		m.Entries = append(m.Entries, ast.MapEntry{Key: key.Value, Value: val})
		if !p.eatPunct(",") {
			break
		}
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	m.Sp = ast.Span{Start: start.Start, End: p.toks[p.pos-1].End}
	return m, nil
}

var reservedWords = map[string]bool{
	"where": true, "return": true, "with": true, "match": true, "optional": true,
	"create": true, "set": true, "remove": true, "delete": true, "detach": true,
	"union": true, "order": true, "skip": true, "limit": true, "as": true,
	"and": true, "or": true, "xor": true, "not": true, "in": true, "is": true,
	"null": true, "true": true, "false": true, "distinct": true, "unwind": true,
	"call": true, "yield": true, "use": true,
}

func (p *parser) isReservedWord(ident string) bool {
	return reservedWords[toLower(ident)]
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
