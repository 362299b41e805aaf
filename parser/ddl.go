package parser

import (
	"strings"

	"github.com/brahmanddb/cyphercompiler/ast"
)

// parseDDL parses the graph DDL surface from spec.md §6.3:
// CREATE NODE TABLE / CREATE REL TABLE.
func (p *parser) parseDDL() (ast.Statement, error) {
	p.advance() // CREATE
	switch {
	case p.eatKeyword("NODE"):
		if _, err := p.expectKeyword("TABLE"); err != nil {
			return nil, err
		}
		t, err := p.parseCreateNodeTable()
		if err != nil {
			return nil, wrap(err, "parsing CREATE NODE TABLE")
		}
		return &ast.DDLStatement{CreateNodeTable: t}, nil
	case p.eatKeyword("REL"):
		if _, err := p.expectKeyword("TABLE"); err != nil {
			return nil, err
		}
		t, err := p.parseCreateRelTable()
		if err != nil {
			return nil, wrap(err, "parsing CREATE REL TABLE")
		}
		return &ast.DDLStatement{CreateRelTable: t}, nil
	}
	return nil, newParseErr(p.peek(), "expected NODE or REL after CREATE")
}

func (p *parser) parseCreateNodeTable() (*ast.CreateNodeTable, error) {
	label, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	t := &ast.CreateNodeTable{Label: label.Value}
	for {
		switch {
		case p.atKeyword("PRIMARY", "KEY"):
			p.advance()
			p.advance()
			pk, err := p.parseIdentListInParens()
			if err != nil {
				return nil, err
			}
			t.PrimaryKey = pk
		case p.atKeyword("NODE", "ID"):
			p.advance()
			p.advance()
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			id, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			t.NodeID = id.Value
		default:
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			t.Columns = append(t.Columns, col)
		}
		if !p.eatPunct(",") {
			break
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *parser) parseCreateRelTable() (*ast.CreateRelTable, error) {
	typ, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	t := &ast.CreateRelTable{Type: typ.Value}
	if _, err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	t.From = from.Value
	if _, err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	to, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	t.To = to.Value

	for p.eatPunct(",") {
		switch {
		case p.atKeyword("PRIMARY", "KEY"):
			p.advance()
			p.advance()
			pk, err := p.parseIdentListInParens()
			if err != nil {
				return nil, err
			}
			t.PrimaryKey = pk
		case p.atKeyword("ADJ", "INDEX"):
			p.advance()
			p.advance()
			b, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			t.AdjIndex = strings.EqualFold(b.Value, "true")
		default:
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			t.Columns = append(t.Columns, col)
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *parser) parseColumnDef() (ast.ColumnDef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ast.ColumnDef{}, err
	}
	dtype, err := p.expectIdent()
	if err != nil {
		return ast.ColumnDef{}, err
	}
	col := ast.ColumnDef{Name: name.Value, DType: dtype.Value}
	if p.eatKeyword("DEFAULT") {
		e, err := p.parseExpression()
		if err != nil {
			return ast.ColumnDef{}, err
		}
		col.Default = e
	}
	return col, nil
}

func (p *parser) parseIdentListInParens() ([]string, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var out []string
	for {
		id, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		out = append(out, id.Value)
		if !p.eatPunct(",") {
			break
		}
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return out, nil
}
