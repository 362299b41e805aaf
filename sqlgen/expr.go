package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
)

// renderExpr prints e as a MergeTree-dialect SQL expression. propertyCol
// resolves an alias.property reference to its physical "alias"."column"
// form; every PropertyAccess in the plan must go through it so a Cypher
// property name and its storage column can differ.
func renderExpr(e ast.Expression, propertyCol func(alias, property string) (string, error)) (string, error) {
	switch v := e.(type) {
	case *ast.Literal:
		return renderLiteral(v.Value), nil
	case *ast.Variable:
		return quoteIdent(v.Name), nil
	case *ast.Parameter:
		return ":" + v.Name, nil
	case *ast.PropertyAccess:
		target, ok := v.Target.(*ast.Variable)
		if !ok {
			return "", cgerrors.ErrUnsupportedExpressionInClause.New(exprKind(v), "property access on a non-variable target")
		}
		return propertyCol(target.Name, v.Property)
	case *ast.ListLiteral:
		items := make([]string, len(v.Items))
		for i, it := range v.Items {
			s, err := renderExpr(it, propertyCol)
			if err != nil {
				return "", err
			}
			items[i] = s
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	case *ast.MapLiteral:
		return "", cgerrors.ErrUnsupportedExpressionInClause.New("MapLiteral", "SQL expression (inline property maps are lowered to WHERE/Properties earlier, not printed directly)")
	case *ast.BinaryOp:
		return renderBinaryOp(v, propertyCol)
	case *ast.UnaryOp:
		inner, err := renderExpr(v.Expr, propertyCol)
		if err != nil {
			return "", err
		}
		switch v.Op {
		case "NOT":
			return "NOT (" + inner + ")", nil
		case "-":
			return "-(" + inner + ")", nil
		default:
			return "", cgerrors.ErrNoOperandFound.New(v.Op)
		}
	case *ast.IsNull:
		inner, err := renderExpr(v.Expr, propertyCol)
		if err != nil {
			return "", err
		}
		if v.Not {
			return inner + " IS NOT NULL", nil
		}
		return inner + " IS NULL", nil
	case *ast.DistinctExpr:
		inner, err := renderExpr(v.Expr, propertyCol)
		if err != nil {
			return "", err
		}
		return "DISTINCT " + inner, nil
	case *ast.FunctionCall:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			s, err := renderExpr(a, propertyCol)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return v.Name + "(" + strings.Join(args, ", ") + ")", nil
	case *ast.CaseExpr:
		return renderCase(v, propertyCol)
	default:
		return "", cgerrors.ErrUnsupportedExpressionInClause.New(exprKind(e), "SQL generation")
	}
}

func renderLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", x)
	}
}

// sqlFunctionMapping carries the original_source/ supplement
// (SPEC_FULL.md §4.6): STARTS WITH/ENDS WITH lower to ClickHouse's
// prefix/suffix functions rather than LIKE, and =~ lowers to match().
var sqlFunctionMapping = map[string]string{
	"STARTS WITH": "startsWith",
	"ENDS WITH":   "endsWith",
}

func renderBinaryOp(b *ast.BinaryOp, propertyCol func(string, string) (string, error)) (string, error) {
	left, err := renderExpr(b.Left, propertyCol)
	if err != nil {
		return "", err
	}

	if b.Op == "=~" {
		right, err := renderExpr(b.Right, propertyCol)
		if err != nil {
			return "", err
		}
		return "match(" + left + ", " + right + ")", nil
	}
	if fn, ok := sqlFunctionMapping[b.Op]; ok {
		right, err := renderExpr(b.Right, propertyCol)
		if err != nil {
			return "", err
		}
		return fn + "(" + left + ", " + right + ")", nil
	}

	right, err := renderExpr(b.Right, propertyCol)
	if err != nil {
		return "", err
	}

	switch b.Op {
	case "AND", "OR":
		return "(" + left + " " + b.Op + " " + right + ")", nil
	case "XOR":
		return "(" + left + " != " + right + ")", nil
	case "CONTAINS":
		return "position(" + left + ", " + right + ") > 0", nil
	case "IN":
		return left + " IN " + right, nil
	case "NOT IN":
		return left + " NOT IN " + right, nil
	case "<>":
		return left + " != " + right, nil
	default:
		return left + " " + b.Op + " " + right, nil
	}
}

func renderCase(c *ast.CaseExpr, propertyCol func(string, string) (string, error)) (string, error) {
	var sb strings.Builder
	sb.WriteString("CASE")
	if c.Operand != nil {
		op, err := renderExpr(c.Operand, propertyCol)
		if err != nil {
			return "", err
		}
		sb.WriteString(" " + op)
	}
	for _, w := range c.Whens {
		cond, err := renderExpr(w.Condition, propertyCol)
		if err != nil {
			return "", err
		}
		res, err := renderExpr(w.Result, propertyCol)
		if err != nil {
			return "", err
		}
		sb.WriteString(" WHEN " + cond + " THEN " + res)
	}
	if c.Else != nil {
		els, err := renderExpr(c.Else, propertyCol)
		if err != nil {
			return "", err
		}
		sb.WriteString(" ELSE " + els)
	}
	sb.WriteString(" END")
	return sb.String(), nil
}

func exprKind(e ast.Expression) string {
	return fmt.Sprintf("%T", e)
}
