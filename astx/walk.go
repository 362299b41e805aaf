package astx

import "github.com/brahmanddb/cyphercompiler/ast"

// visitWhereExprs calls fn on every WHERE expression reachable from q
// (MATCH/OPTIONAL MATCH clauses and WITH clauses), stopping at the first
// error. Query is walked structurally rather than via Children(), per its
// own doc comment.
func visitWhereExprs(q *ast.Query, fn func(ast.Expression) error) error {
	for _, m := range q.Reading {
		if m.Where != nil {
			if err := fn(m.Where); err != nil {
				return err
			}
		}
	}
	for _, w := range q.With {
		if w.Where != nil {
			if err := fn(w.Where); err != nil {
				return err
			}
		}
	}
	for _, u := range q.Unions {
		if err := visitWhereExprs(u.Query, fn); err != nil {
			return err
		}
	}
	return nil
}

// rewriteWhereExprs rebuilds q with every WHERE expression replaced by
// fn's result, leaving everything else untouched.
func rewriteWhereExprs(q *ast.Query, fn func(ast.Expression) (ast.Expression, error)) (*ast.Query, error) {
	cp := *q

	cp.Reading = make([]ast.MatchClause, len(q.Reading))
	for i, m := range q.Reading {
		cp.Reading[i] = m
		if m.Where != nil {
			ne, err := fn(m.Where)
			if err != nil {
				return nil, err
			}
			cp.Reading[i].Where = ne
		}
	}

	cp.With = make([]ast.WithClause, len(q.With))
	for i, w := range q.With {
		cp.With[i] = w
		if w.Where != nil {
			ne, err := fn(w.Where)
			if err != nil {
				return nil, err
			}
			cp.With[i].Where = ne
		}
	}

	cp.Unions = make([]ast.UnionClause, len(q.Unions))
	for i, u := range q.Unions {
		inner, err := rewriteWhereExprs(u.Query, fn)
		if err != nil {
			return nil, err
		}
		cp.Unions[i] = ast.UnionClause{All: u.All, Query: inner}
	}

	return &cp, nil
}
