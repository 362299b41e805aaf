// Package compiler implements the C11 component: the Compile driver that
// orchestrates the parser (C2), AST transforms (C4), plan builder (C6),
// analyzer (C7), optimizer (C8), and SQL generator (C9) into the single
// external entry point spec.md §6.1 describes (SPEC_FULL.md §6).
package compiler

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/brahmanddb/cyphercompiler/analyzer"
	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/astx"
	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/optimizer"
	"github.com/brahmanddb/cyphercompiler/parser"
	"github.com/brahmanddb/cyphercompiler/plan"
	"github.com/brahmanddb/cyphercompiler/planbuilder"
	"github.com/brahmanddb/cyphercompiler/planctx"
	"github.com/brahmanddb/cyphercompiler/sqlgen"
)

var log = logrus.WithField("component", "compiler")

// TraversalMode selects how WITH boundaries are realized in the generated
// SQL (spec.md §6.1, session_params.traversal_mode).
//
// TraversalTempTable is accepted but sqlgen has no temp-table lowering yet
// (see DESIGN.md's sqlgen "Known gap"): it currently generates identical
// CTE-based SQL to TraversalCte rather than rejecting the mode outright.
type TraversalMode int

const (
	TraversalCte TraversalMode = iota
	TraversalTempTable
)

// StatementKind classifies a compiled statement (spec.md §6.1).
type StatementKind int

const (
	StatementRead StatementKind = iota
	StatementDdl
	StatementUpdate
	StatementDelete
)

func (k StatementKind) String() string {
	switch k {
	case StatementDdl:
		return "Ddl"
	case StatementUpdate:
		return "Update"
	case StatementDelete:
		return "Delete"
	default:
		return "Read"
	}
}

// defaultMaxInferredTypes/defaultMaxCombinations are the resource-bound
// defaults (spec.md §5, "Resource bounds") applied when a caller's
// session_params omits them.
const (
	defaultMaxInferredTypes = 8
	defaultMaxCombinations  = 64
)

// SessionParams carries the per-compilation knobs spec.md §6.1 lists.
type SessionParams struct {
	TenantID             string
	ViewParameterValues  map[string]any
	TraversalMode        TraversalMode
	MaxInferredTypes     int
	MaxCombinations      int
}

// NewSessionParamsFromMap coerces a loosely-typed session_params payload
// (as it would arrive from an external config/RPC layer) into SessionParams,
// using spf13/cast for every field so a caller passing e.g. a JSON number as
// max_inferred_types doesn't have to pre-convert it.
func NewSessionParamsFromMap(raw map[string]any) (SessionParams, error) {
	p := SessionParams{
		TraversalMode:    TraversalCte,
		MaxInferredTypes: defaultMaxInferredTypes,
		MaxCombinations:  defaultMaxCombinations,
	}

	if v, ok := raw["tenant_id"]; ok {
		s, err := cast.ToStringE(v)
		if err != nil {
			return p, errors.Wrap(err, "coercing tenant_id")
		}
		p.TenantID = s
	}

	if v, ok := raw["view_parameter_values"]; ok {
		m, err := cast.ToStringMapE(v)
		if err != nil {
			return p, errors.Wrap(err, "coercing view_parameter_values")
		}
		p.ViewParameterValues = m
	}

	if v, ok := raw["traversal_mode"]; ok {
		s, err := cast.ToStringE(v)
		if err != nil {
			return p, errors.Wrap(err, "coercing traversal_mode")
		}
		switch strings.ToLower(s) {
		case "temptable":
			p.TraversalMode = TraversalTempTable
		case "cte":
			p.TraversalMode = TraversalCte
		default:
			return p, cgerrors.ErrUnsupportedQueryType.New("traversal_mode " + s)
		}
	}

	if v, ok := raw["max_inferred_types"]; ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return p, errors.Wrap(err, "coercing max_inferred_types")
		}
		p.MaxInferredTypes = n
	}

	if v, ok := raw["max_combinations"]; ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return p, errors.Wrap(err, "coercing max_combinations")
		}
		p.MaxCombinations = n
	}

	return p, nil
}

// CompileResult is the Compile return value (spec.md §6.1).
type CompileResult struct {
	StatementKind   StatementKind
	SQLStatements   []string
	SchemaMutation  catalog.SchemaMutation
	ColumnNameHints []string
}

// Compile lowers one Cypher statement into SQL text (or a DDL schema
// mutation) against schema. It stops at the first error. An error returned
// by a pipeline stage (parse, transform, plan build, analyzer, optimizer,
// SQL generation, DDL schema building) comes back wrapped with the stage
// name by github.com/pkg/errors, not as the original value; errors.Cause
// returns the original error. Errors Compile raises itself (unsupported
// statement kind, write clause) are returned unwrapped.
func Compile(text string, schema *catalog.GraphSchema, params SessionParams) (*CompileResult, error) {
	stmt, err := parser.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "parsing statement")
	}

	switch v := stmt.(type) {
	case *ast.DDLStatement:
		return compileDDL(v, schema)
	case *ast.QueryStatement:
		return compileQuery(v.Query, schema, params)
	default:
		return nil, cgerrors.ErrUnsupportedQueryType.New("statement kind not supported by this compiler")
	}
}

func compileDDL(stmt *ast.DDLStatement, schema *catalog.GraphSchema) (*CompileResult, error) {
	switch {
	case stmt.CreateNodeTable != nil:
		ns, err := catalog.BuildNodeSchemaFromDDL(schema.Database, stmt.CreateNodeTable)
		if err != nil {
			return nil, errors.Wrap(err, "building node schema from DDL")
		}
		ddl := sqlgen.GenerateNodeTableDDL(ns)
		log.WithFields(logrus.Fields{"kind": "Ddl", "label": stmt.CreateNodeTable.Label, "statements": 1}).Info("compiled statement")
		return &CompileResult{
			StatementKind:  StatementDdl,
			SQLStatements:  []string{ddl},
			SchemaMutation: catalog.SchemaMutation{Node: ns},
		}, nil

	case stmt.CreateRelTable != nil:
		rs, err := catalog.BuildRelationshipSchemaFromDDL(schema.Database, schema, stmt.CreateRelTable)
		if err != nil {
			return nil, errors.Wrap(err, "building relationship schema from DDL")
		}
		stmts := sqlgen.GenerateRelTableDDL(rs, stmt.CreateRelTable.AdjIndex)
		log.WithFields(logrus.Fields{"kind": "Ddl", "type": stmt.CreateRelTable.Type, "statements": len(stmts)}).Info("compiled statement")
		return &CompileResult{
			StatementKind:  StatementDdl,
			SQLStatements:  stmts,
			SchemaMutation: catalog.SchemaMutation{Relationship: rs},
		}, nil

	default:
		return nil, cgerrors.ErrUnsupportedDdlQuery.New("neither CREATE NODE TABLE nor CREATE REL TABLE")
	}
}

// writeClauseKind classifies a query carrying CREATE/SET/REMOVE/DELETE
// clauses, none of which planbuilder lowers to a plan: spec.md's Non-goals
// ("the core does not execute queries, does not maintain mutable graph
// state") stop short of saying the parser must reject this syntax outright,
// so Parse/astx still accept it, but there is no plan-building path for it
// here — Compile classifies the statement kind for the caller and then
// reports it unsupported rather than silently returning a Read-shaped
// result for a write query.
func writeClauseKind(q *ast.Query) (StatementKind, bool) {
	if q.Delete != nil {
		return StatementDelete, true
	}
	if len(q.Create) > 0 || len(q.Set) > 0 || q.Remove != nil {
		return StatementUpdate, true
	}
	return StatementRead, false
}

func compileQuery(q *ast.Query, schema *catalog.GraphSchema, params SessionParams) (*CompileResult, error) {
	if kind, isWrite := writeClauseKind(q); isWrite {
		return nil, cgerrors.ErrUnsupportedQueryType.New("write clause (" + kind.String() + ") has no SQL lowering in this core")
	}

	transformed, err := astx.Transform(q, schema)
	if err != nil {
		return nil, errors.Wrap(err, "transforming query AST")
	}

	ctx := planctx.NewPlanCtx(params.TenantID)
	for k, v := range params.ViewParameterValues {
		ctx.ViewParams[k] = v
	}

	root, err := planbuilder.Build(transformed, ctx)
	if err != nil {
		return nil, errors.Wrap(err, "building logical plan")
	}

	maxInferredTypes, maxCombinations := params.MaxInferredTypes, params.MaxCombinations
	if maxInferredTypes == 0 {
		maxInferredTypes = defaultMaxInferredTypes
	}
	if maxCombinations == 0 {
		maxCombinations = defaultMaxCombinations
	}

	root, err = analyzer.Run(analyzer.Pipeline(maxInferredTypes, maxCombinations), root, ctx, schema)
	if err != nil {
		return nil, errors.Wrap(err, "running analyzer passes")
	}
	log.WithField("stage", "analyzer").Debug("stage complete")

	root, err = optimizer.Run(optimizer.Pipeline(), root, ctx, schema)
	if err != nil {
		return nil, errors.Wrap(err, "running optimizer passes")
	}
	log.WithField("stage", "optimizer").Debug("stage complete")

	gen := sqlgen.New(schema, ctx, sqlTraversalMode(params.TraversalMode))
	stmts, err := gen.Generate(root)
	if err != nil {
		return nil, errors.Wrap(err, "generating SQL")
	}

	hints := columnNameHints(root)

	log.WithFields(logrus.Fields{"kind": "Read", "passes": len(analyzer.Pipeline(maxInferredTypes, maxCombinations)) + len(optimizer.Pipeline()), "statements": len(stmts)}).Info("compiled statement")

	return &CompileResult{
		StatementKind:   StatementRead,
		SQLStatements:   stmts,
		ColumnNameHints: hints,
	}, nil
}

func sqlTraversalMode(m TraversalMode) sqlgen.TraversalMode {
	if m == TraversalTempTable {
		return sqlgen.TraversalTempTable
	}
	return sqlgen.TraversalCte
}

// columnNameHints walks down from root through the purely structural
// boundaries (Limit/Skip/OrderBy/GroupBy/Union's first branch) to the
// nearest Projection/WithClause and returns its items' aliases, which
// planbuilder already resolved to "the RETURN alias or its original source
// text" (spec.md §6.2).
func columnNameHints(n plan.Node) []string {
	for {
		switch v := n.(type) {
		case *plan.Limit:
			n = v.Input
		case *plan.Skip:
			n = v.Input
		case *plan.OrderBy:
			n = v.Input
		case *plan.GroupBy:
			n = v.Input
		case *plan.Union:
			if len(v.Inputs) == 0 {
				return nil
			}
			n = v.Inputs[0]
		case *plan.Projection:
			return itemAliases(v.Items)
		case *plan.WithClause:
			return itemAliases(v.Items)
		default:
			return nil
		}
	}
}

func itemAliases(items []plan.ProjectionItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Alias
	}
	return out
}
