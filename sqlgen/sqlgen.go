// Package sqlgen implements the C9 component: lowering an analyzed and
// optimized logical plan (C5, after C7/C8) into SQL text for a
// MergeTree-family columnar store, plus DDL generation for the graph
// catalog's CREATE NODE/REL TABLE surface (spec.md §4.6, §6.2, §6.3).
//
// Unlike every upstream component, sqlgen never rewrites the plan — it
// only reads it and PlanCtx's tagged side tables to print text. Nothing
// here executes against a real ClickHouse instance; this package only
// ever returns strings.
package sqlgen

import (
	"strconv"
	"strings"

	"github.com/mitchellh/hashstructure"
	uuid "github.com/satori/go.uuid"

	"github.com/brahmanddb/cyphercompiler/catalog"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
	"github.com/brahmanddb/cyphercompiler/planctx"
)

// TraversalMode is the session_params.traversal_mode setting (spec.md
// §6.1). Both values produce the same output: one statement whose only
// CTEs are variable-length path walks. Neither mode generates WITH-boundary
// CTEs or CREATE TEMPORARY TABLE statements.
type TraversalMode int

const (
	TraversalCte TraversalMode = iota
	TraversalTempTable
)

// Generator lowers one analyzed/optimized plan into SQL text.
type Generator struct {
	Schema *catalog.GraphSchema
	Ctx    *planctx.PlanCtx
	Mode   TraversalMode

	// statements is placed ahead of the final statement in Generate's
	// result. Nothing appends to it, so it is empty in both modes.
	statements []string
}

// New builds a Generator for one statement's compilation.
func New(schema *catalog.GraphSchema, ctx *planctx.PlanCtx, mode TraversalMode) *Generator {
	return &Generator{Schema: schema, Ctx: ctx, Mode: mode}
}

// quoteIdent double-quotes an identifier per spec.md §6.2 ("double quotes
// for reserved names"). Applied uniformly rather than only to names that
// collide with a keyword — simpler and never wrong for MergeTree SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualify renders `db.table`, spec.md §6.2's qualification rule.
func qualify(database, table string) string {
	if database == "" {
		return quoteIdent(table)
	}
	return quoteIdent(database) + "." + quoteIdent(table)
}

// syntheticName derives a short, deterministic identifier from seed,
// used to name CTEs and synthesized aliases the plan itself doesn't
// carry a name for (variable-length path CTEs and ranked-shortest-path
// CTEs). Deterministic rather than random so the same
// plan always lowers to the same SQL text (SPEC_FULL.md §9, "Borrow vs.
// own": the analyzer/sql generator boundary is where synthesized names
// are minted).
func syntheticName(prefix string, seed any) (string, error) {
	h, err := hashstructure.Hash(seed, nil)
	if err != nil {
		return "", cgerrors.ErrSqlGen.New("hashing seed for " + prefix + ": " + err.Error())
	}
	id := uuid.NewV5(uuid.NamespaceOID, strconv.FormatUint(h, 16))
	return prefix + "_" + strings.ReplaceAll(id.String(), "-", "")[:12], nil
}

func nodeSchemaFor(ctx *planctx.PlanCtx, schema *catalog.GraphSchema, alias, explicitLabel string) (*catalog.NodeSchema, string, error) {
	label := explicitLabel
	if label == "" {
		if tc, ok := ctx.Lookup(alias); ok && len(tc.Labels) > 0 {
			label = tc.Labels[0]
		}
	}
	if label == "" {
		return nil, "", cgerrors.ErrInvalidPlan.New("node alias " + alias + " has no resolvable label for SQL generation")
	}
	ns, ok := schema.LookupNode(label)
	if !ok {
		return nil, "", cgerrors.ErrSchemaNotFound.New(label)
	}
	return ns, label, nil
}

func nodeIDColumnFor(ctx *planctx.PlanCtx, schema *catalog.GraphSchema, alias, explicitLabel string) (string, error) {
	ns, _, err := nodeSchemaFor(ctx, schema, alias, explicitLabel)
	if err != nil {
		return "", err
	}
	return ns.NodeIDColumn, nil
}
