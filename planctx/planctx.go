// Package planctx implements C5's scoping sidecar (spec.md §3.4): the
// per-alias working state and per-statement scope chain threaded through
// the plan builder, analyzer, optimizer, and SQL generator.
package planctx

import "github.com/brahmanddb/cyphercompiler/ast"

// TableCtx is one alias's working state, accumulated by the plan builder
// and refined by analyzer/optimizer passes.
type TableCtx struct {
	Alias             string
	Labels            []string
	Properties        map[string]ast.Expression // buffered {k: literal} map entries
	FilterPredicates  []ast.Expression           // per-table filters tagged by Filter Tagging
	ProjectionItems   []string                   // required columns, populated by Projection Tagging
	IsRel             bool
	ExplicitAlias     bool // false when the alias was synthesized for an anonymous pattern element
	CTEReference      string // non-empty once this alias resolves through a CTE boundary
}

// TypeCombination is one concrete (from_label, rel_type, to_label)
// instantiation Unified Type Inference proved valid for a GraphRel.
type TypeCombination struct {
	FromLabel string
	RelType   string
	ToLabel   string
}

// GroupCombination groups the TypeCombinations that share a rel_type,
// used when reporting/branching on "all valid combinations for this type".
type GroupCombination struct {
	RelType      string
	Combinations []TypeCombination
}

// PlanCtx is the per-statement scope: alias lookup table, optional-match
// tracking, projection aliasing for HAVING-over-alias support, and the
// WITH-shielding scope chain (spec.md §3.4). It holds no schema reference:
// passes and the SQL generator receive the *catalog.GraphSchema as a
// separate argument.
type PlanCtx struct {
	Aliases map[string]*TableCtx

	OptionalAliases map[string]bool

	// ProjectionAliases maps a WITH/RETURN alias name to the expression it
	// stands for, so a later HAVING/WHERE can resolve `cnt` back to
	// `count(n)` without re-walking the projection list.
	ProjectionAliases map[string]ast.Expression

	TenantID string

	// ViewParams holds bound values for parameterized views (denormalized
	// scans that need a caller-supplied filter to pick one underlying
	// source table), keyed by parameter name.
	ViewParams map[string]any

	// DenormalizedEdges maps a denormalized node alias to the edge alias
	// that was folded into it, so the SQL generator can still reconstruct
	// the edge's own projected properties.
	DenormalizedEdges map[string]string

	Parent      *PlanCtx
	IsWithScope bool
}

// NewPlanCtx creates the root scope for a statement from its tenant id
// alone (no schema is attached). It is created at the start of planning
// and discarded when the statement completes (spec.md §3.4 "Lifecycle").
func NewPlanCtx(tenantID string) *PlanCtx {
	return &PlanCtx{
		Aliases:           map[string]*TableCtx{},
		OptionalAliases:   map[string]bool{},
		ProjectionAliases: map[string]ast.Expression{},
		TenantID:          tenantID,
		ViewParams:        map[string]any{},
		DenormalizedEdges: map[string]string{},
	}
}

// Child opens a new scope below this one. isWithScope=true gives it WITH
// shielding: Lookup will not fall through to this scope's ancestors once
// it reaches a with-scope, so names reused after WITH start fresh
// (spec.md §3.4).
func (p *PlanCtx) Child(isWithScope bool) *PlanCtx {
	return &PlanCtx{
		Aliases:           map[string]*TableCtx{},
		OptionalAliases:   map[string]bool{},
		ProjectionAliases: map[string]ast.Expression{},
		TenantID:          p.TenantID,
		ViewParams:        p.ViewParams,
		DenormalizedEdges: map[string]string{},
		Parent:            p,
		IsWithScope:        isWithScope,
	}
}

// Lookup resolves alias in this scope, falling through to ancestor scopes
// unless this scope (or one it already crossed) is a WITH-shielded scope.
func (p *PlanCtx) Lookup(alias string) (*TableCtx, bool) {
	for s := p; s != nil; s = s.Parent {
		if tc, ok := s.Aliases[alias]; ok {
			return tc, true
		}
		if s.IsWithScope {
			return nil, false
		}
	}
	return nil, false
}

// Bind registers alias in this scope, creating its TableCtx if absent.
func (p *PlanCtx) Bind(alias string, isRel bool) *TableCtx {
	if tc, ok := p.Aliases[alias]; ok {
		return tc
	}
	tc := &TableCtx{Alias: alias, IsRel: isRel, Properties: map[string]ast.Expression{}}
	p.Aliases[alias] = tc
	return tc
}

// MarkOptional records that alias was bound under an OPTIONAL MATCH.
func (p *PlanCtx) MarkOptional(alias string) {
	p.OptionalAliases[alias] = true
}

// IsOptional reports whether alias was bound under an OPTIONAL MATCH in
// this scope or an unshielded ancestor.
func (p *PlanCtx) IsOptional(alias string) bool {
	for s := p; s != nil; s = s.Parent {
		if s.OptionalAliases[alias] {
			return true
		}
		if s.IsWithScope {
			return false
		}
	}
	return false
}
