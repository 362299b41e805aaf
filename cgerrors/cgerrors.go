// Package cgerrors holds the shared error taxonomy used across every
// compilation component (parser, catalog, plan builder, analyzer, optimizer,
// sql generator). Errors are kinds, not types: each kind is a parametrized
// *errors.Kind from gopkg.in/src-d/go-errors.v1, matched with Kind.Is rather
// than a type switch, the same pattern the teacher repo uses for its own
// typed errors in auth/ and enginetest/.
package cgerrors

import (
	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Parse-time kinds (C2).
var (
	ErrParse = goerrors.NewKind("parse error at %s: %s")
)

// Catalog / DDL kinds (C3, C9 DDL surface).
var (
	ErrUnsupportedDdlQuery  = goerrors.NewKind("unsupported DDL query: %s")
	ErrMissingPrimaryKey    = goerrors.NewKind("table %s must declare a non-empty PRIMARY KEY")
	ErrMissingNodeId        = goerrors.NewKind("node table %s must declare NODE ID")
	ErrMultipleNodeIds      = goerrors.NewKind("node table %s declares more than one NODE ID column")
	ErrInvalidNodeId        = goerrors.NewKind("NODE ID column %q not found in table %s")
	ErrInvalidNodeIdDType   = goerrors.NewKind("NODE ID column %s.%s must be Int64 or UInt64, got %s")
	ErrUnknownFromTableInRel = goerrors.NewKind("relationship table %s references unknown FROM label %s")
	ErrUnknownToTableInRel  = goerrors.NewKind("relationship table %s references unknown TO label %s")
	ErrSchemaNotFound       = goerrors.NewKind("schema not found for label %s")
)

// AST transform kinds (C4).
var (
	ErrMalformedIDPredicate = goerrors.NewKind("id(%s) predicate must compare against a literal list of encoded ids")
)

// Plan-build kinds (C6).
var (
	ErrEmptyNode              = goerrors.NewKind("empty node pattern is not permitted here")
	ErrDisconnectedPatternFound = goerrors.NewKind("pattern %q shares no alias with the rest of the query")
	ErrFoundParamInProperties = goerrors.NewKind("parameter %s used inside an inline property map is not permitted")
	ErrOrphanAlias            = goerrors.NewKind("alias %q is referenced but never bound by a pattern")
)

// Analyzer/optimizer kinds (C7/C8), tagged with the raising pass by the
// caller via WithPass.
var (
	ErrPropertyNotFound    = goerrors.NewKind("property %q not found on label %s")
	ErrTooManyInferredTypes = goerrors.NewKind("inference for %s produced %d combinations, exceeding the configured cap of %d")
	ErrInvalidPlan         = goerrors.NewKind("invalid plan: %s")
	ErrCombineFilterPredicate = goerrors.NewKind("could not combine filter predicates: %s")
)

// SQL generation kinds (C9).
var (
	ErrUnsupportedExpressionInClause = goerrors.NewKind("expression %s is not supported in a %s clause")
	ErrUnsupportedQueryType          = goerrors.NewKind("unsupported query type: %s")
	ErrUnsupportedDefaultValue       = goerrors.NewKind("unsupported DEFAULT value for column %s")
	ErrNoOperandFound                = goerrors.NewKind("no operand found for operator %s")
	ErrSqlGen                        = goerrors.NewKind("sql generation error: %s")
)

// PassError wraps any analyzer/optimizer error with the name of the pass
// that raised it, per spec.md §7 ("AnalyzerError with a pass tag").
type PassError struct {
	Pass string
	Err  error
}

func (e *PassError) Error() string {
	return e.Pass + ": " + e.Err.Error()
}

func (e *PassError) Unwrap() error { return e.Err }

// WithPass tags err, if non-nil, with the name of the analyzer/optimizer
// pass that produced it.
func WithPass(pass string, err error) error {
	if err == nil {
		return nil
	}
	return &PassError{Pass: pass, Err: err}
}
