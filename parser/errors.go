package parser

import (
	"fmt"
	"strings"

	"github.com/brahmanddb/cyphercompiler/ast"
	"github.com/brahmanddb/cyphercompiler/cgerrors"
)

// ParseError is the structured error surfaced on failed parses (spec.md
// §4.1: "kind = ParseError{span, messages}. No partial plan is produced
// on failure."). Messages form a context chain, innermost last, so a
// caller can print "while parsing MATCH pattern: while parsing node
// pattern: unexpected token".
type ParseError struct {
	Span     ast.Span
	Messages []string
}

func (e *ParseError) Error() string {
	return cgerrors.ErrParse.New(e.posString(), strings.Join(e.Messages, ": ")).Error()
}

func (e *ParseError) posString() string {
	return fmt.Sprintf("offset %d", e.Span.Start)
}

// Unwrap returns the same position and message chain as a
// cgerrors.ErrParse error, so code that unwraps the error chain reaches
// the ErrParse kind.
func (e *ParseError) Unwrap() error {
	return cgerrors.ErrParse.New(e.posString(), strings.Join(e.Messages, ": "))
}

func newParseErr(t token, context string) *ParseError {
	return &ParseError{
		Span:     ast.Span{Start: t.Start, End: t.End},
		Messages: []string{context, fmt.Sprintf("unexpected token %q (%s)", t.Value, t.Kind)},
	}
}

// wrap prepends a context message to an existing parse error, building up
// the chain expected by spec.md §4.1.
func wrap(err error, context string) error {
	if pe, ok := err.(*ParseError); ok {
		pe.Messages = append([]string{context}, pe.Messages...)
		return pe
	}
	return err
}
