package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// cypherLexer tokenizes Cypher source text. Only the lexer half of
// participle/v2 is used (see SPEC_FULL.md §4.1): the declarative
// struct-tag grammar builder doesn't fit the zero-copy span model this
// core needs, so tokens are consumed by a hand-written recursive-descent
// parser instead of participle.Build.
var cypherLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Float", Pattern: `[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "String", Pattern: `'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`},
	{Name: "Param", Pattern: `\$[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Op", Pattern: `<>|<=|>=|<-|->|=~|\.\.|::`},
	{Name: "Punct", Pattern: `[(){}\[\]:;,.=<>+\-*/%|]`},
})

// token is one lexed unit with its byte span in the source.
type token struct {
	Kind  string
	Value string
	Start int
	End   int
}

// tokenize runs the lexer eagerly and drops whitespace/comments, since the
// recursive-descent parser below wants simple slice-with-lookahead access
// rather than a pull-based stream.
func tokenize(src string) ([]token, error) {
	lex, err := cypherLexer.Lex("", strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	symbols := cypherLexer.Symbols()
	names := make(map[rune]string, len(symbols))
	for name, r := range symbols {
		names[r] = name
	}

	var out []token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			break
		}
		kind := names[tok.Type]
		if kind == "Whitespace" || kind == "Comment" {
			continue
		}
		start := tok.Pos.Offset
		// The pattern parser reads a relationship arrow as two punctuation
		// tokens ("<" "-", "-" ">"). "<-" is always split; "->" is split
		// after "]" or "-" and left whole elsewhere for the lambda form.
		if kind == "Op" && (tok.Value == "<-" || (tok.Value == "->" && len(out) > 0 &&
			(out[len(out)-1].Value == "]" || out[len(out)-1].Value == "-"))) {
			out = append(out,
				token{Kind: "Punct", Value: tok.Value[:1], Start: start, End: start + 1},
				token{Kind: "Punct", Value: tok.Value[1:], Start: start + 1, End: start + 2})
			continue
		}
		out = append(out, token{
			Kind:  kind,
			Value: tok.Value,
			Start: start,
			End:   start + len(tok.Value),
		})
	}
	return out, nil
}

// eofToken is returned by peek() past the end of input; its span is empty
// at the end of the source so EOF errors still point somewhere sensible.
func eofToken(srcLen int) token {
	return token{Kind: "EOF", Value: "", Start: srcLen, End: srcLen}
}
