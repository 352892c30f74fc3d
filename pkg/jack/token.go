package jack

import "strings"

// ----------------------------------------------------------------------------
// Tokens

// A Kind partitions every lexeme the tokenizer can produce. Whitespace and comments are
// scanned internally (so error locations stay accurate) but are never handed to the parser.
type Kind string

const (
	Keyword         Kind = "keyword"
	Symbol          Kind = "symbol"
	Identifier      Kind = "identifier"
	IntegerConstant Kind = "integerConstant"
	StringConstant  Kind = "stringConstant"

	whitespace Kind = "whitespace"
	comment    Kind = "comment"
)

// A Token is a single lexeme paired with the Kind that classifies it.
type Token struct {
	Kind   Kind
	Lexeme string
}

func (t Token) isTrivia() bool { return t.Kind == whitespace || t.Kind == comment }

// Keywords is the closed set of the 21 reserved words in the Jack grammar.
var Keywords = map[string]bool{
	"class": true, "constructor": true, "function": true, "method": true,
	"field": true, "static": true, "var": true, "int": true, "char": true,
	"boolean": true, "void": true, "true": true, "false": true, "null": true,
	"this": true, "let": true, "do": true, "if": true, "else": true,
	"while": true, "return": true,
}

// Symbols is the closed set of the 19 single-character punctuation tokens.
var Symbols = map[byte]bool{
	'{': true, '}': true, '(': true, ')': true, '[': true, ']': true,
	'.': true, ',': true, ';': true, '+': true, '-': true, '*': true,
	'&': true, '|': true, '<': true, '>': true, '=': true, '~': true,
	'/': true,
}

// render produces the token's canonical one-line XML form, e.g. "<keyword> var </keyword>".
func (t Token) render() string {
	return "<" + string(t.Kind) + "> " + escapeXML(t.Lexeme) + " </" + string(t.Kind) + ">"
}

var xmlEscapes = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string { return xmlEscapes.Replace(s) }
