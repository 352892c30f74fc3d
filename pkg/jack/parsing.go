package jack

import (
	"errors"
	"fmt"
	"strings"

	"n2t.dev/toolchain/pkg/utils"
)

// ----------------------------------------------------------------------------
// Parser

// A Parser is a recursive-descent parser over a Tokenizer's stream, producing the tagged
// syntax tree §3/§4.4 describe. Every nonterminal function pushes its own production name
// onto 'trace' on entry and pops it on exit (see enter below), so a parse error can report
// the full nesting of productions it failed inside, not just the offending token.
type Parser struct {
	tok   *Tokenizer
	trace utils.Stack[string]
}

// NewParser wraps a Tokenizer in a Parser ready to produce a 'class' syntax tree.
func NewParser(t *Tokenizer) *Parser {
	return &Parser{tok: t}
}

// enter pushes 'production' onto the trace stack and returns a closure that pops it; meant
// to be used as 'defer p.enter("varDec")()' at the top of every nonterminal function.
func (p *Parser) enter(production string) func() {
	p.trace.Push(production)
	return func() { _, _ = p.trace.Pop() }
}

// ----------------------------------------------------------------------------
// Token helpers

// advance consumes and returns the next token along with the 1-based line it started on.
func (p *Parser) advance() (Token, int, error) {
	if _, err := p.tok.Peek(); err != nil {
		return Token{}, p.tok.Line(), err
	}
	line := p.tok.Line()
	tok, err := p.tok.Take()
	return tok, line, err
}

func isSymbol(tok Token, lexeme string) bool {
	return tok.Kind == Symbol && tok.Lexeme == lexeme
}

func isKeyword(tok Token, words ...string) bool {
	if tok.Kind != Keyword {
		return false
	}
	for _, w := range words {
		if tok.Lexeme == w {
			return true
		}
	}
	return false
}

// unexpected wraps a tokenizer-level error (EOF or a lexical stageError) for surfacing out
// of a nonterminal function that was mid-parse when the stream ran out or broke.
func (p *Parser) unexpected(err error) error {
	if errors.Is(err, ErrEndOfInput) {
		return p.wrapErr(p.tok.Line(), "<eof>", errors.New("unexpected end of input"))
	}
	return err
}

func (p *Parser) syntaxErr(line int, tok Token, expected string) error {
	return p.wrapErr(line, tok.Lexeme, fmt.Errorf("%s, found %s %q", expected, tok.Kind, tok.Lexeme))
}

// wrapErr attaches the current production trace (innermost first) to 'err' and turns the
// result into a structured stageError naming the parser stage, line and offending fragment.
func (p *Parser) wrapErr(line int, fragment string, err error) error {
	var frames []string
	for name := range p.trace.Iterator() {
		frames = append(frames, name)
	}
	if len(frames) > 0 {
		err = fmt.Errorf("while parsing %s: %w", strings.Join(frames, " inside "), err)
	}
	return &stageError{Stage: "parser", Line: line, Fragment: fragment, Err: err}
}

func (p *Parser) expectSymbol(lexeme string) (Terminal, error) {
	tok, line, err := p.advance()
	if err != nil {
		return Terminal{}, p.unexpected(err)
	}
	if !isSymbol(tok, lexeme) {
		return Terminal{}, p.syntaxErr(line, tok, fmt.Sprintf("expected symbol '%s'", lexeme))
	}
	return leaf(tok), nil
}

func (p *Parser) expectKeyword(words ...string) (Terminal, error) {
	tok, line, err := p.advance()
	if err != nil {
		return Terminal{}, p.unexpected(err)
	}
	if !isKeyword(tok, words...) {
		return Terminal{}, p.syntaxErr(line, tok, fmt.Sprintf("expected keyword in %v", words))
	}
	return leaf(tok), nil
}

func (p *Parser) expectIdentifier() (Terminal, error) {
	tok, line, err := p.advance()
	if err != nil {
		return Terminal{}, p.unexpected(err)
	}
	if tok.Kind != Identifier {
		return Terminal{}, p.syntaxErr(line, tok, "expected identifier")
	}
	return leaf(tok), nil
}

// expectType consumes the 'type' production ('int' | 'char' | 'boolean' | ident); type is
// never its own tagged node (it isn't in the grammar's node-tag list), it's spliced into
// the parent as a single terminal, a keyword or a classNameUse identifier.
func (p *Parser) expectType() (Terminal, error) {
	tok, line, err := p.advance()
	if err != nil {
		return Terminal{}, p.unexpected(err)
	}
	if isKeyword(tok, "int", "char", "boolean") || tok.Kind == Identifier {
		return leaf(tok), nil
	}
	return Terminal{}, p.syntaxErr(line, tok, "expected type ('int', 'char', 'boolean' or a class name)")
}

// ----------------------------------------------------------------------------
// class, classVarDec, subroutineDec, parameterList, subroutineBody, varDec

// ParseClass parses a full 'class' declaration, the only top-level production in the Jack
// grammar: 'class' ident '{' classVarDec* subroutineDec* '}'.
func (p *Parser) ParseClass() (Node, error) {
	defer p.enter("class")()

	kw, err := p.expectKeyword("class")
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	lbrace, err := p.expectSymbol("{")
	if err != nil {
		return nil, err
	}

	children := []Node{kw, name, lbrace}

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if !isKeyword(tok, "static", "field") {
			break
		}
		dec, err := p.parseClassVarDec()
		if err != nil {
			return nil, err
		}
		children = append(children, dec)
	}

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if !isKeyword(tok, "constructor", "function", "method") {
			break
		}
		dec, err := p.parseSubroutineDec()
		if err != nil {
			return nil, err
		}
		children = append(children, dec)
	}

	rbrace, err := p.expectSymbol("}")
	if err != nil {
		return nil, err
	}
	children = append(children, rbrace)

	return node("class", children...), nil
}

// parseClassVarDec parses ('static'|'field') type ident (',' ident)* ';'.
func (p *Parser) parseClassVarDec() (Node, error) {
	defer p.enter("classVarDec")()

	scope, err := p.expectKeyword("static", "field")
	if err != nil {
		return nil, err
	}
	typ, err := p.expectType()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	children := []Node{scope, typ, name}

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if !isSymbol(tok, ",") {
			break
		}
		comma, err := p.expectSymbol(",")
		if err != nil {
			return nil, err
		}
		more, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		children = append(children, comma, more)
	}

	semi, err := p.expectSymbol(";")
	if err != nil {
		return nil, err
	}
	children = append(children, semi)

	return node("classVarDec", children...), nil
}

// parseSubroutineDec parses ('constructor'|'function'|'method')
// (type|'void') ident '(' parameterList ')' subroutineBody.
func (p *Parser) parseSubroutineDec() (Node, error) {
	defer p.enter("subroutineDec")()

	kind, err := p.expectKeyword("constructor", "function", "method")
	if err != nil {
		return nil, err
	}

	tok, err := p.tok.Peek()
	if err != nil {
		return nil, p.unexpected(err)
	}
	var ret Terminal
	if isKeyword(tok, "void") {
		ret, err = p.expectKeyword("void")
	} else {
		ret, err = p.expectType()
	}
	if err != nil {
		return nil, err
	}

	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	lparen, err := p.expectSymbol("(")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}
	rparen, err := p.expectSymbol(")")
	if err != nil {
		return nil, err
	}
	body, err := p.parseSubroutineBody()
	if err != nil {
		return nil, err
	}

	return node("subroutineDec", kind, ret, name, lparen, params, rparen, body), nil
}

// parseParameterList parses ( type ident (',' type ident)* )?, always producing a tagged
// node even when the list is empty (a subroutine taking no arguments still gets a
// '<parameterList></parameterList>' pair in the rendered output).
func (p *Parser) parseParameterList() (Node, error) {
	defer p.enter("parameterList")()

	tok, err := p.tok.Peek()
	if err != nil {
		return nil, p.unexpected(err)
	}
	if isSymbol(tok, ")") {
		return node("parameterList"), nil
	}

	var children []Node
	typ, err := p.expectType()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	children = append(children, typ, name)

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if !isSymbol(tok, ",") {
			break
		}
		comma, err := p.expectSymbol(",")
		if err != nil {
			return nil, err
		}
		typ, err := p.expectType()
		if err != nil {
			return nil, err
		}
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		children = append(children, comma, typ, name)
	}

	return node("parameterList", children...), nil
}

// parseSubroutineBody parses '{' varDec* statements '}'.
func (p *Parser) parseSubroutineBody() (Node, error) {
	defer p.enter("subroutineBody")()

	lbrace, err := p.expectSymbol("{")
	if err != nil {
		return nil, err
	}

	children := []Node{lbrace}

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if !isKeyword(tok, "var") {
			break
		}
		dec, err := p.parseVarDec()
		if err != nil {
			return nil, err
		}
		children = append(children, dec)
	}

	statements, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	children = append(children, statements)

	rbrace, err := p.expectSymbol("}")
	if err != nil {
		return nil, err
	}
	children = append(children, rbrace)

	return node("subroutineBody", children...), nil
}

// parseVarDec parses 'var' type ident (',' ident)* ';'.
func (p *Parser) parseVarDec() (Node, error) {
	defer p.enter("varDec")()

	kw, err := p.expectKeyword("var")
	if err != nil {
		return nil, err
	}
	typ, err := p.expectType()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	children := []Node{kw, typ, name}

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if !isSymbol(tok, ",") {
			break
		}
		comma, err := p.expectSymbol(",")
		if err != nil {
			return nil, err
		}
		more, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		children = append(children, comma, more)
	}

	semi, err := p.expectSymbol(";")
	if err != nil {
		return nil, err
	}
	children = append(children, semi)

	return node("varDec", children...), nil
}

// ----------------------------------------------------------------------------
// statements

// parseStatements parses statement*, always producing a tagged node (possibly childless).
func (p *Parser) parseStatements() (Node, error) {
	defer p.enter("statements")()

	var children []Node
	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if !isKeyword(tok, "let", "if", "while", "do", "return") {
			break
		}
		stmt, err := p.parseStatement(tok.Lexeme)
		if err != nil {
			return nil, err
		}
		children = append(children, stmt)
	}

	return node("statements", children...), nil
}

func (p *Parser) parseStatement(lead string) (Node, error) {
	switch lead {
	case "let":
		return p.parseLetStatement()
	case "if":
		return p.parseIfStatement()
	case "while":
		return p.parseWhileStatement()
	case "do":
		return p.parseDoStatement()
	case "return":
		return p.parseReturnStatement()
	default:
		return nil, fmt.Errorf("unreachable: unrecognized statement lead keyword %q", lead)
	}
}

// parseLetStatement parses 'let' ident ('[' expression ']')? '=' expression ';'.
func (p *Parser) parseLetStatement() (Node, error) {
	defer p.enter("letStatement")()

	kw, err := p.expectKeyword("let")
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	children := []Node{kw, name}

	tok, err := p.tok.Peek()
	if err != nil {
		return nil, p.unexpected(err)
	}
	if isSymbol(tok, "[") {
		lbracket, err := p.expectSymbol("[")
		if err != nil {
			return nil, err
		}
		index, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		rbracket, err := p.expectSymbol("]")
		if err != nil {
			return nil, err
		}
		children = append(children, lbracket, index, rbracket)
	}

	eq, err := p.expectSymbol("=")
	if err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	semi, err := p.expectSymbol(";")
	if err != nil {
		return nil, err
	}
	children = append(children, eq, value, semi)

	return node("letStatement", children...), nil
}

// parseIfStatement parses 'if' '(' expression ')' '{' statements '}'
// ('else' '{' statements '}')?.
func (p *Parser) parseIfStatement() (Node, error) {
	defer p.enter("ifStatement")()

	kw, err := p.expectKeyword("if")
	if err != nil {
		return nil, err
	}
	lparen, err := p.expectSymbol("(")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	rparen, err := p.expectSymbol(")")
	if err != nil {
		return nil, err
	}
	lbrace, err := p.expectSymbol("{")
	if err != nil {
		return nil, err
	}
	then, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	rbrace, err := p.expectSymbol("}")
	if err != nil {
		return nil, err
	}

	children := []Node{kw, lparen, cond, rparen, lbrace, then, rbrace}

	tok, err := p.tok.Peek()
	if err != nil {
		return nil, p.unexpected(err)
	}
	if isKeyword(tok, "else") {
		elseKw, err := p.expectKeyword("else")
		if err != nil {
			return nil, err
		}
		elbrace, err := p.expectSymbol("{")
		if err != nil {
			return nil, err
		}
		elseBody, err := p.parseStatements()
		if err != nil {
			return nil, err
		}
		erbrace, err := p.expectSymbol("}")
		if err != nil {
			return nil, err
		}
		children = append(children, elseKw, elbrace, elseBody, erbrace)
	}

	return node("ifStatement", children...), nil
}

// parseWhileStatement parses 'while' '(' expression ')' '{' statements '}'.
func (p *Parser) parseWhileStatement() (Node, error) {
	defer p.enter("whileStatement")()

	kw, err := p.expectKeyword("while")
	if err != nil {
		return nil, err
	}
	lparen, err := p.expectSymbol("(")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	rparen, err := p.expectSymbol(")")
	if err != nil {
		return nil, err
	}
	lbrace, err := p.expectSymbol("{")
	if err != nil {
		return nil, err
	}
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	rbrace, err := p.expectSymbol("}")
	if err != nil {
		return nil, err
	}

	return node("whileStatement", kw, lparen, cond, rparen, lbrace, body, rbrace), nil
}

// parseDoStatement parses 'do' subroutineCall ';'. subroutineCall isn't a tagged node (it's
// absent from the grammar's node-tag list), so its tokens splice directly into doStatement.
func (p *Parser) parseDoStatement() (Node, error) {
	defer p.enter("doStatement")()

	kw, err := p.expectKeyword("do")
	if err != nil {
		return nil, err
	}
	call, err := p.parseSubroutineCall()
	if err != nil {
		return nil, err
	}
	semi, err := p.expectSymbol(";")
	if err != nil {
		return nil, err
	}

	children := append([]Node{kw}, call...)
	children = append(children, semi)

	return node("doStatement", children...), nil
}

// parseReturnStatement parses 'return' expression? ';'.
func (p *Parser) parseReturnStatement() (Node, error) {
	defer p.enter("returnStatement")()

	kw, err := p.expectKeyword("return")
	if err != nil {
		return nil, err
	}

	children := []Node{kw}

	tok, err := p.tok.Peek()
	if err != nil {
		return nil, p.unexpected(err)
	}
	if !isSymbol(tok, ";") {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		children = append(children, expr)
	}

	semi, err := p.expectSymbol(";")
	if err != nil {
		return nil, err
	}
	children = append(children, semi)

	return node("returnStatement", children...), nil
}

// ----------------------------------------------------------------------------
// expressions, terms, subroutine calls

var binaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true,
	"&": true, "|": true, "<": true, ">": true, "=": true,
}

// parseExpression parses term (op term)*.
func (p *Parser) parseExpression() (Node, error) {
	defer p.enter("expression")()

	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	children := []Node{first}

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if tok.Kind != Symbol || !binaryOps[tok.Lexeme] {
			break
		}
		op, _, err := p.advance()
		if err != nil {
			return nil, p.unexpected(err)
		}
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = append(children, leaf(op), rhs)
	}

	return node("expression", children...), nil
}

var keywordConstants = []string{"true", "false", "null", "this"}

// parseTerm parses one of: integerConstant | stringConstant | keywordConstant | ident |
// ident '[' expression ']' | subroutineCall | '(' expression ')' | unaryOp term. An
// identifier lead requires peeking one further token (after consuming the identifier) to
// tell a bare variable reference apart from an array access or a call — the tokenizer's
// single lookahead slot is enough for this since the identifier itself is already consumed
// by the time that second peek happens.
func (p *Parser) parseTerm() (Node, error) {
	defer p.enter("term")()

	line := p.tok.Line()
	lead, err := p.tok.Peek()
	if err != nil {
		return nil, p.unexpected(err)
	}

	switch {
	case lead.Kind == IntegerConstant, lead.Kind == StringConstant:
		t, _, err := p.advance()
		if err != nil {
			return nil, p.unexpected(err)
		}
		return node("term", leaf(t)), nil

	case isKeyword(lead, keywordConstants...):
		t, err := p.expectKeyword(keywordConstants...)
		if err != nil {
			return nil, err
		}
		return node("term", t), nil

	case isSymbol(lead, "("):
		lparen, err := p.expectSymbol("(")
		if err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		rparen, err := p.expectSymbol(")")
		if err != nil {
			return nil, err
		}
		return node("term", lparen, expr, rparen), nil

	case isSymbolAny(lead, "-", "~"):
		op, _, err := p.advance()
		if err != nil {
			return nil, p.unexpected(err)
		}
		operand, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return node("term", leaf(op), operand), nil

	case lead.Kind == Identifier:
		name, _, err := p.advance()
		if err != nil {
			return nil, p.unexpected(err)
		}

		after, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}

		switch {
		case isSymbol(after, "["):
			lbracket, err := p.expectSymbol("[")
			if err != nil {
				return nil, err
			}
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			rbracket, err := p.expectSymbol("]")
			if err != nil {
				return nil, err
			}
			return node("term", leaf(name), lbracket, index, rbracket), nil

		case isSymbol(after, "("), isSymbol(after, "."):
			call, err := p.parseSubroutineCallAfterName(leaf(name))
			if err != nil {
				return nil, err
			}
			return node("term", call...), nil

		default:
			return node("term", leaf(name)), nil
		}

	default:
		return nil, p.syntaxErr(line, lead, "expected a term")
	}
}

// parseSubroutineCall parses 'ident (...)' or 'ident.ident(...)', returning the flattened
// children to splice into the caller (doStatement or term), since subroutineCall has no
// node of its own in the rendered output.
func (p *Parser) parseSubroutineCall() ([]Node, error) {
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	return p.parseSubroutineCallAfterName(name)
}

// parseSubroutineCallAfterName continues a subroutineCall once its leading identifier has
// already been consumed (the shared tail between parseTerm's and parseDoStatement's call
// sites, both of which need to look past the name before committing to this production).
func (p *Parser) parseSubroutineCallAfterName(name Terminal) ([]Node, error) {
	children := []Node{name}

	tok, err := p.tok.Peek()
	if err != nil {
		return nil, p.unexpected(err)
	}
	if isSymbol(tok, ".") {
		dot, err := p.expectSymbol(".")
		if err != nil {
			return nil, err
		}
		method, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		children = append(children, dot, method)
	}

	lparen, err := p.expectSymbol("(")
	if err != nil {
		return nil, err
	}
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	rparen, err := p.expectSymbol(")")
	if err != nil {
		return nil, err
	}
	children = append(children, lparen, args, rparen)

	return children, nil
}

// parseExpressionList parses ( expression (',' expression)* )?, always producing a tagged
// node even for a zero-argument call.
func (p *Parser) parseExpressionList() (Node, error) {
	defer p.enter("expressionList")()

	tok, err := p.tok.Peek()
	if err != nil {
		return nil, p.unexpected(err)
	}
	if isSymbol(tok, ")") {
		return node("expressionList"), nil
	}

	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	children := []Node{first}

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, p.unexpected(err)
		}
		if !isSymbol(tok, ",") {
			break
		}
		comma, err := p.expectSymbol(",")
		if err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		children = append(children, comma, expr)
	}

	return node("expressionList", children...), nil
}

// isSymbolAny reports whether 'tok' is a Symbol matching any of 'lexemes'.
func isSymbolAny(tok Token, lexemes ...string) bool {
	if tok.Kind != Symbol {
		return false
	}
	for _, l := range lexemes {
		if tok.Lexeme == l {
			return true
		}
	}
	return false
}
