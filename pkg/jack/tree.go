package jack

import "strings"

// ----------------------------------------------------------------------------
// Syntax tree

// A Node is either a NonTerminal (tagged by a Jack grammar production, with an ordered
// list of children) or a Terminal (wrapping a single token). There is no third variant:
// every "role tag" the grammar names (classNameUse, subroutineNameUse, varNameUse, op,
// unaryOp, keywordConstant, the anonymous structural 'syntax' role) is just a Terminal
// under a different name used while parsing — it renders exactly like any other Terminal,
// adding no nesting level to the document.
type Node interface{ isNode() }

// NonTerminal is one production of the grammar in §4.4: 'class', 'classVarDec',
// 'subroutineDec', 'parameterList', 'subroutineBody', 'varDec', 'statements',
// 'letStatement', 'ifStatement', 'whileStatement', 'doStatement', 'returnStatement',
// 'expression', 'term' or 'expressionList'. Productions not in that list (type,
// subroutineCall) never get their own node — their tokens are spliced directly into
// the parent's Children, matching the canonical nand2tetris rendering.
type NonTerminal struct {
	Tag      string
	Children []Node
}

func (NonTerminal) isNode() {}

// Terminal wraps a single token reaching the tree unchanged from the tokenizer.
type Terminal struct {
	Token Token
}

func (Terminal) isNode() {}

// node is a tiny builder used throughout parsing.go to keep call sites terse.
func node(tag string, children ...Node) NonTerminal {
	return NonTerminal{Tag: tag, Children: children}
}

func leaf(tok Token) Terminal { return Terminal{Token: tok} }

// ----------------------------------------------------------------------------
// Canonical rendering

// Render produces the canonical hierarchical document for a parsed 'class' tree: each
// NonTerminal opens and closes on its own line with two-space indentation per level, and
// each Terminal renders via the tokenizer's one-line XML form. The result always ends in
// a trailing newline; byte-for-byte matching the reference fixtures is the correctness bar
// set by §4.4, modulo that final newline.
func Render(n Node) string {
	var b strings.Builder
	renderNode(&b, n, 0)
	return b.String()
}

func renderNode(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)

	switch tn := n.(type) {
	case NonTerminal:
		b.WriteString(indent)
		b.WriteString("<")
		b.WriteString(tn.Tag)
		b.WriteString(">\n")
		for _, child := range tn.Children {
			renderNode(b, child, depth+1)
		}
		b.WriteString(indent)
		b.WriteString("</")
		b.WriteString(tn.Tag)
		b.WriteString(">\n")

	case Terminal:
		b.WriteString(indent)
		b.WriteString(tn.Token.render())
		b.WriteString("\n")
	}
}

// RenderTokens renders a bare token stream (no tree structure at all) bracketed by
// '<tokens>...</tokens>', the format the tokenizer alone produces per §4.3 before any
// parsing happens.
func RenderTokens(tokens []Token) string {
	var b strings.Builder
	b.WriteString("<tokens>\n")
	for _, tok := range tokens {
		b.WriteString(tok.render())
		b.WriteString("\n")
	}
	b.WriteString("</tokens>\n")
	return b.String()
}
