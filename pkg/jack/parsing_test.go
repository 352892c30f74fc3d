package jack_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"n2t.dev/toolchain/pkg/jack"
)

func parseClass(t *testing.T, src string) jack.Node {
	t.Helper()
	tok := jack.NewTokenizer(strings.NewReader(src))
	tree, err := jack.NewParser(tok).ParseClass()
	require.NoError(t, err)
	return tree
}

func TestParseEmptyClass(t *testing.T) {
	tree := parseClass(t, "class Main {}")
	got := jack.Render(tree)
	want := strings.Join([]string{
		"<class>",
		"  <keyword> class </keyword>",
		"  <identifier> Main </identifier>",
		"  <symbol> { </symbol>",
		"  <symbol> } </symbol>",
		"</class>",
		"",
	}, "\n")
	require.Equal(t, want, got)
}

func TestParseClassVarDec(t *testing.T) {
	tree := parseClass(t, "class Main { static int x, y; field boolean flag; }")
	got := jack.Render(tree)
	require.Contains(t, got, "<classVarDec>")
	require.Contains(t, got, "<keyword> static </keyword>")
	require.Contains(t, got, "<keyword> field </keyword>")
	require.Contains(t, got, "<keyword> boolean </keyword>")
}

func TestParseSubroutineDecNoParams(t *testing.T) {
	src := `class Main {
		function void main() {
			return;
		}
	}`
	tree := parseClass(t, src)
	got := jack.Render(tree)
	require.Contains(t, got, "<subroutineDec>")
	require.Contains(t, got, "<parameterList>")
	require.Contains(t, got, "</parameterList>")
	require.Contains(t, got, "<returnStatement>")
}

func TestParseLetIfWhileDoReturn(t *testing.T) {
	src := `class Main {
		function void run() {
			var int i;
			let i = 0;
			while (i < 10) {
				if (i = 5) {
					do Output.printInt(i);
				} else {
					let i = i + 1;
				}
			}
			return i;
		}
	}`
	tree := parseClass(t, src)
	got := jack.Render(tree)

	for _, tag := range []string{
		"<varDec>", "<letStatement>", "<whileStatement>",
		"<ifStatement>", "<doStatement>", "<returnStatement>",
	} {
		require.Contains(t, got, tag)
	}
	// subroutineCall is spliced directly into doStatement, not its own node.
	require.NotContains(t, got, "<subroutineCall>")
	require.Contains(t, got, "<identifier> Output </identifier>")
}

func TestParseArrayAccessOnBothSidesOfLet(t *testing.T) {
	src := `class Main {
		function void run() {
			let a[i] = b[j] + 1;
			return;
		}
	}`
	tree := parseClass(t, src)
	got := jack.Render(tree)
	require.Contains(t, got, "<identifier> a </identifier>")
	require.Contains(t, got, "<symbol> [ </symbol>")
	require.Contains(t, got, "<symbol> ] </symbol>")
}

func TestParseExpressionListInCall(t *testing.T) {
	src := `class Main {
		function void run() {
			do Math.max(1, 2, 3);
			return;
		}
	}`
	tree := parseClass(t, src)
	got := jack.Render(tree)
	require.Contains(t, got, "<expressionList>")
	require.Contains(t, got, "<symbol> , </symbol>")
}

func TestParseUnaryAndKeywordConstants(t *testing.T) {
	src := `class Main {
		function void run() {
			var boolean done;
			let done = false;
			let done = ~done;
			return;
		}
	}`
	tree := parseClass(t, src)
	got := jack.Render(tree)
	require.Contains(t, got, "<keyword> false </keyword>")
	require.Contains(t, got, "<symbol> ~ </symbol>")
}

func TestParseErrorsReportProductionTrace(t *testing.T) {
	tok := jack.NewTokenizer(strings.NewReader("class Main { function void main() { let } }"))
	_, err := jack.NewParser(tok).ParseClass()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parser")
	require.Contains(t, err.Error(), "letStatement")
}

func TestParseErrorOnTruncatedInput(t *testing.T) {
	tok := jack.NewTokenizer(strings.NewReader("class Main {"))
	_, err := jack.NewParser(tok).ParseClass()
	require.Error(t, err)
}

func TestParseErrorOnBadClassHeader(t *testing.T) {
	tok := jack.NewTokenizer(strings.NewReader("function Main {}"))
	_, err := jack.NewParser(tok).ParseClass()
	require.Error(t, err)
}
