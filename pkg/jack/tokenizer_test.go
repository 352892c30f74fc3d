package jack_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"n2t.dev/toolchain/pkg/jack"
)

func tokensOf(t *testing.T, src string) []jack.Token {
	t.Helper()
	tok := jack.NewTokenizer(strings.NewReader(src))
	var out []jack.Token
	for tk := range tok.All() {
		out = append(out, tk)
	}
	return out
}

func TestTokenizerKinds(t *testing.T) {
	t.Run("keywords and identifiers are distinguished", func(t *testing.T) {
		toks := tokensOf(t, "class Foo")
		require.Len(t, toks, 2)
		require.Equal(t, jack.Token{Kind: jack.Keyword, Lexeme: "class"}, toks[0])
		require.Equal(t, jack.Token{Kind: jack.Identifier, Lexeme: "Foo"}, toks[1])
	})

	t.Run("every single-char symbol lexes on its own", func(t *testing.T) {
		toks := tokensOf(t, "{}()[].,;+-*/&|<>=~")
		require.Len(t, toks, 19)
		for _, tk := range toks {
			require.Equal(t, jack.Symbol, tk.Kind)
		}
	})

	t.Run("integer constants", func(t *testing.T) {
		toks := tokensOf(t, "0 1 32767")
		require.Len(t, toks, 3)
		for i, want := range []string{"0", "1", "32767"} {
			require.Equal(t, jack.IntegerConstant, toks[i].Kind)
			require.Equal(t, want, toks[i].Lexeme)
		}
	})

	t.Run("string constants exclude their quotes", func(t *testing.T) {
		toks := tokensOf(t, `"hello world"`)
		require.Len(t, toks, 1)
		require.Equal(t, jack.Token{Kind: jack.StringConstant, Lexeme: "hello world"}, toks[0])
	})

	t.Run("comments and whitespace are dropped", func(t *testing.T) {
		toks := tokensOf(t, "// line comment\nlet /* inline */ x = 1; /** api doc */")
		var lexemes []string
		for _, tk := range toks {
			lexemes = append(lexemes, tk.Lexeme)
		}
		require.Equal(t, []string{"let", "x", "=", "1", ";"}, lexemes)
	})
}

func TestTokenizerLexErrors(t *testing.T) {
	tryTokenize := func(src string) error {
		tok := jack.NewTokenizer(strings.NewReader(src))
		for {
			_, err := tok.Take()
			if err != nil {
				if err == jack.ErrEndOfInput {
					return nil
				}
				return err
			}
		}
	}

	t.Run("unterminated block comment", func(t *testing.T) {
		require.Error(t, tryTokenize("/* never closed"))
	})

	t.Run("unterminated string constant", func(t *testing.T) {
		require.Error(t, tryTokenize(`"never closed`))
	})

	t.Run("newline inside string constant", func(t *testing.T) {
		require.Error(t, tryTokenize("\"broken\nstring\""))
	})

	t.Run("integer constant out of range", func(t *testing.T) {
		require.Error(t, tryTokenize("32768"))
	})

	t.Run("unknown character", func(t *testing.T) {
		require.Error(t, tryTokenize("@"))
	})
}

func TestTokenizerPeekIsIdempotent(t *testing.T) {
	tok := jack.NewTokenizer(strings.NewReader("let x"))

	first, err := tok.Peek()
	require.NoError(t, err)
	second, err := tok.Peek()
	require.NoError(t, err)
	require.Equal(t, first, second)

	taken, err := tok.Take()
	require.NoError(t, err)
	require.Equal(t, first, taken)

	next, err := tok.Peek()
	require.NoError(t, err)
	require.Equal(t, jack.Token{Kind: jack.Identifier, Lexeme: "x"}, next)
}

func TestTokenizerEndOfInput(t *testing.T) {
	tok := jack.NewTokenizer(strings.NewReader(""))
	_, err := tok.Take()
	require.ErrorIs(t, err, jack.ErrEndOfInput)
}
