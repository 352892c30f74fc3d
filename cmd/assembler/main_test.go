package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHackAssemblerHandler(t *testing.T) {
	run := func(t *testing.T, asmSource string) string {
		t.Helper()
		dir := t.TempDir()
		input := filepath.Join(dir, "Program.asm")
		require.NoError(t, os.WriteFile(input, []byte(asmSource), 0o644))

		status := Handler([]string{input}, nil)
		require.Equal(t, 0, status)

		compiled, err := os.ReadFile(filepath.Join(dir, "Program.hack"))
		require.NoError(t, err)
		return string(compiled)
	}

	t.Run("adds two constants (the canonical Add.asm program)", func(t *testing.T) {
		source := `// Computes R0 = 2 + 3
@2
D=A
@3
D=D+A
@0
M=D
`
		got := run(t, source)
		want := "0000000000000010\n" + // @2
			"1110110000010000\n" + // D=A
			"0000000000000011\n" + // @3
			"1110000010010000\n" + // D=D+A
			"0000000000000000\n" + // @0
			"1110001100001000\n" // M=D
		require.Equal(t, want, got)
	})

	t.Run("resolves a backward label and loops with a jump", func(t *testing.T) {
		source := `(LOOP)
@LOOP
0;JMP
`
		got := run(t, source)
		require.Equal(t, "0000000000000000\n1110101010000111\n", got)
	})

	t.Run("resolves user-defined variables after the predefined symbols", func(t *testing.T) {
		source := `@foo
M=1
@foo
M=M+1
`
		got := run(t, source)
		require.Contains(t, got, "0000000000010000\n") // first user variable lands at RAM[16]
	})

	t.Run("reports a nonzero status and writes no output on a bad source file", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "Broken.asm")
		require.NoError(t, os.WriteFile(input, []byte("@@@\n"), 0o644))

		status := Handler([]string{input}, nil)
		require.NotEqual(t, 0, status)

		_, err := os.Stat(filepath.Join(dir, "Broken.hack"))
		require.True(t, os.IsNotExist(err))
	})

	t.Run("reports usage error with no arguments", func(t *testing.T) {
		require.Equal(t, -1, Handler(nil, nil))
	})
}
