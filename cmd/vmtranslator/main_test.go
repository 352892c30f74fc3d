package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVmTranslatorHandlerSingleFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "SimpleAdd.vm")
	source := "push constant 7\npush constant 8\nadd\n"
	require.NoError(t, os.WriteFile(input, []byte(source), 0o644))

	status := Handler([]string{input}, nil)
	require.Equal(t, 0, status)

	compiled, err := os.ReadFile(filepath.Join(dir, "SimpleAdd.asm"))
	require.NoError(t, err)
	got := string(compiled)

	// A lone .vm file is just one module: no Sys.init bootstrap prologue is emitted.
	require.NotContains(t, got, "Sys.init")
	require.Contains(t, got, "@7")
	require.Contains(t, got, "@8")
	require.Contains(t, got, "@SP")
	require.Contains(t, got, "D+M") // 'add' lowers to a D+M comparison-free arithmetic op
}

func TestVmTranslatorHandlerDirectoryBootstraps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Main.vm"),
		[]byte("function Main.run 0\npush constant 1\nreturn\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sys.vm"),
		[]byte("function Sys.init 0\ncall Main.run 0\npop temp 0\nreturn\n"), 0o644))

	status := Handler([]string{dir}, nil)
	require.Equal(t, 0, status)

	outputName := filepath.Base(filepath.Clean(dir)) + ".asm"
	compiled, err := os.ReadFile(filepath.Join(dir, outputName))
	require.NoError(t, err)
	got := string(compiled)

	require.Contains(t, got, "Sys.init")
	require.Contains(t, got, "(Main.run)")
	require.Contains(t, got, "(Sys.init)")

	// Sys.vm is lowered first regardless of alphabetic filename order.
	sysIdx := indexOf(got, "(Sys.init)")
	mainIdx := indexOf(got, "(Main.run)")
	require.Less(t, sysIdx, mainIdx)
}

func TestVmTranslatorHandlerReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Broken.vm")
	require.NoError(t, os.WriteFile(input, []byte("frobnicate 9000\n"), 0o644))

	status := Handler([]string{input}, nil)
	require.NotEqual(t, 0, status)

	_, err := os.Stat(filepath.Join(dir, "Broken.asm"))
	require.True(t, os.IsNotExist(err))
}

func TestVmTranslatorHandlerUsageError(t *testing.T) {
	require.Equal(t, -1, Handler(nil, nil))
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
