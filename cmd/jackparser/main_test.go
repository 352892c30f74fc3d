package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJackParserHandlerSingleFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Main.jack")
	source := `class Main {
		function void main() {
			do Output.printString("Hello world");
			return;
		}
	}`
	require.NoError(t, os.WriteFile(input, []byte(source), 0o644))

	status := Handler([]string{input}, nil)
	require.Equal(t, 0, status)

	rendered, err := os.ReadFile(filepath.Join(dir, "Main.xml"))
	require.NoError(t, err)
	got := string(rendered)

	require.Contains(t, got, "<class>")
	require.Contains(t, got, "<identifier> Main </identifier>")
	require.Contains(t, got, "<subroutineDec>")
	require.Contains(t, got, "<doStatement>")
	require.Contains(t, got, "<stringConstant> Hello world </stringConstant>")
}

func TestJackParserHandlerWalksDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Foo.jack"),
		[]byte("class Foo {\n}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bar.jack"),
		[]byte("class Bar {\n}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte("ignored"), 0o644))

	status := Handler([]string{dir}, nil)
	require.Equal(t, 0, status)

	for _, name := range []string{"Foo", "Bar"} {
		rendered, err := os.ReadFile(filepath.Join(dir, name+".xml"))
		require.NoError(t, err)
		require.Contains(t, string(rendered), "<identifier> "+name+" </identifier>")
	}

	_, err := os.Stat(filepath.Join(dir, "notes.xml"))
	require.True(t, os.IsNotExist(err))
}

func TestJackParserHandlerReportsSyntaxErrors(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "Broken.jack")
	require.NoError(t, os.WriteFile(input, []byte("class {}"), 0o644))

	status := Handler([]string{input}, nil)
	require.NotEqual(t, 0, status)

	_, err := os.Stat(filepath.Join(dir, "Broken.xml"))
	require.True(t, os.IsNotExist(err))
}

func TestJackParserHandlerUsageError(t *testing.T) {
	require.Equal(t, -1, Handler(nil, nil))
}
