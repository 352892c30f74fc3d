package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"
	"n2t.dev/toolchain/pkg/jack"
)

var Description = strings.ReplaceAll(`
The Jack Parser reads programs (one or more .jack source files, or a directory of them)
written in the Jack language and produces, for each, the tagged syntax tree its grammar
describes, rendered as a sibling XML-like file. The Jack language is a higher-level OOP
language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackParser = cli.New(Description).
	// 'AsOptional()' allows more than one input .jack file or directory
	WithArg(cli.NewArg("inputs", "The source (.jack) files or directories to be parsed").
		AsOptional().WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	var sources []string
	for _, input := range args {
		err := filepath.Walk(input, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".jack" {
				return nil // Recurse into directories, skip anything that isn't a '.jack' file
			}
			sources = append(sources, path)
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to walk input path '%s': %s\n", input, err)
			return -1
		}
	}

	// Every file is parsed and rendered independently: a class file never depends on
	// another's syntax tree, unlike the VM translator's modules sharing one output.
	for _, src := range sources {
		if err := parseFile(src); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
			return -1
		}
	}

	return 0
}

func parseFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to open input file '%s': %s", path, err)
	}

	tokenizer := jack.NewTokenizer(bytes.NewReader(content))
	parser := jack.NewParser(tokenizer)
	tree, err := parser.ParseClass()
	if err != nil {
		return fmt.Errorf("unable to complete 'parsing' pass for '%s': %s", path, err)
	}

	outputPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".xml"
	if err := os.WriteFile(outputPath, []byte(jack.Render(tree)), 0o644); err != nil {
		return fmt.Errorf("unable to open output file: %s", err)
	}

	return nil
}

func main() { os.Exit(JackParser.Run(os.Args, os.Stdout)) }
