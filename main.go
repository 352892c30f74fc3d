package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/hack"
	"n2t.dev/toolchain/pkg/jack"
	"n2t.dev/toolchain/pkg/vm"
)

// This is a second, minimal entry point alongside the dedicated 'cmd/*' binaries: a single
// executable that dispatches on its first argument, for callers that just want one toolchain
// binary to wire into a build pipeline instead of three.
func main() {
	if len(os.Args) < 3 {
		fmt.Fprint(os.Stderr, "USAGE: toolchain {assemble|translate|parse} <path>\n")
		os.Exit(-1)
	}

	command, path := os.Args[1], os.Args[2]

	var err error
	switch command {
	case "assemble":
		err = assemble(path)
	case "translate":
		err = translate(path)
	case "parse":
		err = parseJack(path)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: Unrecognized command '%s', expected 'assemble', 'translate' or 'parse'\n", command)
		os.Exit(-1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(-1)
	}
}

func assemble(path string) error {
	input, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to open input file: %s", err)
	}

	parser := asm.NewParser(bytes.NewReader(input))
	program, err := parser.Parse()
	if err != nil {
		return fmt.Errorf("unable to complete 'parsing' pass: %s", err)
	}

	lowerer := asm.NewLowerer(program)
	hackProgram, table, err := lowerer.Lower()
	if err != nil {
		return fmt.Errorf("unable to complete 'lowering' pass: %s", err)
	}

	codegen := hack.NewCodeGenerator(hackProgram, table)
	compiled, err := codegen.Generate()
	if err != nil {
		return fmt.Errorf("unable to complete 'codegen' pass: %s", err)
	}

	outputPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".hack"
	return writeLines(outputPath, compiled)
}

func translate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("unable to open input path: %s", err)
	}

	names, program, outputPath, bootstrap, err := gatherVmModules(path, info)
	if err != nil {
		return err
	}

	lowerer := vm.NewLowerer()
	asmProgram := asm.Program{}

	if bootstrap {
		prologue, err := lowerer.Bootstrap()
		if err != nil {
			return fmt.Errorf("unable to generate bootstrap code: %s", err)
		}
		asmProgram = append(asmProgram, prologue...)
	}

	for _, name := range names {
		scope := strings.TrimSuffix(name, filepath.Ext(name))
		lowered, err := lowerer.LowerModule(scope, program[name])
		if err != nil {
			return fmt.Errorf("unable to complete 'lowering' pass for '%s': %s", name, err)
		}
		asmProgram = append(asmProgram, lowered...)
	}

	codegen := asm.NewCodeGenerator(asmProgram)
	compiled, err := codegen.Generate()
	if err != nil {
		return fmt.Errorf("unable to complete 'codegen' pass: %s", err)
	}

	return writeLines(outputPath, compiled)
}

func gatherVmModules(input string, info os.FileInfo) ([]string, vm.Program, string, bool, error) {
	program := vm.Program{}

	if !info.IsDir() {
		content, err := os.ReadFile(input)
		if err != nil {
			return nil, nil, "", false, fmt.Errorf("unable to open input file: %s", err)
		}

		parser := vm.NewParser(bytes.NewReader(content))
		module, err := parser.Parse()
		if err != nil {
			return nil, nil, "", false, fmt.Errorf("unable to complete 'parsing' pass: %s", err)
		}

		name := filepath.Base(input)
		program[name] = module
		outputPath := strings.TrimSuffix(input, filepath.Ext(input)) + ".asm"

		return []string{name}, program, outputPath, false, nil
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, nil, "", false, fmt.Errorf("unable to list input directory: %s", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".vm" {
			continue
		}
		paths = append(paths, filepath.Join(input, entry.Name()))
	}

	ordered := vm.OrderFiles(paths)
	names := make([]string, 0, len(ordered))
	for _, path := range ordered {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, "", false, fmt.Errorf("unable to open input file '%s': %s", path, err)
		}

		parser := vm.NewParser(bytes.NewReader(content))
		module, err := parser.Parse()
		if err != nil {
			return nil, nil, "", false, fmt.Errorf("unable to complete 'parsing' pass for '%s': %s", path, err)
		}

		name := filepath.Base(path)
		program[name] = module
		names = append(names, name)
	}

	dirName := filepath.Base(filepath.Clean(input))
	outputPath := filepath.Join(input, dirName+".asm")

	return names, program, outputPath, true, nil
}

func parseJack(path string) error {
	input, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to open input file: %s", err)
	}

	tokenizer := jack.NewTokenizer(bytes.NewReader(input))
	parser := jack.NewParser(tokenizer)
	tree, err := parser.ParseClass()
	if err != nil {
		return fmt.Errorf("unable to complete 'parsing' pass: %s", err)
	}

	outputPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".xml"
	return os.WriteFile(outputPath, []byte(jack.Render(tree)), 0o644)
}

func writeLines(outputPath string, lines []string) error {
	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("unable to open output file: %s", err)
	}
	defer output.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintf(output, "%s\n", line); err != nil {
			return fmt.Errorf("unable to write output file: %s", err)
		}
	}
	return nil
}
