package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"
	"n2t.dev/toolchain/pkg/asm"
	"n2t.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithArg(cli.NewArg("input", "The .vm file, or a directory of .vm files, to be translated")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	info, err := os.Stat(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open input path: %s\n", err)
		return -1
	}

	names, program, outputPath, bootstrap, err := gatherModules(args[0], info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		return -1
	}

	lowerer := vm.NewLowerer()
	asmProgram := asm.Program{}

	// Bootstrapping is tied to directory mode, not to an opt-in flag: a directory is a
	// whole program (it has a Sys.init to call into), a lone .vm file is just one module.
	if bootstrap {
		prologue, err := lowerer.Bootstrap()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to generate bootstrap code: %s\n", err)
			return -1
		}
		asmProgram = append(asmProgram, prologue...)
	}

	for _, name := range names {
		scope := strings.TrimSuffix(name, filepath.Ext(name))
		lowered, err := lowerer.LowerModule(scope, program[name])
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'lowering' pass for '%s': %s\n", name, err)
			return -1
		}
		asmProgram = append(asmProgram, lowered...)
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	// Only touch the output file once the whole pipeline has succeeded: a failed
	// run must never leave a partial '.asm' file behind.
	output, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

// gatherModules resolves the input path (file or directory) into a set of parsed modules,
// the order they should be lowered in, and the sibling output path per §4.2's naming rules.
func gatherModules(input string, info os.FileInfo) ([]string, vm.Program, string, bool, error) {
	program := vm.Program{}

	if !info.IsDir() {
		module, err := parseModule(input)
		if err != nil {
			return nil, nil, "", false, err
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
		module, err := parseModule(path)
		if err != nil {
			return nil, nil, "", false, err
		}

		name := filepath.Base(path)
		program[name] = module
		names = append(names, name)
	}

	dirName := filepath.Base(filepath.Clean(input))
	outputPath := filepath.Join(input, dirName+".asm")

	return names, program, outputPath, true, nil
}

func parseModule(path string) (vm.Module, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open input file '%s': %s", path, err)
	}

	parser := vm.NewParser(bytes.NewReader(content))
	module, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("unable to complete 'parsing' pass for '%s': %s", path, err)
	}

	return module, nil
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
