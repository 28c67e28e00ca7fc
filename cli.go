package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bfc/amd64"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `bfc - A brainfuck interpreter and native-code compiler

Usage:
    bfc <command> [arguments]

Commands:
    run <file>      Interpret a brainfuck source file
    compile <file>  Compile a brainfuck source file to a relocatable object
    check <file>    Check a brainfuck source file for bracket errors
    help            Show this help message

Examples:
    bfc run examples/hello.b
    bfc compile -o hello.o hello.b
    bfc run --array-size 65536 --eof-behaviour zero rot13.b

Use "bfc <command> -h" for more information about a command.
`)
}

// configFlags registers the options shared by run and compile.
func configFlags(fs *flag.FlagSet) (arraySize *int, eofBehaviour *string) {
	arraySize = fs.Int("array-size", DefaultArraySize, "Tape length in cells")
	eofBehaviour = fs.String("eof-behaviour", "ignore", "Input exhaustion handling: ignore or zero")
	return arraySize, eofBehaviour
}

func buildConfig(arraySize int, eofBehaviour string) (Config, error) {
	eof, err := ParseEOFBehaviour(eofBehaviour)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{ArraySize: arraySize, EOF: eof}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// buildProgram runs the front end: filter, bracket matching, IR building.
func buildProgram(source []byte) (*IR, error) {
	cmds := Filter(source)
	jumps, err := MatchLoops(cmds)
	if err != nil {
		return nil, err
	}
	return BuildIR(cmds, jumps), nil
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	arraySize, eofBehaviour := configFlags(fs)
	verbose := fs.Bool("v", false, "Show verbose details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bfc run [flags] <file>\n")
		fmt.Fprintf(os.Stderr, "Interpret a brainfuck source file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)

	cfg, err := buildConfig(*arraySize, *eofBehaviour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	ir, err := buildProgram(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Interpreting %s (%d blocks)...\n", filename, len(ir.Blocks))
	}

	interp := NewInterpreter(cfg, os.Stdin, os.Stdout)
	if err := interp.Run(ir); err != nil {
		fmt.Fprintf(os.Stderr, "Execution failed: %v\n", err)
		os.Exit(1)
	}
}

func compileCommand(args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <filename>.o)")
	arraySize, eofBehaviour := configFlags(fs)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bfc compile [-o output] [flags] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a brainfuck source file to a relocatable object\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)

	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".o"
	}

	cfg, err := buildConfig(*arraySize, *eofBehaviour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Compiling %s to %s...\n", filename, outputFile)
	}

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	ir, err := buildProgram(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
		os.Exit(1)
	}

	objBytes, err := Generate(ir, cfg, amd64.NewBuilder())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputFile, objBytes, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing object file %s: %v\n", outputFile, err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(objBytes))
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Show verbose checking details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bfc check [-v] <file>\n")
		fmt.Fprintf(os.Stderr, "Check a brainfuck source file for bracket errors\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)

	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file %s: %v\n", filename, err)
		os.Exit(1)
	}

	cmds := Filter(source)
	if _, err := MatchLoops(cmds); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
		os.Exit(1)
	}

	fmt.Printf("%s: no errors found\n", filename)

	if *verbose {
		fmt.Printf("%d commands\n", len(cmds))
	}
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		runCommand(args)
	case "compile":
		compileCommand(args)
	case "check":
		checkCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
