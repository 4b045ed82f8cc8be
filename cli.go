package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/wayto-lang/wayto/config"
)

func showUsage(w io.Writer) {
	fmt.Fprintf(w, `wayto - A small expression language compiled through SSA to native objects

Usage:
    wayto <command> [arguments]

Commands:
    lex <file>      Print the tokens of a .wt file
    ast <file>      Print the syntax tree of a .wt file
    type <file>     Type-check a .wt file and print function signatures
    ssa <file>      Print the SSA IR of a .wt file
    llvm <file>     Print the LLVM IR of a .wt file
    build <file>    Compile a .wt file to an object file
    run <file>      Compile and execute a .wt file on the SSA interpreter
    repl            Start an interactive session
    help            Show this help message

Examples:
    wayto run examples/sum.wt
    wayto build -o out/sum.o sum.wt
    wayto build -emit llvm -o sum.ll sum.wt
    wayto type sum.wt

Settings are read from wayto.yaml next to the source file and from
WAYTO_* environment variables; flags take precedence.

Use "wayto <command> -h" for more information about a command.
`)
}

// fileCommand describes a command taking exactly one source file.
type fileCommand struct {
	usage   string
	summary string
	// build adds the -o and -emit flags.
	build  bool
	action func(d *driver, path string) error
}

var fileCommands = map[string]fileCommand{
	"lex": {
		usage:   "wayto lex [-v] <file>",
		summary: "Print the tokens of a .wt file",
		action:  (*driver).lex,
	},
	"ast": {
		usage:   "wayto ast [-v] <file>",
		summary: "Print the syntax tree of a .wt file",
		action:  (*driver).ast,
	},
	"type": {
		usage:   "wayto type [-v] <file>",
		summary: "Type-check a .wt file and print function signatures",
		action:  (*driver).types,
	},
	"ssa": {
		usage:   "wayto ssa [-v] [-config file] <file>",
		summary: "Print the SSA IR of a .wt file",
		action:  (*driver).printSSA,
	},
	"llvm": {
		usage:   "wayto llvm [-v] [-config file] <file>",
		summary: "Print the LLVM IR of a .wt file",
		action:  (*driver).printLLVM,
	},
	"build": {
		usage:   "wayto build [-o output] [-emit obj|llvm|ssa] [-config file] [-v] <file>",
		summary: "Compile a .wt file to an object file",
		build:   true,
		action:  (*driver).build,
	},
	"run": {
		usage:   "wayto run [-v] [-config file] <file>",
		summary: "Compile and execute a .wt file on the SSA interpreter",
		action: func(d *driver, path string) error {
			_, err := d.run(path)
			return err
		},
	},
}

func runFileCommand(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := fileCommands[name]
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	configPath := fs.String("config", "", "Config file (default: wayto.yaml next to the source file)")
	var output, emit *string
	if cmd.build {
		output = fs.String("o", "", "Output file path (default: main.o)")
		emit = fs.String("emit", "", "Output format: obj, llvm or ssa (default: obj)")
	}
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s\n", cmd.usage)
		fmt.Fprintf(stderr, "%s\n\n", cmd.summary)
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		return 1
	}
	filename := fs.Arg(0)

	cfg, err := config.Load(*configPath, filename)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.Verbose = true
	}
	if cmd.build {
		if *output != "" {
			cfg.Output = *output
		}
		if *emit != "" {
			cfg.Emit = *emit
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	d := &driver{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}
	d.logf("%s %s", name, filename)
	if err := cmd.action(d, filename); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func replCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wayto repl\n")
		fmt.Fprintf(stderr, "Start an interactive session\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(stderr, "Error: repl takes no arguments\n")
		fs.Usage()
		return 1
	}
	return runREPL(stdout, stderr)
}

// runMain dispatches args to a command and returns the exit status.
func runMain(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		showUsage(stderr)
		return 1
	}

	command := args[0]
	rest := args[1:]

	if _, ok := fileCommands[command]; ok {
		return runFileCommand(command, rest, stdin, stdout, stderr)
	}
	switch command {
	case "repl":
		return replCommand(rest, stdout, stderr)
	case "help", "-h", "--help":
		showUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		showUsage(stderr)
		return 1
	}
}
