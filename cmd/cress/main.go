package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sambeau/cress/pkg/cress/evaluator"
	"github.com/sambeau/cress/pkg/cress/parser"
	"github.com/sambeau/cress/pkg/cress/query"
	"github.com/sambeau/cress/pkg/cress/render"
	"github.com/sambeau/cress/pkg/cress/repl"
	"github.com/sambeau/cress/pkg/cress/vault"
)

// Version is set at compile time via -ldflags
var Version = "0.3.0"

var (
	// Display flags
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")

	// Query flags
	fileFlag     = flag.String("f", "", "View definition file to execute")
	fileLongFlag = flag.String("file", "", "View definition file to execute")
	viewFlag     = flag.String("v", "", "View name (default: the first view)")
	viewLongFlag = flag.String("view", "", "View name (default: the first view)")
	evalFlag     = flag.String("e", "", "Evaluate an expression and print the result")
	evalLongFlag = flag.String("eval", "", "Evaluate an expression and print the result")

	// Vault flags
	vaultFlag = flag.String("vault", ".", "Vault folder to scan")
	cacheFlag = flag.String("cache", "", "Scan cache database path")

	// Output flags
	outputFlag     = flag.String("o", "table", "Output format: table, json or csv")
	outputLongFlag = flag.String("output", "", "Output format: table, json or csv")
	strictFlag     = flag.Bool("strict", false, "Treat unknown names and bad operations as errors")
)

func main() {
	// Check for subcommands first (before flag parsing)
	if len(os.Args) > 1 && os.Args[1] == "repl" {
		replCommand(os.Args[2:])
		return
	}

	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag || *versionLongFlag {
		fmt.Printf("cress version %s\n", Version)
		os.Exit(0)
	}

	specFile := prefer(*fileFlag, *fileLongFlag)
	if specFile == "" && flag.NArg() > 0 {
		specFile = flag.Arg(0)
	}
	evalCode := prefer(*evalFlag, *evalLongFlag)

	switch {
	case evalCode != "":
		evaluateInline(evalCode)
	case specFile != "":
		executeView(specFile)
	default:
		printHelp()
		os.Exit(2)
	}
}

func prefer(short, long string) string {
	if short != "" {
		return short
	}
	return long
}

// fatal reports an unrecoverable problem: bad spec, bad view name,
// unreadable vault. Exit code 2.
func fatal(message string) {
	fmt.Fprintln(os.Stderr, "Error:", message)
	os.Exit(2)
}

// evaluateInline evaluates one expression with no note bound.
func evaluateInline(source string) {
	expr, perr := parser.Parse(source)
	if perr != nil {
		fatal(perr.String())
	}

	env := evaluator.NewEnvironment()
	env.SetStrict(*strictFlag)
	started := time.Now()
	env.SetNow(func() time.Time { return started })

	val, err := evaluator.EvalExpression(expr, env)
	if err != nil {
		fatal(err.String())
	}
	fmt.Println(val.Inspect())
}

// executeView loads a view definition, scans the vault and renders
// the result. Row-level diagnostics go to stderr and exit 1; fatal
// problems exit 2.
func executeView(specFile string) {
	spec, specErr := query.LoadSpecFile(specFile)
	if specErr != nil {
		fatal(specErr.String())
	}

	compiled, compileErr := query.Compile(spec, query.Options{Strict: *strictFlag})
	if compileErr != nil {
		fatal(compileErr.String())
	}

	scanner := vault.NewScanner(*vaultFlag)
	if *cacheFlag != "" {
		cache, err := vault.OpenCache(*cacheFlag)
		if err != nil {
			fatal(err.Error())
		}
		defer cache.Close()
		scanner.Cache = cache
	}

	docs, warnings, scanErr := scanner.Scan()
	if scanErr != nil {
		fatal(scanErr.Error())
	}
	for _, warn := range warnings {
		fmt.Fprintln(os.Stderr, "Warning:", warn)
	}

	result, execErr := compiled.Execute(docs, prefer(*viewFlag, *viewLongFlag))
	if execErr != nil {
		fatal(execErr.String())
	}

	format := *outputFlag
	if *outputLongFlag != "" {
		format = *outputLongFlag
	}
	formatter, err := render.New(format, os.Stdout)
	if err != nil {
		fatal(err.Error())
	}
	if err := formatter.Format(result); err != nil {
		fatal(err.Error())
	}

	if len(result.Diagnostics) > 0 {
		for _, diag := range result.Diagnostics {
			fmt.Fprintln(os.Stderr, "Warning:", diag)
		}
		os.Exit(1)
	}
}

// replCommand starts the interactive console, optionally over a vault.
func replCommand(args []string) {
	flags := flag.NewFlagSet("repl", flag.ExitOnError)
	vaultDir := flags.String("vault", "", "Vault folder to load")
	cachePath := flags.String("cache", "", "Scan cache database path")
	strict := flags.Bool("strict", false, "Treat unknown names and bad operations as errors")
	flags.Parse(args)

	var docs []*query.Document
	if *vaultDir != "" {
		scanner := vault.NewScanner(*vaultDir)
		if *cachePath != "" {
			cache, err := vault.OpenCache(*cachePath)
			if err != nil {
				fatal(err.Error())
			}
			defer cache.Close()
			scanner.Cache = cache
		}
		var warnings []string
		var err error
		docs, warnings, err = scanner.Scan()
		if err != nil {
			fatal(err.Error())
		}
		for _, warn := range warnings {
			fmt.Fprintln(os.Stderr, "Warning:", warn)
		}
	}

	repl.Start(os.Stdout, Version, docs, *strict)
}

func printHelp() {
	fmt.Printf(`cress - query views over a folder of markdown notes, version %s

Usage:
  cress -f <views.yml> [options]    execute a view
  cress -e <expression>             evaluate one expression
  cress repl [--vault <dir>]        interactive console

Options:
  -f, --file <path>    View definition file to execute
  -v, --view <name>    View to run (default: the first view)
  -e, --eval <code>    Evaluate an expression and print the result
      --vault <dir>    Vault folder to scan (default: current folder)
      --cache <path>   Scan cache database path
  -o, --output <fmt>   Output format: table, json or csv (default: table)
      --strict         Treat unknown names and bad operations as errors
  -h, --help           Show this help
  -V, --version        Show version information

Exit codes:
  0  success
  1  success with row-level warnings
  2  fatal error (bad definition, unknown view, unreadable vault)
`, Version)
}
