// Package repl is the interactive expression console: line editing,
// history and tab completion over the query language.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/sambeau/cress/pkg/cress/evaluator"
	"github.com/sambeau/cress/pkg/cress/parser"
	"github.com/sambeau/cress/pkg/cress/query"
)

const PROMPT = ">> "

const LOGO = `
█▀▀ █▀█ █▀▀ █▀ █▀
█▄▄ █▀▄ ██▄ ▄█ ▄█ `

// Query-language names for tab completion
var completionWords = []string{
	// Keywords
	"and", "or", "not", "true", "false", "null",
	// Context fields
	"note", "file", "formula", "this", "values",
	// Builtins
	"if", "date", "duration", "file", "link", "list", "number", "regexp",
	"now", "today", "max", "min", "sum", "avg", "count", "contains",
	"escape", "html", "image", "icon",
	// Common methods
	"contains", "containsAll", "containsAny", "startsWith", "endsWith",
	"lower", "upper", "title", "trim", "replace", "split", "join",
	"slice", "sort", "reverse", "unique", "flatten", "isEmpty", "isTruthy",
	"isType", "toString", "abs", "ceil", "floor", "round", "toFixed",
	"format", "relative", "hasTag", "hasLink", "hasProperty", "inFolder",
	"asFile", "asLink", "linksTo", "matches", "keys",
}

// Start runs the console until exit or Ctrl+D. When documents are
// loaded, file() and link resolution work against them and the first
// document is bound as the current note.
func Start(out io.Writer, version string, docs []*query.Document, strict bool) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		return filterCompletions(prefix)
	})

	historyFile := filepath.Join(os.TempDir(), ".cress_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	env := newSession(docs, strict)

	fmt.Fprintf(out, "%s", LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	if len(docs) > 0 {
		fmt.Fprintf(out, "%d notes loaded; 'note' and 'file' are bound to %s\n", len(docs), docs[0].Path)
	}
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit, ':help' for commands")
	fmt.Fprintln(out, "")

	for {
		input, err := line.Prompt(PROMPT)
		if err != nil {
			fmt.Fprintln(out, "")
			return
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case trimmed == "exit" || trimmed == "quit":
			return
		case trimmed == ":help":
			printHelp(out)
			continue
		case trimmed == ":strict":
			env.SetStrict(!env.Strict())
			fmt.Fprintf(out, "strict mode %s\n", onOff(env.Strict()))
			continue
		case strings.HasPrefix(trimmed, ":open "):
			openNote(out, env, docs, strings.TrimSpace(strings.TrimPrefix(trimmed, ":open ")))
			continue
		}

		evalLine(out, env, trimmed)
	}
}

// newSession builds the console environment: pinned clock, file index
// and the first document's context when one is loaded.
func newSession(docs []*query.Document, strict bool) *evaluator.Environment {
	env := evaluator.NewEnvironment()
	env.SetStrict(strict)
	started := time.Now()
	env.SetNow(func() time.Time { return started })

	files := map[string]*evaluator.File{}
	for _, doc := range docs {
		files[evaluator.NormalizePath(doc.File.Path)] = doc.File
	}
	env.SetFileIndex(files)

	if len(docs) > 0 {
		bindDocument(env, docs[0])
	}
	return env
}

func bindDocument(env *evaluator.Environment, doc *query.Document) {
	env.Set("note", doc.Note)
	env.Set("file", doc.File)
	env.Set("this", doc.File)
}

func openNote(out io.Writer, env *evaluator.Environment, docs []*query.Document, path string) {
	want := evaluator.NormalizePath(path)
	for _, doc := range docs {
		if evaluator.NormalizePath(doc.Path) == want || doc.File.Name == path {
			bindDocument(env, doc)
			fmt.Fprintf(out, "now reading %s\n", doc.Path)
			return
		}
	}
	fmt.Fprintf(out, "no note called %q\n", path)
}

func evalLine(out io.Writer, env *evaluator.Environment, source string) {
	expr, perr := parser.Parse(source)
	if perr != nil {
		fmt.Fprintln(out, perr.String())
		return
	}
	val, err := evaluator.EvalExpression(expr, env)
	if err != nil {
		fmt.Fprintln(out, err.String())
		return
	}
	fmt.Fprintln(out, val.Inspect())
}

func filterCompletions(prefix string) []string {
	// Complete the last word so method names work after a dot
	start := strings.LastIndexAny(prefix, " .([,")
	head, word := prefix[:start+1], prefix[start+1:]
	if word == "" {
		return nil
	}
	var matches []string
	for _, w := range completionWords {
		if strings.HasPrefix(w, word) {
			matches = append(matches, head+w)
		}
	}
	return matches
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `Commands:
  :help          show this help
  :strict        toggle strict mode
  :open <note>   bind note/file/this to another note
  exit           quit

Anything else is evaluated as an expression.
`)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
