package query

import (
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/sambeau/cress/pkg/cress/ast"
	cerrors "github.com/sambeau/cress/pkg/cress/errors"
	"github.com/sambeau/cress/pkg/cress/evaluator"
	"github.com/sambeau/cress/pkg/cress/parser"
)

// Document is one markdown note presented to the executor: its front
// matter as a record plus its file record.
type Document struct {
	Path string
	Note *evaluator.Record
	File *evaluator.File
}

// Row is one projected result row.
type Row struct {
	Path  string
	Cells *evaluator.Record // column name -> projected value
}

// Group is one bucket of rows sharing a group key.
type Group struct {
	Key   evaluator.Object
	Label string
	Rows  []*Row
}

// Stats describes one execution.
type Stats struct {
	Documents int // documents considered
	Matched   int // rows that passed the filters
	Elapsed   time.Duration
}

// Result is the outcome of executing one view.
type Result struct {
	View        string
	Columns     []string
	Rows        []*Row
	Groups      []*Group          // nil when the view has no group_by
	Summaries   *evaluator.Record // column -> summary value, in column order
	Diagnostics []string          // row-level and column-level problems, non-fatal
	Stats       Stats
}

// rowState carries a matched document through the sequential stages.
type rowState struct {
	doc      *Document
	env      *evaluator.Environment
	sortKeys []evaluator.Object
}

// docOutcome is what the parallel stage produces per document.
type docOutcome struct {
	row  *rowState
	diag string
}

// execution holds the per-run scratch state.
type execution struct {
	cq      *CompiledQuery
	view    *ViewSpec
	files   map[string]*evaluator.File
	now     time.Time
	diags   []string
	colExpr map[string]ast.Expression // parsed property-expression cache
	colErr  map[string]bool           // columns already reported unparseable
}

// Execute runs one view over a snapshot of documents. Row-level
// evaluation failures become diagnostics and drop only the failing
// row; only an unknown view name is fatal.
func (cq *CompiledQuery) Execute(docs []*Document, viewName string) (*Result, *cerrors.Error) {
	started := time.Now()

	view, err := cq.Spec.View(viewName)
	if err != nil {
		return nil, err
	}

	ex := &execution{
		cq:      cq,
		view:    view,
		files:   fileIndex(docs),
		now:     cq.now(),
		colExpr: map[string]ast.Expression{},
		colErr:  map[string]bool{},
	}

	rows := ex.matchAll(docs)
	matched := len(rows)
	ex.sortRows(rows, view.Sort)
	if view.Limit > 0 && len(rows) > view.Limit {
		rows = rows[:view.Limit]
	}

	columns := ex.chooseColumns(rows)
	projected := ex.project(rows, columns)

	result := &Result{
		View:    view.Name,
		Columns: columns,
		Rows:    projected,
		Stats: Stats{
			Documents: len(docs),
			Matched:   matched,
		},
	}
	if view.GroupBy != nil {
		result.Groups = ex.group(rows, projected, view.GroupBy)
	}
	result.Summaries = ex.summarize(projected, columns, view.Summaries)
	result.Diagnostics = ex.diags
	result.Stats.Elapsed = time.Since(started)
	return result, nil
}

func (cq *CompiledQuery) now() time.Time {
	if cq.Options.Now != nil {
		return cq.Options.Now()
	}
	return time.Now()
}

// fileIndex keys every file record by its normalized path, plus by
// bare note name when that name is unique, so short link targets
// resolve too.
func fileIndex(docs []*Document) map[string]*evaluator.File {
	files := make(map[string]*evaluator.File, len(docs))
	byName := map[string]*evaluator.File{}
	ambiguous := map[string]bool{}
	for _, doc := range docs {
		if doc.File == nil {
			continue
		}
		files[evaluator.NormalizePath(doc.File.Path)] = doc.File
		if _, dup := byName[doc.File.Name]; dup {
			ambiguous[doc.File.Name] = true
		}
		byName[doc.File.Name] = doc.File
	}
	for name, f := range byName {
		if !ambiguous[name] {
			if _, taken := files[name]; !taken {
				files[name] = f
			}
		}
	}
	return files
}

// matchAll runs the per-document stage (formulas, then the combined
// global and view filter) across a worker pool. Results keep input
// order; diagnostics are sorted by path so runs are reproducible.
func (ex *execution) matchAll(docs []*Document) []*rowState {
	outcomes := make([]docOutcome, len(docs))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(docs) {
		workers = len(docs)
	}
	if workers > 1 {
		pool, err := ants.NewPool(workers)
		if err == nil {
			defer pool.Release()
			var wg sync.WaitGroup
			for i := range docs {
				i := i
				wg.Add(1)
				submitErr := pool.Submit(func() {
					defer wg.Done()
					outcomes[i] = ex.matchOne(docs[i])
				})
				if submitErr != nil {
					wg.Done()
					outcomes[i] = ex.matchOne(docs[i])
				}
			}
			wg.Wait()
		} else {
			for i := range docs {
				outcomes[i] = ex.matchOne(docs[i])
			}
		}
	} else {
		for i := range docs {
			outcomes[i] = ex.matchOne(docs[i])
		}
	}

	var rows []*rowState
	var diags []string
	for _, out := range outcomes {
		if out.diag != "" {
			diags = append(diags, out.diag)
		}
		if out.row != nil {
			rows = append(rows, out.row)
		}
	}
	sort.Strings(diags)
	ex.diags = append(ex.diags, diags...)
	return rows
}

// matchOne builds the document's evaluation context, runs its formulas
// in dependency order and applies the filters.
func (ex *execution) matchOne(doc *Document) docOutcome {
	env := evaluator.NewEnvironment()
	env.SetStrict(ex.cq.Options.Strict)
	env.SetFileIndex(ex.files)
	now := ex.now
	env.SetNow(func() time.Time { return now })

	note := doc.Note
	if note == nil {
		note = evaluator.NewRecord()
	}
	file := doc.File
	if file == nil {
		name := doc.Path
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		file = &evaluator.File{
			Name:       strings.TrimSuffix(name, ".md"),
			Path:       doc.Path,
			Properties: note,
		}
	}
	env.Set("note", note)
	env.Set("file", file)
	env.Set("this", file)

	formulaRec := evaluator.NewRecord()
	env.Set("formula", formulaRec)
	for _, f := range ex.cq.formulas {
		val, err := evaluator.EvalExpression(f.Expr, env)
		if err != nil {
			return docOutcome{diag: "row " + doc.Path + ": formula " + f.Name + ": " + err.Message}
		}
		formulaRec.Set(f.Name, val)
	}

	for _, tree := range []*FilterTree{ex.cq.global, ex.cq.viewFilters[ex.view.Name]} {
		ok, err := tree.Pass(env)
		if err != nil {
			return docOutcome{diag: "row " + doc.Path + ": " + err.Message}
		}
		if !ok {
			return docOutcome{}
		}
	}
	return docOutcome{row: &rowState{doc: doc, env: env}}
}

// sortRows orders rows by the view's sort keys with the type-aware
// comparator; ties fall back to the document path so the order is
// total.
func (ex *execution) sortRows(rows []*rowState, keys []SortKey) {
	if len(keys) == 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].doc.Path < rows[j].doc.Path
		})
		return
	}
	for _, row := range rows {
		row.sortKeys = make([]evaluator.Object, len(keys))
		for k, key := range keys {
			row.sortKeys[k] = ex.resolveProperty(row, key.Property)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for k, key := range keys {
			c := evaluator.Compare(rows[i].sortKeys[k], rows[j].sortKeys[k])
			if c == 0 {
				continue
			}
			if key.Direction == "desc" {
				return c > 0
			}
			return c < 0
		}
		return rows[i].doc.Path < rows[j].doc.Path
	})
}

// chooseColumns picks the output columns: the view's list, else the
// specification's default properties, else file.name plus every front
// matter key. The inferred union walks the rows in path order, so a
// sorted view still infers the same columns.
func (ex *execution) chooseColumns(rows []*rowState) []string {
	if len(ex.view.Columns) > 0 {
		return ex.view.Columns
	}
	if len(ex.cq.Spec.Properties) > 0 {
		return ex.cq.Spec.Properties
	}
	byPath := append([]*rowState(nil), rows...)
	sort.SliceStable(byPath, func(i, j int) bool {
		return byPath[i].doc.Path < byPath[j].doc.Path
	})
	columns := []string{"file.name"}
	seen := map[string]bool{"file.name": true}
	for _, row := range byPath {
		if row.doc.Note == nil {
			continue
		}
		for _, key := range row.doc.Note.Keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	// Notes with no front matter at all still get two columns.
	if len(columns) == 1 {
		columns = append(columns, "file.path")
	}
	return columns
}

// project evaluates every column for every row.
func (ex *execution) project(rows []*rowState, columns []string) []*Row {
	out := make([]*Row, 0, len(rows))
	for _, row := range rows {
		cells := evaluator.NewRecord()
		for _, col := range columns {
			cells.Set(col, ex.resolveProperty(row, col))
		}
		out = append(out, &Row{Path: row.doc.Path, Cells: cells})
	}
	return out
}

// resolveProperty evaluates a column or sort property for a row. A
// name that matches a front matter key verbatim reads that value;
// anything else is parsed and evaluated as an expression. Failures
// are diagnostics, the value is null.
func (ex *execution) resolveProperty(row *rowState, property string) evaluator.Object {
	if row.doc.Note != nil {
		if val, ok := row.doc.Note.Get(property); ok {
			return val
		}
	}
	expr, ok := ex.propertyExpr(property)
	if !ok {
		return evaluator.NULL
	}
	val, err := evaluator.EvalExpression(expr, row.env)
	if err != nil {
		ex.diags = append(ex.diags, "row "+row.doc.Path+": "+property+": "+err.Message)
		return evaluator.NULL
	}
	return val
}

// propertyExpr parses a property expression once per execution. An
// unparseable property is reported once and reads as null everywhere.
func (ex *execution) propertyExpr(property string) (ast.Expression, bool) {
	if expr, ok := ex.colExpr[property]; ok {
		return expr, true
	}
	if ex.colErr[property] {
		return nil, false
	}
	expr, err := parser.Parse(property)
	if err != nil {
		ex.colErr[property] = true
		ex.diags = append(ex.diags, "property "+property+": "+err.Message)
		return nil, false
	}
	ex.colExpr[property] = expr
	return expr, true
}

// group buckets projected rows by the group key. Buckets are ordered
// by the display form of their key, ascending or descending; rows
// keep their sorted order inside each bucket.
func (ex *execution) group(rows []*rowState, projected []*Row, key *GroupKey) []*Group {
	buckets := map[string]*Group{}
	var order []string
	for i, row := range rows {
		val := ex.resolveProperty(row, key.Property)
		id := evaluator.CanonicalKey(val)
		g, ok := buckets[id]
		if !ok {
			g = &Group{Key: val, Label: evaluator.DisplayString(val)}
			buckets[id] = g
			order = append(order, id)
		}
		g.Rows = append(g.Rows, projected[i])
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := buckets[order[i]].Label, buckets[order[j]].Label
		if key.Direction == "desc" {
			return strings.Compare(a, b) > 0
		}
		return strings.Compare(a, b) < 0
	})
	groups := make([]*Group, 0, len(order))
	for _, id := range order {
		groups = append(groups, buckets[id])
	}
	return groups
}

// summarize computes one summary value per configured column over the
// final row set. The summary name is a builtin aggregate, a declared
// summary expression, or an inline expression; anything else is null.
func (ex *execution) summarize(rows []*Row, columns []string, configured map[string]string) *evaluator.Record {
	summaries := evaluator.NewRecord()
	if len(configured) == 0 {
		return summaries
	}
	for _, col := range columns {
		name, ok := configured[col]
		if !ok {
			continue
		}
		values := make([]evaluator.Object, 0, len(rows))
		for _, row := range rows {
			if v, ok := row.Cells.Get(col); ok {
				values = append(values, v)
			}
		}
		summaries.Set(col, ex.summaryValue(name, values))
	}
	return summaries
}

func (ex *execution) summaryValue(name string, values []evaluator.Object) evaluator.Object {
	if val, ok := builtinSummary(name, values); ok {
		return val
	}

	expr, declared := ex.cq.summaries[name]
	if !declared {
		parsed, err := parser.Parse(name)
		if err != nil {
			ex.diags = append(ex.diags, "summary "+name+": "+err.Message)
			return evaluator.NULL
		}
		expr = parsed
	}

	env := evaluator.NewEnvironment()
	env.SetStrict(ex.cq.Options.Strict)
	env.SetFileIndex(ex.files)
	now := ex.now
	env.SetNow(func() time.Time { return now })
	env.Set("values", &evaluator.List{Elements: values})

	val, err := evaluator.EvalExpression(expr, env)
	if err != nil {
		ex.diags = append(ex.diags, "summary "+name+": "+err.Message)
		return evaluator.NULL
	}
	return val
}
