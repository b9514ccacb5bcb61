package query

import (
	"sort"
	"time"

	"github.com/sambeau/cress/pkg/cress/ast"
	cerrors "github.com/sambeau/cress/pkg/cress/errors"
	"github.com/sambeau/cress/pkg/cress/evaluator"
	"github.com/sambeau/cress/pkg/cress/parser"
)

// Options controls compilation and execution behaviour.
type Options struct {
	// Strict surfaces unknown identifiers, bad indexes and unknown
	// methods as errors instead of null.
	Strict bool

	// Now pins the clock for now() and today(). Nil means wall clock,
	// pinned once per execution.
	Now func() time.Time
}

// Formula is one compiled formula. Formulas in a CompiledQuery are
// ordered so that every formula comes after the formulas it reads.
type Formula struct {
	Name string
	Expr ast.Expression
}

// filterKind discriminates the nodes of a compiled filter tree.
type filterKind int

const (
	filterLeaf filterKind = iota
	filterAnd
	filterOr
	filterNot
)

// FilterTree is a compiled filter: leaves hold parsed expressions,
// inner nodes combine children.
type FilterTree struct {
	kind     filterKind
	expr     ast.Expression
	children []*FilterTree
}

// Pass evaluates the filter tree in the given environment. An absent
// (nil) tree passes everything.
func (t *FilterTree) Pass(env *evaluator.Environment) (bool, *cerrors.Error) {
	if t == nil {
		return true, nil
	}
	switch t.kind {
	case filterLeaf:
		val, err := evaluator.EvalExpression(t.expr, env)
		if err != nil {
			return false, err
		}
		return evaluator.IsTruthy(val), nil
	case filterAnd:
		for _, c := range t.children {
			ok, err := c.Pass(env)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case filterOr:
		if len(t.children) == 0 {
			return true, nil
		}
		for _, c := range t.children {
			ok, err := c.Pass(env)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default: // filterNot
		ok, err := t.children[0].Pass(env)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
}

// CompiledQuery is a specification with every expression parsed and
// the formulas dependency-ordered. It is immutable after Compile and
// safe for concurrent Execute calls.
type CompiledQuery struct {
	Spec    *QuerySpec
	Options Options

	global      *FilterTree
	viewFilters map[string]*FilterTree
	formulas    []Formula
	summaries   map[string]ast.Expression
}

// Formulas returns the compiled formulas in evaluation order.
func (cq *CompiledQuery) Formulas() []Formula { return cq.formulas }

// Compile parses every filter, formula and summary expression in the
// specification and orders the formulas by their dependencies. Cyclic
// formulas are a compile error.
func Compile(spec *QuerySpec, opts Options) (*CompiledQuery, *cerrors.Error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	cq := &CompiledQuery{
		Spec:        spec,
		Options:     opts,
		viewFilters: map[string]*FilterTree{},
		summaries:   map[string]ast.Expression{},
	}

	var err *cerrors.Error
	if cq.global, err = compileFilter(spec.Filters, "filters"); err != nil {
		return nil, err
	}
	for _, v := range spec.Views {
		tree, err := compileFilter(v.Filters, "view "+v.Name)
		if err != nil {
			return nil, err
		}
		cq.viewFilters[v.Name] = tree
	}

	if cq.formulas, err = compileFormulas(spec.Formulas); err != nil {
		return nil, err
	}

	for name, src := range spec.Summaries {
		expr, perr := parser.Parse(src)
		if perr != nil {
			return nil, perr.WithHint("in summary " + name)
		}
		cq.summaries[name] = expr
	}
	return cq, nil
}

func compileFilter(spec *FilterSpec, where string) (*FilterTree, *cerrors.Error) {
	if spec == nil {
		return nil, nil
	}
	switch {
	case spec.Expr != "":
		expr, err := parser.Parse(spec.Expr)
		if err != nil {
			return nil, err.WithHint("in " + where)
		}
		return &FilterTree{kind: filterLeaf, expr: expr}, nil
	case spec.And != nil:
		children, err := compileFilterList(spec.And, where)
		if err != nil {
			return nil, err
		}
		return &FilterTree{kind: filterAnd, children: children}, nil
	case spec.Or != nil:
		children, err := compileFilterList(spec.Or, where)
		if err != nil {
			return nil, err
		}
		return &FilterTree{kind: filterOr, children: children}, nil
	case spec.Not != nil:
		child, err := compileFilter(spec.Not, where)
		if err != nil {
			return nil, err
		}
		return &FilterTree{kind: filterNot, children: []*FilterTree{child}}, nil
	}
	return nil, cerrors.New(cerrors.ClassValidation, "empty filter in %s", where)
}

func compileFilterList(specs []*FilterSpec, where string) ([]*FilterTree, *cerrors.Error) {
	children := make([]*FilterTree, 0, len(specs))
	for _, s := range specs {
		c, err := compileFilter(s, where)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, nil
}

// compileFormulas parses each formula and orders them so dependencies
// evaluate first. Ties break lexicographically so the order is stable
// run to run.
func compileFormulas(sources map[string]string) ([]Formula, *cerrors.Error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	exprs := map[string]ast.Expression{}
	deps := map[string][]string{}
	for _, name := range names {
		expr, err := parser.Parse(sources[name])
		if err != nil {
			return nil, err.WithHint("in formula " + name)
		}
		exprs[name] = expr
		deps[name] = formulaRefs(expr, sources)
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := map[string]int{}
	var order []Formula
	var visit func(name string) *cerrors.Error
	visit = func(name string) *cerrors.Error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return cerrors.New(cerrors.ClassCycle, "formula %q depends on itself", name)
		}
		state[name] = visiting
		for _, dep := range deps[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, Formula{Name: name, Expr: exprs[name]})
		return nil
	}
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// formulaRefs collects the declared formula names an expression reads
// through formula.<name>, sorted for determinism.
func formulaRefs(expr ast.Expression, declared map[string]string) []string {
	seen := map[string]bool{}
	walkExpr(expr, func(node ast.Expression) {
		dot, ok := node.(*ast.DotExpression)
		if !ok {
			return
		}
		ident, ok := dot.Left.(*ast.Identifier)
		if !ok || ident.Value != "formula" {
			return
		}
		if _, ok := declared[dot.Property]; ok {
			seen[dot.Property] = true
		}
	})
	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

// walkExpr visits every node of an expression tree, parent first.
func walkExpr(expr ast.Expression, visit func(ast.Expression)) {
	if expr == nil {
		return
	}
	visit(expr)
	switch node := expr.(type) {
	case *ast.PrefixExpression:
		walkExpr(node.Right, visit)
	case *ast.InfixExpression:
		walkExpr(node.Left, visit)
		walkExpr(node.Right, visit)
	case *ast.DotExpression:
		walkExpr(node.Left, visit)
	case *ast.IndexExpression:
		walkExpr(node.Left, visit)
		walkExpr(node.Index, visit)
	case *ast.CallExpression:
		walkExpr(node.Function, visit)
		for _, arg := range node.Arguments {
			walkExpr(arg, visit)
		}
	case *ast.ListLiteral:
		for _, e := range node.Elements {
			walkExpr(e, visit)
		}
	case *ast.ObjectLiteral:
		for _, p := range node.Pairs {
			walkExpr(p.Value, visit)
		}
	}
}
