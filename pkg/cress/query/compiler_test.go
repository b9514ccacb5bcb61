package query

import (
	"testing"

	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

func compileOrFail(t *testing.T, spec *QuerySpec) *CompiledQuery {
	t.Helper()
	cq, err := Compile(spec, Options{})
	if err != nil {
		t.Fatalf("Compile failed: %s", err)
	}
	return cq
}

func singleViewSpec() *QuerySpec {
	return &QuerySpec{Views: []*ViewSpec{{Name: "main"}}}
}

func TestFormulaDependencyOrder(t *testing.T) {
	spec := singleViewSpec()
	spec.Formulas = map[string]string{
		"a": "formula.b + 1",
		"b": "1",
	}
	cq := compileOrFail(t, spec)

	order := cq.Formulas()
	if len(order) != 2 {
		t.Fatalf("expected 2 formulas, got %d", len(order))
	}
	if order[0].Name != "b" || order[1].Name != "a" {
		t.Errorf("expected order [b a], got [%s %s]", order[0].Name, order[1].Name)
	}
}

func TestFormulaDeepChainOrder(t *testing.T) {
	spec := singleViewSpec()
	spec.Formulas = map[string]string{
		"total":    "formula.base + formula.bonus",
		"base":     "price * quantity",
		"bonus":    "formula.base * 0.1",
		"unrelated": "1",
	}
	cq := compileOrFail(t, spec)

	position := map[string]int{}
	for i, f := range cq.Formulas() {
		position[f.Name] = i
	}
	if position["base"] > position["bonus"] {
		t.Error("base must come before bonus")
	}
	if position["bonus"] > position["total"] {
		t.Error("bonus must come before total")
	}
	if position["base"] > position["total"] {
		t.Error("base must come before total")
	}
}

func TestFormulaCycleDetected(t *testing.T) {
	spec := singleViewSpec()
	spec.Formulas = map[string]string{
		"a": "formula.b + 1",
		"b": "formula.a + 1",
	}
	_, err := Compile(spec, Options{})
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	if err.Class != cerrors.ClassCycle {
		t.Errorf("expected cycle class, got %s", err.Class)
	}
	if !err.IsFatal() {
		t.Error("cycle errors must be fatal")
	}
}

func TestFormulaSelfCycleDetected(t *testing.T) {
	spec := singleViewSpec()
	spec.Formulas = map[string]string{"a": "formula.a + 1"}
	if _, err := Compile(spec, Options{}); err == nil {
		t.Fatal("expected a cycle error for a self-referencing formula")
	}
}

// A bare identifier "formula" with no property access, and references
// to undeclared names, are not dependencies.
func TestFormulaRefsIgnoreNonDependencies(t *testing.T) {
	spec := singleViewSpec()
	spec.Formulas = map[string]string{
		"a": "formula.nodecl + other.b",
		"b": "2",
	}
	cq := compileOrFail(t, spec)
	if len(cq.Formulas()) != 2 {
		t.Fatalf("expected 2 formulas, got %d", len(cq.Formulas()))
	}
	// lexicographic seed keeps independent formulas in name order
	if cq.Formulas()[0].Name != "a" {
		t.Errorf("expected a first, got %s", cq.Formulas()[0].Name)
	}
}

func TestCompileReportsBadFormulaSource(t *testing.T) {
	spec := singleViewSpec()
	spec.Formulas = map[string]string{"broken": "1 +"}
	_, err := Compile(spec, Options{})
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if err.Class != cerrors.ClassParse {
		t.Errorf("expected parse class, got %s", err.Class)
	}
}

func TestCompileReportsBadFilterSource(t *testing.T) {
	spec := singleViewSpec()
	spec.Filters = &FilterSpec{Expr: "status =="}
	if _, err := Compile(spec, Options{}); err == nil {
		t.Fatal("expected a parse error for a broken filter")
	}
}

func TestValidateRejectsBadSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec *QuerySpec
	}{
		{"no views", &QuerySpec{}},
		{"unnamed view", &QuerySpec{Views: []*ViewSpec{{}}}},
		{"duplicate names", &QuerySpec{Views: []*ViewSpec{{Name: "a"}, {Name: "a"}}}},
		{"bad sort direction", &QuerySpec{Views: []*ViewSpec{
			{Name: "a", Sort: []SortKey{{Property: "x", Direction: "sideways"}}},
		}}},
		{"negative limit", &QuerySpec{Views: []*ViewSpec{{Name: "a", Limit: -1}}}},
	}
	for _, tt := range tests {
		if err := tt.spec.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		} else if err.Class != cerrors.ClassValidation {
			t.Errorf("%s: expected validation class, got %s", tt.name, err.Class)
		}
	}
}

func TestParseSpecYAML(t *testing.T) {
	src := `
filters:
  and:
    - 'status != "dropped"'
    - or:
        - priority >= 2
        - not: 'tags.contains("later")'
formulas:
  score: priority * 10
properties: [file.name, status]
summaries:
  spread: max(values) - min(values)
views:
  - name: open
    filters: 'status == "open"'
    sort:
      - property: score
        direction: desc
      - file.name
    limit: 10
    group_by: status
    summaries:
      score: sum
`
	spec, err := ParseSpec([]byte(src))
	if err != nil {
		t.Fatalf("ParseSpec failed: %s", err)
	}

	if spec.Filters == nil || len(spec.Filters.And) != 2 {
		t.Fatal("global and-filter not parsed")
	}
	or := spec.Filters.And[1]
	if len(or.Or) != 2 {
		t.Fatal("nested or-filter not parsed")
	}
	if or.Or[1].Not == nil || or.Or[1].Not.Expr == "" {
		t.Error("nested not-filter not parsed")
	}

	view := spec.Views[0]
	if view.Name != "open" {
		t.Errorf("wrong view name %q", view.Name)
	}
	if len(view.Sort) != 2 {
		t.Fatalf("expected 2 sort keys, got %d", len(view.Sort))
	}
	if view.Sort[0].Direction != "desc" {
		t.Errorf("explicit direction lost: %q", view.Sort[0].Direction)
	}
	if view.Sort[1].Property != "file.name" || view.Sort[1].Direction != "asc" {
		t.Errorf("scalar sort key should default to asc: %+v", view.Sort[1])
	}
	if view.GroupBy == nil || view.GroupBy.Property != "status" || view.GroupBy.Direction != "asc" {
		t.Errorf("scalar group key not parsed: %+v", view.GroupBy)
	}
	if view.Limit != 10 {
		t.Errorf("limit not parsed: %d", view.Limit)
	}
	if view.Summaries["score"] != "sum" {
		t.Errorf("view summaries not parsed: %+v", view.Summaries)
	}

	if _, err := Compile(spec, Options{}); err != nil {
		t.Fatalf("compiled spec should be valid: %s", err)
	}
}

func TestParseSpecRejectsUnknownCombinator(t *testing.T) {
	src := `
views:
  - name: v
    filters:
      nand:
        - 'true'
`
	if _, err := ParseSpec([]byte(src)); err == nil {
		t.Fatal("expected an error for an unknown filter combinator")
	}
}

func TestViewSelection(t *testing.T) {
	spec := &QuerySpec{Views: []*ViewSpec{{Name: "first"}, {Name: "second"}}}

	v, err := spec.View("")
	if err != nil || v.Name != "first" {
		t.Errorf("empty name should pick the first view, got %v, %v", v, err)
	}
	v, err = spec.View("second")
	if err != nil || v.Name != "second" {
		t.Errorf("lookup by name failed: %v, %v", v, err)
	}
	if _, err = spec.View("nope"); err == nil || err.Class != cerrors.ClassView {
		t.Errorf("unknown view should be a view-class error, got %v", err)
	}
}
