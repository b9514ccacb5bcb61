package query

import (
	"math"
	"testing"
	"time"

	"github.com/sambeau/cress/pkg/cress/evaluator"
)

func nums(values ...float64) []evaluator.Object {
	out := make([]evaluator.Object, 0, len(values))
	for _, v := range values {
		out = append(out, &evaluator.Number{Value: v})
	}
	return out
}

func strs(values ...string) []evaluator.Object {
	out := make([]evaluator.Object, 0, len(values))
	for _, v := range values {
		out = append(out, &evaluator.String{Value: v})
	}
	return out
}

func summaryNumber(t *testing.T, name string, values []evaluator.Object) float64 {
	t.Helper()
	val, ok := builtinSummary(name, values)
	if !ok {
		t.Fatalf("%s should be a builtin summary", name)
	}
	num, isNum := val.(*evaluator.Number)
	if !isNum {
		t.Fatalf("%s: expected a number, got %s", name, val.Inspect())
	}
	return num.Value
}

func TestNumericSummaries(t *testing.T) {
	tests := []struct {
		name     string
		values   []evaluator.Object
		expected float64
	}{
		{"sum", nums(1, 2, 3), 6},
		{"avg", nums(2, 4), 3},
		{"average", nums(2, 4), 3},
		{"median", nums(3, 1, 2), 2},
		{"median", nums(1, 2, 3, 4), 2.5},
		{"range", nums(3, 9, 5), 6},
		{"count", nums(1, 2, 3), 3},
	}
	for _, tt := range tests {
		if got := summaryNumber(t, tt.name, tt.values); got != tt.expected {
			t.Errorf("%s %v: expected %v, got %v", tt.name, tt.values, tt.expected, got)
		}
	}
}

func TestStddevIsPopulation(t *testing.T) {
	got := summaryNumber(t, "stddev", nums(2, 4, 4, 4, 5, 5, 7, 9))
	if math.Abs(got-2) > 1e-9 {
		t.Errorf("stddev: expected 2, got %v", got)
	}
}

func TestMinMaxAreTypeAware(t *testing.T) {
	val, _ := builtinSummary("min", strs("pear", "apple", "plum"))
	if evaluator.DisplayString(val) != "apple" {
		t.Errorf("min over strings: got %s", evaluator.DisplayString(val))
	}
	val, _ = builtinSummary("max", nums(3, 9, 5))
	if evaluator.DisplayString(val) != "9" {
		t.Errorf("max: got %s", evaluator.DisplayString(val))
	}
}

func TestUniqueCountsDistinctValues(t *testing.T) {
	if got := summaryNumber(t, "unique", strs("a", "a", "b")); got != 2 {
		t.Errorf("unique: expected 2, got %v", got)
	}
}

func TestCountSkipsBlanks(t *testing.T) {
	values := []evaluator.Object{
		&evaluator.Number{Value: 1},
		evaluator.NULL,
		&evaluator.String{Value: ""},
		&evaluator.String{Value: "x"},
	}
	if got := summaryNumber(t, "count", values); got != 2 {
		t.Errorf("count: expected 2, got %v", got)
	}
	if got := summaryNumber(t, "empty", values); got != 2 {
		t.Errorf("empty: expected 2, got %v", got)
	}
	if got := summaryNumber(t, "filled", values); got != 2 {
		t.Errorf("filled: expected 2, got %v", got)
	}
}

func TestCheckedAndUnchecked(t *testing.T) {
	values := []evaluator.Object{
		evaluator.TRUE, evaluator.TRUE, evaluator.FALSE, evaluator.NULL,
	}
	if got := summaryNumber(t, "checked", values); got != 2 {
		t.Errorf("checked: expected 2, got %v", got)
	}
	if got := summaryNumber(t, "unchecked", values); got != 1 {
		t.Errorf("unchecked: expected 1, got %v", got)
	}
}

func TestDatetimeSummaries(t *testing.T) {
	day := func(d int) evaluator.Object {
		return &evaluator.Datetime{Time: time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC)}
	}
	values := []evaluator.Object{day(10), day(3), day(21), &evaluator.String{Value: "not a date"}}

	val, _ := builtinSummary("earliest", values)
	if dt, ok := val.(*evaluator.Datetime); !ok || dt.Time.Day() != 3 {
		t.Errorf("earliest: got %s", val.Inspect())
	}
	val, _ = builtinSummary("latest", values)
	if dt, ok := val.(*evaluator.Datetime); !ok || dt.Time.Day() != 21 {
		t.Errorf("latest: got %s", val.Inspect())
	}

	// range over timestamps is their millisecond spread
	spread := summaryNumber(t, "range", []evaluator.Object{day(3), day(21)})
	if spread != 18*24*3600*1000 {
		t.Errorf("range over dates: got %v", spread)
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := summaryNumber(t, "sum", nil); got != 0 {
		t.Errorf("sum of nothing should be 0, got %v", got)
	}
	for _, name := range []string{"avg", "median", "stddev", "min", "max", "earliest", "latest", "range"} {
		val, ok := builtinSummary(name, nil)
		if !ok {
			t.Fatalf("%s should be a builtin summary", name)
		}
		if val != evaluator.NULL {
			t.Errorf("%s of nothing should be null, got %s", name, val.Inspect())
		}
	}
}

func TestUnknownSummaryName(t *testing.T) {
	if _, ok := builtinSummary("no-such-aggregate", nil); ok {
		t.Error("unknown names must not be claimed as builtins")
	}
}
