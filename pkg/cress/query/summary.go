package query

import (
	"math"
	"sort"

	"github.com/sambeau/cress/pkg/cress/evaluator"
)

// builtinSummary computes one of the built-in aggregates over a
// column's projected values. It reports false for unrecognized names
// so the caller can fall back to declared or inline expressions.
func builtinSummary(name string, values []evaluator.Object) (evaluator.Object, bool) {
	switch name {
	case "count":
		return number(float64(len(present(values)))), true
	case "sum":
		total := 0.0
		for _, n := range numbers(values) {
			total += n
		}
		return number(total), true
	case "avg", "average", "mean":
		ns := numbers(values)
		if len(ns) == 0 {
			return evaluator.NULL, true
		}
		total := 0.0
		for _, n := range ns {
			total += n
		}
		return number(total / float64(len(ns))), true
	case "min":
		return extreme(values, -1), true
	case "max":
		return extreme(values, +1), true
	case "median":
		ns := numbers(values)
		if len(ns) == 0 {
			return evaluator.NULL, true
		}
		sort.Float64s(ns)
		mid := len(ns) / 2
		if len(ns)%2 == 1 {
			return number(ns[mid]), true
		}
		return number((ns[mid-1] + ns[mid]) / 2), true
	case "stddev":
		ns := numbers(values)
		if len(ns) == 0 {
			return evaluator.NULL, true
		}
		mean := 0.0
		for _, n := range ns {
			mean += n
		}
		mean /= float64(len(ns))
		variance := 0.0
		for _, n := range ns {
			variance += (n - mean) * (n - mean)
		}
		return number(math.Sqrt(variance / float64(len(ns)))), true
	case "range":
		ns := numbers(values)
		if len(ns) == 0 {
			return evaluator.NULL, true
		}
		lo, hi := ns[0], ns[0]
		for _, n := range ns[1:] {
			lo = math.Min(lo, n)
			hi = math.Max(hi, n)
		}
		return number(hi - lo), true
	case "earliest":
		return extremeDatetime(values, -1), true
	case "latest":
		return extremeDatetime(values, +1), true
	case "checked":
		return number(countBool(values, true)), true
	case "unchecked":
		return number(countBool(values, false)), true
	case "empty":
		return number(float64(len(values) - len(present(values)))), true
	case "filled":
		return number(float64(len(present(values)))), true
	case "unique":
		seen := map[string]bool{}
		for _, v := range present(values) {
			seen[evaluator.CanonicalKey(v)] = true
		}
		return number(float64(len(seen))), true
	}
	return nil, false
}

func number(n float64) *evaluator.Number { return &evaluator.Number{Value: n} }

func isBlank(v evaluator.Object) bool {
	switch val := v.(type) {
	case nil, *evaluator.Null:
		return true
	case *evaluator.String:
		return val.Value == ""
	}
	return false
}

// present drops null and blank values.
func present(values []evaluator.Object) []evaluator.Object {
	out := make([]evaluator.Object, 0, len(values))
	for _, v := range values {
		if !isBlank(v) {
			out = append(out, v)
		}
	}
	return out
}

// numbers coerces the present values to numbers. Datetimes coerce to
// their epoch milliseconds, so range works over timestamp columns
// too; values that are not numeric are skipped.
func numbers(values []evaluator.Object) []float64 {
	var out []float64
	for _, v := range present(values) {
		if n, ok := evaluator.NumberValue(v); ok {
			out = append(out, n)
		}
	}
	return out
}

// extreme returns the smallest (dir < 0) or largest (dir > 0) present
// value under the type-aware comparator.
func extreme(values []evaluator.Object, dir int) evaluator.Object {
	var best evaluator.Object
	for _, v := range present(values) {
		if best == nil {
			best = v
			continue
		}
		c := evaluator.Compare(v, best)
		if (dir < 0 && c < 0) || (dir > 0 && c > 0) {
			best = v
		}
	}
	if best == nil {
		return evaluator.NULL
	}
	return best
}

// extremeDatetime is extreme restricted to timestamp values.
func extremeDatetime(values []evaluator.Object, dir int) evaluator.Object {
	var dts []evaluator.Object
	for _, v := range values {
		if _, ok := v.(*evaluator.Datetime); ok {
			dts = append(dts, v)
		}
	}
	return extreme(dts, dir)
}

func countBool(values []evaluator.Object, want bool) float64 {
	n := 0.0
	for _, v := range values {
		if b, ok := v.(*evaluator.Boolean); ok && b.Value == want {
			n++
		}
	}
	return n
}
