// public.go - the small surface other packages lean on: truthiness,
// display form and the structural key used for grouping and dedup.

package evaluator

// IsTruthy reports whether a value counts as true in a condition.
// Null, false, 0 and "" are falsy; everything else is truthy.
func IsTruthy(obj Object) bool { return isTruthy(obj) }

// DisplayString renders a value the way it appears in output. Null
// renders as the empty string.
func DisplayString(obj Object) string { return displayString(obj) }

// CanonicalKey returns a deterministic serialization used for
// structural equality, grouping and uniqueness.
func CanonicalKey(obj Object) string { return canonicalKey(obj) }

// NumberValue coerces a value to a number, reporting whether the
// coercion succeeded. A string that is not a number fails rather than
// collapsing to zero.
func NumberValue(obj Object) (float64, bool) {
	n, err := toNumber(obj, true)
	return n, err == nil
}
