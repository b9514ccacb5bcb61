// eval_infix.go - binary operator semantics for the Cress evaluator.
//
// Every operator pattern-matches over the closed value set; the rules
// for each operator are ordered, so the first matching case wins.

package evaluator

import (
	"math"
	"strings"

	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

func evalBinaryOp(operator string, left, right Object, env *Environment) Object {
	switch operator {
	case "+":
		return evalPlus(left, right, env)
	case "-":
		return evalMinus(left, right, env)
	case "*":
		return evalStar(left, right, env)
	case "/":
		return evalSlash(left, right, env)
	case "%":
		l, errObj := toNumber(left, env.Strict())
		if errObj != nil {
			return errObj
		}
		r, errObj := toNumber(right, env.Strict())
		if errObj != nil {
			return errObj
		}
		if r == 0 {
			return newError(cerrors.ClassOperator, "modulo by zero")
		}
		return &Number{Value: math.Mod(l, r)}
	case "<", "<=", ">", ">=":
		cmp := Compare(left, right)
		switch operator {
		case "<":
			return nativeBoolToBoolean(cmp < 0)
		case "<=":
			return nativeBoolToBoolean(cmp <= 0)
		case ">":
			return nativeBoolToBoolean(cmp > 0)
		default:
			return nativeBoolToBoolean(cmp >= 0)
		}
	case "==":
		return nativeBoolToBoolean(Equals(left, right))
	case "!=":
		return nativeBoolToBoolean(!Equals(left, right))
	}
	return newError(cerrors.ClassOperator, "unknown operator %q", operator)
}

// evalPlus: timestamp+duration shifts, timestamp+number shifts by
// milliseconds, duration+duration concatenates, any string operand
// concatenates display forms, everything else adds numerically.
func evalPlus(left, right Object, env *Environment) Object {
	if dt, ok := left.(*Datetime); ok {
		switch r := right.(type) {
		case *Duration:
			return &Datetime{Time: applyDuration(dt.Time, r, 1)}
		case *Number:
			return &Datetime{Time: dt.Time.Add(millisToGoDuration(r.Value))}
		}
	}
	if dur, ok := left.(*Duration); ok {
		if dt, ok := right.(*Datetime); ok {
			return &Datetime{Time: applyDuration(dt.Time, dur, 1)}
		}
		if r, ok := right.(*Duration); ok {
			parts := append(append([]DurationPart(nil), dur.Parts...), r.Parts...)
			return &Duration{Parts: parts}
		}
	}
	if left.Type() == STRING_OBJ || right.Type() == STRING_OBJ {
		return &String{Value: displayString(left) + displayString(right)}
	}

	l, errObj := toNumber(left, env.Strict())
	if errObj != nil {
		return errObj
	}
	r, errObj := toNumber(right, env.Strict())
	if errObj != nil {
		return errObj
	}
	return &Number{Value: l + r}
}

// evalMinus: timestamp−timestamp is a numeric millisecond difference,
// timestamp−duration shifts backward, duration−duration is a numeric
// millisecond difference, everything else subtracts numerically.
func evalMinus(left, right Object, env *Environment) Object {
	if dt, ok := left.(*Datetime); ok {
		switch r := right.(type) {
		case *Datetime:
			return &Number{Value: dt.instantMillis() - r.instantMillis()}
		case *Duration:
			return &Datetime{Time: applyDuration(dt.Time, r, -1)}
		}
	}
	if dur, ok := left.(*Duration); ok {
		if r, ok := right.(*Duration); ok {
			return &Number{Value: dur.TotalMillis() - r.TotalMillis()}
		}
	}

	l, errObj := toNumber(left, env.Strict())
	if errObj != nil {
		return errObj
	}
	r, errObj := toNumber(right, env.Strict())
	if errObj != nil {
		return errObj
	}
	return &Number{Value: l - r}
}

func evalStar(left, right Object, env *Environment) Object {
	if dur, ok := left.(*Duration); ok {
		if n, ok := right.(*Number); ok {
			return scaleDuration(dur, n.Value)
		}
	}
	if n, ok := left.(*Number); ok {
		if dur, ok := right.(*Duration); ok {
			return scaleDuration(dur, n.Value)
		}
	}

	l, errObj := toNumber(left, env.Strict())
	if errObj != nil {
		return errObj
	}
	r, errObj := toNumber(right, env.Strict())
	if errObj != nil {
		return errObj
	}
	return &Number{Value: l * r}
}

func evalSlash(left, right Object, env *Environment) Object {
	if dur, ok := left.(*Duration); ok {
		if n, ok := right.(*Number); ok {
			if n.Value == 0 {
				return newError(cerrors.ClassOperator, "division by zero")
			}
			return scaleDuration(dur, 1/n.Value)
		}
	}

	l, errObj := toNumber(left, env.Strict())
	if errObj != nil {
		return errObj
	}
	r, errObj := toNumber(right, env.Strict())
	if errObj != nil {
		return errObj
	}
	if r == 0 {
		return newError(cerrors.ClassOperator, "division by zero")
	}
	return &Number{Value: l / r}
}

func scaleDuration(dur *Duration, factor float64) *Duration {
	parts := make([]DurationPart, len(dur.Parts))
	for i, p := range dur.Parts {
		parts[i] = DurationPart{Unit: p.Unit, Amount: p.Amount * factor}
	}
	return &Duration{Parts: parts}
}

// Compare orders two values: timestamps by instant, durations by their
// millisecond equivalent, strings lexicographically, booleans as 0/1,
// numbers numerically. Mixed types fall back to display-string order.
func Compare(a, b Object) int {
	switch av := a.(type) {
	case *Number:
		if bv, ok := b.(*Number); ok {
			return compareFloats(av.Value, bv.Value)
		}
	case *Datetime:
		if bv, ok := b.(*Datetime); ok {
			return compareFloats(av.instantMillis(), bv.instantMillis())
		}
	case *Duration:
		if bv, ok := b.(*Duration); ok {
			return compareFloats(av.TotalMillis(), bv.TotalMillis())
		}
	case *String:
		if bv, ok := b.(*String); ok {
			return strings.Compare(av.Value, bv.Value)
		}
	case *Boolean:
		if bv, ok := b.(*Boolean); ok {
			return compareFloats(boolToFloat(av.Value), boolToFloat(bv.Value))
		}
	}
	return strings.Compare(displayString(a), displayString(b))
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Equals implements ==: timestamps by instant, path-like values by
// normalized path, durations by millisecond equivalent, numeric
// operands numerically, lists element-wise, records by canonical
// order-independent serialization, everything else by value identity.
func Equals(a, b Object) bool {
	// nulls first so null == 0 can still hit the numeric rule below
	if a.Type() == NULL_OBJ && b.Type() == NULL_OBJ {
		return true
	}

	if ad, ok := a.(*Datetime); ok {
		if bd, ok := b.(*Datetime); ok {
			return ad.instantMillis() == bd.instantMillis()
		}
	}

	// Path equality fires when at least one side is a link or a file
	// record; the other side may be any path-like value including a
	// plain string (a trailing ".md" is ignored, case-sensitive).
	if isPathTyped(a) || isPathTyped(b) {
		ap, aok := pathOf(a)
		bp, bok := pathOf(b)
		if aok && bok {
			return ap == bp
		}
		return false
	}

	if ad, ok := a.(*Duration); ok {
		if bd, ok := b.(*Duration); ok {
			return ad.TotalMillis() == bd.TotalMillis()
		}
	}

	if a.Type() == NUMBER_OBJ || b.Type() == NUMBER_OBJ {
		// strict coercion here: a string that is not a number is simply
		// unequal, it does not collapse to 0
		an, aerr := toNumber(a, true)
		bn, berr := toNumber(b, true)
		if aerr == nil && berr == nil {
			return an == bn
		}
		return false
	}

	if al, ok := a.(*List); ok {
		bl, ok := b.(*List)
		if !ok || len(al.Elements) != len(bl.Elements) {
			return false
		}
		for i := range al.Elements {
			if !Equals(al.Elements[i], bl.Elements[i]) {
				return false
			}
		}
		return true
	}

	if _, ok := a.(*Record); ok {
		if _, ok := b.(*Record); ok {
			return canonicalKey(a) == canonicalKey(b)
		}
		return false
	}

	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *Boolean:
		return av.Value == b.(*Boolean).Value
	case *String:
		return av.Value == b.(*String).Value
	case *Regex:
		bv := b.(*Regex)
		return av.Body == bv.Body && av.Flags == bv.Flags
	case *Html:
		return av.Value == b.(*Html).Value
	case *Image:
		return av.Value == b.(*Image).Value
	case *Icon:
		return av.Value == b.(*Icon).Value
	}
	return a == b
}

func isPathTyped(obj Object) bool {
	switch obj.Type() {
	case LINK_OBJ, FILE_OBJ:
		return true
	}
	return false
}
