// methods_number.go - number methods via the declarative registry.

package evaluator

import (
	"math"
	"strconv"
)

// NumberMethodRegistry defines all methods available on number values.
var NumberMethodRegistry MethodRegistry

func init() {
	NumberMethodRegistry = MethodRegistry{
		"abs": {
			Fn:          numberAbs,
			Arity:       "0",
			Description: "Absolute value",
		},
		"ceil": {
			Fn:          numberCeil,
			Arity:       "0",
			Description: "Round up to an integer",
		},
		"floor": {
			Fn:          numberFloor,
			Arity:       "0",
			Description: "Round down to an integer",
		},
		"round": {
			Fn:          numberRound,
			Arity:       "0-1",
			Description: "Round to the nearest integer, or to n digits",
		},
		"toFixed": {
			Fn:          numberToFixed,
			Arity:       "1",
			Description: "Format with a fixed number of decimal places",
		},
	}
}

func receiverNumber(receiver Object) float64 {
	return receiver.(*Number).Value
}

func numberAbs(receiver Object, args []Object, env *Environment) Object {
	return &Number{Value: math.Abs(receiverNumber(receiver))}
}

func numberCeil(receiver Object, args []Object, env *Environment) Object {
	return &Number{Value: math.Ceil(receiverNumber(receiver))}
}

func numberFloor(receiver Object, args []Object, env *Environment) Object {
	return &Number{Value: math.Floor(receiverNumber(receiver))}
}

func numberRound(receiver Object, args []Object, env *Environment) Object {
	digits := 0.0
	if len(args) == 1 {
		var errObj *Error
		digits, errObj = toNumber(args[0], env.Strict())
		if errObj != nil {
			return errObj
		}
	}
	scale := math.Pow(10, digits)
	return &Number{Value: math.Round(receiverNumber(receiver)*scale) / scale}
}

func numberToFixed(receiver Object, args []Object, env *Environment) Object {
	precision, errObj := toNumber(args[0], env.Strict())
	if errObj != nil {
		return errObj
	}
	return &String{Value: strconv.FormatFloat(receiverNumber(receiver), 'f', int(precision), 64)}
}
