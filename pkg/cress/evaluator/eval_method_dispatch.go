// eval_method_dispatch.go - method-call dispatch for the Cress
// evaluator. Dispatch is a match over the receiver's value type, with
// a small type-agnostic fallback set. filter/map/reduce take raw ASTs
// so their bodies evaluate once per element, never eagerly.

package evaluator

import (
	"strings"

	"github.com/sambeau/cress/pkg/cress/ast"
	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

func evalMethodCall(receiver Object, method string, argExprs []ast.Expression, env *Environment) Object {
	// lazy list methods receive expression arguments
	if list, ok := receiver.(*List); ok {
		switch method {
		case "filter":
			return evalListFilter(list, argExprs, env)
		case "map":
			return evalListMap(list, argExprs, env)
		case "reduce":
			return evalListReduce(list, argExprs, env)
		}
	}

	args, errObj := evalArguments(argExprs, env)
	if errObj != nil {
		return errObj
	}

	if registry := registryForType(receiver.Type()); registry != nil {
		if result := dispatchFromRegistry(registry, receiver, method, args, env); result != nil {
			return result
		}
	}

	if result := dispatchFromRegistry(CommonMethodRegistry, receiver, method, args, env); result != nil {
		return result
	}

	if env.Strict() {
		return newError(cerrors.ClassUndefined, "unknown method %q on %s",
			method, strings.ToLower(string(receiver.Type())))
	}
	return NULL
}

// elementEnv builds the extended scope a filter/map/reduce body sees:
// the current element as 'value', its position as 'index'.
func elementEnv(env *Environment, value Object, index int) *Environment {
	child := NewEnclosedEnvironment(env)
	child.Set("value", value)
	child.Set("index", &Number{Value: float64(index)})
	return child
}

func evalListFilter(list *List, argExprs []ast.Expression, env *Environment) Object {
	if len(argExprs) != 1 {
		return newArityError("filter", "1", len(argExprs))
	}
	kept := []Object{}
	for i, elem := range list.Elements {
		result := Eval(argExprs[0], elementEnv(env, elem, i))
		if isError(result) {
			return result
		}
		if isTruthy(result) {
			kept = append(kept, elem)
		}
	}
	return &List{Elements: kept}
}

func evalListMap(list *List, argExprs []ast.Expression, env *Environment) Object {
	if len(argExprs) != 1 {
		return newArityError("map", "1", len(argExprs))
	}
	mapped := make([]Object, 0, len(list.Elements))
	for i, elem := range list.Elements {
		result := Eval(argExprs[0], elementEnv(env, elem, i))
		if isError(result) {
			return result
		}
		mapped = append(mapped, result)
	}
	return &List{Elements: mapped}
}

// evalListReduce folds the list with the body expression; 'acc' holds
// the running accumulator. The optional second argument seeds the
// accumulator (it is evaluated eagerly, in the outer scope); without a
// seed the first element is the seed.
func evalListReduce(list *List, argExprs []ast.Expression, env *Environment) Object {
	if len(argExprs) < 1 || len(argExprs) > 2 {
		return newArityError("reduce", "1-2", len(argExprs))
	}

	var acc Object
	start := 0
	if len(argExprs) == 2 {
		acc = Eval(argExprs[1], env)
		if isError(acc) {
			return acc
		}
	} else {
		if len(list.Elements) == 0 {
			return NULL
		}
		acc = list.Elements[0]
		start = 1
	}

	for i := start; i < len(list.Elements); i++ {
		child := elementEnv(env, list.Elements[i], i)
		child.Set("acc", acc)
		result := Eval(argExprs[0], child)
		if isError(result) {
			return result
		}
		acc = result
	}
	return acc
}

// CommonMethodRegistry holds the type-agnostic fallback methods,
// available on every value when no type-specific method matches.
var CommonMethodRegistry = MethodRegistry{
	"isTruthy": {
		Fn: func(receiver Object, args []Object, env *Environment) Object {
			return nativeBoolToBoolean(isTruthy(receiver))
		},
		Arity:       "0",
		Description: "True unless null, false, 0 or empty string",
	},
	"isType": {
		Fn: func(receiver Object, args []Object, env *Environment) Object {
			name, ok := args[0].(*String)
			if !ok {
				return newError(cerrors.ClassType, "isType() takes a type name string")
			}
			return nativeBoolToBoolean(strings.EqualFold(string(receiver.Type()), name.Value))
		},
		Arity:       "1",
		Description: "Check the value's type by name",
	},
	"toString": {
		Fn: func(receiver Object, args []Object, env *Environment) Object {
			return &String{Value: displayString(receiver)}
		},
		Arity:       "0",
		Description: "Display form of the value",
	},
	"isEmpty": {
		Fn: func(receiver Object, args []Object, env *Environment) Object {
			switch obj := receiver.(type) {
			case *Null:
				return TRUE
			case *String:
				return nativeBoolToBoolean(obj.Value == "")
			case *List:
				return nativeBoolToBoolean(len(obj.Elements) == 0)
			case *Record:
				return nativeBoolToBoolean(len(obj.Keys) == 0)
			}
			return FALSE
		},
		Arity:       "0",
		Description: "True for null, empty strings, lists and records",
	},
}
