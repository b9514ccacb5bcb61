// methods_list.go - list methods via the declarative registry. The
// lazy filter/map/reduce methods live in eval_method_dispatch.go: they
// receive ASTs, not values.

package evaluator

import (
	"sort"
	"strings"
)

// ListMethodRegistry defines the eager methods available on lists.
var ListMethodRegistry MethodRegistry

func init() {
	ListMethodRegistry = MethodRegistry{
		"contains": {
			Fn:          listContains,
			Arity:       "1",
			Description: "Check membership by structural equality",
		},
		"containsAll": {
			Fn:          listContainsAll,
			Arity:       "1+",
			Description: "Check that every given value is a member",
		},
		"containsAny": {
			Fn:          listContainsAny,
			Arity:       "1+",
			Description: "Check that at least one given value is a member",
		},
		"flatten": {
			Fn:          listFlatten,
			Arity:       "0",
			Description: "Flatten nested lists",
		},
		"join": {
			Fn:          listJoin,
			Arity:       "0-1",
			Description: "Join display forms with a separator",
		},
		"reverse": {
			Fn:          listReverse,
			Arity:       "0",
			Description: "Reverse element order",
		},
		"slice": {
			Fn:          listSlice,
			Arity:       "1-2",
			Description: "Sublist by start/end (negative indices count from the end)",
		},
		"sort": {
			Fn:          listSort,
			Arity:       "0",
			Description: "Sort with the type-aware comparator",
		},
		"unique": {
			Fn:          listUnique,
			Arity:       "0",
			Description: "Drop structural duplicates, keeping first occurrences",
		},
	}
}

func receiverList(receiver Object) *List {
	return receiver.(*List)
}

// members collects membership arguments: a single list argument or
// variadic values.
func members(args []Object) []Object {
	if len(args) == 1 {
		if list, ok := args[0].(*List); ok {
			return list.Elements
		}
	}
	return args
}

func listHas(list *List, value Object) bool {
	for _, e := range list.Elements {
		if Equals(e, value) {
			return true
		}
	}
	return false
}

func listContains(receiver Object, args []Object, env *Environment) Object {
	return nativeBoolToBoolean(listHas(receiverList(receiver), args[0]))
}

func listContainsAll(receiver Object, args []Object, env *Environment) Object {
	list := receiverList(receiver)
	for _, v := range members(args) {
		if !listHas(list, v) {
			return FALSE
		}
	}
	return TRUE
}

func listContainsAny(receiver Object, args []Object, env *Environment) Object {
	list := receiverList(receiver)
	for _, v := range members(args) {
		if listHas(list, v) {
			return TRUE
		}
	}
	return FALSE
}

func listFlatten(receiver Object, args []Object, env *Environment) Object {
	var flat []Object
	var walk func(elems []Object)
	walk = func(elems []Object) {
		for _, e := range elems {
			if nested, ok := e.(*List); ok {
				walk(nested.Elements)
				continue
			}
			flat = append(flat, e)
		}
	}
	walk(receiverList(receiver).Elements)
	return &List{Elements: flat}
}

func listJoin(receiver Object, args []Object, env *Environment) Object {
	sep := ", "
	if len(args) == 1 {
		sep = displayString(args[0])
	}
	parts := make([]string, 0, len(receiverList(receiver).Elements))
	for _, e := range receiverList(receiver).Elements {
		parts = append(parts, displayString(e))
	}
	return &String{Value: strings.Join(parts, sep)}
}

func listReverse(receiver Object, args []Object, env *Environment) Object {
	src := receiverList(receiver).Elements
	out := make([]Object, len(src))
	for i, e := range src {
		out[len(src)-1-i] = e
	}
	return &List{Elements: out}
}

func listSlice(receiver Object, args []Object, env *Environment) Object {
	elems := receiverList(receiver).Elements
	s, e, errObj := sliceBounds(len(elems), args, env)
	if errObj != nil {
		return errObj
	}
	return &List{Elements: append([]Object(nil), elems[s:e]...)}
}

func listSort(receiver Object, args []Object, env *Environment) Object {
	out := append([]Object(nil), receiverList(receiver).Elements...)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i], out[j]) < 0
	})
	return &List{Elements: out}
}

func listUnique(receiver Object, args []Object, env *Environment) Object {
	seen := map[string]bool{}
	var out []Object
	for _, e := range receiverList(receiver).Elements {
		key := canonicalKey(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return &List{Elements: out}
}
