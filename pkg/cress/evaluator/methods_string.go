// methods_string.go - string methods via the declarative registry.

package evaluator

import (
	"strings"

	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

// StringMethodRegistry defines all methods available on string values.
var StringMethodRegistry MethodRegistry

func init() {
	StringMethodRegistry = MethodRegistry{
		"contains": {
			Fn:          stringContains,
			Arity:       "1",
			Description: "Check if contains substring",
		},
		"containsAll": {
			Fn:          stringContainsAll,
			Arity:       "1+",
			Description: "Check if contains every given substring",
		},
		"containsAny": {
			Fn:          stringContainsAny,
			Arity:       "1+",
			Description: "Check if contains at least one given substring",
		},
		"endsWith": {
			Fn:          stringEndsWith,
			Arity:       "1",
			Description: "Check suffix",
		},
		"startsWith": {
			Fn:          stringStartsWith,
			Arity:       "1",
			Description: "Check prefix",
		},
		"lower": {
			Fn:          stringLower,
			Arity:       "0",
			Description: "Convert to lowercase",
		},
		"upper": {
			Fn:          stringUpper,
			Arity:       "0",
			Description: "Convert to uppercase",
		},
		"title": {
			Fn:          stringTitle,
			Arity:       "0",
			Description: "Capitalize the first letter of each word",
		},
		"trim": {
			Fn:          stringTrim,
			Arity:       "0",
			Description: "Remove leading/trailing whitespace",
		},
		"replace": {
			Fn:          stringReplace,
			Arity:       "2",
			Description: "Replace occurrences of a literal or pattern",
		},
		"repeat": {
			Fn:          stringRepeat,
			Arity:       "1",
			Description: "Repeat n times",
		},
		"reverse": {
			Fn:          stringReverse,
			Arity:       "0",
			Description: "Reverse the characters",
		},
		"slice": {
			Fn:          stringSlice,
			Arity:       "1-2",
			Description: "Substring by start/end (negative indices count from the end)",
		},
		"split": {
			Fn:          stringSplit,
			Arity:       "1-2",
			Description: "Split by separator with an optional limit",
		},
	}
}

func receiverString(receiver Object) string {
	return receiver.(*String).Value
}

// needles collects substring arguments: a single list argument or
// variadic strings.
func needles(args []Object) []string {
	values := args
	if len(args) == 1 {
		if list, ok := args[0].(*List); ok {
			values = list.Elements
		}
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, displayString(v))
	}
	return out
}

func stringContains(receiver Object, args []Object, env *Environment) Object {
	return nativeBoolToBoolean(strings.Contains(receiverString(receiver), displayString(args[0])))
}

func stringContainsAll(receiver Object, args []Object, env *Environment) Object {
	s := receiverString(receiver)
	for _, needle := range needles(args) {
		if !strings.Contains(s, needle) {
			return FALSE
		}
	}
	return TRUE
}

func stringContainsAny(receiver Object, args []Object, env *Environment) Object {
	s := receiverString(receiver)
	for _, needle := range needles(args) {
		if strings.Contains(s, needle) {
			return TRUE
		}
	}
	return FALSE
}

func stringEndsWith(receiver Object, args []Object, env *Environment) Object {
	return nativeBoolToBoolean(strings.HasSuffix(receiverString(receiver), displayString(args[0])))
}

func stringStartsWith(receiver Object, args []Object, env *Environment) Object {
	return nativeBoolToBoolean(strings.HasPrefix(receiverString(receiver), displayString(args[0])))
}

func stringLower(receiver Object, args []Object, env *Environment) Object {
	return &String{Value: strings.ToLower(receiverString(receiver))}
}

func stringUpper(receiver Object, args []Object, env *Environment) Object {
	return &String{Value: strings.ToUpper(receiverString(receiver))}
}

func stringTitle(receiver Object, args []Object, env *Environment) Object {
	words := strings.Fields(receiverString(receiver))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		words[i] = string(runes)
	}
	return &String{Value: strings.Join(words, " ")}
}

func stringTrim(receiver Object, args []Object, env *Environment) Object {
	return &String{Value: strings.TrimSpace(receiverString(receiver))}
}

// stringReplace replaces every occurrence of a literal substring or a
// pattern match with the replacement text.
func stringReplace(receiver Object, args []Object, env *Environment) Object {
	s := receiverString(receiver)
	replacement := displayString(args[1])

	switch needle := args[0].(type) {
	case *Regex:
		return &String{Value: needle.Compiled.ReplaceAllString(s, replacement)}
	case *String:
		return &String{Value: strings.ReplaceAll(s, needle.Value, replacement)}
	}
	return newError(cerrors.ClassType, "replace() takes a string or pattern, got %s", args[0].Type())
}

func stringRepeat(receiver Object, args []Object, env *Environment) Object {
	n, errObj := toNumber(args[0], env.Strict())
	if errObj != nil {
		return errObj
	}
	if n < 0 {
		return newError(cerrors.ClassIndex, "repeat() count must not be negative")
	}
	return &String{Value: strings.Repeat(receiverString(receiver), int(n))}
}

func stringReverse(receiver Object, args []Object, env *Environment) Object {
	runes := []rune(receiverString(receiver))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return &String{Value: string(runes)}
}

// sliceBounds normalizes start/end slice arguments against a length:
// negative indices count from the end, results clamp into range.
func sliceBounds(length int, args []Object, env *Environment) (int, int, *Error) {
	start, errObj := toNumber(args[0], env.Strict())
	if errObj != nil {
		return 0, 0, errObj
	}
	end := float64(length)
	if len(args) == 2 {
		end, errObj = toNumber(args[1], env.Strict())
		if errObj != nil {
			return 0, 0, errObj
		}
	}

	s, e := int(start), int(end)
	if s < 0 {
		s += length
	}
	if e < 0 {
		e += length
	}
	if s < 0 {
		s = 0
	}
	if e > length {
		e = length
	}
	if s > e {
		s, e = 0, 0
	}
	return s, e, nil
}

func stringSlice(receiver Object, args []Object, env *Environment) Object {
	runes := []rune(receiverString(receiver))
	s, e, errObj := sliceBounds(len(runes), args, env)
	if errObj != nil {
		return errObj
	}
	return &String{Value: string(runes[s:e])}
}

func stringSplit(receiver Object, args []Object, env *Environment) Object {
	sep := displayString(args[0])
	limit := -1
	if len(args) == 2 {
		n, errObj := toNumber(args[1], env.Strict())
		if errObj != nil {
			return errObj
		}
		limit = int(n)
	}
	parts := strings.SplitN(receiverString(receiver), sep, limit)
	elems := make([]Object, 0, len(parts))
	for _, p := range parts {
		elems = append(elems, &String{Value: p})
	}
	return &List{Elements: elems}
}
