// builtins.go - the global function registry for the Cress expression
// language. Fixed names; unknown functions are strict-mode-fatal.
// if() is not here: its lazy branches are special-cased in the
// evaluator.

package evaluator

import (
	"strings"
	"time"

	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

// BuiltinFunction is the signature of global functions
type BuiltinFunction func(args []Object, env *Environment) Object

// Builtin represents a global function
type Builtin struct {
	Fn          BuiltinFunction
	Arity       string
	Description string
}

var builtins map[string]*Builtin

func init() {
	builtins = map[string]*Builtin{
		"escape":   {Fn: builtinEscape, Arity: "1", Description: "Backslash-escape markup characters"},
		"date":     {Fn: builtinDate, Arity: "1", Description: "Convert a value to a timestamp"},
		"duration": {Fn: builtinDuration, Arity: "1", Description: "Parse a duration string"},
		"file":     {Fn: builtinFile, Arity: "1", Description: "Resolve a path, link or file to its file record"},
		"html":     {Fn: builtinHtml, Arity: "1", Description: "Wrap a string as an HTML render hint"},
		"image":    {Fn: builtinImage, Arity: "1", Description: "Wrap a string as an image reference"},
		"icon":     {Fn: builtinIcon, Arity: "1", Description: "Wrap a string as an icon reference"},
		"link":     {Fn: builtinLink, Arity: "1-2", Description: "Build a link from a path and optional display text"},
		"list":     {Fn: builtinList, Arity: "0+", Description: "Collect arguments into a list"},
		"max":      {Fn: builtinMax, Arity: "1+", Description: "Numeric maximum of a list or of the arguments"},
		"min":      {Fn: builtinMin, Arity: "1+", Description: "Numeric minimum of a list or of the arguments"},
		"now":      {Fn: builtinNow, Arity: "0", Description: "The current instant"},
		"today":    {Fn: builtinToday, Arity: "0", Description: "The start of the current day"},
		"number":   {Fn: builtinNumber, Arity: "1", Description: "Numeric coercion"},
		"regexp":   {Fn: builtinRegexp, Arity: "1-2", Description: "Build a pattern from a body and optional flags"},
		"contains": {Fn: builtinContains, Arity: "2", Description: "Whether a list contains a value"},
		"sum":      {Fn: builtinSum, Arity: "1", Description: "Numeric sum of a list"},
		"avg":      {Fn: builtinAvg, Arity: "1", Description: "Numeric average of a list"},
		"count":    {Fn: builtinCount, Arity: "1", Description: "Number of elements in a list"},
	}
}

func arityGuard(name string, spec string, args []Object) *Error {
	if !checkArity(spec, len(args)) {
		return newArityError(name, spec, len(args))
	}
	return nil
}

// markupEscaper escapes the characters that carry meaning in markdown
var markupEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`,
	`{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`,
	`(`, `\(`, `)`, `\)`, `#`, `\#`, `+`, `\+`,
	`-`, `\-`, `.`, `\.`, `!`, `\!`, `|`, `\|`,
)

func builtinEscape(args []Object, env *Environment) Object {
	if errObj := arityGuard("escape", "1", args); errObj != nil {
		return errObj
	}
	return &String{Value: markupEscaper.Replace(displayString(args[0]))}
}

func builtinDate(args []Object, env *Environment) Object {
	if errObj := arityGuard("date", "1", args); errObj != nil {
		return errObj
	}
	result, errObj := toDatetime(args[0])
	if errObj != nil {
		return errObj
	}
	return result
}

func builtinDuration(args []Object, env *Environment) Object {
	if errObj := arityGuard("duration", "1", args); errObj != nil {
		return errObj
	}
	if dur, ok := args[0].(*Duration); ok {
		return dur
	}
	s, ok := args[0].(*String)
	if !ok {
		return newError(cerrors.ClassType, "duration() takes a string, got %s", args[0].Type())
	}
	dur, err := ParseDuration(s.Value)
	if err != nil {
		return newError(cerrors.ClassFormat, "%s", err)
	}
	return dur
}

// builtinFile resolves its argument to a file record through the
// snapshot's file index: strings and links by normalized path, file
// records pass through.
func builtinFile(args []Object, env *Environment) Object {
	if errObj := arityGuard("file", "1", args); errObj != nil {
		return errObj
	}
	switch arg := args[0].(type) {
	case *File:
		return arg
	case *String:
		if f, ok := env.LookupFile(arg.Value); ok {
			return f
		}
	case *Link:
		if f, ok := env.LookupFile(arg.Target); ok {
			return f
		}
	default:
		return newError(cerrors.ClassType, "file() takes a path, link or file, got %s", args[0].Type())
	}
	if env.Strict() {
		return newError(cerrors.ClassUndefined, "no file found for %s", displayString(args[0]))
	}
	return NULL
}

func builtinHtml(args []Object, env *Environment) Object {
	if errObj := arityGuard("html", "1", args); errObj != nil {
		return errObj
	}
	return &Html{Value: displayString(args[0])}
}

func builtinImage(args []Object, env *Environment) Object {
	if errObj := arityGuard("image", "1", args); errObj != nil {
		return errObj
	}
	return &Image{Value: displayString(args[0])}
}

func builtinIcon(args []Object, env *Environment) Object {
	if errObj := arityGuard("icon", "1", args); errObj != nil {
		return errObj
	}
	return &Icon{Value: displayString(args[0])}
}

func builtinLink(args []Object, env *Environment) Object {
	if errObj := arityGuard("link", "1-2", args); errObj != nil {
		return errObj
	}
	var target string
	switch arg := args[0].(type) {
	case *String:
		target = arg.Value
	case *Link:
		target = arg.Target
	case *File:
		target = arg.Path
	default:
		return newError(cerrors.ClassType, "link() takes a path, link or file, got %s", args[0].Type())
	}
	display := ""
	if len(args) == 2 {
		display = displayString(args[1])
	}
	return &Link{Target: target, Display: display}
}

// builtinList: a single list argument passes through, a single scalar
// wraps, multiple arguments collect.
func builtinList(args []Object, env *Environment) Object {
	if len(args) == 1 {
		if list, ok := args[0].(*List); ok {
			return list
		}
		return &List{Elements: []Object{args[0]}}
	}
	return &List{Elements: append([]Object(nil), args...)}
}

// numericArgs flattens max/min-style arguments: either a single list
// argument or variadic scalars.
func numericArgs(name string, args []Object, env *Environment) ([]float64, *Error) {
	values := args
	if len(args) == 1 {
		if list, ok := args[0].(*List); ok {
			values = list.Elements
		}
	}
	if len(values) == 0 {
		return nil, nil
	}
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		n, errObj := toNumber(v, env.Strict())
		if errObj != nil {
			return nil, errObj
		}
		nums = append(nums, n)
	}
	return nums, nil
}

func builtinMax(args []Object, env *Environment) Object {
	nums, errObj := numericArgs("max", args, env)
	if errObj != nil {
		return errObj
	}
	if nums == nil {
		return NULL
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n > best {
			best = n
		}
	}
	return &Number{Value: best}
}

func builtinMin(args []Object, env *Environment) Object {
	nums, errObj := numericArgs("min", args, env)
	if errObj != nil {
		return errObj
	}
	if nums == nil {
		return NULL
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if n < best {
			best = n
		}
	}
	return &Number{Value: best}
}

func builtinNow(args []Object, env *Environment) Object {
	if errObj := arityGuard("now", "0", args); errObj != nil {
		return errObj
	}
	return &Datetime{Time: env.Now()}
}

func builtinToday(args []Object, env *Environment) Object {
	if errObj := arityGuard("today", "0", args); errObj != nil {
		return errObj
	}
	now := env.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return &Datetime{Time: day}
}

func builtinNumber(args []Object, env *Environment) Object {
	if errObj := arityGuard("number", "1", args); errObj != nil {
		return errObj
	}
	n, errObj := toNumber(args[0], env.Strict())
	if errObj != nil {
		return errObj
	}
	return &Number{Value: n}
}

func builtinRegexp(args []Object, env *Environment) Object {
	if errObj := arityGuard("regexp", "1-2", args); errObj != nil {
		return errObj
	}
	body, ok := args[0].(*String)
	if !ok {
		return newError(cerrors.ClassType, "regexp() takes a pattern string, got %s", args[0].Type())
	}
	flags := ""
	if len(args) == 2 {
		f, ok := args[1].(*String)
		if !ok {
			return newError(cerrors.ClassType, "regexp() flags must be a string")
		}
		flags = f.Value
	}
	return compileRegex(body.Value, flags)
}

// Aggregate convenience wrappers operating directly on a list

func builtinContains(args []Object, env *Environment) Object {
	if errObj := arityGuard("contains", "2", args); errObj != nil {
		return errObj
	}
	list, ok := args[0].(*List)
	if !ok {
		return newError(cerrors.ClassType, "contains() takes a list, got %s", args[0].Type())
	}
	for _, e := range list.Elements {
		if Equals(e, args[1]) {
			return TRUE
		}
	}
	return FALSE
}

func listArg(name string, args []Object) (*List, *Error) {
	list, ok := args[0].(*List)
	if !ok {
		return nil, newError(cerrors.ClassType, "%s() takes a list, got %s", name, args[0].Type())
	}
	return list, nil
}

func builtinSum(args []Object, env *Environment) Object {
	if errObj := arityGuard("sum", "1", args); errObj != nil {
		return errObj
	}
	list, errObj := listArg("sum", args)
	if errObj != nil {
		return errObj
	}
	var total float64
	for _, e := range list.Elements {
		n, errObj := toNumber(e, env.Strict())
		if errObj != nil {
			return errObj
		}
		total += n
	}
	return &Number{Value: total}
}

func builtinAvg(args []Object, env *Environment) Object {
	if errObj := arityGuard("avg", "1", args); errObj != nil {
		return errObj
	}
	list, errObj := listArg("avg", args)
	if errObj != nil {
		return errObj
	}
	if len(list.Elements) == 0 {
		return NULL
	}
	var total float64
	for _, e := range list.Elements {
		n, errObj := toNumber(e, env.Strict())
		if errObj != nil {
			return errObj
		}
		total += n
	}
	return &Number{Value: total / float64(len(list.Elements))}
}

func builtinCount(args []Object, env *Environment) Object {
	if errObj := arityGuard("count", "1", args); errObj != nil {
		return errObj
	}
	list, errObj := listArg("count", args)
	if errObj != nil {
		return errObj
	}
	return &Number{Value: float64(len(list.Elements))}
}
