package evaluator

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sambeau/cress/pkg/cress/ast"
	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

// ObjectType represents the type of values in the expression language
type ObjectType string

const (
	NULL_OBJ     = "NULL"
	BOOLEAN_OBJ  = "BOOLEAN"
	NUMBER_OBJ   = "NUMBER"
	STRING_OBJ   = "STRING"
	DATETIME_OBJ = "DATETIME"
	DURATION_OBJ = "DURATION"
	REGEX_OBJ    = "REGEX"
	LINK_OBJ     = "LINK"
	LIST_OBJ     = "LIST"
	RECORD_OBJ   = "RECORD"
	FILE_OBJ     = "FILE"
	HTML_OBJ     = "HTML"
	IMAGE_OBJ    = "IMAGE"
	ICON_OBJ     = "ICON"
	ERROR_OBJ    = "ERROR"
)

// Object represents all values in the expression language. The set of
// concrete types is closed: every operator, coercion and comparison
// switches exhaustively over it.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Null represents null/absent values
type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

// Boolean represents boolean values
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

// Number represents numeric values. All numbers are float64.
type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return strconv.FormatFloat(n.Value, 'f', -1, 64) }

// String represents string values
type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }

// Datetime represents an instant with calendar-field accessors
type Datetime struct {
	Time time.Time
}

func (d *Datetime) Type() ObjectType { return DATETIME_OBJ }
func (d *Datetime) Inspect() string  { return d.Time.Format("2006-01-02T15:04:05") }

// instantMillis returns the instant as milliseconds since the epoch
func (d *Datetime) instantMillis() float64 {
	return float64(d.Time.UnixMilli())
}

// DurationPart is one {unit, signed magnitude} component of a
// duration. Units are the canonical short names: y M w d h m s ms.
type DurationPart struct {
	Unit   string
	Amount float64
}

// Duration represents an ordered list of calendar-unit parts. Parts
// are additive; order matters only for display.
type Duration struct {
	Parts []DurationPart
}

func (d *Duration) Type() ObjectType { return DURATION_OBJ }
func (d *Duration) Inspect() string {
	if len(d.Parts) == 0 {
		return "0s"
	}
	var sb strings.Builder
	for _, p := range d.Parts {
		sb.WriteString(strconv.FormatFloat(p.Amount, 'f', -1, 64))
		sb.WriteString(p.Unit)
	}
	return sb.String()
}

// Regex represents a compiled pattern with its original body and flags
type Regex struct {
	Body     string
	Flags    string
	Compiled *regexp.Regexp
}

func (r *Regex) Type() ObjectType { return REGEX_OBJ }
func (r *Regex) Inspect() string  { return "/" + r.Body + "/" + r.Flags }

// Link represents a hyperlink to a document: a target path plus an
// optional display text
type Link struct {
	Target  string
	Display string
}

func (l *Link) Type() ObjectType { return LINK_OBJ }
func (l *Link) Inspect() string {
	if l.Display != "" {
		return "[[" + l.Target + "|" + l.Display + "]]"
	}
	return "[[" + l.Target + "]]"
}

// List represents an ordered sequence of values
type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	elems := make([]string, 0, len(l.Elements))
	for _, e := range l.Elements {
		elems = append(elems, e.Inspect())
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// Record represents an insertion-ordered string-keyed map of values
type Record struct {
	Keys  []string
	Pairs map[string]Object
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{Pairs: map[string]Object{}}
}

// Set stores a key/value pair, preserving first-insertion key order
func (r *Record) Set(key string, val Object) {
	if _, ok := r.Pairs[key]; !ok {
		r.Keys = append(r.Keys, key)
	}
	r.Pairs[key] = val
}

// Get returns the value for key, if present
func (r *Record) Get(key string) (Object, bool) {
	v, ok := r.Pairs[key]
	return v, ok
}

func (r *Record) Type() ObjectType { return RECORD_OBJ }
func (r *Record) Inspect() string {
	pairs := make([]string, 0, len(r.Keys))
	for _, key := range r.Keys {
		pairs = append(pairs, key+": "+r.Pairs[key].Inspect())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// File represents the per-document file record produced at indexing
// time. Read-only to the evaluator.
type File struct {
	Name       string    // base name without extension
	Path       string    // slash-normalized relative path
	Folder     string    // parent folder ("" for vault root)
	Ext        string    // extension without the dot
	Size       int64     // size in bytes
	Ctime      time.Time // creation time (best effort)
	Mtime      time.Time // modification time
	Properties *Record   // raw front-matter properties
	Tags       []string  // tags, without '#'
	Links      []string  // outbound link targets
	Embeds     []string  // embed targets
	Backlinks  []string  // paths of documents linking here
	Text       string    // raw body text
}

func (f *File) Type() ObjectType { return FILE_OBJ }
func (f *File) Inspect() string  { return f.Path }

// Html is an opaque render hint carrying a fragment of markup
type Html struct {
	Value string
}

func (h *Html) Type() ObjectType { return HTML_OBJ }
func (h *Html) Inspect() string  { return h.Value }

// Image is an opaque render hint carrying an image reference
type Image struct {
	Value string
}

func (i *Image) Type() ObjectType { return IMAGE_OBJ }
func (i *Image) Inspect() string  { return i.Value }

// Icon is an opaque render hint carrying an icon name
type Icon struct {
	Value string
}

func (i *Icon) Type() ObjectType { return ICON_OBJ }
func (i *Icon) Inspect() string  { return i.Value }

// Error represents evaluation errors. Errors flow through evaluation
// as ordinary objects and convert to *errors.Error at the boundary.
type Error struct {
	Class   cerrors.ErrorClass
	Message string
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return "ERROR: " + e.Message }

// ToError converts this evaluation error to a structured error.
func (e *Error) ToError() *cerrors.Error {
	class := e.Class
	if class == "" {
		class = cerrors.ClassType
	}
	return cerrors.New(class, "%s", e.Message)
}

// Shared singletons. Null and the booleans are immutable, so every
// evaluation can hand out the same instances.
var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func nativeBoolToBoolean(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

func newError(class cerrors.ErrorClass, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...)}
}

func isError(obj Object) bool {
	if obj == nil {
		return true
	}
	return obj.Type() == ERROR_OBJ
}

// Environment is the per-row evaluation scope. Enclosed environments
// are created for filter/map/reduce bodies; the root environment
// carries the execution-wide settings (strict mode, clock, file index).
type Environment struct {
	store map[string]Object
	outer *Environment

	strict bool
	now    func() time.Time
	files  map[string]*File // normalized path -> file record
}

// NewEnvironment creates a new top-level environment
func NewEnvironment() *Environment {
	return &Environment{store: map[string]Object{}, now: time.Now}
}

// NewEnclosedEnvironment creates an environment nested inside outer
func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{store: map[string]Object{}, outer: outer}
}

func (e *Environment) root() *Environment {
	env := e
	for env.outer != nil {
		env = env.outer
	}
	return env
}

// Get looks up a name, walking outward through enclosing scopes
func (e *Environment) Get(name string) (Object, bool) {
	obj, ok := e.store[name]
	if !ok && e.outer != nil {
		return e.outer.Get(name)
	}
	return obj, ok
}

// Set binds a name in this scope
func (e *Environment) Set(name string, val Object) Object {
	e.store[name] = val
	return val
}

// SetStrict sets strict mode for this environment tree
func (e *Environment) SetStrict(strict bool) { e.root().strict = strict }

// Strict reports whether unresolved names and bad coercions are fatal
func (e *Environment) Strict() bool { return e.root().strict }

// SetNow pins the clock used by now() and today(). Executions pin it
// once so every row sees the same instant.
func (e *Environment) SetNow(now func() time.Time) { e.root().now = now }

// Now returns the pinned clock, falling back to time.Now
func (e *Environment) Now() time.Time {
	root := e.root()
	if root.now == nil {
		return time.Now()
	}
	return root.now()
}

// SetFileIndex installs the snapshot's file records, keyed by
// normalized path, for link resolution and the file() builtin.
func (e *Environment) SetFileIndex(files map[string]*File) { e.root().files = files }

// LookupFile resolves a path-like string against the file index
func (e *Environment) LookupFile(path string) (*File, bool) {
	root := e.root()
	if root.files == nil {
		return nil, false
	}
	f, ok := root.files[NormalizePath(path)]
	return f, ok
}

// Eval evaluates an expression AST against an environment. Errors are
// returned as *Error objects, never panics.
func Eval(node ast.Node, env *Environment) Object {
	switch node := node.(type) {
	case *ast.NumberLiteral:
		return &Number{Value: node.Value}
	case *ast.StringLiteral:
		return &String{Value: node.Value}
	case *ast.BooleanLiteral:
		return nativeBoolToBoolean(node.Value)
	case *ast.NullLiteral:
		return NULL
	case *ast.RegexLiteral:
		return compileRegex(node.Body, node.Flags)
	case *ast.Identifier:
		return evalIdentifier(node, env)
	case *ast.PrefixExpression:
		return evalPrefixExpression(node, env)
	case *ast.InfixExpression:
		return evalInfixExpression(node, env)
	case *ast.DotExpression:
		return evalDotExpression(node, env)
	case *ast.IndexExpression:
		return evalIndexExpression(node, env)
	case *ast.CallExpression:
		return evalCallExpression(node, env)
	case *ast.ListLiteral:
		return evalListLiteral(node, env)
	case *ast.ObjectLiteral:
		return evalObjectLiteral(node, env)
	}
	return newError(cerrors.ClassType, "unknown expression node %T", node)
}

// EvalExpression evaluates a pre-parsed AST and converts any
// evaluation error into a structured error. This is the boundary the
// query executor uses.
func EvalExpression(expr ast.Expression, env *Environment) (Object, *cerrors.Error) {
	result := Eval(expr, env)
	if errObj, ok := result.(*Error); ok {
		return nil, errObj.ToError()
	}
	return result, nil
}

// evalIdentifier resolves a bare name: evaluation-context fields
// first, then front-matter keys of the row's note.
func evalIdentifier(node *ast.Identifier, env *Environment) Object {
	if val, ok := env.Get(node.Value); ok {
		return val
	}

	if note, ok := env.Get("note"); ok {
		if rec, ok := note.(*Record); ok {
			if val, ok := rec.Get(node.Value); ok {
				return val
			}
		}
	}

	if env.Strict() {
		return newError(cerrors.ClassUndefined, "unknown identifier %q", node.Value)
	}
	return NULL
}

func evalPrefixExpression(node *ast.PrefixExpression, env *Environment) Object {
	right := Eval(node.Right, env)
	if isError(right) {
		return right
	}

	switch node.Operator {
	case "!", "not":
		return nativeBoolToBoolean(!isTruthy(right))
	case "-":
		n, errObj := toNumber(right, env.Strict())
		if errObj != nil {
			return errObj
		}
		return &Number{Value: -n}
	}
	return newError(cerrors.ClassOperator, "unknown prefix operator %q", node.Operator)
}

func evalInfixExpression(node *ast.InfixExpression, env *Environment) Object {
	// and/or short-circuit and must not evaluate the untaken side; the
	// result is the actual operand, not a forced boolean.
	switch node.Operator {
	case "and", "&&":
		left := Eval(node.Left, env)
		if isError(left) {
			return left
		}
		if !isTruthy(left) {
			return left
		}
		return Eval(node.Right, env)
	case "or", "||":
		left := Eval(node.Left, env)
		if isError(left) {
			return left
		}
		if isTruthy(left) {
			return left
		}
		return Eval(node.Right, env)
	}

	left := Eval(node.Left, env)
	if isError(left) {
		return left
	}
	right := Eval(node.Right, env)
	if isError(right) {
		return right
	}

	return evalBinaryOp(node.Operator, left, right, env)
}

// evalDotExpression handles member access: calendar fields on
// datetimes, keys on records and file records, link fields.
func evalDotExpression(node *ast.DotExpression, env *Environment) Object {
	left := Eval(node.Left, env)
	if isError(left) {
		return left
	}

	switch obj := left.(type) {
	case *Datetime:
		if val, ok := datetimeField(obj, node.Property); ok {
			return val
		}
	case *Record:
		if val, ok := obj.Get(node.Property); ok {
			return val
		}
	case *File:
		if val, ok := fileField(obj, node.Property); ok {
			return val
		}
	case *Link:
		switch node.Property {
		case "target", "path":
			return &String{Value: obj.Target}
		case "display":
			if obj.Display == "" {
				return NULL
			}
			return &String{Value: obj.Display}
		}
	}

	if env.Strict() {
		return newError(cerrors.ClassUndefined, "unknown property %q on %s",
			node.Property, strings.ToLower(string(left.Type())))
	}
	return NULL
}

// datetimeField exposes the calendar-field accessors of a timestamp.
// Month and day are 1-based.
func datetimeField(d *Datetime, field string) (Object, bool) {
	t := d.Time
	switch field {
	case "year":
		return &Number{Value: float64(t.Year())}, true
	case "month":
		return &Number{Value: float64(t.Month())}, true
	case "day":
		return &Number{Value: float64(t.Day())}, true
	case "hour":
		return &Number{Value: float64(t.Hour())}, true
	case "minute":
		return &Number{Value: float64(t.Minute())}, true
	case "second":
		return &Number{Value: float64(t.Second())}, true
	case "millisecond":
		return &Number{Value: float64(t.Nanosecond() / 1e6)}, true
	}
	return nil, false
}

// fileField exposes the file-record fields
func fileField(f *File, field string) (Object, bool) {
	switch field {
	case "name":
		return &String{Value: f.Name}, true
	case "path":
		return &String{Value: f.Path}, true
	case "folder":
		return &String{Value: f.Folder}, true
	case "ext":
		return &String{Value: f.Ext}, true
	case "size":
		return &Number{Value: float64(f.Size)}, true
	case "ctime":
		return &Datetime{Time: f.Ctime}, true
	case "mtime":
		return &Datetime{Time: f.Mtime}, true
	case "properties":
		if f.Properties == nil {
			return NewRecord(), true
		}
		return f.Properties, true
	case "tags":
		return stringList(f.Tags), true
	case "links":
		return stringList(f.Links), true
	case "embeds":
		return stringList(f.Embeds), true
	case "backlinks":
		return stringList(f.Backlinks), true
	case "text":
		return &String{Value: f.Text}, true
	}
	return nil, false
}

func stringList(values []string) *List {
	elems := make([]Object, 0, len(values))
	for _, v := range values {
		elems = append(elems, &String{Value: v})
	}
	return &List{Elements: elems}
}

func evalIndexExpression(node *ast.IndexExpression, env *Environment) Object {
	left := Eval(node.Left, env)
	if isError(left) {
		return left
	}
	index := Eval(node.Index, env)
	if isError(index) {
		return index
	}

	switch obj := left.(type) {
	case *List:
		idx, ok := index.(*Number)
		if !ok {
			return newError(cerrors.ClassType, "list index must be a number, got %s", index.Type())
		}
		i := int(idx.Value)
		if i < 0 || i >= len(obj.Elements) {
			if env.Strict() {
				return newError(cerrors.ClassIndex, "list index %d out of range (length %d)", i, len(obj.Elements))
			}
			return NULL
		}
		return obj.Elements[i]
	case *Record:
		key := displayString(index)
		if val, ok := obj.Get(key); ok {
			return val
		}
		if env.Strict() {
			return newError(cerrors.ClassUndefined, "unknown key %q", key)
		}
		return NULL
	}

	if env.Strict() {
		return newError(cerrors.ClassType, "cannot index %s", left.Type())
	}
	return NULL
}

func evalListLiteral(node *ast.ListLiteral, env *Environment) Object {
	elems := make([]Object, 0, len(node.Elements))
	for _, e := range node.Elements {
		val := Eval(e, env)
		if isError(val) {
			return val
		}
		elems = append(elems, val)
	}
	return &List{Elements: elems}
}

func evalObjectLiteral(node *ast.ObjectLiteral, env *Environment) Object {
	rec := NewRecord()
	for _, pair := range node.Pairs {
		val := Eval(pair.Value, env)
		if isError(val) {
			return val
		}
		rec.Set(pair.Key, val)
	}
	return rec
}

// evalCallExpression dispatches calls: identifier callees hit the
// global function registry, dot callees the per-type method
// registries. if() and the list filter/map/reduce methods are lazy and
// receive ASTs, not values.
func evalCallExpression(node *ast.CallExpression, env *Environment) Object {
	switch fn := node.Function.(type) {
	case *ast.Identifier:
		if fn.Value == "if" {
			return evalIfCall(node.Arguments, env)
		}
		builtin, ok := builtins[fn.Value]
		if !ok {
			if env.Strict() {
				return newError(cerrors.ClassUndefined, "unknown function %q", fn.Value)
			}
			return NULL
		}
		args, errObj := evalArguments(node.Arguments, env)
		if errObj != nil {
			return errObj
		}
		return builtin.Fn(args, env)

	case *ast.DotExpression:
		receiver := Eval(fn.Left, env)
		if isError(receiver) {
			return receiver
		}
		return evalMethodCall(receiver, fn.Property, node.Arguments, env)
	}

	return newError(cerrors.ClassType, "%s is not callable", node.Function.String())
}

// evalIfCall implements the 2/3-argument conditional. Only the taken
// branch is evaluated, so untaken branches with unknown references
// never raise.
func evalIfCall(args []ast.Expression, env *Environment) Object {
	if len(args) < 2 || len(args) > 3 {
		return newError(cerrors.ClassArity, "if() takes 2 or 3 arguments, got %d", len(args))
	}
	cond := Eval(args[0], env)
	if isError(cond) {
		return cond
	}
	if isTruthy(cond) {
		return Eval(args[1], env)
	}
	if len(args) == 3 {
		return Eval(args[2], env)
	}
	return NULL
}

func evalArguments(exprs []ast.Expression, env *Environment) ([]Object, *Error) {
	args := make([]Object, 0, len(exprs))
	for _, e := range exprs {
		val := Eval(e, env)
		if isError(val) {
			if errObj, ok := val.(*Error); ok {
				return nil, errObj
			}
			return nil, newError(cerrors.ClassType, "bad argument")
		}
		args = append(args, val)
	}
	return args, nil
}

// isTruthy implements standard truthy coercion: null, false, 0 and ""
// are falsy, everything else is truthy.
func isTruthy(obj Object) bool {
	switch obj := obj.(type) {
	case *Null:
		return false
	case *Boolean:
		return obj.Value
	case *Number:
		return obj.Value != 0
	case *String:
		return obj.Value != ""
	}
	return true
}

// displayString is the display form of a value, used by string
// concatenation, comparison fallback and group-key stringification.
// Null displays as the empty string.
func displayString(obj Object) string {
	if _, ok := obj.(*Null); ok {
		return ""
	}
	return obj.Inspect()
}

// toNumber applies the numeric-coercion rule: numbers as-is, booleans
// as 0/1, timestamps as their instant, durations as total
// milliseconds, null as 0, strings parsed as floats. Anything else is
// a strict-mode error and 0 otherwise.
func toNumber(obj Object, strict bool) (float64, *Error) {
	switch obj := obj.(type) {
	case *Number:
		return obj.Value, nil
	case *Boolean:
		if obj.Value {
			return 1, nil
		}
		return 0, nil
	case *Datetime:
		return obj.instantMillis(), nil
	case *Duration:
		return obj.TotalMillis(), nil
	case *Null:
		return 0, nil
	case *String:
		if n, err := strconv.ParseFloat(strings.TrimSpace(obj.Value), 64); err == nil {
			return n, nil
		}
		if strict {
			return 0, newError(cerrors.ClassType, "cannot convert %q to a number", obj.Value)
		}
		return 0, nil
	}
	if strict {
		return 0, newError(cerrors.ClassType, "cannot convert %s to a number", obj.Type())
	}
	return 0, nil
}

// NormalizePath normalizes a path-like value for comparisons: forward
// slashes, no leading "./", a trailing ".md" ignored. Case-sensitive.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimSuffix(path, ".md")
	return path
}

// pathOf returns the normalized path of a path-like value. Links and
// file records carry paths; plain strings count as paths only when
// compared against one of those.
func pathOf(obj Object) (string, bool) {
	switch obj := obj.(type) {
	case *Link:
		return NormalizePath(obj.Target), true
	case *File:
		return NormalizePath(obj.Path), true
	case *String:
		return NormalizePath(obj.Value), true
	}
	return "", false
}

func compileRegex(body, flags string) Object {
	pattern := body
	var prefix string
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			prefix += string(f)
		default:
			return newError(cerrors.ClassFormat, "unknown regex flag %q", string(f))
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return newError(cerrors.ClassFormat, "invalid regex /%s/%s: %s", body, flags, err)
	}
	return &Regex{Body: body, Flags: flags, Compiled: compiled}
}

// canonicalKey returns a deterministic, structural serialization of a
// value. Record keys are sorted so record equality is
// order-independent; list order is preserved.
func canonicalKey(obj Object) string {
	switch obj := obj.(type) {
	case *Null:
		return "∅"
	case *Boolean:
		return "b:" + strconv.FormatBool(obj.Value)
	case *Number:
		return "n:" + strconv.FormatFloat(obj.Value, 'g', -1, 64)
	case *String:
		return "s:" + obj.Value
	case *Datetime:
		return "t:" + strconv.FormatInt(obj.Time.UnixMilli(), 10)
	case *Duration:
		return "d:" + strconv.FormatFloat(obj.TotalMillis(), 'g', -1, 64)
	case *Regex:
		return "re:/" + obj.Body + "/" + obj.Flags
	case *Link:
		return "p:" + NormalizePath(obj.Target)
	case *File:
		return "p:" + NormalizePath(obj.Path)
	case *List:
		parts := make([]string, 0, len(obj.Elements))
		for _, e := range obj.Elements {
			parts = append(parts, canonicalKey(e))
		}
		return "l:[" + strings.Join(parts, ",") + "]"
	case *Record:
		keys := append([]string(nil), obj.Keys...)
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+canonicalKey(obj.Pairs[k]))
		}
		return "r:{" + strings.Join(parts, ",") + "}"
	case *Html:
		return "h:" + obj.Value
	case *Image:
		return "img:" + obj.Value
	case *Icon:
		return "ico:" + obj.Value
	}
	return "?:" + obj.Inspect()
}
