// Package evaluator: method registry infrastructure for declarative
// per-type method definitions.
package evaluator

import (
	"sort"
	"strconv"
	"strings"

	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

// MethodFunc is the signature for all method implementations. The
// receiver is passed as an Object to allow uniform handling across
// types.
type MethodFunc func(receiver Object, args []Object, env *Environment) Object

// MethodEntry defines a single method with its implementation and
// metadata. This is the single source of truth for dispatch.
type MethodEntry struct {
	Fn          MethodFunc
	Arity       string // "0", "1", "0-1", "1+", etc.
	Description string
}

// MethodRegistry maps method names to their entries for a type.
type MethodRegistry map[string]MethodEntry

// Names returns a sorted list of method names in this registry.
func (r MethodRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the method entry for the given name, if it exists.
func (r MethodRegistry) Get(name string) (MethodEntry, bool) {
	entry, ok := r[name]
	return entry, ok
}

// checkArity validates that the argument count matches the arity
// specification. Specs: "0", "1", "0-1", "1-2", "1+", "0+", etc.
func checkArity(spec string, got int) bool {
	spec = strings.TrimSpace(spec)

	if exact, err := strconv.Atoi(spec); err == nil {
		return got == exact
	}

	if strings.Contains(spec, "-") {
		parts := strings.Split(spec, "-")
		if len(parts) == 2 {
			minVal, errMin := strconv.Atoi(parts[0])
			maxVal, errMax := strconv.Atoi(parts[1])
			if errMin == nil && errMax == nil {
				return got >= minVal && got <= maxVal
			}
		}
	}

	if suffix, found := strings.CutSuffix(spec, "+"); found {
		minVal, err := strconv.Atoi(suffix)
		if err == nil {
			return got >= minVal
		}
	}

	// Unknown spec - be permissive
	return true
}

func newArityError(method, spec string, got int) *Error {
	return newError(cerrors.ClassArity, "%s() takes %s argument(s), got %d", method, spec, got)
}

// dispatchFromRegistry handles method dispatch using a registry.
// Returns nil if the method is not found (caller handles the unknown
// method error).
func dispatchFromRegistry(registry MethodRegistry, receiver Object, method string, args []Object, env *Environment) Object {
	entry, ok := registry.Get(method)
	if !ok {
		return nil
	}

	if !checkArity(entry.Arity, len(args)) {
		return newArityError(method, entry.Arity, len(args))
	}

	return entry.Fn(receiver, args, env)
}

// registryForType returns the method registry for a value type, or nil
func registryForType(t ObjectType) MethodRegistry {
	switch t {
	case STRING_OBJ:
		return StringMethodRegistry
	case NUMBER_OBJ:
		return NumberMethodRegistry
	case DATETIME_OBJ:
		return DatetimeMethodRegistry
	case LIST_OBJ:
		return ListMethodRegistry
	case LINK_OBJ:
		return LinkMethodRegistry
	case FILE_OBJ:
		return FileMethodRegistry
	case RECORD_OBJ:
		return RecordMethodRegistry
	case REGEX_OBJ:
		return RegexMethodRegistry
	}
	return nil
}
