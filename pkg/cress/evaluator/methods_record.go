// methods_record.go - record, link, file-record and pattern methods
// via the declarative registry.

package evaluator

import (
	"strings"

	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

// RecordMethodRegistry defines the methods available on records.
var RecordMethodRegistry MethodRegistry

// LinkMethodRegistry defines the methods available on links.
var LinkMethodRegistry MethodRegistry

// FileMethodRegistry defines the methods available on file records.
var FileMethodRegistry MethodRegistry

// RegexMethodRegistry defines the methods available on patterns.
var RegexMethodRegistry MethodRegistry

func init() {
	RecordMethodRegistry = MethodRegistry{
		"keys": {
			Fn:          recordKeys,
			Arity:       "0",
			Description: "Keys in insertion order",
		},
		"values": {
			Fn:          recordValues,
			Arity:       "0",
			Description: "Values in insertion order",
		},
		"isEmpty": {
			Fn:          recordIsEmpty,
			Arity:       "0",
			Description: "True when the record has no keys",
		},
	}

	LinkMethodRegistry = MethodRegistry{
		"asFile": {
			Fn:          linkAsFile,
			Arity:       "0",
			Description: "Resolve the link to its file record",
		},
		"linksTo": {
			Fn:          linkLinksTo,
			Arity:       "1",
			Description: "Whether the linked document links to another",
		},
	}

	FileMethodRegistry = MethodRegistry{
		"asLink": {
			Fn:          fileAsLink,
			Arity:       "0-1",
			Description: "Build a link to this file",
		},
		"hasLink": {
			Fn:          fileHasLink,
			Arity:       "1",
			Description: "Whether this file links to a target",
		},
		"hasProperty": {
			Fn:          fileHasProperty,
			Arity:       "1",
			Description: "Whether the front matter declares a property",
		},
		"hasTag": {
			Fn:          fileHasTag,
			Arity:       "1",
			Description: "Whether the file carries a tag (hierarchical prefixes match)",
		},
		"inFolder": {
			Fn:          fileInFolder,
			Arity:       "1",
			Description: "Whether the file lives in a folder or below it",
		},
	}

	RegexMethodRegistry = MethodRegistry{
		"matches": {
			Fn:          regexMatches,
			Arity:       "1",
			Description: "Whether a value matches the pattern",
		},
	}
}

func recordKeys(receiver Object, args []Object, env *Environment) Object {
	rec := receiver.(*Record)
	return stringList(rec.Keys)
}

func recordValues(receiver Object, args []Object, env *Environment) Object {
	rec := receiver.(*Record)
	elems := make([]Object, 0, len(rec.Keys))
	for _, k := range rec.Keys {
		elems = append(elems, rec.Pairs[k])
	}
	return &List{Elements: elems}
}

func recordIsEmpty(receiver Object, args []Object, env *Environment) Object {
	return nativeBoolToBoolean(len(receiver.(*Record).Keys) == 0)
}

func linkAsFile(receiver Object, args []Object, env *Environment) Object {
	link := receiver.(*Link)
	if f, ok := env.LookupFile(link.Target); ok {
		return f
	}
	if env.Strict() {
		return newError(cerrors.ClassUndefined, "no file found for %s", link.Inspect())
	}
	return NULL
}

func linkLinksTo(receiver Object, args []Object, env *Environment) Object {
	link := receiver.(*Link)
	f, ok := env.LookupFile(link.Target)
	if !ok {
		return FALSE
	}
	return fileHasLink(f, args, env)
}

func fileAsLink(receiver Object, args []Object, env *Environment) Object {
	f := receiver.(*File)
	display := ""
	if len(args) == 1 {
		display = displayString(args[0])
	}
	return &Link{Target: f.Path, Display: display}
}

func fileHasLink(receiver Object, args []Object, env *Environment) Object {
	f := receiver.(*File)
	target, ok := pathOf(args[0])
	if !ok {
		return newError(cerrors.ClassType, "hasLink() takes a path, link or file, got %s", args[0].Type())
	}
	for _, l := range f.Links {
		if NormalizePath(l) == target {
			return TRUE
		}
	}
	return FALSE
}

func fileHasProperty(receiver Object, args []Object, env *Environment) Object {
	f := receiver.(*File)
	name := displayString(args[0])
	if f.Properties == nil {
		return FALSE
	}
	_, ok := f.Properties.Get(name)
	return nativeBoolToBoolean(ok)
}

// fileHasTag matches hierarchically: asking for "project" matches both
// "project" and "project/home".
func fileHasTag(receiver Object, args []Object, env *Environment) Object {
	f := receiver.(*File)
	want := strings.TrimPrefix(displayString(args[0]), "#")
	for _, tag := range f.Tags {
		if tag == want || strings.HasPrefix(tag, want+"/") {
			return TRUE
		}
	}
	return FALSE
}

func fileInFolder(receiver Object, args []Object, env *Environment) Object {
	f := receiver.(*File)
	want := strings.Trim(strings.ReplaceAll(displayString(args[0]), "\\", "/"), "/")
	if want == "" {
		return nativeBoolToBoolean(f.Folder == "")
	}
	return nativeBoolToBoolean(f.Folder == want || strings.HasPrefix(f.Folder, want+"/"))
}

func regexMatches(receiver Object, args []Object, env *Environment) Object {
	re := receiver.(*Regex)
	return nativeBoolToBoolean(re.Compiled.MatchString(displayString(args[0])))
}
