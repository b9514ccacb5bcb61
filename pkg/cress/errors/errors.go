// Package errors provides structured error types for the Cress query
// engine.
//
// This package defines Error, a unified error type that can represent
// parse, validation, compile and evaluation errors with enough metadata
// for display and programmatic handling.
package errors

import (
	"fmt"
	"strings"
)

// ErrorClass categorizes errors for filtering and display.
type ErrorClass string

const (
	ClassParse      ErrorClass = "parse"      // Tokenizer/parser errors
	ClassValidation ErrorClass = "validation" // Malformed query specification
	ClassCycle      ErrorClass = "cycle"      // Formula dependency cycle
	ClassView       ErrorClass = "view"       // Unknown view name
	ClassType       ErrorClass = "type"       // Type mismatches, bad coercions
	ClassArity      ErrorClass = "arity"      // Wrong argument count
	ClassUndefined  ErrorClass = "undefined"  // Unknown identifier/function/method
	ClassOperator   ErrorClass = "operator"   // Invalid operations
	ClassIndex      ErrorClass = "index"      // Out of bounds
	ClassFormat     ErrorClass = "format"     // Invalid format/parse of a value
	ClassIO         ErrorClass = "io"         // File operations (vault, cache)
)

// Error represents any error from parsing, compiling or evaluating.
type Error struct {
	Class   ErrorClass `json:"class"`           // Error category
	Message string     `json:"message"`         // Human-readable message
	Hints   []string   `json:"hints,omitempty"` // Suggestions for fixing
	Offset  int        `json:"offset"`          // 0-based byte offset (-1 if unknown)
	Line    int        `json:"line"`            // 1-based line (0 if unknown)
	Column  int        `json:"column"`          // 1-based column (0 if unknown)
	File    string     `json:"file,omitempty"`  // File path (if known)
}

// New creates an error with a class and a formatted message.
func New(class ErrorClass, format string, args ...any) *Error {
	return &Error{Class: class, Message: fmt.Sprintf(format, args...), Offset: -1}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *Error) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d, column %d: ", e.Line, e.Column)
	} else if e.Offset >= 0 {
		fmt.Fprintf(&sb, "offset %d: ", e.Offset)
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// WithHint returns a copy of the error with a hint appended.
func (e *Error) WithHint(hint string) *Error {
	copy := *e
	copy.Hints = append(append([]string(nil), e.Hints...), hint)
	return &copy
}

// WithFile returns a copy of the error with the file path set.
func (e *Error) WithFile(file string) *Error {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with offset, line and column set.
func (e *Error) WithPosition(offset, line, column int) *Error {
	copy := *e
	copy.Offset = offset
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsParseError returns true if this is a tokenizer/parser error.
func (e *Error) IsParseError() bool {
	return e.Class == ClassParse
}

// IsFatal reports whether the error aborts a whole run rather than a
// single row. Parse, validation, cycle and view errors are never
// recovered per row.
func (e *Error) IsFatal() bool {
	switch e.Class {
	case ClassParse, ClassValidation, ClassCycle, ClassView:
		return true
	}
	return false
}
