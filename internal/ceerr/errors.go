// Package ceerr defines the error taxonomy shared by the constraint parser,
// compiler and view.
package ceerr

import (
	"errors"
	"fmt"
)

// Kind categorizes constraint errors.
type Kind string

const (
	// KindSyntax indicates a malformed expression or AST.
	KindSyntax Kind = "SYNTAX"

	// KindNameResolution indicates an undefined or ambiguous name.
	KindNameResolution Kind = "NAME_RESOLUTION"

	// KindType indicates a node of the wrong sort, e.g. a filter on a
	// non-sequence or a non-scalar field in a filter.
	KindType Kind = "TYPE"

	// KindRange indicates invalid slice bounds.
	KindRange Kind = "RANGE"

	// KindSemantic covers any other structural violation. A ~= pattern that
	// is a string but not a valid regular expression is semantic; a pattern
	// that is not a string at all is KindType.
	KindSemantic Kind = "SEMANTIC"
)

// Error is a constraint error with a category and the offending name.
type Error struct {
	Kind    Kind
	Message string

	// Name is the FQN, field name or expression fragment involved, if any.
	Name string
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Syntax creates a KindSyntax error.
func Syntax(format string, args ...any) *Error {
	return &Error{Kind: KindSyntax, Message: fmt.Sprintf(format, args...)}
}

// Undefined creates a KindNameResolution error for a name with no match.
func Undefined(what, name string) *Error {
	return &Error{Kind: KindNameResolution, Message: "undefined " + what, Name: name}
}

// Ambiguous creates a KindNameResolution error for a name with several matches.
func Ambiguous(what, name string) *Error {
	return &Error{Kind: KindNameResolution, Message: "multiply defined " + what, Name: name}
}

// Type creates a KindType error.
func Type(name, format string, args ...any) *Error {
	return &Error{Kind: KindType, Message: fmt.Sprintf(format, args...), Name: name}
}

// Range creates a KindRange error.
func Range(format string, args ...any) *Error {
	return &Error{Kind: KindRange, Message: fmt.Sprintf(format, args...)}
}

// Semantic creates a KindSemantic error.
func Semantic(name, format string, args ...any) *Error {
	return &Error{Kind: KindSemantic, Message: fmt.Sprintf(format, args...), Name: name}
}

// KindOf returns the kind of a (possibly wrapped) constraint error, or ""
// if err is not one.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsSyntax reports whether err is a syntax error.
func IsSyntax(err error) bool { return KindOf(err) == KindSyntax }

// IsNameResolution reports whether err is a name resolution error.
func IsNameResolution(err error) bool { return KindOf(err) == KindNameResolution }

// IsType reports whether err is a type error.
func IsType(err error) bool { return KindOf(err) == KindType }

// IsRange reports whether err is a range error.
func IsRange(err error) bool { return KindOf(err) == KindRange }

// IsSemantic reports whether err is a semantic error.
func IsSemantic(err error) bool { return KindOf(err) == KindSemantic }
