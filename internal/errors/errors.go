// Package errors provides error handling for robin.
//
// It re-exports github.com/cockroachdb/errors and declares the sentinel
// errors of the program database taxonomy. Recoverable conditions are
// returned wrapped around a sentinel; wrong-variant API misuse panics with
// an assertion failure wrapping ErrInappropriateKind.
//
// Usage:
//
//	if _, err := routine.ReturnType(); errors.IsMissingInformation(err) {
//	    continue // skip the element
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
	GetAllHints = crdb.GetAllHints
)

// Error inspection
var (
	Is    = crdb.Is
	As    = crdb.As
	IsAny = crdb.IsAny
)

// Assertions
var (
	AssertionFailedf     = crdb.AssertionFailedf
	WithAssertionFailure = crdb.WithAssertionFailure
	HasAssertionFailure  = crdb.HasAssertionFailure
)

// Sentinel errors of the program database.
var (
	// ErrMissingInformation marks an attribute that was never set. Callers
	// skip the element that carries it.
	ErrMissingInformation = New("missing information")

	// ErrInappropriateKind marks an operation applied to the wrong variant.
	ErrInappropriateKind = New("inappropriate kind")

	// ErrElementNotFound marks a failed name lookup.
	ErrElementNotFound = New("element not found")

	// ErrMalformedInput marks a syntax error in a type expression or a
	// declaration document.
	ErrMalformedInput = New("malformed input")

	// ErrInvalidInstantiation marks a template substitution that could not
	// complete.
	ErrInvalidInstantiation = New("invalid instantiation")
)

// IsMissingInformation reports whether err is or wraps ErrMissingInformation.
func IsMissingInformation(err error) bool {
	return err != nil && Is(err, ErrMissingInformation)
}

// IsElementNotFound reports whether err is or wraps ErrElementNotFound.
func IsElementNotFound(err error) bool {
	return err != nil && Is(err, ErrElementNotFound)
}

// IsMalformedInput reports whether err is or wraps ErrMalformedInput.
func IsMalformedInput(err error) bool {
	return err != nil && Is(err, ErrMalformedInput)
}

// IsInvalidInstantiation reports whether err is or wraps ErrInvalidInstantiation.
func IsInvalidInstantiation(err error) bool {
	return err != nil && Is(err, ErrInvalidInstantiation)
}

// MissingInformation returns an ErrMissingInformation naming the attribute.
func MissingInformation(entity, attribute string) error {
	return Wrapf(ErrMissingInformation, "%s of %s", attribute, entity)
}

// NotFound returns an ErrElementNotFound naming the element.
func NotFound(name string) error {
	return Wrapf(ErrElementNotFound, "%s", name)
}

// InappropriateKind builds the error used when an operation receives the
// wrong variant. The caller panics with it.
func InappropriateKind(format string, args ...any) error {
	return WithAssertionFailure(Wrapf(ErrInappropriateKind, format, args...))
}
