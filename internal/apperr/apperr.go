// Package apperr is the error taxonomy shared by the session and cart cores.
//
// Every failure the cores report is an *Error carrying a Kind discriminant and a
// stable Code. Callers decide how to surface a failure by looking at the Kind,
// never by inspecting concrete types.
package apperr

import "errors"

type Kind string

const (
	KindValidation      Kind = "validation"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a typed error. The result still matches the
// sentinel it was built from via errors.Is.
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so freshly built errors compare
// equal to the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// KindOf reports the discriminant of err. Untyped errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As extracts the typed error, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
