// Package shifterr defines the error kinds surfaced by shift lifecycle operations.
package shifterr

import (
	"errors"
	"fmt"
)

// Kind classifies a lifecycle error
type Kind string

const (
	Validation         Kind = "VALIDATION_ERROR"
	NotFound           Kind = "NOT_FOUND"
	InvalidState       Kind = "INVALID_STATE"
	InvariantViolation Kind = "INVARIANT_VIOLATION"
	StorageFailure     Kind = "STORAGE_FAILURE"
)

// Error carries a kind, the operation that failed and an optional cause
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, shifterr.ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrValidation         = &Error{Kind: Validation}
	ErrNotFound           = &Error{Kind: NotFound}
	ErrInvalidState       = &Error{Kind: InvalidState}
	ErrInvariantViolation = &Error{Kind: InvariantViolation}
	ErrStorageFailure     = &Error{Kind: StorageFailure}
)

// New builds an error of the given kind
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around cause
func Wrap(kind Kind, op string, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserFacing reports whether err is an expected condition the user can act on
func UserFacing(err error) bool {
	switch KindOf(err) {
	case Validation, NotFound, InvalidState:
		return true
	}
	return false
}
