// Package service implements the application's business rules on top of the
// storage boundary: family membership policy, the invitation lifecycle and
// recurring task generation.
package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error so the transport layer can map it to a
// status code without inspecting messages.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindPermissionDenied   Kind = "permission_denied"
	KindExpired            Kind = "expired"
	KindIntegrityViolation Kind = "integrity_violation"
)

// Error is the error type returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// E builds a service error. The optional last argument is a wrapped cause.
func E(kind Kind, msg string, cause ...error) *Error {
	e := &Error{Kind: kind, Message: msg}
	if len(cause) > 0 {
		e.cause = cause[0]
	}
	return e
}

// KindOf extracts the Kind from err, or KindIntegrityViolation when err is
// not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindIntegrityViolation
}
