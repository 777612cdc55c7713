// Package domainerrors defines the error taxonomy shared by all bridge
// components. Services return these so transports can map them to status
// codes without inspecting internals.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers. Validation and dependency errors are
// retryable by the caller; authorization and consent errors are not.
type Code string

const (
	CodeValidation     Code = "validation_error"
	CodeAuthentication Code = "authentication_error"
	CodeAuthorization  Code = "authorization_error"
	CodeConsent        Code = "consent_error"
	CodeTransform      Code = "transform_error"
	CodeDependency     Code = "dependency_error"
	CodeNotFound       Code = "not_found"
	CodeBadRequest     Code = "bad_request"
	CodeInternal       Code = "internal_error"
)

// Error carries a taxonomy code, a caller-safe message, and an optional
// wrapped cause. The cause never reaches HTTP responses.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a domain error with the given code and caller-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause to a domain error. The message stays caller-safe;
// the cause is for logs only.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the taxonomy code from err, defaulting to CodeInternal for
// unclassified errors so nothing leaks as-is.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the caller-safe message, or a generic one for
// unclassified errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
