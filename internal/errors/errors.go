// Package errors provides coded domain errors for the library store and backup engine.
//
// Usage:
//
//	// In services - return typed errors
//	if list.IsSystem() {
//	    return errors.Protectedf("system list %s cannot be deleted", list.ID)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    ...
//	}
//
//	// Or switch on the code
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeUnsupportedVersion:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION"
	CodeProtected          Code = "PROTECTED"
	CodeMalformedDocument  Code = "MALFORMED_DOCUMENT"
	CodeUnsupportedVersion Code = "UNSUPPORTED_VERSION"
	CodeInvalidDocument    Code = "INVALID_DOCUMENT"
	CodeStorage            Code = "STORAGE"
)

// IsCallerFault reports whether the code describes bad input rather than a storage failure.
func (c Code) IsCallerFault() bool {
	switch c {
	case CodeValidation, CodeProtected, CodeMalformedDocument, CodeUnsupportedVersion, CodeInvalidDocument:
		return true
	default:
		return false
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrProtected          = &Error{Code: CodeProtected, Message: "protected resource"}
	ErrMalformedDocument  = &Error{Code: CodeMalformedDocument, Message: "malformed document"}
	ErrUnsupportedVersion = &Error{Code: CodeUnsupportedVersion, Message: "unsupported version"}
	ErrInvalidDocument    = &Error{Code: CodeInvalidDocument, Message: "invalid document"}
	ErrStorage            = &Error{Code: CodeStorage, Message: "storage error"}
)

// IsValidation reports whether err is any caller-fault error: validation,
// protected resource, or a rejected backup document.
func IsValidation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.IsCallerFault()
	}
	return false
}

// CodeOf returns the code of the outermost domain error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Protected creates a protected resource error.
func Protected(msg string) *Error {
	return &Error{Code: CodeProtected, Message: msg}
}

// Protectedf creates a protected resource error with formatted message.
func Protectedf(format string, args ...any) *Error {
	return &Error{Code: CodeProtected, Message: fmt.Sprintf(format, args...)}
}

// MalformedDocument creates an error for input that is not valid JSON.
func MalformedDocument(err error) *Error {
	return &Error{Code: CodeMalformedDocument, Message: "backup document is not valid JSON", cause: err}
}

// UnsupportedVersionf creates an unsupported version error with formatted message.
func UnsupportedVersionf(format string, args ...any) *Error {
	return &Error{Code: CodeUnsupportedVersion, Message: fmt.Sprintf(format, args...)}
}

// InvalidDocumentf creates an invalid document shape error with formatted message.
func InvalidDocumentf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidDocument, Message: fmt.Sprintf(format, args...)}
}

// Storage wraps a failure from the underlying row store.
func Storage(err error, msg string) *Error {
	return &Error{Code: CodeStorage, Message: msg, cause: err}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
