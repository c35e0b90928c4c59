package store

import (
	"errors"
	"fmt"
)

// Kind classifies store failures callers may want to branch on.
type Kind int

// Error kinds.
const (
	KindNotFound Kind = iota + 1
	KindAlreadyExists
)

// Error is a classified store failure.
type Error struct {
	Err     error
	Message string
	Kind    Kind
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithMessage returns a copy of e with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Err: e.Err}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Kind:    KindNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Kind:    KindAlreadyExists,
		Message: "resource already exists",
	}
)

// NotFound returns ErrNotFound naming the missing row.
func NotFound(table, id string) error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s %q not found", table, id))
}

// AlreadyExists returns ErrAlreadyExists naming the duplicate row.
func AlreadyExists(table, id string) error {
	return ErrAlreadyExists.WithMessage(fmt.Sprintf("%s %q already exists", table, id))
}
