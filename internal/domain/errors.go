package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies an Error; the HTTP layer turns it into a status code.
type ErrKind int

const (
	KindInternal ErrKind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k ErrKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is an error that is safe to show to API clients. Message is the
// client-facing text; Err, if set, is the underlying cause and is only logged.
type Error struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind and message, so the sentinels
// below keep working after being wrapped with a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// WithCause returns a copy of e carrying err as its cause.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: err}
}

func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf reports the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrTodoNotFound       = &Error{Kind: KindNotFound, Message: "todo not found or not owned by user"}
	ErrEmailTaken         = &Error{Kind: KindConflict, Message: "email address already registered"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "invalid email or password"}
	ErrMissingToken       = &Error{Kind: KindUnauthorized, Message: "authorization token required"}
	ErrInvalidToken       = &Error{Kind: KindForbidden, Message: "invalid or expired token"}
	ErrInternal           = &Error{Kind: KindInternal, Message: "internal server error"}
)
