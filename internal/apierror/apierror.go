// Package apierror defines the error taxonomy shared by every application
// service and rendered by the HTTP layer. Kinds are the contract, not Go
// type names: callers compare on Kind, not on a type switch.
package apierror

import (
	"fmt"
	"net/http"
)

// Kind enumerates the taxonomy of errors the core can produce.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindUnauthenticated      Kind = "unauthenticated"
	KindInsufficientPerm     Kind = "insufficient_permission"
	KindInvalidInput         Kind = "invalid_input"
	KindConflict             Kind = "conflict"
	KindPreconditionViolated Kind = "precondition_violated"
	KindExternal             Kind = "external"
	KindRateLimited          Kind = "rate_limited"
)

// Error is the concrete error type every application/domain layer returns
// at its boundary. It carries a Kind for status-code mapping, a snake_case
// Code for programmatic callers, and a human Description.
type Error struct {
	Kind        Kind
	Code        string
	Description string
	RetryAfter  int // milliseconds, only meaningful for KindRateLimited
	Remaining   int // only meaningful for KindRateLimited
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Description)
}

func (e *Error) Unwrap() error { return e.cause }

// StatusCode maps a Kind to the HTTP status the API contract requires.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated, KindInsufficientPerm:
		return http.StatusUnauthorized
	case KindInvalidInput, KindPreconditionViolated:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindExternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code, description string) *Error {
	return &Error{Kind: kind, Code: code, Description: description}
}

func Wrap(kind Kind, code, description string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Description: description, cause: cause}
}

func NotFound(description string) *Error {
	return New(KindNotFound, "not_found", description)
}

func Unauthenticated(description string) *Error {
	return New(KindUnauthenticated, "unauthenticated", description)
}

func InsufficientPermission(description string) *Error {
	return New(KindInsufficientPerm, "insufficient_permission", description)
}

func InvalidInput(description string) *Error {
	return New(KindInvalidInput, "invalid_input", description)
}

func Conflict(description string) *Error {
	return New(KindConflict, "conflict", description)
}

func PreconditionViolated(description string) *Error {
	return New(KindPreconditionViolated, "precondition_violated", description)
}

func External(description string, cause error) *Error {
	return Wrap(KindExternal, "external", description, cause)
}

func RateLimited(remaining, retryAfterMs int) *Error {
	return &Error{
		Kind:        KindRateLimited,
		Code:        "rate_limited",
		Description: "rate limit exceeded",
		Remaining:   remaining,
		RetryAfter:  retryAfterMs,
	}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == kind
}
