package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a resolution failure. Every backend call is classified
// once at its call site; higher layers branch on the kind, never on text.
type Kind string

const (
	// Auth means a backend credential could not be obtained.
	Auth Kind = "AuthFailure"
	// NotFound means no ticket/match/alias/server exists for the request.
	NotFound Kind = "NotFound"
	// TooEarly means the ticket minimum-age guard was not satisfied.
	TooEarly Kind = "TooEarly"
	// InvalidState means the backend reported a ticket status the gateway
	// does not know; indicates a backend contract change.
	InvalidState Kind = "InvalidState"
	// Backend is any other backend-reported failure; the diagnostic is
	// preserved for operators and never shown to the end client.
	Backend Kind = "BackendError"
	// Timeout means the allocation polling budget was exhausted.
	Timeout Kind = "Timeout"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(k Kind, err error, msg string) *Error {
	return &Error{Kind: k, Msg: msg, Err: err}
}

// KindOf returns the kind of err if it carries one.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// Is reports whether err is a fault of kind k.
func Is(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// HTTPStatus maps a failure kind to the externally observable status.
// The mapping is per kind, never per call site.
func HTTPStatus(err error) int {
	k, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch k {
	case NotFound:
		return http.StatusNotFound
	case TooEarly:
		return http.StatusTooEarly
	case Timeout:
		return http.StatusServiceUnavailable
	default:
		// Auth, InvalidState, Backend
		return http.StatusInternalServerError
	}
}
