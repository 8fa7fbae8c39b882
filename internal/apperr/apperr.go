package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so HTTP handlers can pick a status code
// without matching on error strings.
type Kind int

const (
	Internal Kind = iota
	Validation
	Auth
	Conflict
	NotFound
	Decryption
)

type Error struct {
	Kind    Kind
	Message string // safe to show to clients
	Err     error  // underlying cause, logged server-side only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps a kind to its HTTP status code. Conflict is reported as a
// 400 at the API boundary; the distinct kind exists so callers can still
// tell "already registered" apart from a malformed request.
func Status(err error) int {
	switch KindOf(err) {
	case Validation, Conflict:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Decryption, Internal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Public returns the client-safe message for err. Internal and
// decryption failures never leak detail.
func Public(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal && e.Kind != Decryption {
		return e.Message
	}
	return "internal server error"
}
