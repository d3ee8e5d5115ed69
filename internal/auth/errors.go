package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Client-facing messages of the authentication gate.
const (
	MsgUnauthorized  = "Unauthorized request."
	MsgInvalidToken  = "Invalid or expired token."
	MsgMisconfigured = "Server authentication is not configured."
	MsgInternal      = "Internal server error."
)

// ErrorKind classifies an authentication or authorization failure.
type ErrorKind int

const (
	KindUnauthenticated ErrorKind = iota + 1
	KindForbidden
	KindMisconfigured
	KindInternal
)

// Error is the single error type for every auth failure. Status codes are
// derived from Kind and nowhere else.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Unauthenticated builds a 401 error.
func Unauthenticated(message string, err error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message, Err: err}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// WriteError renders err as a JSON error response. Errors that are not an
// *Error are reported as a generic 500.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := MsgInternal

	var authErr *Error
	if errors.As(err, &authErr) {
		status = authErr.Status()
		message = authErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
