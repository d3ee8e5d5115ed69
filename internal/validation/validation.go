// Package validation checks the shape and bounds of incoming request bodies
// before anything is persisted. Every validator stops at the first violation.
package validation

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Error is a rejected request body.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func reject(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

const maxCredentialLength = 50

// absent reports whether a decoded JSON value counts as not provided.
func absent(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// boundedString returns v as a string when it is one and has at most max
// characters.
func boundedString(v interface{}, max int) (string, bool) {
	s, ok := v.(string)
	if !ok || utf8.RuneCountInString(s) > max {
		return "", false
	}
	return s, true
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// NormalizeUsername is the canonical form usernames are stored and looked up in.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail is the canonical form emails are stored in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
