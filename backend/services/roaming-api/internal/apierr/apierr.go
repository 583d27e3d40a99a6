// Package apierr holds the HTTP-facing error taxonomy. Resolvers and body
// parsers return *Error; handlers render it as {"description": "..."}.
package apierr

import (
	"fmt"
	"net/http"
)

// Error is a terminal HTTP error: status code plus a human readable reason.
type Error struct {
	Status      int
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Description)
}

func newError(status int, format string, args ...interface{}) *Error {
	return &Error{Status: status, Description: fmt.Sprintf(format, args...)}
}

// BadRequest is a ClientError: malformed or absent path or body field.
func BadRequest(format string, args ...interface{}) *Error {
	return newError(http.StatusBadRequest, format, args...)
}

// NotFound is a syntactically valid but unresolvable identifier.
func NotFound(format string, args ...interface{}) *Error {
	return newError(http.StatusNotFound, format, args...)
}

// Conflict reports creation of an identifier that already exists.
func Conflict(format string, args ...interface{}) *Error {
	return newError(http.StatusConflict, format, args...)
}

// Unauthorized is a domain-level authorization refusal (401).
func Unauthorized(format string, args ...interface{}) *Error {
	return newError(http.StatusUnauthorized, format, args...)
}

// Forbidden is a domain-level authorization refusal (403).
func Forbidden(format string, args ...interface{}) *Error {
	return newError(http.StatusForbidden, format, args...)
}

// Internal is an otherwise unclassified domain failure.
func Internal(format string, args ...interface{}) *Error {
	return newError(http.StatusInternalServerError, format, args...)
}
