package services

import "net/http"

// Error is a service-level failure carrying the status category that
// handlers surface to callers. Only the category and message ever cross
// the API boundary; internal store errors stay internal.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Validation reports invalid input. Raised before any mutation.
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// Unauthorized reports an authentication failure. Messages are kept
// generic so they never reveal whether an email exists.
func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// NotFound reports that an id or token did not resolve.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// Conflict reports a store-level uniqueness violation.
func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Message: message}
}
