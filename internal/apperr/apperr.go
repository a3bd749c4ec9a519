package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a classified failure carrying the HTTP status it maps to.
// Message is safe to show to the caller; Detail carries raw upstream
// diagnostics and is only included for upstream failures.
type Error struct {
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with the given status and caller-visible message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Wrap classifies an underlying error without exposing its text to the caller.
func Wrap(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

// Unauthenticated returns the uniform 401 error. The underlying cause is kept
// for logging but never reaches the caller, so verification failures cannot
// be distinguished from the outside.
func Unauthenticated(err error) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: "Invalid or missing token", Err: err}
}

// InvalidInput returns a 400 error with a field-specific message.
func InvalidInput(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// PayloadTooLarge returns the 413 error used when text exceeds the billing guardrail.
func PayloadTooLarge(message string) *Error {
	return &Error{Status: http.StatusRequestEntityTooLarge, Message: message}
}

// RateLimited returns the 429 error for an exhausted window.
func RateLimited() *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: "Too many requests"}
}

// Upstream returns a 502 error with the provider's raw response attached as detail.
func Upstream(message, detail string) *Error {
	return &Error{Status: http.StatusBadGateway, Message: message, Detail: detail}
}

// Internal returns a generic 500 error wrapping the real cause for logging.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "Server error", Err: err}
}

// FromError recovers the classification from an error chain. Anything not
// carrying an *Error is treated as an internal failure.
func FromError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
