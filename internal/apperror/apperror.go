// Package apperror defines the error kinds shared by the service, handler and
// client layers. Services return *AppError values; handlers map the kind to
// an HTTP status and the API client maps the status back to the kind.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("storage unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying failure, kept for logs only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned when no valid principal is present or when
// credentials do not match.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable wraps a persistence (or other backend) failure. The cause is
// retained for logging but never shown to API callers.
func Unavailable(cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: "storage is unavailable, please try again",
		Cause:   cause,
	}
}

// IsDomain reports whether err carries any AppError kind. Services use it to tell
// domain outcomes apart from raw gateway failures.
func IsDomain(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}
