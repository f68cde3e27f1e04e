package apperror

import (
	"errors"
	"fmt"
	"testing"
)

var errTestCause = errors.New("connection refused")

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("review", 42),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("email already registered"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("course", 7),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrNotFound",
			err:       ValidationFailed("comment", "comment is required"),
			target:    ErrNotFound,
			wantMatch: false,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("only the author may edit this review"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("sign in first"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Unavailable wraps ErrUnavailable",
			err:       Unavailable(errors.New("database is locked")),
			target:    ErrUnavailable,
			wantMatch: true,
		},
		{
			name:      "Unavailable does NOT expose its cause to errors.Is",
			err:       Unavailable(errTestCause),
			target:    errTestCause,
			wantMatch: false,
		},
		{
			name:      "wrapped AppError still matches",
			err:       fmt.Errorf("updating review: %w", Forbidden("not yours")),
			target:    ErrForbidden,
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("review", 42),
			wantMessage: "review not found with id 42",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("course_name", "course name is required"),
			wantMessage: "course name is required",
		},
		{
			name:        "Conflict uses custom message",
			err:         Conflict("email already registered"),
			wantMessage: "email already registered",
		},
		{
			name:        "Unavailable hides the cause",
			err:         Unavailable(errors.New("dial tcp 10.0.0.1:5432: i/o timeout")),
			wantMessage: "storage is unavailable, please try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("review", 42)
	unwrapped := err.Unwrap()

	if unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}

func TestIsDomain(t *testing.T) {
	if !IsDomain(fmt.Errorf("wrapped: %w", NotFound("user", 1))) {
		t.Error("IsDomain() = false for a wrapped AppError")
	}
	if IsDomain(errors.New("sqlite: disk I/O error")) {
		t.Error("IsDomain() = true for a plain error")
	}
	if IsDomain(nil) {
		t.Error("IsDomain(nil) = true")
	}
}
