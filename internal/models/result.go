package models

import (
	"errors"

	"github.com/desertthunder/encore/internal/shared"
)

// Status tags the outcome of a form action.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusError           Status = "error"
	StatusExistingStudent Status = "existingStudent"
)

// Result is returned by every form action and rendered back to the submitting page.
//
// FieldErrors is keyed by form field name. ID names the created or affected record; for
// [StatusExistingStudent] it is the ID of the student that already holds the email.
type Result struct {
	Status      Status            `json:"status"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"errors,omitempty"`
	ID          string            `json:"id,omitempty"`
	Data        any               `json:"data,omitempty"`
}

// Success builds a success result.
func Success(message, id string) Result {
	return Result{Status: StatusSuccess, Message: message, ID: id}
}

// Failure builds an error result with a message.
func Failure(message string) Result {
	return Result{Status: StatusError, Message: message}
}

// ExistingStudent builds the result for a registration whose email is already enrolled.
func ExistingStudent(id string) Result {
	return Result{
		Status:  StatusExistingStudent,
		Message: "A student with this email is already registered.",
		ID:      id,
	}
}

// FromError maps err to an error result. Validation failures carry their field messages; known sentinel
// errors carry their own text; anything else falls back to the generic message.
func FromError(err error, fallback string) Result {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return Result{
			Status:      StatusError,
			Message:     "Please correct the highlighted fields.",
			FieldErrors: verr.Fields,
		}
	}

	for _, known := range []error{
		shared.ErrDuplicateAttendance,
		shared.ErrExistingStudent,
		shared.ErrDuplicate,
		shared.ErrNotFound,
		shared.ErrForbidden,
		shared.ErrCaptchaFailed,
		shared.ErrRateLimited,
		shared.ErrInvalidCredentials,
		shared.ErrEmailNotVerified,
		shared.ErrTokenExpired,
		shared.ErrInvalidToken,
	} {
		if errors.Is(err, known) {
			return Failure(capitalize(known.Error()) + ".")
		}
	}

	return Failure(fallback)
}

// OK reports whether the action succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// FieldError returns the message for a form field, if any.
func (r Result) FieldError(field string) string { return r.FieldErrors[field] }

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
