// Package services defines the business logic for surveys, responses,
// analytics, templates, workshops, accounts and audit entries. This file
// centralizes the service-level error values so they can be returned
// consistently by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-survey-backend/internal/analytics"
)

// Submission rejections. These alias the analytics sentinels so callers can
// match either name with errors.Is.
var (
	// ErrSurveyNotFound indicates that no survey has the requested id.
	ErrSurveyNotFound = analytics.ErrNotFound

	// ErrSurveyNotAvailable is returned when a survey is not published.
	ErrSurveyNotAvailable = analytics.ErrNotAvailable

	// ErrSurveyNotOpen is returned outside the survey's open window.
	ErrSurveyNotOpen = analytics.ErrNotOpen

	// ErrDuplicateSubmission is returned when the respondent already answered.
	ErrDuplicateSubmission = analytics.ErrDuplicateSubmission
)

// Lookup errors.
var (
	ErrResponseNotFound = errors.New("response not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrWorkshopNotFound = errors.New("workshop not found")
	ErrUserNotFound     = errors.New("user not found")
)

// State errors.
var (
	// ErrSurveyNotEditable is returned when editing or deleting a survey that
	// is no longer a draft.
	ErrSurveyNotEditable = errors.New("only draft surveys can be modified")

	// ErrInvalidTransition is returned for a status change the lifecycle does
	// not allow (e.g. closing a draft, completing a cancelled workshop).
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrWorkshopNotEditable is returned when changing a completed or
	// cancelled workshop.
	ErrWorkshopNotEditable = errors.New("workshop is completed or cancelled")

	// ErrUnsupportedFormat is returned for an unknown export format.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Account errors.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// ErrAuthRequired is returned when a non-anonymous response is submitted
	// without an authenticated user.
	ErrAuthRequired = errors.New("sign in to submit a non-anonymous response")
)

// ErrInvalidInput is the umbrella sentinel matched by every ValidationError.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError reports one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrInvalidInput) true for any ValidationError.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
