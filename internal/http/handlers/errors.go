// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes the symbolic error codes and the translation of
// service errors into (status, code, message). Clients branch on the code;
// the message is safe to show to users.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "duplicate_submission",
//	  "message": "you have already submitted a response to this survey"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-survey-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_failed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Submission rejections.
	ErrCodeSurveyNotAvailable  = "survey_not_available"
	ErrCodeSurveyNotOpen       = "survey_not_open"
	ErrCodeDuplicateSubmission = "duplicate_submission"

	// Lifecycle.
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeNotEditable       = "not_editable"

	// Accounts.
	ErrCodeEmailTaken         = "email_taken"
	ErrCodeInvalidCredentials = "invalid_credentials"

	ErrCodeUnsupportedFormat = "unsupported_format"
)

// failErr writes the envelope for a service error. Eligibility rejections
// keep their own message. Unknown errors become a 500 whose message hides
// the cause; the cause is logged by fail.
func failErr(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ErrCodeValidation, ve.Error())
	case errors.Is(err, services.ErrSurveyNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrResponseNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "response not found")
	case errors.Is(err, services.ErrTemplateNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "template not found")
	case errors.Is(err, services.ErrWorkshopNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "workshop not found")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case errors.Is(err, services.ErrSurveyNotAvailable):
		fail(c, http.StatusBadRequest, ErrCodeSurveyNotAvailable, err.Error())
	case errors.Is(err, services.ErrSurveyNotOpen):
		fail(c, http.StatusBadRequest, ErrCodeSurveyNotOpen, err.Error())
	case errors.Is(err, services.ErrDuplicateSubmission):
		fail(c, http.StatusConflict, ErrCodeDuplicateSubmission, err.Error())
	case errors.Is(err, services.ErrSurveyNotEditable), errors.Is(err, services.ErrWorkshopNotEditable):
		fail(c, http.StatusConflict, ErrCodeNotEditable, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeEmailTaken, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, err.Error())
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrAuthRequired):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	case errors.Is(err, services.ErrUnsupportedFormat):
		fail(c, http.StatusBadRequest, ErrCodeUnsupportedFormat, "format must be xlsx or csv")
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
