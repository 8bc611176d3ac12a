package analytics

import (
	"strings"
	"time"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// Submission describes who is trying to respond. UserID is the authenticated
// user and is ignored for anonymous submissions; RespondentEmail is only
// consulted for anonymous submissions.
type Submission struct {
	Anonymous       bool
	UserID          string
	RespondentEmail string
}

// NormalizeEmail trims and lower-cases an address for storage and comparison.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// CheckEligibility decides whether sub may respond to survey at now. existing
// holds the responses already stored for the survey.
//
// Rules are evaluated in order and the first failing one wins:
//  1. nil survey                                  -> ErrNotFound
//  2. status is not published                     -> ErrNotAvailable
//  3. now outside [OpenDate, CloseDate]           -> ErrNotOpen
//  4. named submission, user already responded    -> ErrDuplicateSubmission
//  5. anonymous with email, email already used    -> ErrDuplicateSubmission
//
// Anonymous submissions without an email are always accepted. The check is
// advisory under concurrency; stores enforce uniqueness on Response.DedupeKey.
func CheckEligibility(survey *domain.Survey, existing []domain.Response, sub Submission, now time.Time) error {
	if survey == nil {
		return ErrNotFound
	}
	if survey.Status != domain.SurveyPublished {
		return ErrNotAvailable
	}
	if now.Before(survey.OpenDate) || now.After(survey.CloseDate) {
		return ErrNotOpen
	}

	if !sub.Anonymous {
		if sub.UserID == "" {
			return nil
		}
		for i := range existing {
			r := &existing[i]
			if r.SurveyID == survey.ID && r.UserID == sub.UserID {
				return errDuplicateUser
			}
		}
		return nil
	}

	email := NormalizeEmail(sub.RespondentEmail)
	if email == "" {
		return nil
	}
	for i := range existing {
		r := &existing[i]
		if r.SurveyID == survey.ID && r.Anonymous && NormalizeEmail(r.RespondentEmail) == email {
			return errDuplicateEmail
		}
	}
	return nil
}
