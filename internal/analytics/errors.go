package analytics

import "errors"

// Rejection reasons reported by CheckEligibility and Aggregator.Calculate.
// Callers compare with errors.Is and surface Error() to the end user.
var (
	// ErrNotFound indicates the referenced survey does not exist.
	ErrNotFound = errors.New("survey not found")

	// ErrNotAvailable indicates the survey exists but is not published.
	ErrNotAvailable = errors.New("survey is not available for responses")

	// ErrNotOpen indicates the submission falls outside the survey window.
	ErrNotOpen = errors.New("survey is not currently open")

	// ErrDuplicateSubmission indicates a qualifying prior response exists.
	ErrDuplicateSubmission = errors.New("a response has already been submitted to this survey")
)

// duplicateError carries a respondent-specific message while matching
// ErrDuplicateSubmission under errors.Is.
type duplicateError struct{ msg string }

func (e duplicateError) Error() string        { return e.msg }
func (e duplicateError) Is(target error) bool { return target == ErrDuplicateSubmission }

var (
	errDuplicateUser  error = duplicateError{"you have already submitted a response to this survey"}
	errDuplicateEmail error = duplicateError{"this email has already submitted a response to this survey"}
)

// DuplicateFor returns the duplicate rejection worded for the respondent
// kind. Stores that enforce uniqueness themselves use it to report a
// conflict the same way CheckEligibility does.
func DuplicateFor(anonymous bool) error {
	if anonymous {
		return errDuplicateEmail
	}
	return errDuplicateUser
}
