// Package services – ResponseService
//
// ResponseService accepts survey submissions. Eligibility is decided by
// analytics.CheckEligibility over the stored responses; the store's unique
// (survey, dedupe key) index closes the window between that check and the
// insert, so concurrent duplicates still surface as ErrDuplicateSubmission.
//
// Accepted submissions invalidate the survey's cached analytics, are pushed
// to live subscribers and are counted in the submission metrics.

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-survey-backend/internal/analytics"
	"github.com/tbourn/go-survey-backend/internal/cache"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/live"
	"github.com/tbourn/go-survey-backend/internal/observability"
	"github.com/tbourn/go-survey-backend/internal/repo"
	"github.com/tbourn/go-survey-backend/internal/search"
)

// Search limits.
const (
	DefaultSearchK = 5
	MaxSearchK     = 50
)

// SubmitInput is one submission attempt.
type SubmitInput struct {
	SurveyID        string
	Anonymous       bool
	RespondentName  string
	RespondentEmail string
	Answers         []domain.Answer
}

// ResponseService stores and reads survey responses.
type ResponseService struct {
	Surveys   SurveyStore
	Responses ResponseStore
	Cache     cache.AnalyticsCache
	Live      live.Publisher
	Audit     *AuditService

	// Now is the clock used for the open window and submittedAt; nil means
	// time.Now.
	Now func() time.Time
}

func (s *ResponseService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit checks eligibility and stores the submission. Non-anonymous
// submissions are attributed to actor and require it to be authenticated.
func (s *ResponseService) Submit(ctx context.Context, actor Actor, in SubmitInput) (resp *domain.Response, err error) {
	tr := otel.Tracer("services/ResponseService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("survey.id", in.SurveyID),
			attribute.Bool("response.anonymous", in.Anonymous),
		),
	)
	defer func() {
		outcome := submissionOutcome(err)
		observability.ObserveSubmission(outcome)
		span.SetAttributes(attribute.String("response.outcome", outcome))
		if outcome == observability.OutcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, "submit failed")
		}
		span.End()
	}()

	survey, err := s.Surveys.GetSurvey(ctx, in.SurveyID)
	if errors.Is(err, repo.ErrNotFound) {
		survey, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	var existing []domain.Response
	if survey != nil {
		if existing, err = s.Responses.ListResponsesBySurvey(ctx, survey.ID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	sub := analytics.Submission{
		Anonymous:       in.Anonymous,
		UserID:          actor.UserID,
		RespondentEmail: in.RespondentEmail,
	}
	if err := analytics.CheckEligibility(survey, existing, sub, now); err != nil {
		return nil, err
	}
	if !in.Anonymous && !actor.Authenticated() {
		return nil, ErrAuthRequired
	}

	r := &domain.Response{
		ID:              uuid.NewString(),
		SurveyID:        survey.ID,
		Anonymous:       in.Anonymous,
		RespondentName:  strings.TrimSpace(in.RespondentName),
		RespondentEmail: analytics.NormalizeEmail(in.RespondentEmail),
		SubmittedAt:     now,
		Answers:         keepKnownAnswers(survey, in.Answers),
	}
	if !in.Anonymous {
		r.UserID = actor.UserID
	}
	r.DedupeKey = domain.DedupeKeyFor(r.Anonymous, r.UserID, r.RespondentEmail)

	if err := s.Responses.CreateResponse(ctx, r); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, analytics.DuplicateFor(r.Anonymous)
		}
		return nil, err
	}

	invalidateReport(ctx, s.Cache, survey.ID)
	if s.Live != nil {
		s.Live.Publish(survey.ID, live.MsgResponseSubmitted, live.SubmissionEvent{
			SurveyID:       survey.ID,
			ResponseID:     r.ID,
			TotalResponses: len(existing) + 1,
		})
	}
	s.Audit.Log(ctx, actor, domain.ActionCreate, domain.EntityResponse, r.ID, survey.Title, nil)
	return r, nil
}

// Get returns one response, or ErrResponseNotFound.
func (s *ResponseService) Get(ctx context.Context, id string) (*domain.Response, error) {
	tr := otel.Tracer("services/ResponseService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("response.id", id)))
	defer span.End()

	r, err := s.Responses.GetResponse(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrResponseNotFound)
	}
	return r, nil
}

// ListBySurvey returns every response of a survey in submission order.
func (s *ResponseService) ListBySurvey(ctx context.Context, surveyID string) ([]domain.Response, error) {
	tr := otel.Tracer("services/ResponseService")
	ctx, span := tr.Start(ctx, "ListBySurvey", trace.WithAttributes(attribute.String("survey.id", surveyID)))
	defer span.End()

	if _, err := s.Surveys.GetSurvey(ctx, surveyID); err != nil {
		return nil, mapNotFound(err, ErrSurveyNotFound)
	}
	return s.Responses.ListResponsesBySurvey(ctx, surveyID)
}

// Delete removes a response. The respondent may then submit again.
func (s *ResponseService) Delete(ctx context.Context, actor Actor, id string) error {
	tr := otel.Tracer("services/ResponseService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("response.id", id)))
	defer span.End()

	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Responses.DeleteResponse(ctx, id); err != nil {
		return mapNotFound(err, ErrResponseNotFound)
	}

	invalidateReport(ctx, s.Cache, r.SurveyID)
	if s.Live != nil {
		total, _, err := s.Responses.ResponsesStats(ctx, r.SurveyID)
		if err == nil {
			s.Live.Publish(r.SurveyID, live.MsgResponseDeleted, live.SubmissionEvent{
				SurveyID:       r.SurveyID,
				ResponseID:     r.ID,
				TotalResponses: int(total),
			})
		}
	}
	s.Audit.Log(ctx, actor, domain.ActionDelete, domain.EntityResponse, r.ID, "", nil)
	return nil
}

// SearchText ranks the survey's free-text answers against query. k <= 0
// means DefaultSearchK; larger values are capped at MaxSearchK.
func (s *ResponseService) SearchText(ctx context.Context, surveyID, query string, k int) ([]search.Result, error) {
	tr := otel.Tracer("services/ResponseService")
	ctx, span := tr.Start(ctx, "SearchText",
		trace.WithAttributes(
			attribute.String("survey.id", surveyID),
			attribute.Int("k", k),
		),
	)
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "must not be empty")
	}
	if k <= 0 {
		k = DefaultSearchK
	}
	if k > MaxSearchK {
		k = MaxSearchK
	}

	survey, err := s.Surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, mapNotFound(err, ErrSurveyNotFound)
	}
	rs, err := s.Responses.ListResponsesBySurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	idx := search.NewIndex(search.DocumentsFromResponses(survey, rs))
	span.SetAttributes(attribute.Int("index.docs", idx.Len()))

	out := idx.TopK(query, k)
	if out == nil {
		out = []search.Result{}
	}
	return out, nil
}

// keepKnownAnswers drops answers to questions the survey does not have,
// empty answers, and repeated answers to the same question.
func keepKnownAnswers(survey *domain.Survey, in []domain.Answer) []domain.Answer {
	out := make([]domain.Answer, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		if !survey.HasQuestion(a.QuestionID) || a.Value.IsEmpty() {
			continue
		}
		if _, dup := seen[a.QuestionID]; dup {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		out = append(out, a)
	}
	return out
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeAccepted
	case errors.Is(err, ErrDuplicateSubmission):
		return observability.OutcomeDuplicate
	case errors.Is(err, ErrSurveyNotOpen):
		return observability.OutcomeNotOpen
	case errors.Is(err, ErrSurveyNotAvailable):
		return observability.OutcomeNotAvailable
	case errors.Is(err, ErrSurveyNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrInvalidInput):
		return observability.OutcomeInvalid
	default:
		return observability.OutcomeError
	}
}
