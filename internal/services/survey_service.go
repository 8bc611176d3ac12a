// Package services – SurveyService
//
// SurveyService owns the survey lifecycle: draft creation (optionally from a
// template), edits while in draft, publication and closing. Every write
// invalidates the cached analytics of the survey and is recorded in the
// audit log.

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/tbourn/go-survey-backend/internal/cache"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/live"
	"github.com/tbourn/go-survey-backend/internal/repo"
)

// SurveyInput carries the fields of a new survey.
type SurveyInput struct {
	Title          string
	Purpose        string
	TargetAudience domain.TargetAudience
	OpenDate       time.Time
	CloseDate      time.Time
	Questions      []domain.Question
	TemplateID     *string
}

// SurveyPatch carries a partial update. Nil fields are left unchanged.
type SurveyPatch struct {
	Title          *string
	Purpose        *string
	TargetAudience *domain.TargetAudience
	OpenDate       *time.Time
	CloseDate      *time.Time
	Questions      *[]domain.Question
}

// SurveyService coordinates survey persistence.
type SurveyService struct {
	Surveys   SurveyStore
	Templates TemplateStore
	Cache     cache.AnalyticsCache
	Live      live.Publisher
	Audit     *AuditService
}

// Create validates in and stores a new draft survey owned by actor. When a
// template id is given its questions are used if in has none, and its usage
// counter is incremented.
func (s *SurveyService) Create(ctx context.Context, actor Actor, in SurveyInput) (*domain.Survey, error) {
	tr := otel.Tracer("services/SurveyService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", actor.UserID)))
	defer span.End()

	var tpl *domain.Template
	if in.TemplateID != nil && *in.TemplateID != "" {
		t, err := s.Templates.GetTemplate(ctx, *in.TemplateID)
		if err != nil {
			return nil, mapNotFound(err, ErrTemplateNotFound)
		}
		tpl = t
		if len(in.Questions) == 0 {
			in.Questions = append([]domain.Question(nil), t.Questions...)
		}
	}

	title, err := validateTitle("title", in.Title)
	if err != nil {
		return nil, err
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return nil, invalid("purpose", "must not be empty")
	}
	if err := validateWindow(in.OpenDate, in.CloseDate); err != nil {
		return nil, err
	}
	qs, err := normalizeQuestions(in.Questions)
	if err != nil {
		return nil, err
	}

	sv := &domain.Survey{
		ID:             uuid.NewString(),
		Title:          title,
		Purpose:        purpose,
		TargetAudience: datatypes.NewJSONType(in.TargetAudience),
		OpenDate:       in.OpenDate.UTC(),
		CloseDate:      in.CloseDate.UTC(),
		Questions:      qs,
		Status:         domain.SurveyDraft,
		CreatedBy:      actor.UserID,
		Version:        1,
	}
	if tpl != nil {
		sv.TemplateID = &tpl.ID
	}
	if err := s.Surveys.CreateSurvey(ctx, sv); err != nil {
		return nil, err
	}

	if tpl != nil {
		if err := s.Templates.IncrementTemplateUsage(ctx, tpl.ID); err != nil {
			loggerFrom(ctx).Warn().Err(err).Str("template_id", tpl.ID).Msg("template usage not incremented")
		}
	}
	s.Audit.Log(ctx, actor, domain.ActionCreate, domain.EntitySurvey, sv.ID, sv.Title, nil)
	return sv, nil
}

// Get returns the survey with id, or ErrSurveyNotFound.
func (s *SurveyService) Get(ctx context.Context, id string) (*domain.Survey, error) {
	tr := otel.Tracer("services/SurveyService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("survey.id", id)))
	defer span.End()

	sv, err := s.Surveys.GetSurvey(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrSurveyNotFound)
	}
	return sv, nil
}

// ListPage returns surveys newest first, optionally filtered by status.
func (s *SurveyService) ListPage(ctx context.Context, status domain.SurveyStatus, page, pageSize int) ([]domain.Survey, int64, error) {
	tr := otel.Tracer("services/SurveyService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("survey.status", string(status)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	limit, offset := pageWindow(page, pageSize)
	total, err := s.Surveys.CountSurveys(ctx, string(status))
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Survey{}, 0, nil
	}
	items, err := s.Surveys.ListSurveysPage(ctx, string(status), offset, limit)
	return items, total, err
}

// Update applies patch to a draft survey and bumps its version. Published
// and closed surveys return ErrSurveyNotEditable.
func (s *SurveyService) Update(ctx context.Context, actor Actor, id string, patch SurveyPatch) (*domain.Survey, error) {
	tr := otel.Tracer("services/SurveyService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("survey.id", id)))
	defer span.End()

	sv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv.Status != domain.SurveyDraft {
		return nil, ErrSurveyNotEditable
	}

	changes := make(map[string]any)
	if patch.Title != nil {
		t, err := validateTitle("title", *patch.Title)
		if err != nil {
			return nil, err
		}
		if t != sv.Title {
			sv.Title = t
			changes["title"] = t
		}
	}
	if patch.Purpose != nil {
		p := strings.TrimSpace(*patch.Purpose)
		if p == "" {
			return nil, invalid("purpose", "must not be empty")
		}
		if p != sv.Purpose {
			sv.Purpose = p
			changes["purpose"] = p
		}
	}
	if patch.TargetAudience != nil {
		sv.TargetAudience = datatypes.NewJSONType(*patch.TargetAudience)
		changes["targetAudience"] = *patch.TargetAudience
	}
	if patch.OpenDate != nil {
		sv.OpenDate = patch.OpenDate.UTC()
		changes["openDate"] = sv.OpenDate
	}
	if patch.CloseDate != nil {
		sv.CloseDate = patch.CloseDate.UTC()
		changes["closeDate"] = sv.CloseDate
	}
	if err := validateWindow(sv.OpenDate, sv.CloseDate); err != nil {
		return nil, err
	}
	if patch.Questions != nil {
		qs, err := normalizeQuestions(*patch.Questions)
		if err != nil {
			return nil, err
		}
		sv.Questions = qs
		changes["questions"] = len(qs)
	}
	if len(changes) == 0 {
		return sv, nil
	}

	sv.Version++
	if err := s.Surveys.UpdateSurvey(ctx, sv); err != nil {
		return nil, mapNotFound(err, ErrSurveyNotFound)
	}
	s.invalidate(ctx, sv.ID)
	s.Audit.Log(ctx, actor, domain.ActionUpdate, domain.EntitySurvey, sv.ID, sv.Title, changes)
	return sv, nil
}

// Delete removes a draft survey.
func (s *SurveyService) Delete(ctx context.Context, actor Actor, id string) error {
	tr := otel.Tracer("services/SurveyService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("survey.id", id)))
	defer span.End()

	sv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sv.Status != domain.SurveyDraft {
		return ErrSurveyNotEditable
	}
	if err := s.Surveys.DeleteSurvey(ctx, id); err != nil {
		return mapNotFound(err, ErrSurveyNotFound)
	}
	s.invalidate(ctx, id)
	s.Audit.Log(ctx, actor, domain.ActionDelete, domain.EntitySurvey, id, sv.Title, nil)
	return nil
}

// Publish moves a draft survey to published.
func (s *SurveyService) Publish(ctx context.Context, actor Actor, id string) (*domain.Survey, error) {
	return s.transition(ctx, actor, id, domain.SurveyDraft, domain.SurveyPublished, domain.ActionPublish)
}

// Close moves a published survey to closed and notifies live subscribers.
func (s *SurveyService) Close(ctx context.Context, actor Actor, id string) (*domain.Survey, error) {
	sv, err := s.transition(ctx, actor, id, domain.SurveyPublished, domain.SurveyClosed, domain.ActionClose)
	if err != nil {
		return nil, err
	}
	if s.Live != nil {
		s.Live.Publish(sv.ID, live.MsgSurveyClosed, map[string]string{"surveyId": sv.ID})
	}
	return sv, nil
}

func (s *SurveyService) transition(ctx context.Context, actor Actor, id string, from, to domain.SurveyStatus, action domain.AuditAction) (*domain.Survey, error) {
	tr := otel.Tracer("services/SurveyService")
	ctx, span := tr.Start(ctx, string(action),
		trace.WithAttributes(
			attribute.String("survey.id", id),
			attribute.String("survey.status.to", string(to)),
		),
	)
	defer span.End()

	sv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sv.Status != from {
		return nil, ErrInvalidTransition
	}
	sv.Status = to
	if err := s.Surveys.UpdateSurvey(ctx, sv); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}
	s.invalidate(ctx, sv.ID)
	s.Audit.Log(ctx, actor, action, domain.EntitySurvey, sv.ID, sv.Title, map[string]any{
		"status": map[string]string{"from": string(from), "to": string(to)},
	})
	return sv, nil
}

func (s *SurveyService) invalidate(ctx context.Context, surveyID string) {
	invalidateReport(ctx, s.Cache, surveyID)
}

// invalidateReport drops a cached report. Failures are logged; the entry
// still expires with its TTL.
func invalidateReport(ctx context.Context, c cache.AnalyticsCache, surveyID string) {
	if c == nil {
		return
	}
	if err := c.Invalidate(ctx, surveyID); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("survey_id", surveyID).Msg("analytics cache invalidation failed")
	}
}
