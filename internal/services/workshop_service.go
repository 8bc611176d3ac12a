// Package services – WorkshopService
//
// Workshops are planned from survey results. WorkshopService manages their
// lifecycle (draft/planned -> scheduled -> in_progress -> completed, or
// cancelled at any point before completion) and collects the insights of
// every linked survey.

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

	"github.com/tbourn/go-survey-backend/internal/analytics"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/repo"
)

// Workshop defaults.
const (
	DefaultWorkshopDuration = 60 // minutes
	DefaultExpectedSize     = 1
)

// WorkshopInput carries the fields of a new workshop.
type WorkshopInput struct {
	Title           string
	Description     string
	Topic           string
	Objectives      []domain.Objective
	LinkedSurveyIDs []string
	TargetAudience  domain.TargetAudience
	ExpectedSize    int
	ScheduledDate   *time.Time
	Duration        int
	Location        string
	Status          domain.WorkshopStatus
}

// WorkshopPatch carries a partial update. Nil fields are left unchanged.
type WorkshopPatch struct {
	Title           *string
	Description     *string
	Topic           *string
	Objectives      *[]domain.Objective
	LinkedSurveyIDs *[]string
	TargetAudience  *domain.TargetAudience
	ExpectedSize    *int
	Duration        *int
	Location        *string
}

// WorkshopInsight is an insight of one linked survey.
type WorkshopInsight struct {
	SurveyID    string `json:"surveyId"`
	SurveyTitle string `json:"surveyTitle"`
	analytics.Insight
}

// WorkshopService manages workshops.
type WorkshopService struct {
	Workshops WorkshopStore
	Surveys   SurveyStore
	Analytics *AnalyticsService
	Audit     *AuditService
}

// List returns workshops by scheduled date, optionally filtered by status.
func (s *WorkshopService) List(ctx context.Context, status domain.WorkshopStatus) ([]domain.Workshop, error) {
	tr := otel.Tracer("services/WorkshopService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("workshop.status", string(status))))
	defer span.End()

	if status != "" && !status.Valid() {
		return nil, invalid("status", "unknown status %q", status)
	}
	return s.Workshops.ListWorkshops(ctx, string(status))
}

// Get returns one workshop, or ErrWorkshopNotFound.
func (s *WorkshopService) Get(ctx context.Context, id string) (*domain.Workshop, error) {
	tr := otel.Tracer("services/WorkshopService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("workshop.id", id)))
	defer span.End()

	w, err := s.Workshops.GetWorkshop(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrWorkshopNotFound)
	}
	return w, nil
}

// Create validates in and stores a workshop owned by actor. Only draft and
// planned are accepted as initial status; a scheduled date makes it planned.
func (s *WorkshopService) Create(ctx context.Context, actor Actor, in WorkshopInput) (*domain.Workshop, error) {
	tr := otel.Tracer("services/WorkshopService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", actor.UserID)))
	defer span.End()

	title, err := validateTitle("title", in.Title)
	if err != nil {
		return nil, err
	}
	status := in.Status
	switch status {
	case "":
		status = domain.WorkshopDraft
		if in.ScheduledDate != nil {
			status = domain.WorkshopPlanned
		}
	case domain.WorkshopDraft, domain.WorkshopPlanned:
	default:
		return nil, invalid("status", "new workshops must be draft or planned")
	}

	w := &domain.Workshop{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Topic:          strings.TrimSpace(in.Topic),
		TargetAudience: datatypes.NewJSONType(in.TargetAudience),
		ExpectedSize:   DefaultExpectedSize,
		Duration:       DefaultWorkshopDuration,
		Location:       strings.TrimSpace(in.Location),
		Status:         status,
		CreatedBy:      actor.UserID,
		Version:        1,
	}
	if in.ExpectedSize != 0 {
		if err := setPositive(&w.ExpectedSize, "expectedSize", in.ExpectedSize); err != nil {
			return nil, err
		}
	}
	if in.Duration != 0 {
		if err := setPositive(&w.Duration, "duration", in.Duration); err != nil {
			return nil, err
		}
	}
	if in.ScheduledDate != nil {
		d := in.ScheduledDate.UTC()
		w.ScheduledDate = &d
	}
	if w.Objectives, err = normalizeObjectives(in.Objectives); err != nil {
		return nil, err
	}
	if w.LinkedSurveyIDs, err = s.checkLinkedSurveys(ctx, in.LinkedSurveyIDs); err != nil {
		return nil, err
	}

	if err := s.Workshops.CreateWorkshop(ctx, w); err != nil {
		return nil, err
	}
	s.Audit.Log(ctx, actor, domain.ActionCreate, domain.EntityWorkshop, w.ID, w.Title, nil)
	return w, nil
}

// Update applies patch and bumps the version. Completed and cancelled
// workshops return ErrWorkshopNotEditable.
func (s *WorkshopService) Update(ctx context.Context, actor Actor, id string, patch WorkshopPatch) (*domain.Workshop, error) {
	tr := otel.Tracer("services/WorkshopService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.String("workshop.id", id)))
	defer span.End()

	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if closedWorkshop(w.Status) {
		return nil, ErrWorkshopNotEditable
	}

	changes := make(map[string]any)
	if patch.Title != nil {
		t, err := validateTitle("title", *patch.Title)
		if err != nil {
			return nil, err
		}
		w.Title = t
		changes["title"] = t
	}
	if patch.Description != nil {
		w.Description = strings.TrimSpace(*patch.Description)
		changes["description"] = w.Description
	}
	if patch.Topic != nil {
		w.Topic = strings.TrimSpace(*patch.Topic)
		changes["topic"] = w.Topic
	}
	if patch.Objectives != nil {
		objs, err := normalizeObjectives(*patch.Objectives)
		if err != nil {
			return nil, err
		}
		w.Objectives = objs
		changes["objectives"] = len(objs)
	}
	if patch.LinkedSurveyIDs != nil {
		ids, err := s.checkLinkedSurveys(ctx, *patch.LinkedSurveyIDs)
		if err != nil {
			return nil, err
		}
		w.LinkedSurveyIDs = ids
		changes["linkedSurveyIds"] = ids
	}
	if patch.TargetAudience != nil {
		w.TargetAudience = datatypes.NewJSONType(*patch.TargetAudience)
		changes["targetAudience"] = *patch.TargetAudience
	}
	if patch.ExpectedSize != nil {
		if err := setPositive(&w.ExpectedSize, "expectedSize", *patch.ExpectedSize); err != nil {
			return nil, err
		}
		changes["expectedSize"] = w.ExpectedSize
	}
	if patch.Duration != nil {
		if err := setPositive(&w.Duration, "duration", *patch.Duration); err != nil {
			return nil, err
		}
		changes["duration"] = w.Duration
	}
	if patch.Location != nil {
		w.Location = strings.TrimSpace(*patch.Location)
		changes["location"] = w.Location
	}
	if len(changes) == 0 {
		return w, nil
	}

	w.Version++
	if err := s.Workshops.UpdateWorkshop(ctx, w); err != nil {
		return nil, mapNotFound(err, ErrWorkshopNotFound)
	}
	s.Audit.Log(ctx, actor, domain.ActionUpdate, domain.EntityWorkshop, w.ID, w.Title, changes)
	return w, nil
}

// Delete removes a workshop.
func (s *WorkshopService) Delete(ctx context.Context, actor Actor, id string) error {
	tr := otel.Tracer("services/WorkshopService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("workshop.id", id)))
	defer span.End()

	w, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Workshops.DeleteWorkshop(ctx, id); err != nil {
		return mapNotFound(err, ErrWorkshopNotFound)
	}
	s.Audit.Log(ctx, actor, domain.ActionDelete, domain.EntityWorkshop, id, w.Title, nil)
	return nil
}

// Schedule sets the date and optionally the location of a draft, planned or
// already scheduled workshop and marks it scheduled.
func (s *WorkshopService) Schedule(ctx context.Context, actor Actor, id string, date time.Time, location string) (*domain.Workshop, error) {
	if date.IsZero() {
		return nil, invalid("scheduledDate", "is required")
	}
	return s.transition(ctx, actor, id, domain.ActionSchedule, domain.WorkshopScheduled,
		[]domain.WorkshopStatus{domain.WorkshopDraft, domain.WorkshopPlanned, domain.WorkshopScheduled},
		func(w *domain.Workshop) {
			d := date.UTC()
			w.ScheduledDate = &d
			if loc := strings.TrimSpace(location); loc != "" {
				w.Location = loc
			}
		})
}

// Start marks a scheduled workshop as in progress.
func (s *WorkshopService) Start(ctx context.Context, actor Actor, id string) (*domain.Workshop, error) {
	return s.transition(ctx, actor, id, domain.ActionUpdate, domain.WorkshopInProgress,
		[]domain.WorkshopStatus{domain.WorkshopScheduled}, nil)
}

// Complete marks a scheduled or running workshop as completed.
func (s *WorkshopService) Complete(ctx context.Context, actor Actor, id string) (*domain.Workshop, error) {
	return s.transition(ctx, actor, id, domain.ActionComplete, domain.WorkshopCompleted,
		[]domain.WorkshopStatus{domain.WorkshopScheduled, domain.WorkshopInProgress}, nil)
}

// Cancel cancels a workshop that is not completed yet.
func (s *WorkshopService) Cancel(ctx context.Context, actor Actor, id string) (*domain.Workshop, error) {
	return s.transition(ctx, actor, id, domain.ActionUpdate, domain.WorkshopCancelled,
		[]domain.WorkshopStatus{domain.WorkshopDraft, domain.WorkshopPlanned, domain.WorkshopScheduled, domain.WorkshopInProgress}, nil)
}

// Insights returns the insights of every linked survey, in link order.
// Linked surveys that no longer exist are skipped.
func (s *WorkshopService) Insights(ctx context.Context, id string) ([]WorkshopInsight, error) {
	tr := otel.Tracer("services/WorkshopService")
	ctx, span := tr.Start(ctx, "Insights", trace.WithAttributes(attribute.String("workshop.id", id)))
	defer span.End()

	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]WorkshopInsight, 0)
	for _, sid := range w.LinkedSurveyIDs {
		sv, err := s.Surveys.GetSurvey(ctx, sid)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		report, err := s.Analytics.Calculate(ctx, sid)
		if errors.Is(err, ErrSurveyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, in := range report.Insights {
			out = append(out, WorkshopInsight{SurveyID: sid, SurveyTitle: sv.Title, Insight: in})
		}
	}
	span.SetAttributes(attribute.Int("insights", len(out)))
	return out, nil
}

func (s *WorkshopService) transition(ctx context.Context, actor Actor, id string, action domain.AuditAction, to domain.WorkshopStatus, from []domain.WorkshopStatus, mutate func(*domain.Workshop)) (*domain.Workshop, error) {
	tr := otel.Tracer("services/WorkshopService")
	ctx, span := tr.Start(ctx, "transition",
		trace.WithAttributes(
			attribute.String("workshop.id", id),
			attribute.String("workshop.status.to", string(to)),
		),
	)
	defer span.End()

	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, st := range from {
		if w.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}

	prev := w.Status
	w.Status = to
	if mutate != nil {
		mutate(w)
	}
	w.Version++
	if err := s.Workshops.UpdateWorkshop(ctx, w); err != nil {
		return nil, mapNotFound(err, ErrWorkshopNotFound)
	}
	s.Audit.Log(ctx, actor, action, domain.EntityWorkshop, w.ID, w.Title, map[string]any{
		"status": map[string]string{"from": string(prev), "to": string(to)},
	})
	return w, nil
}

func (s *WorkshopService) checkLinkedSurveys(ctx context.Context, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if _, err := s.Surveys.GetSurvey(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, invalid("linkedSurveyIds", "survey %q does not exist", id)
			}
			return nil, err
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func normalizeObjectives(in []domain.Objective) ([]domain.Objective, error) {
	out := make([]domain.Objective, 0, len(in))
	for _, o := range in {
		o.Description = strings.TrimSpace(o.Description)
		if o.Description == "" {
			return nil, invalid("objectives", "description must not be empty")
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.Priority == "" {
			o.Priority = domain.PriorityMedium
		}
		if !o.Priority.Valid() {
			return nil, invalid("objectives", "unknown priority %q", o.Priority)
		}
		out = append(out, o)
	}
	return out, nil
}

func setPositive(dst *int, field string, v int) error {
	if v <= 0 {
		return invalid(field, "must be positive")
	}
	*dst = v
	return nil
}

func closedWorkshop(st domain.WorkshopStatus) bool {
	return st == domain.WorkshopCompleted || st == domain.WorkshopCancelled
}
