package services

import (
	"context"
	"errors"
	"time"

	"github.com/tbourn/go-survey-backend/internal/analytics"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/repo"
)

// SurveyStore persists surveys. Implementations return repo.ErrNotFound for
// missing rows.
type SurveyStore interface {
	CreateSurvey(ctx context.Context, s *domain.Survey) error
	GetSurvey(ctx context.Context, id string) (*domain.Survey, error)
	CountSurveys(ctx context.Context, status string) (int64, error)
	ListSurveysPage(ctx context.Context, status string, offset, limit int) ([]domain.Survey, error)
	UpdateSurvey(ctx context.Context, s *domain.Survey) error
	DeleteSurvey(ctx context.Context, id string) error
	SurveysStats(ctx context.Context, status string) (int64, *time.Time, error)
}

// ResponseStore persists responses. CreateResponse returns repo.ErrDuplicate
// when the (survey, dedupe key) pair is taken.
type ResponseStore interface {
	CreateResponse(ctx context.Context, r *domain.Response) error
	GetResponse(ctx context.Context, id string) (*domain.Response, error)
	ListResponsesBySurvey(ctx context.Context, surveyID string) ([]domain.Response, error)
	DeleteResponse(ctx context.Context, id string) error
	ResponsesStats(ctx context.Context, surveyID string) (int64, *time.Time, error)
}

// TemplateStore persists survey templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *domain.Template) error
	GetTemplate(ctx context.Context, id string) (*domain.Template, error)
	ListTemplates(ctx context.Context, category string) ([]domain.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	IncrementTemplateUsage(ctx context.Context, id string) error
}

// WorkshopStore persists workshops.
type WorkshopStore interface {
	CreateWorkshop(ctx context.Context, w *domain.Workshop) error
	GetWorkshop(ctx context.Context, id string) (*domain.Workshop, error)
	ListWorkshops(ctx context.Context, status string) ([]domain.Workshop, error)
	UpdateWorkshop(ctx context.Context, w *domain.Workshop) error
	DeleteWorkshop(ctx context.Context, id string) error
}

// UserStore persists accounts. CreateUser returns repo.ErrDuplicate for a
// taken email.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// AuditStore persists audit entries.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, l *domain.AuditLog) error
	CountAuditLogs(ctx context.Context, f domain.AuditFilter) (int64, error)
	ListAuditLogsPage(ctx context.Context, f domain.AuditFilter, offset, limit int) ([]domain.AuditLog, error)
}

// IdempotencyStore persists replay records for POST endpoints.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// Store is everything the service layer needs from a backend. Both
// repo.Store (SQLite) and mongostore.Store satisfy it.
type Store interface {
	SurveyStore
	ResponseStore
	TemplateStore
	WorkshopStore
	UserStore
	AuditStore
	IdempotencyStore
}

var _ Store = (*repo.Store)(nil)

// sourceAdapter exposes a store as an analytics.Source, turning "not found"
// into the nil survey the aggregator expects.
type sourceAdapter struct {
	surveys   SurveyStore
	responses ResponseStore
}

// NewSource adapts the stores to analytics.Source.
func NewSource(surveys SurveyStore, responses ResponseStore) analytics.Source {
	return sourceAdapter{surveys: surveys, responses: responses}
}

func (a sourceAdapter) GetSurvey(ctx context.Context, id string) (*domain.Survey, error) {
	s, err := a.surveys.GetSurvey(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

func (a sourceAdapter) ListResponsesBySurvey(ctx context.Context, surveyID string) ([]domain.Response, error) {
	return a.responses.ListResponsesBySurvey(ctx, surveyID)
}

// mapNotFound converts repo.ErrNotFound into the given service sentinel.
func mapNotFound(err, sentinel error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return sentinel
	}
	return err
}
