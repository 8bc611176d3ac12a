package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// Store binds the free repository functions to a single *gorm.DB so the
// service layer can depend on one value. Lookups that miss return
// ErrNotFound; unique violations surface as ErrDuplicate.
type Store struct {
	DB *gorm.DB
}

// NewStore wraps db.
func NewStore(db *gorm.DB) *Store { return &Store{DB: db} }

// Surveys

func (s *Store) CreateSurvey(ctx context.Context, sv *domain.Survey) error {
	return CreateSurvey(ctx, s.DB, sv)
}

func (s *Store) GetSurvey(ctx context.Context, id string) (*domain.Survey, error) {
	return GetSurvey(ctx, s.DB, id)
}

func (s *Store) CountSurveys(ctx context.Context, status string) (int64, error) {
	return CountSurveys(ctx, s.DB, status)
}

func (s *Store) ListSurveysPage(ctx context.Context, status string, offset, limit int) ([]domain.Survey, error) {
	return ListSurveysPage(ctx, s.DB, status, offset, limit)
}

func (s *Store) UpdateSurvey(ctx context.Context, sv *domain.Survey) error {
	return UpdateSurvey(ctx, s.DB, sv)
}

func (s *Store) DeleteSurvey(ctx context.Context, id string) error {
	return DeleteSurvey(ctx, s.DB, id)
}

func (s *Store) SurveysStats(ctx context.Context, status string) (int64, *time.Time, error) {
	return SurveysStats(ctx, s.DB, status)
}

// Responses

func (s *Store) CreateResponse(ctx context.Context, r *domain.Response) error {
	return CreateResponse(ctx, s.DB, r)
}

func (s *Store) GetResponse(ctx context.Context, id string) (*domain.Response, error) {
	return GetResponse(ctx, s.DB, id)
}

func (s *Store) ListResponsesBySurvey(ctx context.Context, surveyID string) ([]domain.Response, error) {
	return ListResponsesBySurvey(ctx, s.DB, surveyID)
}

func (s *Store) DeleteResponse(ctx context.Context, id string) error {
	return DeleteResponse(ctx, s.DB, id)
}

func (s *Store) ResponsesStats(ctx context.Context, surveyID string) (int64, *time.Time, error) {
	return ResponsesStats(ctx, s.DB, surveyID)
}

// Templates

func (s *Store) CreateTemplate(ctx context.Context, t *domain.Template) error {
	return CreateTemplate(ctx, s.DB, t)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	return GetTemplate(ctx, s.DB, id)
}

func (s *Store) ListTemplates(ctx context.Context, category string) ([]domain.Template, error) {
	return ListTemplates(ctx, s.DB, category)
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	return DeleteTemplate(ctx, s.DB, id)
}

func (s *Store) IncrementTemplateUsage(ctx context.Context, id string) error {
	return IncrementTemplateUsage(ctx, s.DB, id)
}

// Workshops

func (s *Store) CreateWorkshop(ctx context.Context, w *domain.Workshop) error {
	return CreateWorkshop(ctx, s.DB, w)
}

func (s *Store) GetWorkshop(ctx context.Context, id string) (*domain.Workshop, error) {
	return GetWorkshop(ctx, s.DB, id)
}

func (s *Store) ListWorkshops(ctx context.Context, status string) ([]domain.Workshop, error) {
	return ListWorkshops(ctx, s.DB, status)
}

func (s *Store) UpdateWorkshop(ctx context.Context, w *domain.Workshop) error {
	return UpdateWorkshop(ctx, s.DB, w)
}

func (s *Store) DeleteWorkshop(ctx context.Context, id string) error {
	return DeleteWorkshop(ctx, s.DB, id)
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	return CreateUser(ctx, s.DB, u)
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return GetUser(ctx, s.DB, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return GetUserByEmail(ctx, s.DB, email)
}

// Audit

func (s *Store) CreateAuditLog(ctx context.Context, l *domain.AuditLog) error {
	return CreateAuditLog(ctx, s.DB, l)
}

func (s *Store) CountAuditLogs(ctx context.Context, f domain.AuditFilter) (int64, error) {
	return CountAuditLogs(ctx, s.DB, f)
}

func (s *Store) ListAuditLogsPage(ctx context.Context, f domain.AuditFilter, offset, limit int) ([]domain.AuditLog, error) {
	return ListAuditLogsPage(ctx, s.DB, f, offset, limit)
}

// Idempotency

func (s *Store) GetIdempotency(ctx context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return GetIdempotency(ctx, s.DB, userID, scope, key, now)
}

func (s *Store) CreateIdempotency(ctx context.Context, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return CreateIdempotency(ctx, s.DB, userID, scope, key, resourceID, status, ttl)
}
