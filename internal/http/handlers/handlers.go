// Package handlers exposes the survey API over HTTP.
//
// Handlers are transport-thin: they bind and check input shape, call the
// application services through the interfaces below, and translate results
// and service errors into HTTP responses (see errors.go).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tbourn/go-survey-backend/internal/analytics"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/search"
	"github.com/tbourn/go-survey-backend/internal/services"
	"github.com/tbourn/go-survey-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AuthService registers and signs in users.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// SurveyService manages the survey lifecycle.
type SurveyService interface {
	Create(ctx context.Context, actor services.Actor, in services.SurveyInput) (*domain.Survey, error)
	Get(ctx context.Context, id string) (*domain.Survey, error)
	ListPage(ctx context.Context, status domain.SurveyStatus, page, pageSize int) ([]domain.Survey, int64, error)
	Update(ctx context.Context, actor services.Actor, id string, patch services.SurveyPatch) (*domain.Survey, error)
	Delete(ctx context.Context, actor services.Actor, id string) error
	Publish(ctx context.Context, actor services.Actor, id string) (*domain.Survey, error)
	Close(ctx context.Context, actor services.Actor, id string) (*domain.Survey, error)
}

// ResponseService accepts and reads submissions.
type ResponseService interface {
	Submit(ctx context.Context, actor services.Actor, in services.SubmitInput) (*domain.Response, error)
	Get(ctx context.Context, id string) (*domain.Response, error)
	ListBySurvey(ctx context.Context, surveyID string) ([]domain.Response, error)
	Delete(ctx context.Context, actor services.Actor, id string) error
	SearchText(ctx context.Context, surveyID, query string, k int) ([]search.Result, error)
}

// AnalyticsService computes and exports survey reports.
type AnalyticsService interface {
	Calculate(ctx context.Context, surveyID string) (*analytics.SurveyAnalytics, error)
	Export(ctx context.Context, actor services.Actor, surveyID, format string) (*services.ExportFile, error)
}

// TemplateService manages survey templates.
type TemplateService interface {
	List(ctx context.Context, category domain.TemplateCategory) ([]domain.Template, error)
	Get(ctx context.Context, id string) (*domain.Template, error)
	Create(ctx context.Context, actor services.Actor, in services.TemplateInput) (*domain.Template, error)
	Delete(ctx context.Context, actor services.Actor, id string) error
}

// WorkshopService manages workshops planned from survey results.
type WorkshopService interface {
	List(ctx context.Context, status domain.WorkshopStatus) ([]domain.Workshop, error)
	Get(ctx context.Context, id string) (*domain.Workshop, error)
	Create(ctx context.Context, actor services.Actor, in services.WorkshopInput) (*domain.Workshop, error)
	Update(ctx context.Context, actor services.Actor, id string, patch services.WorkshopPatch) (*domain.Workshop, error)
	Delete(ctx context.Context, actor services.Actor, id string) error
	Schedule(ctx context.Context, actor services.Actor, id string, date time.Time, location string) (*domain.Workshop, error)
	Start(ctx context.Context, actor services.Actor, id string) (*domain.Workshop, error)
	Complete(ctx context.Context, actor services.Actor, id string) (*domain.Workshop, error)
	Cancel(ctx context.Context, actor services.Actor, id string) (*domain.Workshop, error)
	Insights(ctx context.Context, id string) ([]services.WorkshopInsight, error)
}

// AuditService lists audit entries.
type AuditService interface {
	ListPage(ctx context.Context, f domain.AuditFilter, page, pageSize int) ([]domain.AuditLog, int64, error)
}

// ListStats backs weak ETags on list endpoints.
type ListStats interface {
	SurveysStats(ctx context.Context, status string) (int64, *time.Time, error)
	ResponsesStats(ctx context.Context, surveyID string) (int64, *time.Time, error)
}

// LiveHub streams submission events to websocket subscribers.
type LiveHub interface {
	Serve(up *websocket.Upgrader, w http.ResponseWriter, r *http.Request, surveyID string) error
}

//
// Handler wiring
//

// Deps are the collaborators of Handlers. Stats, Idempotency and Live are
// optional.
type Deps struct {
	Auth      AuthService
	Surveys   SurveyService
	Responses ResponseService
	Analytics AnalyticsService
	Templates TemplateService
	Workshops WorkshopService
	Audit     AuditService

	Stats       ListStats
	Idempotency services.IdempotencyStore
	// IdempotencyTTL defaults to 24h.
	IdempotencyTTL time.Duration

	Live     LiveHub
	Upgrader *websocket.Upgrader
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	d Deps
}

// New returns Handlers bound to d.
func New(d Deps) *Handlers {
	if d.IdempotencyTTL <= 0 {
		d.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{d: d}
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(c.Query("page"), c.Query("page_size"))
}

func newPagination(page, pageSize int, total int64) Pagination {
	tp := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: tp,
		HasNext:    page < tp,
	}
}
