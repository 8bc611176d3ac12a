// Package mongostore persists the survey domain in MongoDB. It exposes the
// same method set as repo.Store so the service layer can run on either
// backend; lookups that miss return repo.ErrNotFound and unique-index
// violations return repo.ErrDuplicate.
package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// Collection names.
const (
	colSurveys     = "surveys"
	colResponses   = "responses"
	colTemplates   = "templates"
	colWorkshops   = "workshops"
	colUsers       = "users"
	colAuditLogs   = "audit_logs"
	colIdempotency = "idempotency"
)

type surveyDoc struct {
	ID             string                `bson:"_id"`
	Title          string                `bson:"title"`
	Purpose        string                `bson:"purpose"`
	TargetAudience domain.TargetAudience `bson:"targetAudience"`
	OpenDate       time.Time             `bson:"openDate"`
	CloseDate      time.Time             `bson:"closeDate"`
	Questions      []domain.Question     `bson:"questions"`
	Status         string                `bson:"status"`
	CreatedBy      string                `bson:"createdBy"`
	TemplateID     *string               `bson:"templateId,omitempty"`
	Version        int                   `bson:"version"`
	CreatedAt      time.Time             `bson:"createdAt"`
	UpdatedAt      time.Time             `bson:"updatedAt"`
	DeletedAt      *time.Time            `bson:"deletedAt,omitempty"`
}

func toSurveyDoc(s *domain.Survey) surveyDoc {
	return surveyDoc{
		ID:             s.ID,
		Title:          s.Title,
		Purpose:        s.Purpose,
		TargetAudience: s.TargetAudience.Data(),
		OpenDate:       s.OpenDate.UTC(),
		CloseDate:      s.CloseDate.UTC(),
		Questions:      []domain.Question(s.Questions),
		Status:         string(s.Status),
		CreatedBy:      s.CreatedBy,
		TemplateID:     s.TemplateID,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt.UTC(),
		UpdatedAt:      s.UpdatedAt.UTC(),
	}
}

func (d surveyDoc) toDomain() *domain.Survey {
	return &domain.Survey{
		ID:             d.ID,
		Title:          d.Title,
		Purpose:        d.Purpose,
		TargetAudience: datatypes.NewJSONType(d.TargetAudience),
		OpenDate:       d.OpenDate.UTC(),
		CloseDate:      d.CloseDate.UTC(),
		Questions:      datatypes.NewJSONSlice(d.Questions),
		Status:         domain.SurveyStatus(d.Status),
		CreatedBy:      d.CreatedBy,
		TemplateID:     d.TemplateID,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

type answerDoc struct {
	QuestionID string `bson:"questionId"`
	Value      any    `bson:"value"`
}

type responseDoc struct {
	ID              string      `bson:"_id"`
	SurveyID        string      `bson:"surveyId"`
	UserID          string      `bson:"userId,omitempty"`
	Anonymous       bool        `bson:"anonymous"`
	RespondentName  string      `bson:"respondentName,omitempty"`
	RespondentEmail string      `bson:"respondentEmail,omitempty"`
	DedupeKey       *string     `bson:"dedupeKey,omitempty"`
	SubmittedAt     time.Time   `bson:"submittedAt"`
	Answers         []answerDoc `bson:"answers"`
}

func toResponseDoc(r *domain.Response) responseDoc {
	answers := make([]answerDoc, 0, len(r.Answers))
	for _, a := range r.Answers {
		answers = append(answers, answerDoc{QuestionID: a.QuestionID, Value: a.Value.Interface()})
	}
	return responseDoc{
		ID:              r.ID,
		SurveyID:        r.SurveyID,
		UserID:          r.UserID,
		Anonymous:       r.Anonymous,
		RespondentName:  r.RespondentName,
		RespondentEmail: r.RespondentEmail,
		DedupeKey:       r.DedupeKey,
		SubmittedAt:     r.SubmittedAt.UTC(),
		Answers:         answers,
	}
}

func (d responseDoc) toDomain() domain.Response {
	answers := make([]domain.Answer, 0, len(d.Answers))
	for _, a := range d.Answers {
		answers = append(answers, domain.Answer{
			QuestionID: a.QuestionID,
			Value:      domain.NewAnswerValue(plain(a.Value)),
		})
	}
	return domain.Response{
		ID:              d.ID,
		SurveyID:        d.SurveyID,
		UserID:          d.UserID,
		Anonymous:       d.Anonymous,
		RespondentName:  d.RespondentName,
		RespondentEmail: d.RespondentEmail,
		DedupeKey:       d.DedupeKey,
		SubmittedAt:     d.SubmittedAt.UTC(),
		Answers:         datatypes.NewJSONSlice(answers),
	}
}

// plain turns the driver's decoded containers back into the plain Go shapes
// domain.NewAnswerValue understands.
func plain(v any) any {
	switch x := v.(type) {
	case primitive.A:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = plain(it)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = plain(e.Value)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, it := range x {
			out[k] = plain(it)
		}
		return out
	}
	return v
}

type templateDoc struct {
	ID             string                `bson:"_id"`
	Name           string                `bson:"name"`
	Description    string                `bson:"description"`
	Category       string                `bson:"category"`
	Questions      []domain.Question     `bson:"questions"`
	TargetAudience domain.TargetAudience `bson:"targetAudience"`
	UsageCount     int                   `bson:"usageCount"`
	CreatedBy      string                `bson:"createdBy"`
	CreatedAt      time.Time             `bson:"createdAt"`
	UpdatedAt      time.Time             `bson:"updatedAt"`
}

func toTemplateDoc(t *domain.Template) templateDoc {
	return templateDoc{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		Category:       string(t.Category),
		Questions:      []domain.Question(t.Questions),
		TargetAudience: t.TargetAudience.Data(),
		UsageCount:     t.UsageCount,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt.UTC(),
		UpdatedAt:      t.UpdatedAt.UTC(),
	}
}

func (d templateDoc) toDomain() domain.Template {
	return domain.Template{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		Category:       domain.TemplateCategory(d.Category),
		Questions:      datatypes.NewJSONSlice(d.Questions),
		TargetAudience: datatypes.NewJSONType(d.TargetAudience),
		UsageCount:     d.UsageCount,
		CreatedBy:      d.CreatedBy,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

type workshopDoc struct {
	ID              string                `bson:"_id"`
	Title           string                `bson:"title"`
	Description     string                `bson:"description"`
	Topic           string                `bson:"topic"`
	Objectives      []domain.Objective    `bson:"objectives"`
	LinkedSurveyIDs []string              `bson:"linkedSurveyIds"`
	TargetAudience  domain.TargetAudience `bson:"targetAudience"`
	ExpectedSize    int                   `bson:"expectedSize"`
	ScheduledDate   *time.Time            `bson:"scheduledDate,omitempty"`
	Duration        int                   `bson:"duration"`
	Location        string                `bson:"location"`
	Status          string                `bson:"status"`
	CreatedBy       string                `bson:"createdBy"`
	Version         int                   `bson:"version"`
	CreatedAt       time.Time             `bson:"createdAt"`
	UpdatedAt       time.Time             `bson:"updatedAt"`
	DeletedAt       *time.Time            `bson:"deletedAt,omitempty"`
}

func toWorkshopDoc(w *domain.Workshop) workshopDoc {
	return workshopDoc{
		ID:              w.ID,
		Title:           w.Title,
		Description:     w.Description,
		Topic:           w.Topic,
		Objectives:      []domain.Objective(w.Objectives),
		LinkedSurveyIDs: []string(w.LinkedSurveyIDs),
		TargetAudience:  w.TargetAudience.Data(),
		ExpectedSize:    w.ExpectedSize,
		ScheduledDate:   w.ScheduledDate,
		Duration:        w.Duration,
		Location:        w.Location,
		Status:          string(w.Status),
		CreatedBy:       w.CreatedBy,
		Version:         w.Version,
		CreatedAt:       w.CreatedAt.UTC(),
		UpdatedAt:       w.UpdatedAt.UTC(),
	}
}

func (d workshopDoc) toDomain() domain.Workshop {
	var sched *time.Time
	if d.ScheduledDate != nil {
		t := d.ScheduledDate.UTC()
		sched = &t
	}
	return domain.Workshop{
		ID:              d.ID,
		Title:           d.Title,
		Description:     d.Description,
		Topic:           d.Topic,
		Objectives:      datatypes.NewJSONSlice(d.Objectives),
		LinkedSurveyIDs: datatypes.NewJSONSlice(d.LinkedSurveyIDs),
		TargetAudience:  datatypes.NewJSONType(d.TargetAudience),
		ExpectedSize:    d.ExpectedSize,
		ScheduledDate:   sched,
		Duration:        d.Duration,
		Location:        d.Location,
		Status:          domain.WorkshopStatus(d.Status),
		CreatedBy:       d.CreatedBy,
		Version:         d.Version,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	Role         string    `bson:"role"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

func (d userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		Role:         domain.Role(d.Role),
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type auditDoc struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"userId"`
	UserEmail  string    `bson:"userEmail,omitempty"`
	Action     string    `bson:"action"`
	Entity     string    `bson:"entity"`
	EntityID   string    `bson:"entityId"`
	EntityName string    `bson:"entityName,omitempty"`
	Changes    string    `bson:"changes,omitempty"`
	Timestamp  time.Time `bson:"timestamp"`
	IPAddress  string    `bson:"ipAddress,omitempty"`
	UserAgent  string    `bson:"userAgent,omitempty"`
}

func (d auditDoc) toDomain() domain.AuditLog {
	l := domain.AuditLog{
		ID:         d.ID,
		UserID:     d.UserID,
		UserEmail:  d.UserEmail,
		Action:     domain.AuditAction(d.Action),
		Entity:     domain.AuditEntity(d.Entity),
		EntityID:   d.EntityID,
		EntityName: d.EntityName,
		Timestamp:  d.Timestamp.UTC(),
		IPAddress:  d.IPAddress,
		UserAgent:  d.UserAgent,
	}
	if d.Changes != "" {
		l.Changes = datatypes.JSON(d.Changes)
	}
	return l
}

type idempotencyDoc struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"userId"`
	Scope      string    `bson:"scope"`
	Key        string    `bson:"key"`
	ResourceID string    `bson:"resourceId"`
	Status     int       `bson:"status"`
	CreatedAt  time.Time `bson:"createdAt"`
	ExpiresAt  time.Time `bson:"expiresAt"`
}

func (d idempotencyDoc) toDomain() *domain.Idempotency {
	return &domain.Idempotency{
		ID:         d.ID,
		UserID:     d.UserID,
		Scope:      d.Scope,
		Key:        d.Key,
		ResourceID: d.ResourceID,
		Status:     d.Status,
		CreatedAt:  d.CreatedAt.UTC(),
		ExpiresAt:  d.ExpiresAt.UTC(),
	}
}
