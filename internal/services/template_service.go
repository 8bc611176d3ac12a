package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// TemplateInput carries the fields of a new template.
type TemplateInput struct {
	Name           string
	Description    string
	Category       domain.TemplateCategory
	Questions      []domain.Question
	TargetAudience domain.TargetAudience
}

// TemplateService manages reusable survey templates.
type TemplateService struct {
	Templates TemplateStore
	Audit     *AuditService
}

// List returns templates, most used first, optionally filtered by category.
func (s *TemplateService) List(ctx context.Context, category domain.TemplateCategory) ([]domain.Template, error) {
	tr := otel.Tracer("services/TemplateService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("template.category", string(category))))
	defer span.End()

	if category != "" && !category.Valid() {
		return nil, invalid("category", "unknown category %q", category)
	}
	return s.Templates.ListTemplates(ctx, string(category))
}

// Get returns one template, or ErrTemplateNotFound.
func (s *TemplateService) Get(ctx context.Context, id string) (*domain.Template, error) {
	t, err := s.Templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrTemplateNotFound)
	}
	return t, nil
}

// Create validates in and stores a template owned by actor.
func (s *TemplateService) Create(ctx context.Context, actor Actor, in TemplateInput) (*domain.Template, error) {
	tr := otel.Tracer("services/TemplateService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(attribute.String("user.id", actor.UserID)))
	defer span.End()

	name, err := validateTitle("name", in.Name)
	if err != nil {
		return nil, err
	}
	if !in.Category.Valid() {
		return nil, invalid("category", "unknown category %q", in.Category)
	}
	qs, err := normalizeQuestions(in.Questions)
	if err != nil {
		return nil, err
	}

	t := &domain.Template{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		Category:       in.Category,
		Questions:      qs,
		TargetAudience: datatypes.NewJSONType(in.TargetAudience),
		CreatedBy:      actor.UserID,
	}
	if err := s.Templates.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	s.Audit.Log(ctx, actor, domain.ActionCreate, domain.EntityTemplate, t.ID, t.Name, nil)
	return t, nil
}

// Delete removes a template. Surveys created from it keep their questions.
func (s *TemplateService) Delete(ctx context.Context, actor Actor, id string) error {
	tr := otel.Tracer("services/TemplateService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("template.id", id)))
	defer span.End()

	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Templates.DeleteTemplate(ctx, id); err != nil {
		return mapNotFound(err, ErrTemplateNotFound)
	}
	s.Audit.Log(ctx, actor, domain.ActionDelete, domain.EntityTemplate, id, t.Name, nil)
	return nil
}

// IncrementUsage bumps the usage counter of a template.
func (s *TemplateService) IncrementUsage(ctx context.Context, id string) error {
	return mapNotFound(s.Templates.IncrementTemplateUsage(ctx, id), ErrTemplateNotFound)
}
