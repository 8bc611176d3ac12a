package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// CreateTemplate inserts t, assigning a UUID when t.ID is empty.
func CreateTemplate(ctx context.Context, db *gorm.DB, t *domain.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	return db.WithContext(ctx).Create(t).Error
}

// GetTemplate fetches a template by id, or ErrNotFound.
func GetTemplate(ctx context.Context, db *gorm.DB, id string) (*domain.Template, error) {
	var t domain.Template
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTemplates returns templates, most used first, optionally filtered by
// category.
func ListTemplates(ctx context.Context, db *gorm.DB, category string) ([]domain.Template, error) {
	out := []domain.Template{}
	q := db.WithContext(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Order("usage_count desc, created_at desc").Find(&out).Error
	return out, err
}

// DeleteTemplate removes the template with id.
func DeleteTemplate(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Template{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTemplateUsage atomically bumps usage_count by one.
func IncrementTemplateUsage(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Template{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
