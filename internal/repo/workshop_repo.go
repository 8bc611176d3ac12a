package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// CreateWorkshop inserts w, assigning a UUID when w.ID is empty.
func CreateWorkshop(ctx context.Context, db *gorm.DB, w *domain.Workshop) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	return db.WithContext(ctx).Create(w).Error
}

// GetWorkshop fetches a workshop by id, or ErrNotFound.
func GetWorkshop(ctx context.Context, db *gorm.DB, id string) (*domain.Workshop, error) {
	var w domain.Workshop
	if err := db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkshops returns workshops ordered by scheduled date then creation
// time, optionally filtered by status.
func ListWorkshops(ctx context.Context, db *gorm.DB, status string) ([]domain.Workshop, error) {
	out := []domain.Workshop{}
	q := db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("scheduled_date asc, created_at desc").Find(&out).Error
	return out, err
}

// UpdateWorkshop overwrites every mutable column of w.
func UpdateWorkshop(ctx context.Context, db *gorm.DB, w *domain.Workshop) error {
	w.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Workshop{}).
		Where("id = ?", w.ID).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(w)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWorkshop soft-deletes the workshop with id.
func DeleteWorkshop(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Workshop{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
