// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Survey
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic (status
// transitions, draft-only edits), only persistence and query composition.
//
// Error semantics:
//   - When a survey is not found, functions return ErrNotFound.
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// CreateSurvey inserts s, assigning a UUID when s.ID is empty.
func CreateSurvey(ctx context.Context, db *gorm.DB, s *domain.Survey) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return db.WithContext(ctx).Create(s).Error
}

// GetSurvey fetches a single survey by id, or ErrNotFound.
func GetSurvey(ctx context.Context, db *gorm.DB, id string) (*domain.Survey, error) {
	var s domain.Survey
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSurveys returns the number of surveys, optionally filtered by status.
func CountSurveys(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	var total int64
	err := surveyScope(db.WithContext(ctx).Model(&domain.Survey{}), status).Count(&total).Error
	return total, err
}

// ListSurveysPage returns a page of surveys ordered by creation time
// descending, optionally filtered by status.
func ListSurveysPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.Survey, error) {
	var out []domain.Survey
	err := surveyScope(db.WithContext(ctx), status).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateSurvey overwrites every mutable column of s. It returns ErrNotFound
// when no row matches s.ID.
func UpdateSurvey(ctx context.Context, db *gorm.DB, s *domain.Survey) error {
	s.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Survey{}).
		Where("id = ?", s.ID).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(s)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSurvey soft-deletes the survey with id.
func DeleteSurvey(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Survey{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func surveyScope(q *gorm.DB, status string) *gorm.DB {
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q
}
