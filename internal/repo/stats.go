// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// SurveysStats returns aggregate metadata for the survey listing: the total
// number of rows (optionally restricted to status) and the maximum UpdatedAt
// among those rows.
//
// When no survey matches, the returned count is 0 and maxUpdatedAt is nil.
func SurveysStats(ctx context.Context, db *gorm.DB, status string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := surveyScope(db.WithContext(ctx).Model(&domain.Survey{}), status)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ResponsesStats returns the number of responses to surveyID and the most
// recent SubmittedAt. Responses are immutable, so the submission time plays
// the role of UpdatedAt.
func ResponsesStats(ctx context.Context, db *gorm.DB, surveyID string) (count int64, maxSubmittedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Response{}).Where("survey_id = ?", surveyID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		SubmittedAt time.Time
	}
	if err = q.Select("submitted_at").Order("submitted_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.SubmittedAt, nil
}
