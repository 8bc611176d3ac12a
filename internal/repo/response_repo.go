package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// CreateResponse inserts r. A second response with the same
// (survey_id, dedupe_key) yields ErrDuplicate.
func CreateResponse(ctx context.Context, db *gorm.DB, r *domain.Response) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Omit("Survey").Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetResponse fetches a response by id, or ErrNotFound.
func GetResponse(ctx context.Context, db *gorm.DB, id string) (*domain.Response, error) {
	var r domain.Response
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResponsesBySurvey returns every response to surveyID in submission
// order.
func ListResponsesBySurvey(ctx context.Context, db *gorm.DB, surveyID string) ([]domain.Response, error) {
	out := []domain.Response{}
	err := db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		Order("submitted_at asc, id asc").
		Find(&out).Error
	return out, err
}

// DeleteResponse removes the response with id permanently, releasing its
// dedupe key.
func DeleteResponse(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Response{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
