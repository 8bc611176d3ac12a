package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedSurvey(t *testing.T, db *gorm.DB, id string, status domain.SurveyStatus, updated time.Time) {
	t.Helper()
	s := &domain.Survey{
		ID:        id,
		Title:     "survey " + id,
		Purpose:   "p",
		OpenDate:  updated,
		CloseDate: updated.Add(24 * time.Hour),
		Status:    status,
		CreatedBy: "u1",
		CreatedAt: updated,
		UpdatedAt: updated,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed survey %s: %v", id, err)
	}
}

func TestSurveysStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t)
	if _, _, err := SurveysStats(context.Background(), db, ""); err == nil {
		t.Fatalf("expected error due to missing surveys table")
	}
}

func TestSurveysStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Survey{})
	count, maxAt, err := SurveysStats(context.Background(), db, "")
	if err != nil {
		t.Fatalf("SurveysStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestSurveysStats_StatusFilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Survey{})

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	seedSurvey(t, db, "s1", domain.SurveyPublished, t1)
	seedSurvey(t, db, "s2", domain.SurveyPublished, t2)
	seedSurvey(t, db, "s3", domain.SurveyDraft, t3)

	count, maxAt, err := SurveysStats(context.Background(), db, string(domain.SurveyPublished))
	if err != nil {
		t.Fatalf("SurveysStats error: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected (2, %v), got (%d, %v)", t2, count, maxAt)
	}

	count, maxAt, err = SurveysStats(context.Background(), db, "")
	if err != nil {
		t.Fatalf("SurveysStats error: %v", err)
	}
	if count != 3 || maxAt == nil || !maxAt.Equal(t3) {
		t.Fatalf("expected (3, %v), got (%d, %v)", t3, count, maxAt)
	}
}

// Force the second query (SELECT updated_at ...) to fail by renaming the column.
func TestSurveysStats_SelectLatest_ErrorPath(t *testing.T) {
	db := newTestDB(t, &domain.Survey{})
	seedSurvey(t, db, "sx", domain.SurveyDraft, time.Now().UTC())

	if err := db.Exec(`ALTER TABLE surveys RENAME COLUMN updated_at TO updated_at_old`).Error; err != nil {
		t.Fatalf("rename column: %v", err)
	}
	if _, _, err := SurveysStats(context.Background(), db, ""); err == nil {
		t.Fatalf("expected error from latest-updated select after column rename")
	}
}

func TestResponsesStats_ZeroRowsAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Survey{}, &domain.Response{})
	ctx := context.Background()

	count, maxAt, err := ResponsesStats(ctx, db, "s1")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil, nil), got (%d, %v, %v)", count, maxAt, err)
	}

	base := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	seedSurvey(t, db, "s1", domain.SurveyPublished, base)
	seedSurvey(t, db, "s2", domain.SurveyPublished, base)
	for i, sid := range []string{"s1", "s1", "s2"} {
		r := &domain.Response{SurveyID: sid, SubmittedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := CreateResponse(ctx, db, r); err != nil {
			t.Fatalf("seed response %d: %v", i, err)
		}
	}

	count, maxAt, err = ResponsesStats(ctx, db, "s1")
	if err != nil {
		t.Fatalf("ResponsesStats error: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected stats (%d, %v)", count, maxAt)
	}
}
