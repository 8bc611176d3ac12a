package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/live"
	"github.com/tbourn/go-survey-backend/internal/repo"
)

// ---------- test helpers ----------

func newTestStore(t *testing.T) *repo.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return repo.NewStore(db)
}

var (
	admin     = Actor{UserID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin}
	alice     = Actor{UserID: "alice", Email: "alice@example.com", Role: domain.RoleParticipant}
	bob       = Actor{UserID: "bob", Email: "bob@example.com", Role: domain.RoleParticipant}
	anonymous = Actor{}
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Type: domain.QuestionRatingScale, Text: "How was it?", Required: true},
		{ID: "q2", Type: domain.QuestionMultipleChoice, Text: "Favourite part?", Options: []string{"Talks", "Labs"}},
		{ID: "q3", Type: domain.QuestionLongText, Text: "Anything else?"},
	}
}

// seedSurvey stores a survey with the given status whose window contains
// fixedNow.
func seedSurvey(t *testing.T, st *repo.Store, status domain.SurveyStatus) *domain.Survey {
	t.Helper()
	sv := &domain.Survey{
		Title:     "Onboarding feedback",
		Purpose:   "Improve onboarding",
		OpenDate:  fixedNow.Add(-24 * time.Hour),
		CloseDate: fixedNow.Add(24 * time.Hour),
		Questions: sampleQuestions(),
		Status:    status,
		CreatedBy: admin.UserID,
		Version:   1,
	}
	if err := st.CreateSurvey(context.Background(), sv); err != nil {
		t.Fatalf("seed survey: %v", err)
	}
	return sv
}

type published struct {
	surveyID string
	typ      live.MessageType
	payload  any
}

// recordingPublisher captures live events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(surveyID string, typ live.MessageType, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{surveyID: surveyID, typ: typ, payload: payload})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

func auditEntries(t *testing.T, st *repo.Store, f domain.AuditFilter) []domain.AuditLog {
	t.Helper()
	items, err := st.ListAuditLogsPage(context.Background(), f, 0, 100)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	return items
}
