package analytics

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func openSurvey(qs ...domain.Question) *domain.Survey {
	return &domain.Survey{
		ID:        "s1",
		Title:     "Onboarding",
		Status:    domain.SurveyPublished,
		OpenDate:  t0.Add(-24 * time.Hour),
		CloseDate: t0.Add(24 * time.Hour),
		Questions: datatypes.JSONSlice[domain.Question](qs),
	}
}

func resp(id string, answers ...domain.Answer) domain.Response {
	return domain.Response{ID: id, SurveyID: "s1", SubmittedAt: t0, Answers: datatypes.JSONSlice[domain.Answer](answers)}
}

func ans(q string, v domain.AnswerValue) domain.Answer { return domain.Answer{QuestionID: q, Value: v} }

func ratings(q string, vals ...float64) []domain.Response {
	out := make([]domain.Response, 0, len(vals))
	for i, v := range vals {
		out = append(out, resp(fmt.Sprintf("r%d", i), ans(q, domain.NumberValue(v))))
	}
	return out
}

func texts(q string, vals ...string) []domain.Response {
	out := make([]domain.Response, 0, len(vals))
	for i, v := range vals {
		out = append(out, resp(fmt.Sprintf("r%d", i), ans(q, domain.TextValue(v))))
	}
	return out
}
