package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

type memSource struct {
	surveys   map[string]*domain.Survey
	responses map[string][]domain.Response
	err       error
}

func (m *memSource) GetSurvey(_ context.Context, id string) (*domain.Survey, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.surveys[id], nil
}

func (m *memSource) ListResponsesBySurvey(_ context.Context, id string) ([]domain.Response, error) {
	return m.responses[id], nil
}

func fixedClock() time.Time { return t0 }

func TestCalculate_NotFound(t *testing.T) {
	a := NewAggregator(&memSource{})
	if _, err := a.Calculate(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCalculate_PropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	a := NewAggregator(&memSource{err: boom})
	if _, err := a.Calculate(context.Background(), "s1"); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}

func TestCalculate_NoResponses(t *testing.T) {
	s := openSurvey(
		domain.Question{ID: "q1", Type: domain.QuestionMultipleChoice, Options: []string{"a", "b"}},
		domain.Question{ID: "q2", Type: domain.QuestionRatingScale},
		domain.Question{ID: "q3", Type: domain.QuestionShortText},
	)
	src := &memSource{surveys: map[string]*domain.Survey{"s1": s}}
	rep, err := NewAggregator(src, WithClock(fixedClock)).Calculate(context.Background(), "s1")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if rep.TotalResponses != 0 || rep.CompletionRate != 0 || rep.ResponseRate != 0 {
		t.Fatalf("unexpected totals %+v", rep)
	}
	if len(rep.Insights) != 0 || rep.Insights == nil {
		t.Fatalf("insights must be an empty list: %#v", rep.Insights)
	}
	if len(rep.QuestionStatistics) != 3 {
		t.Fatalf("want one statistic per question, got %d", len(rep.QuestionStatistics))
	}
	for i, id := range []string{"q1", "q2", "q3"} {
		if rep.QuestionStatistics[i].QuestionID != id || rep.QuestionStatistics[i].TotalResponses != 0 {
			t.Fatalf("stat %d = %+v", i, rep.QuestionStatistics[i])
		}
	}
	if !rep.GeneratedAt.Equal(t0) {
		t.Fatalf("generatedAt = %v", rep.GeneratedAt)
	}
	b, _ := json.Marshal(rep)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if ins, ok := m["insights"].([]any); !ok || len(ins) != 0 {
		t.Fatalf("insights must serialize as [], got %s", b)
	}
}

func TestBuild_CompletionRate(t *testing.T) {
	s := openSurvey(
		domain.Question{ID: "req", Type: domain.QuestionShortText, Required: true},
		domain.Question{ID: "opt", Type: domain.QuestionShortText},
	)
	rs := []domain.Response{
		resp("r1", ans("req", domain.TextValue("yes"))),
		resp("r2", ans("opt", domain.TextValue("only optional"))),
	}
	rep := Build(s, rs, 0, t0)
	if rep.CompletionRate != 50 {
		t.Fatalf("completionRate = %d", rep.CompletionRate)
	}
	if rep.ResponseRate != 4 { // 2 of 50
		t.Fatalf("responseRate = %d", rep.ResponseRate)
	}
}

func TestBuild_ResponseRateCapsAt100(t *testing.T) {
	s := openSurvey(domain.Question{ID: "q", Type: domain.QuestionRatingScale})
	rep := Build(s, ratings("q", 5, 5, 5), 2, t0)
	if rep.ResponseRate != 100 {
		t.Fatalf("responseRate = %d", rep.ResponseRate)
	}
	if rep.CompletionRate != 100 {
		t.Fatalf("no required questions means every response is complete, got %d", rep.CompletionRate)
	}
}

func TestBuild_Trends(t *testing.T) {
	s := openSurvey(
		domain.Question{ID: "r", Type: domain.QuestionRatingScale},
		domain.Question{ID: "t", Type: domain.QuestionShortText},
	)
	day2 := t0.Add(24 * time.Hour)
	rs := []domain.Response{
		resp("a", ans("r", domain.NumberValue(4)), ans("t", domain.TextValue("x"))),
		resp("b", ans("r", domain.NumberValue(5))),
		{ID: "c", SurveyID: "s1", SubmittedAt: day2},
		{ID: "d", SurveyID: "s1", SubmittedAt: t0.Add(-48 * time.Hour)},
	}
	rep := Build(s, rs, 50, t0)
	if len(rep.Trends) != 3 {
		t.Fatalf("trends = %+v", rep.Trends)
	}
	if rep.Trends[0].Date != "2025-03-08" || rep.Trends[1].Date != "2025-03-10" || rep.Trends[2].Date != "2025-03-11" {
		t.Fatalf("trend dates = %+v", rep.Trends)
	}
	mid := rep.Trends[1]
	if mid.Responses != 2 || mid.AverageRating == nil || *mid.AverageRating != 4.5 {
		t.Fatalf("mid trend = %+v", mid)
	}
	if rep.Trends[2].AverageRating != nil {
		t.Fatalf("day without ratings must have no average")
	}
}

func TestWithAudienceSize(t *testing.T) {
	a := NewAggregator(&memSource{}, WithAudienceSize(200))
	if a.AudienceSize() != 200 {
		t.Fatalf("audience = %d", a.AudienceSize())
	}
	if NewAggregator(&memSource{}, WithAudienceSize(-1)).AudienceSize() != DefaultAudienceSize {
		t.Fatalf("non-positive size must be ignored")
	}
}
