package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"

	"github.com/tbourn/go-survey-backend/internal/analytics"
	"github.com/tbourn/go-survey-backend/internal/cache"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/export"
	"github.com/tbourn/go-survey-backend/internal/repo"
)

func seedResponses(t *testing.T, st *repo.Store, sv *domain.Survey) {
	t.Helper()
	rs := []domain.Response{
		{SurveyID: sv.ID, UserID: "u1", SubmittedAt: fixedNow, Answers: []domain.Answer{
			{QuestionID: "q1", Value: domain.NumberValue(2)},
			{QuestionID: "q3", Value: domain.TextValue("The main problem is the wiki")},
		}},
		{SurveyID: sv.ID, UserID: "u2", SubmittedAt: fixedNow, Answers: []domain.Answer{
			{QuestionID: "q1", Value: domain.NumberValue(3)},
			{QuestionID: "q2", Value: domain.TextValue("Labs")},
		}},
	}
	for i := range rs {
		if err := st.CreateResponse(context.Background(), &rs[i]); err != nil {
			t.Fatalf("seed response: %v", err)
		}
	}
}

func newAnalyticsSvc(t *testing.T, c cache.AnalyticsCache) (*AnalyticsService, *repo.Store) {
	t.Helper()
	st := newTestStore(t)
	s := NewAnalyticsService(st, c, &AuditService{Store: st}, 0)
	s.Now = clock
	return s, st
}

func TestAnalyticsService_Calculate(t *testing.T) {
	s, st := newAnalyticsSvc(t, nil)
	ctx := context.Background()
	sv := seedSurvey(t, st, domain.SurveyPublished)
	seedResponses(t, st, sv)

	report, err := s.Calculate(ctx, sv.ID)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if report.TotalResponses != 2 || report.ResponseRate != 4 || report.CompletionRate != 100 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.QuestionStatistics) != 3 {
		t.Fatalf("stats = %d", len(report.QuestionStatistics))
	}
	if avg := report.QuestionStatistics[0].AverageRating; avg == nil || *avg != 2.5 {
		t.Fatalf("average = %v", avg)
	}
	var low, pain bool
	for _, in := range report.Insights {
		low = low || in.Type == "low_score"
		pain = pain || in.Type == "pain_point"
	}
	if !low || !pain {
		t.Fatalf("insights = %+v", report.Insights)
	}

	if _, err := s.Calculate(ctx, "missing"); !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("expected ErrSurveyNotFound, got %v", err)
	}
}

func TestAnalyticsService_Calculate_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewAnalyticsCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	s, st := newAnalyticsSvc(t, c)
	ctx := context.Background()
	sv := seedSurvey(t, st, domain.SurveyPublished)

	first, err := s.Calculate(ctx, sv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.TotalResponses != 0 || !mr.Exists(cache.Key(sv.ID)) {
		t.Fatalf("report should be cached after a miss")
	}

	// Written behind the service's back: the cached report is served.
	seedResponses(t, st, sv)
	again, err := s.Calculate(ctx, sv.ID)
	if err != nil || again.TotalResponses != 0 {
		t.Fatalf("expected cached report, got %+v %v", again, err)
	}

	// Submissions through the service invalidate it.
	rs := &ResponseService{Surveys: st, Responses: st, Cache: c, Now: clock}
	if _, err := rs.Submit(ctx, alice, SubmitInput{SurveyID: sv.ID}); err != nil {
		t.Fatal(err)
	}
	fresh, err := s.Calculate(ctx, sv.ID)
	if err != nil || fresh.TotalResponses != 3 {
		t.Fatalf("expected fresh report with 3 responses, got %+v %v", fresh, err)
	}
}

// racingResponses runs write once, right after the aggregator has read its
// snapshot of the survey's responses.
type racingResponses struct {
	*repo.Store
	once  sync.Once
	write func()
}

func (r *racingResponses) ListResponsesBySurvey(ctx context.Context, surveyID string) ([]domain.Response, error) {
	rs, err := r.Store.ListResponsesBySurvey(ctx, surveyID)
	r.once.Do(r.write)
	return rs, err
}

func TestAnalyticsService_Calculate_WriteDuringComputeIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewAnalyticsCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	s, st := newAnalyticsSvc(t, c)
	ctx := context.Background()
	sv := seedSurvey(t, st, domain.SurveyPublished)

	submitter := &ResponseService{Surveys: st, Responses: st, Cache: c, Now: clock}
	racing := &racingResponses{Store: st, write: func() {
		if _, err := submitter.Submit(ctx, alice, SubmitInput{SurveyID: sv.ID}); err != nil {
			t.Errorf("submit: %v", err)
		}
	}}
	s.Aggregator = analytics.NewAggregator(NewSource(st, racing))

	first, err := s.Calculate(ctx, sv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.TotalResponses != 0 {
		t.Fatalf("first report should reflect its snapshot, got %d", first.TotalResponses)
	}
	if mr.Exists(cache.Key(sv.ID)) {
		t.Fatalf("report computed before the submission must not be cached")
	}

	again, err := s.Calculate(ctx, sv.ID)
	if err != nil || again.TotalResponses != 1 {
		t.Fatalf("expected 1 response after the submission, got %+v %v", again, err)
	}
	if !mr.Exists(cache.Key(sv.ID)) {
		t.Fatalf("fresh report should be cached")
	}
}

func TestAnalyticsService_Calculate_CacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewAnalyticsCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	s, st := newAnalyticsSvc(t, c)
	sv := seedSurvey(t, st, domain.SurveyPublished)
	mr.Close()

	report, err := s.Calculate(context.Background(), sv.ID)
	if err != nil || report.SurveyID != sv.ID {
		t.Fatalf("cache outage must not fail the request: %+v %v", report, err)
	}
}

func TestAnalyticsService_Export(t *testing.T) {
	s, st := newAnalyticsSvc(t, nil)
	ctx := context.Background()
	sv := seedSurvey(t, st, domain.SurveyPublished)
	seedResponses(t, st, sv)

	t.Run("xlsx", func(t *testing.T) {
		f, err := s.Export(ctx, admin, sv.ID, "")
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if f.ContentType != export.ContentTypeXLSX {
			t.Fatalf("content type = %s", f.ContentType)
		}
		if f.Filename != "survey-results-Onboarding_feedback-2025-03-10.xlsx" {
			t.Fatalf("filename = %s", f.Filename)
		}
		wb, err := excelize.OpenReader(bytes.NewReader(f.Data))
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer wb.Close()
		if got := wb.GetSheetList(); len(got) != 4 {
			t.Fatalf("sheets = %v", got)
		}
	})

	t.Run("csv", func(t *testing.T) {
		f, err := s.Export(ctx, admin, sv.ID, "CSV")
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if f.ContentType != export.ContentTypeCSV || !strings.HasSuffix(f.Filename, ".csv") {
			t.Fatalf("unexpected file: %s %s", f.ContentType, f.Filename)
		}
		rows, err := csv.NewReader(bytes.NewReader(f.Data)).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want header + 2", len(rows))
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := s.Export(ctx, admin, sv.ID, "pdf"); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("missing survey", func(t *testing.T) {
		if _, err := s.Export(ctx, admin, "missing", "csv"); !errors.Is(err, ErrSurveyNotFound) {
			t.Fatalf("expected ErrSurveyNotFound, got %v", err)
		}
	})

	logs := auditEntries(t, st, domain.AuditFilter{EntityID: sv.ID})
	if len(logs) != 2 || logs[0].Action != domain.ActionExport {
		t.Fatalf("export audits = %+v", logs)
	}
}
