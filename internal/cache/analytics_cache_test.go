package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-survey-backend/internal/analytics"
	"github.com/tbourn/go-survey-backend/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) (AnalyticsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAnalyticsCache(client, ttl), mr
}

func sampleReport() *analytics.SurveyAnalytics {
	open := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	survey := &domain.Survey{
		ID:        "s1",
		Status:    domain.SurveyPublished,
		OpenDate:  open,
		CloseDate: open.Add(30 * 24 * time.Hour),
	}
	survey.Questions = append(survey.Questions,
		domain.Question{ID: "q1", Type: domain.QuestionMultipleChoice, Text: "Pick", Options: []string{"B", "A"}},
		domain.Question{ID: "q2", Type: domain.QuestionRatingScale, Text: "Rate"},
	)
	r := domain.Response{ID: "r1", SurveyID: "s1", SubmittedAt: open.Add(time.Hour)}
	r.Answers = append(r.Answers,
		domain.Answer{QuestionID: "q1", Value: domain.TextValue("A")},
		domain.Answer{QuestionID: "q2", Value: domain.NumberValue(2)},
	)
	return analytics.Build(survey, []domain.Response{r}, 50, open.Add(2*time.Hour))
}

func TestAnalyticsCache_MissSetHitInvalidate(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	got, err := c.Get(ctx, "s1")
	if err != nil || got != nil {
		t.Fatalf("expected miss, got %v %v", got, err)
	}

	want := sampleReport()
	if err := c.Set(ctx, want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("survey:s1:analytics") {
		t.Fatalf("expected key survey:s1:analytics")
	}
	if ttl := mr.TTL("survey:s1:analytics"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}

	got, err = c.Get(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %v %v", got, err)
	}
	if got.TotalResponses != 1 || got.ResponseRate != want.ResponseRate || !got.GeneratedAt.Equal(want.GeneratedAt) {
		t.Fatalf("report mismatch: %+v", got)
	}
	oc := got.QuestionStatistics[0].OptionCounts
	if oc == nil || oc.Keys()[0] != "B" {
		t.Fatalf("option order lost through cache: %+v", oc)
	}
	if got.QuestionStatistics[1].RatingDistribution[2] != 1 {
		t.Fatalf("rating distribution lost: %+v", got.QuestionStatistics[1].RatingDistribution)
	}

	if err := c.Invalidate(ctx, "s1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if got, _ := c.Get(ctx, "s1"); got != nil {
		t.Fatalf("expected miss after invalidate")
	}
	if gen, err := c.Generation(ctx, "s1"); err != nil || gen != 1 {
		t.Fatalf("generation after invalidate = %d %v; want 1", gen, err)
	}
}

func TestAnalyticsCache_SetRejectsStaleGeneration(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, "s1")
	if err != nil || gen != 0 {
		t.Fatalf("initial generation = %d %v", gen, err)
	}

	// a write lands while the report is being computed
	if err := c.Invalidate(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, sampleReport(), gen); !errors.Is(err, ErrStale) {
		t.Fatalf("Set with old generation: err = %v; want ErrStale", err)
	}
	if mr.Exists(Key("s1")) {
		t.Fatalf("stale report must not be stored")
	}

	gen, _ = c.Generation(ctx, "s1")
	if err := c.Set(ctx, sampleReport(), gen); err != nil {
		t.Fatalf("Set with current generation: %v", err)
	}
	if got, _ := c.Get(ctx, "s1"); got == nil {
		t.Fatalf("expected hit after a current Set")
	}
}

func TestAnalyticsCache_ExpiresAfterTTL(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()
	if err := c.Set(ctx, sampleReport(), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(DefaultTTL + time.Second)
	if got, _ := c.Get(ctx, "s1"); got != nil {
		t.Fatalf("expected entry to expire after default ttl")
	}
}

func TestAnalyticsCache_CorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	_ = mr.Set(Key("s1"), "{not json")
	if _, err := c.Get(context.Background(), "s1"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := Connect(context.Background(), addr, "", 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	_ = client.Close()

	mr.Close()
	if _, err := Connect(context.Background(), addr, "", 0); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestNop(t *testing.T) {
	var c AnalyticsCache = Nop{}
	if r, err := c.Get(context.Background(), "x"); r != nil || err != nil {
		t.Fatalf("Nop should always miss")
	}
	if err := c.Set(context.Background(), sampleReport(), 7); err != nil {
		t.Fatalf("Nop Set: %v", err)
	}
}
