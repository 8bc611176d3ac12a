// Package analytics computes survey reports and decides response eligibility.
//
// Everything in this package is a pure function of a Survey and its
// Responses: there is no logging, no caching and no persistence here. Stores
// are reached through the narrow Source interface so any backend can feed
// the same computation.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// DefaultAudienceSize is the assumed number of invitees used as the
// denominator of SurveyAnalytics.ResponseRate when none is configured.
const DefaultAudienceSize = 50

// Source is the read side of the entity store. GetSurvey returns a nil
// survey and a nil error when no survey has the given id.
type Source interface {
	GetSurvey(ctx context.Context, id string) (*domain.Survey, error)
	ListResponsesBySurvey(ctx context.Context, surveyID string) ([]domain.Response, error)
}

// Trend is the activity of one UTC calendar day.
type Trend struct {
	Date          string   `json:"date"` // YYYY-MM-DD
	Responses     int      `json:"responses"`
	AverageRating *float64 `json:"averageRating,omitempty"`
}

// SurveyAnalytics is the full report for one survey.
type SurveyAnalytics struct {
	SurveyID           string               `json:"surveyId"`
	TotalResponses     int                  `json:"totalResponses"`
	ResponseRate       int                  `json:"responseRate"`
	CompletionRate     int                  `json:"completionRate"`
	QuestionStatistics []QuestionStatistics `json:"questionStatistics"`
	Insights           []Insight            `json:"insights"`
	Trends             []Trend              `json:"trends"`
	GeneratedAt        time.Time            `json:"generatedAt"`
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithAudienceSize sets the ResponseRate denominator. Values <= 0 are ignored.
func WithAudienceSize(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.audienceSize = n
		}
	}
}

// WithClock overrides the time source stamped on reports.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Aggregator loads a survey and its responses from a Source and builds the
// report. It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	src          Source
	audienceSize int
	now          func() time.Time
}

// NewAggregator returns an Aggregator reading from src.
func NewAggregator(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{src: src, audienceSize: DefaultAudienceSize, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// AudienceSize returns the configured ResponseRate denominator.
func (a *Aggregator) AudienceSize() int { return a.audienceSize }

// Calculate returns the report for surveyID, or ErrNotFound when the survey
// does not exist. Store errors are returned unchanged.
func (a *Aggregator) Calculate(ctx context.Context, surveyID string) (*SurveyAnalytics, error) {
	s, err := a.src.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotFound
	}
	rs, err := a.src.ListResponsesBySurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return Build(s, rs, a.audienceSize, a.now().UTC()), nil
}

// Build computes the report of survey over responses. Statistics are produced
// for every question, in question order, even when there are no responses.
func Build(survey *domain.Survey, responses []domain.Response, audienceSize int, generatedAt time.Time) *SurveyAnalytics {
	if audienceSize <= 0 {
		audienceSize = DefaultAudienceSize
	}
	total := len(responses)

	stats := make([]QuestionStatistics, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		stats = append(stats, QuestionStats(q, responses))
	}

	insights := []Insight{}
	if total > 0 {
		insights = ExtractInsights(stats)
	}

	rate := percent(total, audienceSize)
	if rate > 100 {
		rate = 100
	}

	return &SurveyAnalytics{
		SurveyID:           survey.ID,
		TotalResponses:     total,
		ResponseRate:       rate,
		CompletionRate:     completionRate(survey, responses),
		QuestionStatistics: stats,
		Insights:           insights,
		Trends:             dailyTrends(survey, responses),
		GeneratedAt:        generatedAt,
	}
}

// completionRate is the share of responses carrying an answer for every
// required question.
func completionRate(survey *domain.Survey, responses []domain.Response) int {
	if len(responses) == 0 {
		return 0
	}
	required := survey.RequiredQuestionIDs()
	complete := 0
	for i := range responses {
		answered := make(map[string]struct{}, len(responses[i].Answers))
		for _, a := range responses[i].Answers {
			answered[a.QuestionID] = struct{}{}
		}
		ok := true
		for _, id := range required {
			if _, found := answered[id]; !found {
				ok = false
				break
			}
		}
		if ok {
			complete++
		}
	}
	return percent(complete, len(responses))
}

// dailyTrends buckets responses by UTC submission day. The daily average
// covers every positive rating given to a rating_scale question that day.
func dailyTrends(survey *domain.Survey, responses []domain.Response) []Trend {
	ratingQ := map[string]struct{}{}
	for _, q := range survey.Questions {
		if q.Type == domain.QuestionRatingScale {
			ratingQ[q.ID] = struct{}{}
		}
	}

	type bucket struct {
		n       int
		ratings []float64
	}
	days := map[string]*bucket{}
	for i := range responses {
		r := &responses[i]
		d := r.SubmittedAt.UTC().Format("2006-01-02")
		b, ok := days[d]
		if !ok {
			b = &bucket{}
			days[d] = b
		}
		b.n++
		for _, a := range r.Answers {
			if _, isRating := ratingQ[a.QuestionID]; !isRating {
				continue
			}
			if v, ok := a.Value.Number(); ok && v > 0 {
				b.ratings = append(b.ratings, v)
			}
		}
	}

	keys := make([]string, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Strings(keys)

	out := make([]Trend, 0, len(keys))
	for _, d := range keys {
		b := days[d]
		t := Trend{Date: d, Responses: b.n}
		if len(b.ratings) > 0 {
			avg := mean1(b.ratings)
			t.AverageRating = &avg
		}
		out = append(out, t)
	}
	return out
}
