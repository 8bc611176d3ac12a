package analytics

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// InsightType classifies an Insight. Trend and suggestion are reserved and
// not produced by the current rules.
type InsightType string

const (
	InsightLowScore       InsightType = "low_score"
	InsightPainPoint      InsightType = "pain_point"
	InsightRequestedTopic InsightType = "requested_topic"
	InsightTrend          InsightType = "trend"
	InsightSuggestion     InsightType = "suggestion"
)

// Severity ranks an Insight.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Insight is a rule-derived observation about one question.
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	QuestionID  string      `json:"questionId,omitempty"`
	Severity    Severity    `json:"severity,omitempty"`
}

var (
	painPointKeywords      = []string{"problem", "issue", "difficult", "challenge", "struggle", "frustrated"}
	requestedTopicKeywords = []string{"need", "want", "would like", "should", "recommend", "suggest"}
)

// ExtractInsights scans stats and returns insights grouped by rule: every
// low_score insight first, then pain_point, then requested_topic, each in
// question order.
func ExtractInsights(stats []QuestionStatistics) []Insight {
	out := make([]Insight, 0)

	for _, s := range stats {
		if s.QuestionType != domain.QuestionRatingScale || s.AverageRating == nil {
			continue
		}
		avg := *s.AverageRating
		if avg >= 3 {
			continue
		}
		sev := SeverityMedium
		if avg < 2 {
			sev = SeverityHigh
		}
		out = append(out, Insight{
			Type:        InsightLowScore,
			Title:       "Low Rating Detected",
			Description: fmt.Sprintf("Question \"%s\" has an average rating of %.1f/5", s.QuestionText, avg),
			QuestionID:  s.QuestionID,
			Severity:    sev,
		})
	}

	for _, s := range stats {
		n := len(s.TextResponses)
		if n == 0 {
			continue
		}
		hits := countMatching(s.TextResponses, painPointKeywords)
		// hits/n > 0.3
		if hits*10 <= n*3 {
			continue
		}
		sev := SeverityMedium
		if hits*2 > n {
			sev = SeverityHigh
		}
		out = append(out, Insight{
			Type:        InsightPainPoint,
			Title:       "Common Pain Point",
			Description: fmt.Sprintf("%d%% of responses mention pain points in \"%s\"", percent(hits, n), s.QuestionText),
			QuestionID:  s.QuestionID,
			Severity:    sev,
		})
	}

	for _, s := range stats {
		n := len(s.TextResponses)
		if n == 0 {
			continue
		}
		hits := countMatching(s.TextResponses, requestedTopicKeywords)
		// hits/n > 0.2
		if hits*5 <= n {
			continue
		}
		out = append(out, Insight{
			Type:        InsightRequestedTopic,
			Title:       "Topic Requests",
			Description: fmt.Sprintf("%d%% of responses request topics in \"%s\"", percent(hits, n), s.QuestionText),
			QuestionID:  s.QuestionID,
			Severity:    SeverityMedium,
		})
	}

	return out
}

// countMatching counts texts whose lower-cased form contains any keyword.
func countMatching(texts, keywords []string) int {
	n := 0
	for _, t := range texts {
		low := strings.ToLower(t)
		for _, k := range keywords {
			if strings.Contains(low, k) {
				n++
				break
			}
		}
	}
	return n
}
