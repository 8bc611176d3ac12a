package analytics

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// QuestionStatistics summarizes every answer given to one question. Only the
// payload matching QuestionType is set.
type QuestionStatistics struct {
	QuestionID     string              `json:"questionId"`
	QuestionText   string              `json:"questionText"`
	QuestionType   domain.QuestionType `json:"questionType"`
	TotalResponses int                 `json:"totalResponses"`
	// ResponseRate is 100 when the question has at least one answer, else 0.
	ResponseRate int `json:"responseRate"`

	OptionCounts       *OptionCounts `json:"optionCounts,omitempty"`
	AverageRating      *float64      `json:"averageRating,omitempty"`
	RatingDistribution map[int]int   `json:"ratingDistribution,omitempty"`
	TextResponses      []string      `json:"textResponses,omitempty"`
}

// MarshalJSON always writes textResponses for text questions, as [] when
// nothing was answered, and never for other types.
func (s QuestionStatistics) MarshalJSON() ([]byte, error) {
	type plain QuestionStatistics
	if !s.QuestionType.IsText() {
		return json.Marshal(plain(s))
	}
	texts := s.TextResponses
	if texts == nil {
		texts = []string{}
	}
	return json.Marshal(struct {
		plain
		TextResponses []string `json:"textResponses"`
	}{plain(s), texts})
}

// QuestionStats reduces responses to the statistics of q. Malformed answers
// (wrong shape, unmatched option, out-of-range rating) are skipped; the
// function never fails.
func QuestionStats(q domain.Question, responses []domain.Response) QuestionStatistics {
	answers := make([]domain.AnswerValue, 0, len(responses))
	for i := range responses {
		if a, ok := responses[i].Answer(q.ID); ok && !a.Value.IsEmpty() {
			answers = append(answers, a.Value)
		}
	}

	st := QuestionStatistics{
		QuestionID:     q.ID,
		QuestionText:   q.Text,
		QuestionType:   q.Type,
		TotalResponses: len(answers),
	}
	if st.TotalResponses > 0 {
		st.ResponseRate = 100
	}

	switch {
	case q.Type == domain.QuestionMultipleChoice:
		oc := newOptionCounts(q.Options)
		for _, v := range answers {
			if choice, ok := v.Choice(); ok {
				oc.inc(choice)
			}
		}
		st.OptionCounts = oc

	case q.Type == domain.QuestionRatingScale:
		dist := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
		var ratings []float64
		for _, v := range answers {
			n, ok := v.Number()
			if !ok || n <= 0 || math.IsNaN(n) || math.IsInf(n, 0) {
				continue
			}
			ratings = append(ratings, n)
			if n >= 1 && n <= 5 && n == math.Trunc(n) {
				dist[int(n)]++
			}
		}
		if len(ratings) > 0 {
			avg := mean1(ratings)
			st.AverageRating = &avg
		}
		st.RatingDistribution = dist

	case q.Type.IsText():
		texts := make([]string, 0, len(answers))
		for _, v := range answers {
			if s, ok := v.Text(); ok {
				if s = strings.TrimSpace(s); s != "" {
					texts = append(texts, s)
				}
			}
		}
		st.TextResponses = texts
	}

	return st
}
