package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// Field limits.
const (
	MaxTitleLen     = 255
	MaxQuestions    = 100
	MaxOptions      = 50
	MaxQuestionText = 1000
)

// normalizeQuestions trims text, assigns missing ids and orders, and checks
// that every question is well formed. The returned slice is a copy.
func normalizeQuestions(in []domain.Question) ([]domain.Question, error) {
	if len(in) == 0 {
		return nil, invalid("questions", "at least one question is required")
	}
	if len(in) > MaxQuestions {
		return nil, invalid("questions", "at most %d questions are allowed", MaxQuestions)
	}

	out := make([]domain.Question, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, q := range in {
		field := fmt.Sprintf("questions[%d]", i)

		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if _, dup := seen[q.ID]; dup {
			return nil, invalid(field+".id", "duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}

		if !q.Type.Valid() {
			return nil, invalid(field+".type", "unknown question type %q", q.Type)
		}
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			return nil, invalid(field+".text", "must not be empty")
		}
		if len(q.Text) > MaxQuestionText {
			return nil, invalid(field+".text", "must be at most %d characters", MaxQuestionText)
		}

		if q.Type == domain.QuestionMultipleChoice {
			opts := make([]string, 0, len(q.Options))
			for _, o := range q.Options {
				if o = strings.TrimSpace(o); o != "" {
					opts = append(opts, o)
				}
			}
			if len(opts) == 0 {
				return nil, invalid(field+".options", "multiple choice questions need options")
			}
			if len(opts) > MaxOptions {
				return nil, invalid(field+".options", "at most %d options are allowed", MaxOptions)
			}
			q.Options = opts
		} else {
			q.Options = nil
		}

		if q.Order <= 0 {
			q.Order = i + 1
		}
		out[i] = q
	}
	return out, nil
}

func validateTitle(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid(field, "must not be empty")
	}
	if len(v) > MaxTitleLen {
		return "", invalid(field, "must be at most %d characters", MaxTitleLen)
	}
	return v, nil
}

func validateWindow(open, close time.Time) error {
	if open.IsZero() || close.IsZero() {
		return invalid("openDate", "open and close dates are required")
	}
	if !close.After(open) {
		return invalid("closeDate", "must be after openDate")
	}
	return nil
}
