package mongostore

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/datatypes"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

func TestSurveyDoc_RoundTrip(t *testing.T) {
	tpl := "t1"
	in := &domain.Survey{
		ID:             "s1",
		Title:          "Pulse",
		Purpose:        "p",
		TargetAudience: datatypes.NewJSONType(domain.TargetAudience{Roles: []string{"dev"}}),
		OpenDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CloseDate:      time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Questions: datatypes.NewJSONSlice([]domain.Question{
			{ID: "q1", Type: domain.QuestionMultipleChoice, Text: "Pick", Options: []string{"A", "B"}, Required: true},
		}),
		Status:     domain.SurveyPublished,
		CreatedBy:  "u1",
		TemplateID: &tpl,
		Version:    3,
	}

	raw, err := bson.Marshal(toSurveyDoc(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var d surveyDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out := d.toDomain()

	if out.ID != "s1" || out.Status != domain.SurveyPublished || out.Version != 3 || *out.TemplateID != "t1" {
		t.Fatalf("scalar fields lost: %+v", out)
	}
	if len(out.Questions) != 1 || out.Questions[0].Options[1] != "B" || !out.Questions[0].Required {
		t.Fatalf("questions lost: %+v", out.Questions)
	}
	if out.TargetAudience.Data().Roles[0] != "dev" {
		t.Fatalf("audience lost: %+v", out.TargetAudience.Data())
	}
	if !out.CloseDate.Equal(in.CloseDate) {
		t.Fatalf("close date mismatch: %v", out.CloseDate)
	}
}

func TestResponseDoc_AnswerValuesSurviveBSON(t *testing.T) {
	key := "user:u1"
	in := &domain.Response{
		ID:          "r1",
		SurveyID:    "s1",
		UserID:      "u1",
		DedupeKey:   &key,
		SubmittedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Answers: datatypes.NewJSONSlice([]domain.Answer{
			{QuestionID: "q1", Value: domain.NumberValue(4)},
			{QuestionID: "q2", Value: domain.TextValue("great")},
			{QuestionID: "q3", Value: domain.ListValue("A", "C")},
			{QuestionID: "q4"},
		}),
	}

	raw, err := bson.Marshal(toResponseDoc(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var d responseDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out := d.toDomain()

	if n, ok := out.Answers[0].Value.Number(); !ok || n != 4 {
		t.Fatalf("number answer lost: %+v", out.Answers[0])
	}
	if s, ok := out.Answers[1].Value.Text(); !ok || s != "great" {
		t.Fatalf("text answer lost: %+v", out.Answers[1])
	}
	if l, ok := out.Answers[2].Value.List(); !ok || len(l) != 2 || l[1] != "C" {
		t.Fatalf("list answer lost: %+v", out.Answers[2])
	}
	if !out.Answers[3].Value.IsEmpty() {
		t.Fatalf("null answer should stay empty: %+v", out.Answers[3])
	}
	if out.DedupeKey == nil || *out.DedupeKey != key {
		t.Fatalf("dedupe key lost")
	}
}

func TestPlain_ConvertsDriverContainers(t *testing.T) {
	got := plain(primitive.A{"x", primitive.D{{Key: "k", Value: primitive.A{"y"}}}})
	arr, ok := got.([]any)
	if !ok || len(arr) != 2 || arr[0] != "x" {
		t.Fatalf("unexpected: %#v", got)
	}
	m, ok := arr[1].(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %#v", arr[1])
	}
	if inner, ok := m["k"].([]any); !ok || inner[0] != "y" {
		t.Fatalf("nested array not converted: %#v", m["k"])
	}
}

func TestIndexSpec_UniqueIndexes(t *testing.T) {
	spec := indexSpec()
	var found bool
	for _, m := range spec[colResponses] {
		if m.Options != nil && m.Options.Unique != nil && *m.Options.Unique {
			found = true
			if m.Options.PartialFilterExpression == nil {
				t.Fatalf("dedupe index must be partial")
			}
		}
	}
	if !found {
		t.Fatalf("missing unique dedupe index on responses")
	}
	if len(spec[colUsers]) != 1 || !*spec[colUsers][0].Options.Unique {
		t.Fatalf("users.email must be unique")
	}
}
