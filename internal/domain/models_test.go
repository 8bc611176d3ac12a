package domain

import (
	"encoding/json"
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		Survey{}.TableName():   "surveys",
		Response{}.TableName(): "responses",
		Template{}.TableName(): "templates",
		Workshop{}.TableName(): "workshops",
		User{}.TableName():     "users",
		AuditLog{}.TableName(): "audit_logs",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Survey{}, &Response{}, &Template{}, &Workshop{}, &User{}, &AuditLog{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Response{}, "ux_response_dedupe") {
		t.Fatalf("expected unique index ux_response_dedupe on responses")
	}
	if !m.HasIndex(&User{}, "ux_user_email") {
		t.Fatalf("expected unique index ux_user_email on users")
	}

	now := time.Now().UTC()
	s := &Survey{
		ID: "s1", Title: "T", Purpose: "P", OpenDate: now, CloseDate: now.Add(time.Hour),
		Status: SurveyPublished, CreatedBy: "u1", Version: 1,
		Questions: datatypes.JSONSlice[Question]{{ID: "q1", Type: QuestionShortText, Text: "Why?"}},
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("insert survey: %v", err)
	}

	r1 := &Response{ID: "r1", SurveyID: "s1", UserID: "u1", DedupeKey: DedupeKeyFor(false, "u1", ""), SubmittedAt: now,
		Answers: datatypes.JSONSlice[Answer]{{QuestionID: "q1", Value: TextValue("because")}}}
	if err := db.Create(r1).Error; err != nil {
		t.Fatalf("insert r1: %v", err)
	}
	r2 := &Response{ID: "r2", SurveyID: "s1", UserID: "u1", DedupeKey: DedupeKeyFor(false, "u1", ""), SubmittedAt: now}
	if err := db.Create(r2).Error; err == nil {
		t.Fatalf("expected unique violation for a second response by the same user")
	}

	// Anonymous submissions without an email carry no key and never collide.
	for _, id := range []string{"a1", "a2"} {
		r := &Response{ID: id, SurveyID: "s1", Anonymous: true, SubmittedAt: now}
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	var back Response
	if err := db.First(&back, "id = ?", "r1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if txt, ok := back.Answers[0].Value.Text(); !ok || txt != "because" {
		t.Fatalf("answer did not round-trip: %+v", back.Answers)
	}

	if err := db.Unscoped().Delete(&Survey{}, "id = ?", "s1").Error; err != nil {
		t.Fatalf("delete survey: %v", err)
	}
	var cnt int64
	db.Model(&Response{}).Where("survey_id = ?", "s1").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("expected responses to cascade-delete, got %d", cnt)
	}
}

func TestDedupeKeyFor(t *testing.T) {
	tests := []struct {
		name      string
		anonymous bool
		userID    string
		email     string
		want      string
	}{
		{"named user", false, "u1", "x@y.z", "user:u1"},
		{"anonymous with email", true, "u1", "  Ann@Example.COM ", "email:ann@example.com"},
		{"anonymous without email", true, "", "  ", ""},
		{"named without id", false, "", "a@b.c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupeKeyFor(tt.anonymous, tt.userID, tt.email)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("want nil, got %q", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("want %q, got %v", tt.want, got)
			}
		})
	}
}

func TestSurvey_QuestionHelpers(t *testing.T) {
	s := Survey{Questions: datatypes.JSONSlice[Question]{
		{ID: "a", Required: true}, {ID: "b"}, {ID: "c", Required: true},
	}}
	req := s.RequiredQuestionIDs()
	if len(req) != 2 || req[0] != "a" || req[1] != "c" {
		t.Fatalf("RequiredQuestionIDs = %v", req)
	}
	if !s.HasQuestion("b") || s.HasQuestion("z") {
		t.Fatalf("HasQuestion mismatch")
	}
}

func TestSurvey_JSONShape(t *testing.T) {
	s := Survey{ID: "s1", Status: SurveyDraft, TargetAudience: datatypes.NewJSONType(TargetAudience{Teams: []string{"core"}})}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	for _, k := range []string{"id", "title", "openDate", "closeDate", "questions", "status", "targetAudience"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}
	if _, ok := m["DeletedAt"]; ok {
		t.Fatalf("DeletedAt must not be serialized")
	}
}
