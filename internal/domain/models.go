// Package domain defines the persistence models for surveys, responses,
// templates, workshops, users and audit entries. These types are mapped with
// GORM (nested values are stored as JSON columns via gorm.io/datatypes) and
// are shared by the analytics core, the stores and the HTTP layer.
package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TargetAudience narrows who a survey or workshop is meant for.
type TargetAudience struct {
	Teams       []string `json:"teams,omitempty"`
	Departments []string `json:"departments,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Locations   []string `json:"locations,omitempty"`
}

// Question is one prompt of a survey. Options is only meaningful for
// multiple_choice questions; its order is the declaration order used by
// analytics.
type Question struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
	Options  []string     `json:"options,omitempty"`
	Required bool         `json:"required"`
	Order    int          `json:"order"`
}

// Survey is a questionnaire with a publication status and an open window.
//
// Fields:
//   - Questions: ordered question list; ids are unique within the survey.
//   - OpenDate / CloseDate: inclusive window during which responses are accepted.
//   - Status: draft, published or closed.
//   - Version: incremented on every edit.
//   - DeletedAt: soft deletion marker.
type Survey struct {
	ID             string                             `json:"id"             gorm:"type:char(36);primaryKey"`
	Title          string                             `json:"title"          gorm:"type:varchar(255);not null"`
	Purpose        string                             `json:"purpose"        gorm:"type:text;not null"`
	TargetAudience datatypes.JSONType[TargetAudience] `json:"targetAudience" gorm:"type:text"`
	OpenDate       time.Time                          `json:"openDate"       gorm:"not null"`
	CloseDate      time.Time                          `json:"closeDate"      gorm:"not null"`
	Questions      datatypes.JSONSlice[Question]      `json:"questions"      gorm:"type:text"`
	Status         SurveyStatus                       `json:"status"         gorm:"type:varchar(16);not null;default:'draft';index:idx_survey_status"`
	CreatedBy      string                             `json:"createdBy"      gorm:"type:varchar(64);not null;index"`
	TemplateID     *string                            `json:"templateId,omitempty" gorm:"type:char(36)"`
	Version        int                                `json:"version"        gorm:"not null;default:1"`
	CreatedAt      time.Time                          `json:"createdAt"`
	UpdatedAt      time.Time                          `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt                     `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Survey.
func (Survey) TableName() string { return "surveys" }

// RequiredQuestionIDs returns the ids of questions flagged as required, in
// declaration order.
func (s *Survey) RequiredQuestionIDs() []string {
	var out []string
	for _, q := range s.Questions {
		if q.Required {
			out = append(out, q.ID)
		}
	}
	return out
}

// HasQuestion reports whether id names one of the survey's questions.
func (s *Survey) HasQuestion(id string) bool {
	for _, q := range s.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Answer is the value a respondent gave to one question.
type Answer struct {
	QuestionID string      `json:"questionId"`
	Value      AnswerValue `json:"value"`
}

// Response is one submission to a survey. Responses are immutable once
// stored.
//
// DedupeKey backs the per-survey uniqueness of respondents at the storage
// layer: "user:<id>" for identified submissions, "email:<address>" for
// anonymous submissions that carry an email, NULL otherwise.
type Response struct {
	ID              string                      `json:"id"                        gorm:"type:char(36);primaryKey"`
	SurveyID        string                      `json:"surveyId"                  gorm:"type:char(36);not null;index:idx_survey_responses,priority:1;uniqueIndex:ux_response_dedupe,priority:1"`
	UserID          string                      `json:"userId,omitempty"          gorm:"type:varchar(64);index"`
	Anonymous       bool                        `json:"anonymous"                 gorm:"not null;default:false"`
	RespondentName  string                      `json:"respondentName,omitempty"  gorm:"type:varchar(255)"`
	RespondentEmail string                      `json:"respondentEmail,omitempty" gorm:"type:varchar(255)"`
	DedupeKey       *string                     `json:"-"                         gorm:"type:varchar(320);uniqueIndex:ux_response_dedupe,priority:2"`
	SubmittedAt     time.Time                   `json:"submittedAt"               gorm:"not null;index:idx_survey_responses,priority:2"`
	Answers         datatypes.JSONSlice[Answer] `json:"answers"                   gorm:"type:text"`

	// Survey is the parent survey. Responses are cascade-deleted with it.
	Survey Survey `json:"-" gorm:"foreignKey:SurveyID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Response.
func (Response) TableName() string { return "responses" }

// Answer returns the answer given to questionID and whether one exists.
func (r *Response) Answer(questionID string) (Answer, bool) {
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// DedupeKeyFor derives the storage-level uniqueness key of a submission.
func DedupeKeyFor(anonymous bool, userID, email string) *string {
	var k string
	switch {
	case !anonymous && userID != "":
		k = "user:" + userID
	case anonymous && strings.TrimSpace(email) != "":
		k = "email:" + strings.ToLower(strings.TrimSpace(email))
	default:
		return nil
	}
	return &k
}

// Template is a reusable question set from which surveys are created.
type Template struct {
	ID             string                             `json:"id"             gorm:"type:char(36);primaryKey"`
	Name           string                             `json:"name"           gorm:"type:varchar(255);not null"`
	Description    string                             `json:"description"    gorm:"type:text"`
	Category       TemplateCategory                   `json:"category"       gorm:"type:varchar(32);not null;index"`
	Questions      datatypes.JSONSlice[Question]      `json:"questions"      gorm:"type:text"`
	TargetAudience datatypes.JSONType[TargetAudience] `json:"targetAudience" gorm:"type:text"`
	UsageCount     int                                `json:"usageCount"     gorm:"not null;default:0"`
	CreatedBy      string                             `json:"createdBy"      gorm:"type:varchar(64);not null"`
	CreatedAt      time.Time                          `json:"createdAt"`
	UpdatedAt      time.Time                          `json:"updatedAt"`
}

// TableName returns the database table name for Template.
func (Template) TableName() string { return "templates" }

// Objective is one learning goal of a workshop.
type Objective struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
}

// Workshop is a planned session informed by the results of linked surveys.
type Workshop struct {
	ID              string                             `json:"id"              gorm:"type:char(36);primaryKey"`
	Title           string                             `json:"title"           gorm:"type:varchar(255);not null"`
	Description     string                             `json:"description"     gorm:"type:text"`
	Topic           string                             `json:"topic"           gorm:"type:varchar(255)"`
	Objectives      datatypes.JSONSlice[Objective]     `json:"objectives"      gorm:"type:text"`
	LinkedSurveyIDs datatypes.JSONSlice[string]        `json:"linkedSurveyIds" gorm:"type:text"`
	TargetAudience  datatypes.JSONType[TargetAudience] `json:"targetAudience"  gorm:"type:text"`
	ExpectedSize    int                                `json:"expectedSize"    gorm:"not null;default:1"`
	ScheduledDate   *time.Time                         `json:"scheduledDate,omitempty"`
	Duration        int                                `json:"duration"        gorm:"not null;default:60"` // minutes
	Location        string                             `json:"location"        gorm:"type:varchar(255)"`
	Status          WorkshopStatus                     `json:"status"          gorm:"type:varchar(16);not null;default:'draft';index"`
	CreatedBy       string                             `json:"createdBy"       gorm:"type:varchar(64);not null"`
	Version         int                                `json:"version"         gorm:"not null;default:1"`
	CreatedAt       time.Time                          `json:"createdAt"`
	UpdatedAt       time.Time                          `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt                     `json:"-"               gorm:"index"`
}

// TableName returns the database table name for Workshop.
func (Workshop) TableName() string { return "workshops" }

// User is an account that can sign in. PasswordHash is a bcrypt hash and is
// never serialized.
type User struct {
	ID           string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"     gorm:"type:varchar(255);not null;uniqueIndex:ux_user_email"`
	Name         string    `json:"name"      gorm:"type:varchar(255)"`
	Role         Role      `json:"role"      gorm:"type:varchar(16);not null;default:'participant'"`
	PasswordHash string    `json:"-"         gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// AuditLog records who did what to which entity. Entries are append-only.
type AuditLog struct {
	ID         string         `json:"id"                   gorm:"type:char(36);primaryKey"`
	UserID     string         `json:"userId"               gorm:"type:varchar(64);index"`
	UserEmail  string         `json:"userEmail,omitempty"  gorm:"type:varchar(255)"`
	Action     AuditAction    `json:"action"               gorm:"type:varchar(16);not null"`
	Entity     AuditEntity    `json:"entity"               gorm:"type:varchar(16);not null;index:idx_audit_entity,priority:1"`
	EntityID   string         `json:"entityId"             gorm:"type:varchar(64);not null;index:idx_audit_entity,priority:2"`
	EntityName string         `json:"entityName,omitempty" gorm:"type:varchar(255)"`
	Changes    datatypes.JSON `json:"changes,omitempty"    gorm:"type:text"`
	Timestamp  time.Time      `json:"timestamp"            gorm:"not null;index"`
	IPAddress  string         `json:"ipAddress,omitempty"  gorm:"type:varchar(64)"`
	UserAgent  string         `json:"userAgent,omitempty"  gorm:"type:varchar(512)"`
}

// TableName returns the database table name for AuditLog.
func (AuditLog) TableName() string { return "audit_logs" }

// AuditFilter narrows audit log listings. Empty fields match everything.
type AuditFilter struct {
	Entity   AuditEntity
	EntityID string
	UserID   string
}
