package domain

// Role is the authorization role carried by a User and its access token.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOrganizer   Role = "organizer"
	RoleParticipant Role = "participant"
	RoleViewer      Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleParticipant, RoleViewer:
		return true
	}
	return false
}

// SurveyStatus is the publication lifecycle of a survey.
type SurveyStatus string

const (
	SurveyDraft     SurveyStatus = "draft"
	SurveyPublished SurveyStatus = "published"
	SurveyClosed    SurveyStatus = "closed"
)

// QuestionType selects how answers to a question are interpreted.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionRatingScale    QuestionType = "rating_scale"
	QuestionShortText      QuestionType = "short_text"
	QuestionLongText       QuestionType = "long_text"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionRatingScale, QuestionShortText, QuestionLongText:
		return true
	}
	return false
}

// IsText reports whether answers to t are free text.
func (t QuestionType) IsText() bool {
	return t == QuestionShortText || t == QuestionLongText
}

// WorkshopStatus is the planning lifecycle of a workshop.
type WorkshopStatus string

const (
	WorkshopDraft      WorkshopStatus = "draft"
	WorkshopPlanned    WorkshopStatus = "planned"
	WorkshopScheduled  WorkshopStatus = "scheduled"
	WorkshopInProgress WorkshopStatus = "in_progress"
	WorkshopCompleted  WorkshopStatus = "completed"
	WorkshopCancelled  WorkshopStatus = "cancelled"
)

// Valid reports whether s is a known workshop status.
func (s WorkshopStatus) Valid() bool {
	switch s {
	case WorkshopDraft, WorkshopPlanned, WorkshopScheduled, WorkshopInProgress, WorkshopCompleted, WorkshopCancelled:
		return true
	}
	return false
}

// Priority ranks a workshop objective.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// TemplateCategory groups reusable survey templates.
type TemplateCategory string

const (
	CategoryTrainingFeedback  TemplateCategory = "training_feedback"
	CategorySkillAssessment   TemplateCategory = "skill_assessment"
	CategoryProcessMaturity   TemplateCategory = "process_maturity"
	CategoryWorkshopReadiness TemplateCategory = "workshop_readiness"
)

// Valid reports whether c is a known template category.
func (c TemplateCategory) Valid() bool {
	switch c {
	case CategoryTrainingFeedback, CategorySkillAssessment, CategoryProcessMaturity, CategoryWorkshopReadiness:
		return true
	}
	return false
}

// AuditAction is the verb recorded in an audit entry.
type AuditAction string

const (
	ActionCreate   AuditAction = "create"
	ActionUpdate   AuditAction = "update"
	ActionDelete   AuditAction = "delete"
	ActionView     AuditAction = "view"
	ActionPublish  AuditAction = "publish"
	ActionClose    AuditAction = "close"
	ActionSchedule AuditAction = "schedule"
	ActionComplete AuditAction = "complete"
	ActionExport   AuditAction = "export"
)

// AuditEntity is the kind of record an audit entry refers to.
type AuditEntity string

const (
	EntitySurvey   AuditEntity = "survey"
	EntityResponse AuditEntity = "response"
	EntityWorkshop AuditEntity = "workshop"
	EntityTemplate AuditEntity = "template"
	EntityUser     AuditEntity = "user"
)
