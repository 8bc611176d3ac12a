// Workshop HTTP handlers. Reads are open to every signed-in user; changes
// require admin or organizer.
//
//   - GET    /workshops                 (?status=)
//   - GET    /workshops/{id}
//   - GET    /workshops/{id}/insights
//   - POST   /workshops
//   - PATCH  /workshops/{id}
//   - DELETE /workshops/{id}
//   - POST   /workshops/{id}/schedule
//   - POST   /workshops/{id}/start
//   - POST   /workshops/{id}/complete
//   - POST   /workshops/{id}/cancel
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/services"
)

// WorkshopRequest is the payload for creating a workshop.
type WorkshopRequest struct {
	Title           string                `json:"title"            example:"Code review practices"`
	Description     string                `json:"description"`
	Topic           string                `json:"topic"            example:"code review"`
	Objectives      []domain.Objective    `json:"objectives"`
	LinkedSurveyIDs []string              `json:"linkedSurveyIds"`
	TargetAudience  domain.TargetAudience `json:"targetAudience"`
	ExpectedSize    int                   `json:"expectedSize"     example:"12"`
	ScheduledDate   *time.Time            `json:"scheduledDate,omitempty"`
	Duration        int                   `json:"duration"         example:"90"`
	Location        string                `json:"location"         example:"Room 4"`
	Status          domain.WorkshopStatus `json:"status,omitempty" example:"draft"`
}

// WorkshopPatchRequest is a partial workshop update; omitted fields are kept.
type WorkshopPatchRequest struct {
	Title           *string                `json:"title,omitempty"`
	Description     *string                `json:"description,omitempty"`
	Topic           *string                `json:"topic,omitempty"`
	Objectives      *[]domain.Objective    `json:"objectives,omitempty"`
	LinkedSurveyIDs *[]string              `json:"linkedSurveyIds,omitempty"`
	TargetAudience  *domain.TargetAudience `json:"targetAudience,omitempty"`
	ExpectedSize    *int                   `json:"expectedSize,omitempty"`
	Duration        *int                   `json:"duration,omitempty"`
	Location        *string                `json:"location,omitempty"`
}

// ScheduleRequest fixes the date and place of a workshop.
type ScheduleRequest struct {
	ScheduledDate time.Time `json:"scheduledDate" binding:"required" example:"2025-04-10T09:00:00Z"`
	Location      string    `json:"location"      example:"Room 4"`
}

// ListWorkshopsResponse wraps workshops, soonest first.
type ListWorkshopsResponse struct {
	Workshops []domain.Workshop `json:"workshops"`
}

// InsightsResponse lists the insights of a workshop's linked surveys.
type InsightsResponse struct {
	WorkshopID string                     `json:"workshopId"`
	Insights   []services.WorkshopInsight `json:"insights"`
}

// ListWorkshops godoc
// @ID          listWorkshops
// @Summary     List workshops
// @Tags        Workshops
// @Produce     json
// @Security    BearerAuth
// @Param       status  query  string  false  "Status filter"  Enums(draft, planned, scheduled, in_progress, completed, cancelled)
// @Success     200  {object}  handlers.ListWorkshopsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown status"
// @Router      /workshops [get]
func (h *Handlers) ListWorkshops(c *gin.Context) {
	st := domain.WorkshopStatus(strings.TrimSpace(c.Query("status")))
	if st != "" && !st.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status")
		return
	}
	items, err := h.d.Workshops.List(c.Request.Context(), st)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Workshop{}
	}
	ok(c, http.StatusOK, ListWorkshopsResponse{Workshops: items})
}

// GetWorkshop godoc
// @ID          getWorkshop
// @Summary     Get a workshop
// @Tags        Workshops
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Workshop ID"  format(uuid)
// @Success     200  {object}  domain.Workshop
// @Failure     404  {object}  handlers.ErrorResponse  "Workshop not found"
// @Router      /workshops/{id} [get]
func (h *Handlers) GetWorkshop(c *gin.Context) {
	w, err := h.d.Workshops.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// WorkshopInsights godoc
// @ID          workshopInsights
// @Summary     Insights of linked surveys
// @Description Collects the insights of every survey linked to the workshop. Surveys deleted since linking are skipped.
// @Tags        Workshops
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Workshop ID"  format(uuid)
// @Success     200  {object}  handlers.InsightsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Workshop not found"
// @Router      /workshops/{id}/insights [get]
func (h *Handlers) WorkshopInsights(c *gin.Context) {
	id := c.Param("id")
	ins, err := h.d.Workshops.Insights(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	if ins == nil {
		ins = []services.WorkshopInsight{}
	}
	ok(c, http.StatusOK, InsightsResponse{WorkshopID: id, Insights: ins})
}

// CreateWorkshop godoc
// @ID          createWorkshop
// @Summary     Create a workshop
// @Tags        Workshops
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.WorkshopRequest  true  "Workshop"
// @Success     201   {object}  domain.Workshop
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     404   {object}  handlers.ErrorResponse  "Linked survey not found"
// @Router      /workshops [post]
func (h *Handlers) CreateWorkshop(c *gin.Context) {
	var req WorkshopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	w, err := h.d.Workshops.Create(c.Request.Context(), actorFrom(c), services.WorkshopInput{
		Title:           req.Title,
		Description:     req.Description,
		Topic:           req.Topic,
		Objectives:      req.Objectives,
		LinkedSurveyIDs: req.LinkedSurveyIDs,
		TargetAudience:  req.TargetAudience,
		ExpectedSize:    req.ExpectedSize,
		ScheduledDate:   req.ScheduledDate,
		Duration:        req.Duration,
		Location:        req.Location,
		Status:          req.Status,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+w.ID)
	ok(c, http.StatusCreated, w)
}

// UpdateWorkshop godoc
// @ID          updateWorkshop
// @Summary     Update a workshop
// @Description Completed and cancelled workshops cannot be changed.
// @Tags        Workshops
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                         true  "Workshop ID"  format(uuid)
// @Param       body  body      handlers.WorkshopPatchRequest  true  "Fields to change"
// @Success     200   {object}  domain.Workshop
// @Failure     404   {object}  handlers.ErrorResponse  "Workshop not found"
// @Failure     409   {object}  handlers.ErrorResponse  "not_editable"
// @Router      /workshops/{id} [patch]
func (h *Handlers) UpdateWorkshop(c *gin.Context) {
	var req WorkshopPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	w, err := h.d.Workshops.Update(c.Request.Context(), actorFrom(c), c.Param("id"), services.WorkshopPatch{
		Title:           req.Title,
		Description:     req.Description,
		Topic:           req.Topic,
		Objectives:      req.Objectives,
		LinkedSurveyIDs: req.LinkedSurveyIDs,
		TargetAudience:  req.TargetAudience,
		ExpectedSize:    req.ExpectedSize,
		Duration:        req.Duration,
		Location:        req.Location,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// DeleteWorkshop godoc
// @ID          deleteWorkshop
// @Summary     Delete a workshop
// @Tags        Workshops
// @Security    BearerAuth
// @Param       id   path  string  true  "Workshop ID"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Workshop not found"
// @Router      /workshops/{id} [delete]
func (h *Handlers) DeleteWorkshop(c *gin.Context) {
	if err := h.d.Workshops.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ScheduleWorkshop godoc
// @ID          scheduleWorkshop
// @Summary     Schedule a workshop
// @Tags        Workshops
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                    true  "Workshop ID"  format(uuid)
// @Param       body  body      handlers.ScheduleRequest  true  "Date and location"
// @Success     200   {object}  domain.Workshop
// @Failure     404   {object}  handlers.ErrorResponse  "Workshop not found"
// @Failure     409   {object}  handlers.ErrorResponse  "invalid_transition"
// @Router      /workshops/{id}/schedule [post]
func (h *Handlers) ScheduleWorkshop(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scheduledDate required")
		return
	}
	w, err := h.d.Workshops.Schedule(c.Request.Context(), actorFrom(c), c.Param("id"), req.ScheduledDate, req.Location)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}

// StartWorkshop godoc
// @ID          startWorkshop
// @Summary     Start a scheduled workshop
// @Tags        Workshops
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Workshop ID"  format(uuid)
// @Success     200  {object}  domain.Workshop
// @Failure     409  {object}  handlers.ErrorResponse  "invalid_transition"
// @Router      /workshops/{id}/start [post]
func (h *Handlers) StartWorkshop(c *gin.Context) {
	h.workshopTransition(c, h.d.Workshops.Start)
}

// CompleteWorkshop godoc
// @ID          completeWorkshop
// @Summary     Complete a running workshop
// @Tags        Workshops
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Workshop ID"  format(uuid)
// @Success     200  {object}  domain.Workshop
// @Failure     409  {object}  handlers.ErrorResponse  "invalid_transition"
// @Router      /workshops/{id}/complete [post]
func (h *Handlers) CompleteWorkshop(c *gin.Context) {
	h.workshopTransition(c, h.d.Workshops.Complete)
}

// CancelWorkshop godoc
// @ID          cancelWorkshop
// @Summary     Cancel a workshop
// @Tags        Workshops
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Workshop ID"  format(uuid)
// @Success     200  {object}  domain.Workshop
// @Failure     409  {object}  handlers.ErrorResponse  "invalid_transition"
// @Router      /workshops/{id}/cancel [post]
func (h *Handlers) CancelWorkshop(c *gin.Context) {
	h.workshopTransition(c, h.d.Workshops.Cancel)
}

func (h *Handlers) workshopTransition(c *gin.Context, fn func(context.Context, services.Actor, string) (*domain.Workshop, error)) {
	w, err := fn(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, w)
}
