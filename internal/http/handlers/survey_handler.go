// Survey HTTP handlers.
//
//   - POST   /surveys              (create draft; admin|organizer)
//   - GET    /surveys              (list, paginated, ETag support)
//   - GET    /surveys/{id}
//   - PATCH  /surveys/{id}         (edit draft; admin|organizer)
//   - DELETE /surveys/{id}         (delete draft; admin|organizer)
//   - POST   /surveys/{id}/publish (admin|organizer)
//   - POST   /surveys/{id}/close   (admin|organizer)
//
// Participants and anonymous callers only see published and closed surveys.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/services"
)

// SurveyRequest is the payload for creating a survey.
type SurveyRequest struct {
	Title          string                `json:"title"          example:"Q1 onboarding feedback"`
	Purpose        string                `json:"purpose"        example:"Measure how new hires experienced onboarding"`
	TargetAudience domain.TargetAudience `json:"targetAudience"`
	OpenDate       time.Time             `json:"openDate"       example:"2025-03-01T00:00:00Z"`
	CloseDate      time.Time             `json:"closeDate"      example:"2025-03-31T23:59:59Z"`
	Questions      []domain.Question     `json:"questions"`
	TemplateID     *string               `json:"templateId,omitempty"`
}

// SurveyPatchRequest is a partial survey update; omitted fields are kept.
type SurveyPatchRequest struct {
	Title          *string                `json:"title,omitempty"`
	Purpose        *string                `json:"purpose,omitempty"`
	TargetAudience *domain.TargetAudience `json:"targetAudience,omitempty"`
	OpenDate       *time.Time             `json:"openDate,omitempty"`
	CloseDate      *time.Time             `json:"closeDate,omitempty"`
	Questions      *[]domain.Question     `json:"questions,omitempty"`
}

// ListSurveysResponse wraps a page of surveys.
type ListSurveysResponse struct {
	Surveys    []domain.Survey `json:"surveys"`
	Pagination Pagination      `json:"pagination"`
}

// canManage reports whether the caller may see drafts and change surveys,
// templates and workshops.
func canManage(c *gin.Context) bool {
	switch actorFrom(c).Role {
	case domain.RoleAdmin, domain.RoleOrganizer:
		return true
	}
	return false
}

// CreateSurvey godoc
// @ID          createSurvey
// @Summary     Create a survey
// @Description Creates a draft survey. With templateId and no questions, the template's questions are used.
// @Tags        Surveys
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.SurveyRequest  true  "Survey"
// @Success     201   {object}  domain.Survey
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     401   {object}  handlers.ErrorResponse  "Not signed in"
// @Failure     403   {object}  handlers.ErrorResponse  "Insufficient role"
// @Router      /surveys [post]
func (h *Handlers) CreateSurvey(c *gin.Context) {
	var req SurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sv, err := h.d.Surveys.Create(c.Request.Context(), actorFrom(c), services.SurveyInput{
		Title:          req.Title,
		Purpose:        req.Purpose,
		TargetAudience: req.TargetAudience,
		OpenDate:       req.OpenDate,
		CloseDate:      req.CloseDate,
		Questions:      req.Questions,
		TemplateID:     req.TemplateID,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+sv.ID)
	ok(c, http.StatusCreated, sv)
}

// ListSurveys godoc
// @ID          listSurveys
// @Summary     List surveys (paginated)
// @Description Newest first. Callers without a managing role only see published surveys unless status=closed is requested.
// @Tags        Surveys
// @Produce     json
// @Param       status         query   string  false "draft|published|closed"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListSurveysResponse
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Router      /surveys [get]
func (h *Handlers) ListSurveys(c *gin.Context) {
	ctx := c.Request.Context()
	status := domain.SurveyStatus(c.Query("status"))
	switch status {
	case "", domain.SurveyDraft, domain.SurveyPublished, domain.SurveyClosed:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be draft, published or closed")
		return
	}
	if !canManage(c) {
		switch status {
		case "":
			status = domain.SurveyPublished
		case domain.SurveyDraft:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "drafts are visible to organizers only")
			return
		}
	}
	page, pageSize := clampPagination(c)

	if h.d.Stats != nil {
		if count, latest, err := h.d.Stats.SurveysStats(ctx, string(status)); err == nil {
			if notModified(c, "surveys", string(status), count, latest) {
				return
			}
		}
	}

	items, total, err := h.d.Surveys.ListPage(ctx, status, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListSurveysResponse{Surveys: items, Pagination: newPagination(page, pageSize, total)})
}

// GetSurvey godoc
// @ID          getSurvey
// @Summary     Get a survey
// @Tags        Surveys
// @Produce     json
// @Param       id   path      string  true  "Survey ID"  format(uuid)
// @Success     200  {object}  domain.Survey
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Router      /surveys/{id} [get]
func (h *Handlers) GetSurvey(c *gin.Context) {
	sv, found := h.visibleSurvey(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, sv)
}

// visibleSurvey loads the :id survey, answering 404 for drafts the caller
// may not see. It writes the error response itself.
func (h *Handlers) visibleSurvey(c *gin.Context) (*domain.Survey, bool) {
	sv, err := h.d.Surveys.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	if sv.Status == domain.SurveyDraft && !canManage(c) {
		failErr(c, services.ErrSurveyNotFound)
		return nil, false
	}
	return sv, true
}

// UpdateSurvey godoc
// @ID          updateSurvey
// @Summary     Edit a draft survey
// @Tags        Surveys
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                       true  "Survey ID"  format(uuid)
// @Param       body  body      handlers.SurveyPatchRequest  true  "Changed fields"
// @Success     200   {object}  domain.Survey
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     404   {object}  handlers.ErrorResponse  "Survey not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Survey is not a draft"
// @Router      /surveys/{id} [patch]
func (h *Handlers) UpdateSurvey(c *gin.Context) {
	var req SurveyPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	sv, err := h.d.Surveys.Update(c.Request.Context(), actorFrom(c), c.Param("id"), services.SurveyPatch{
		Title:          req.Title,
		Purpose:        req.Purpose,
		TargetAudience: req.TargetAudience,
		OpenDate:       req.OpenDate,
		CloseDate:      req.CloseDate,
		Questions:      req.Questions,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sv)
}

// DeleteSurvey godoc
// @ID          deleteSurvey
// @Summary     Delete a draft survey
// @Tags        Surveys
// @Security    BearerAuth
// @Param       id   path  string  true  "Survey ID"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Survey is not a draft"
// @Router      /surveys/{id} [delete]
func (h *Handlers) DeleteSurvey(c *gin.Context) {
	if err := h.d.Surveys.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// PublishSurvey godoc
// @ID          publishSurvey
// @Summary     Publish a draft survey
// @Tags        Surveys
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Survey ID"  format(uuid)
// @Success     200  {object}  domain.Survey
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Survey is not a draft"
// @Router      /surveys/{id}/publish [post]
func (h *Handlers) PublishSurvey(c *gin.Context) {
	sv, err := h.d.Surveys.Publish(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sv)
}

// CloseSurvey godoc
// @ID          closeSurvey
// @Summary     Close a published survey
// @Tags        Surveys
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Survey ID"  format(uuid)
// @Success     200  {object}  domain.Survey
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Survey is not published"
// @Router      /surveys/{id}/close [post]
func (h *Handlers) CloseSurvey(c *gin.Context) {
	sv, err := h.d.Surveys.Close(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, sv)
}
