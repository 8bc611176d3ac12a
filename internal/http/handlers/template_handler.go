// Template HTTP handlers.
//
//   - GET    /templates        (?category=)
//   - GET    /templates/{id}
//   - POST   /templates        (admin|organizer)
//   - DELETE /templates/{id}   (admin|organizer)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/services"
)

// TemplateRequest is the payload for creating a template.
type TemplateRequest struct {
	Name           string                  `json:"name"           example:"Training feedback"`
	Description    string                  `json:"description"`
	Category       domain.TemplateCategory `json:"category"       example:"training_feedback"`
	Questions      []domain.Question       `json:"questions"`
	TargetAudience domain.TargetAudience   `json:"targetAudience"`
}

// ListTemplatesResponse wraps templates, most used first.
type ListTemplatesResponse struct {
	Templates []domain.Template `json:"templates"`
}

// ListTemplates godoc
// @ID          listTemplates
// @Summary     List templates
// @Tags        Templates
// @Produce     json
// @Param       category  query  string  false  "Category filter"  Enums(training_feedback, skill_assessment, process_maturity, workshop_readiness)
// @Success     200  {object}  handlers.ListTemplatesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown category"
// @Router      /templates [get]
func (h *Handlers) ListTemplates(c *gin.Context) {
	cat := domain.TemplateCategory(strings.TrimSpace(c.Query("category")))
	if cat != "" && !cat.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown category")
		return
	}
	items, err := h.d.Templates.List(c.Request.Context(), cat)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Template{}
	}
	ok(c, http.StatusOK, ListTemplatesResponse{Templates: items})
}

// GetTemplate godoc
// @ID          getTemplate
// @Summary     Get a template
// @Tags        Templates
// @Produce     json
// @Param       id   path      string  true  "Template ID"  format(uuid)
// @Success     200  {object}  domain.Template
// @Failure     404  {object}  handlers.ErrorResponse  "Template not found"
// @Router      /templates/{id} [get]
func (h *Handlers) GetTemplate(c *gin.Context) {
	t, err := h.d.Templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// CreateTemplate godoc
// @ID          createTemplate
// @Summary     Create a template
// @Tags        Templates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.TemplateRequest  true  "Template"
// @Success     201   {object}  domain.Template
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input"
// @Router      /templates [post]
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	t, err := h.d.Templates.Create(c.Request.Context(), actorFrom(c), services.TemplateInput{
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		Questions:      req.Questions,
		TargetAudience: req.TargetAudience,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Location", c.FullPath()+"/"+t.ID)
	ok(c, http.StatusCreated, t)
}

// DeleteTemplate godoc
// @ID          deleteTemplate
// @Summary     Delete a template
// @Tags        Templates
// @Security    BearerAuth
// @Param       id   path  string  true  "Template ID"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Template not found"
// @Router      /templates/{id} [delete]
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	if err := h.d.Templates.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
