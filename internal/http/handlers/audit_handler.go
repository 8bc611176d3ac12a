// Audit HTTP handlers.
//
//   - GET /audit-logs  (admin; ?entity=&entity_id=&user_id=&page=&page_size=)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-survey-backend/internal/domain"
)

// ListAuditLogsResponse wraps a page of audit entries, newest first.
type ListAuditLogsResponse struct {
	Logs       []domain.AuditLog `json:"logs"`
	Pagination Pagination        `json:"pagination"`
}

// ListAuditLogs godoc
// @ID          listAuditLogs
// @Summary     List audit log entries
// @Tags        Audit
// @Produce     json
// @Security    BearerAuth
// @Param       entity     query  string  false  "Entity kind"  Enums(survey, response, workshop, template, user)
// @Param       entity_id  query  string  false  "Entity ID"
// @Param       user_id    query  string  false  "Acting user ID"
// @Param       page       query  int     false  "Page number (1-based)"  minimum(1) default(1)
// @Param       page_size  query  int     false  "Page size"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListAuditLogsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown entity"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Router      /audit-logs [get]
func (h *Handlers) ListAuditLogs(c *gin.Context) {
	f := domain.AuditFilter{
		Entity:   domain.AuditEntity(strings.TrimSpace(c.Query("entity"))),
		EntityID: strings.TrimSpace(c.Query("entity_id")),
		UserID:   strings.TrimSpace(c.Query("user_id")),
	}
	switch f.Entity {
	case "", domain.EntitySurvey, domain.EntityResponse, domain.EntityWorkshop, domain.EntityTemplate, domain.EntityUser:
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown entity")
		return
	}

	page, size := clampPagination(c)
	items, total, err := h.d.Audit.ListPage(c.Request.Context(), f, page, size)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.AuditLog{}
	}
	ok(c, http.StatusOK, ListAuditLogsResponse{Logs: items, Pagination: newPagination(page, size, total)})
}
