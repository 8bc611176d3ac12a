// Analytics HTTP handlers.
//
//   - GET /surveys/{id}/analytics  (admin|organizer|viewer)
//   - GET /surveys/{id}/export     (admin|organizer|viewer; ?format=xlsx|csv)
//   - GET /surveys/{id}/live       (websocket; admin|organizer|viewer)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-survey-backend/internal/http/middleware"
)

// GetAnalytics godoc
// @ID          getSurveyAnalytics
// @Summary     Survey analytics
// @Description Per-question aggregates, response rate, average completion time, insights and recommendations.
// @Tags        Analytics
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Survey ID"  format(uuid)
// @Success     200  {object}  analytics.SurveyAnalytics
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Router      /surveys/{id}/analytics [get]
func (h *Handlers) GetAnalytics(c *gin.Context) {
	report, err := h.d.Analytics.Calculate(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, report)
}

// ExportAnalytics godoc
// @ID          exportSurveyAnalytics
// @Summary     Download survey results
// @Description xlsx holds a summary sheet plus raw responses; csv holds raw responses only.
// @Tags        Analytics
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce     text/csv
// @Security    BearerAuth
// @Param       id      path   string  true   "Survey ID"  format(uuid)
// @Param       format  query  string  false  "Export format"  Enums(xlsx, csv) default(xlsx)
// @Success     200  {file}    file
// @Failure     400  {object}  handlers.ErrorResponse  "unsupported_format"
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Router      /surveys/{id}/export [get]
func (h *Handlers) ExportAnalytics(c *gin.Context) {
	f, err := h.d.Analytics.Export(c.Request.Context(), actorFrom(c), c.Param("id"), c.Query("format"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, f.ContentType, f.Data)
}

// LiveResponses godoc
// @ID          liveSurveyResponses
// @Summary     Stream new responses
// @Description Upgrades to a websocket and pushes an event for every accepted submission to the survey.
// @Tags        Analytics
// @Security    BearerAuth
// @Param       id   path  string  true  "Survey ID"  format(uuid)
// @Success     101  {string}  string "Switching Protocols"
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Live updates disabled"
// @Router      /surveys/{id}/live [get]
func (h *Handlers) LiveResponses(c *gin.Context) {
	if h.d.Live == nil || h.d.Upgrader == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeInternal, "live updates are disabled")
		return
	}
	s, err := h.d.Surveys.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	// The upgrader has already answered the client when Serve fails.
	if err := h.d.Live.Serve(h.d.Upgrader, c.Writer, c.Request, s.ID); err != nil {
		middleware.LoggerFrom(c).Debug().Err(err).Str("survey_id", s.ID).Msg("live stream ended")
	}
}
