// Response HTTP handlers.
//
//   - POST   /responses                        (submit; anonymous allowed)
//   - GET    /responses/{id}                   (owner or organizer)
//   - DELETE /responses/{id}                   (admin|organizer)
//   - GET    /surveys/{id}/responses          (admin|organizer, ETag support)
//   - GET    /surveys/{id}/responses/search   (admin|organizer)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous submission
// with that key exists for (user, route, key), the handler returns the stored
// response with `Idempotency-Replayed: true` instead of rejecting the retry
// as a duplicate.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/http/middleware"
	"github.com/tbourn/go-survey-backend/internal/search"
	"github.com/tbourn/go-survey-backend/internal/services"
	"github.com/tbourn/go-survey-backend/internal/utils"
)

// HeaderIdempotencyReplayed marks a response served from an earlier request.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// SubmitResponseRequest is one survey submission.
type SubmitResponseRequest struct {
	SurveyID        string          `json:"surveyId"                  binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Anonymous       bool            `json:"anonymous"`
	RespondentName  string          `json:"respondentName,omitempty"  example:"Alice"`
	RespondentEmail string          `json:"respondentEmail,omitempty" example:"alice@example.com"`
	Answers         []domain.Answer `json:"answers"`
}

// ListResponsesResponse wraps every response of a survey.
type ListResponsesResponse struct {
	Responses []domain.Response `json:"responses"`
	Total     int               `json:"total"`
}

// SearchResponse carries ranked free-text answers.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// SubmitResponse godoc
// @ID          submitResponse
// @Summary     Submit a survey response
// @Description Accepts a submission while the survey is published and open. Signed-in users answer once per survey;
// @Description anonymous respondents once per email. Supports Idempotency-Key for safe retries.
// @Tags        Responses
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header    string  false  "Idempotency key for safe retries"
// @Param       body             body      handlers.SubmitResponseRequest  true  "Submission"
// @Success     201  {object}  domain.Response
// @Header      201  {string}  Idempotency-Replayed  "true when served from an earlier request"
// @Failure     400  {object}  handlers.ErrorResponse  "survey_not_available | survey_not_open | validation_failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Non-anonymous submission without sign-in"
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Failure     409  {object}  handlers.ErrorResponse  "duplicate_submission"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Router      /responses [post]
func (h *Handlers) SubmitResponse(c *gin.Context) {
	ctx := c.Request.Context()

	if rep := middleware.ReplayOf(c); rep != nil {
		if prev, err := h.d.Responses.Get(ctx, rep.ResourceID); err == nil {
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, rep.Status, prev)
			return
		}
	}

	var req SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "surveyId and answers required")
		return
	}

	resp, err := h.d.Responses.Submit(ctx, actorFrom(c), services.SubmitInput{
		SurveyID:        strings.TrimSpace(req.SurveyID),
		Anonymous:       req.Anonymous,
		RespondentName:  req.RespondentName,
		RespondentEmail: req.RespondentEmail,
		Answers:         req.Answers,
	})
	if err != nil {
		failErr(c, err)
		return
	}

	if key, found := middleware.GetIdempotencyKey(c); found && h.d.Idempotency != nil {
		if _, err := h.d.Idempotency.CreateIdempotency(ctx, middleware.IdempotencyUser(c), middleware.IdempotencyScope(c),
			key, resp.ID, http.StatusCreated, h.d.IdempotencyTTL); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Str("response_id", resp.ID).Msg("idempotency record not stored")
		}
	}
	ok(c, http.StatusCreated, resp)
}

// GetResponse godoc
// @ID          getResponse
// @Summary     Get a response
// @Description Visible to its author and to organizers.
// @Tags        Responses
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Response ID"  format(uuid)
// @Success     200  {object}  domain.Response
// @Failure     404  {object}  handlers.ErrorResponse  "Response not found"
// @Router      /responses/{id} [get]
func (h *Handlers) GetResponse(c *gin.Context) {
	resp, err := h.d.Responses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	uid := middleware.UserID(c)
	if !canManage(c) && (uid == "" || resp.UserID != uid) {
		failErr(c, services.ErrResponseNotFound)
		return
	}
	ok(c, http.StatusOK, resp)
}

// DeleteResponse godoc
// @ID          deleteResponse
// @Summary     Delete a response
// @Tags        Responses
// @Security    BearerAuth
// @Param       id   path  string  true  "Response ID"  format(uuid)
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Response not found"
// @Router      /responses/{id} [delete]
func (h *Handlers) DeleteResponse(c *gin.Context) {
	if err := h.d.Responses.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ListSurveyResponses godoc
// @ID          listSurveyResponses
// @Summary     List the responses of a survey
// @Description Oldest first. Supports weak ETag via If-None-Match.
// @Tags        Responses
// @Produce     json
// @Security    BearerAuth
// @Param       id             path    string  true   "Survey ID"  format(uuid)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListResponsesResponse
// @Success     304  {string}  string "Not Modified"
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Router      /surveys/{id}/responses [get]
func (h *Handlers) ListSurveyResponses(c *gin.Context) {
	ctx := c.Request.Context()
	surveyID := c.Param("id")

	if h.d.Stats != nil {
		if count, latest, err := h.d.Stats.ResponsesStats(ctx, surveyID); err == nil && count > 0 {
			if notModified(c, "responses", surveyID, count, latest) {
				return
			}
		}
	}

	items, err := h.d.Responses.ListBySurvey(ctx, surveyID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListResponsesResponse{Responses: items, Total: len(items)})
}

// SearchResponses godoc
// @ID          searchResponses
// @Summary     Search free-text answers
// @Description Ranks the survey's text answers by token overlap with q.
// @Tags        Responses
// @Produce     json
// @Security    BearerAuth
// @Param       id   path   string  true   "Survey ID"  format(uuid)
// @Param       q    query  string  true   "Search text"
// @Param       k    query  int     false  "Max results"  minimum(1) maximum(50) default(5)
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing query"
// @Failure     404  {object}  handlers.ErrorResponse  "Survey not found"
// @Router      /surveys/{id}/responses/search [get]
func (h *Handlers) SearchResponses(c *gin.Context) {
	q := c.Query("q")
	k := utils.AtoiDefault(c.Query("k"), services.DefaultSearchK)
	results, err := h.d.Responses.SearchText(c.Request.Context(), c.Param("id"), q, k)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Results: results})
}
