// Account HTTP handlers.
//
//   - POST /auth/register
//   - POST /auth/login
//   - GET  /auth/me
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/http/middleware"
)

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Email    string `json:"email"    binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"correct-horse-battery"`
	Name     string `json:"name"     example:"Alice Smith"`
}

// LoginRequest is the payload for signing in.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required" example:"alice@example.com"`
	Password string `json:"password" binding:"required" example:"correct-horse-battery"`
}

// AuthResponse carries the signed-in user and a bearer token.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Register godoc
// @ID          register
// @Summary     Create an account
// @Description Creates a participant account and returns a bearer token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.RegisterRequest  true  "Account details"
// @Success     201   {object}  handlers.AuthResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     409   {object}  handlers.ErrorResponse  "Email already registered"
// @Router      /auth/register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	u, tok, err := h.d.Auth.Register(c.Request.Context(), req.Email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, AuthResponse{User: u, Token: tok})
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.LoginRequest  true  "Credentials"
// @Success     200   {object}  handlers.AuthResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401   {object}  handlers.ErrorResponse  "Invalid credentials"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password required")
		return
	}
	u, tok, err := h.d.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AuthResponse{User: u, Token: tok})
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Not signed in"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	u, err := h.d.Auth.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}
