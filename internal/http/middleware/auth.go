// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity from a bearer token. Authenticate
// never rejects a request on its own: anonymous survey submissions must still
// reach their handler. Routes that need a signed-in user add RequireAuth or
// RequireRole.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by Authenticate.
const (
	CtxUserID    = "userID"
	CtxUserEmail = "userEmail"
	CtxUserRole  = "userRole"
)

// Identity is what a verified token says about the caller.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// TokenParser verifies a raw token.
type TokenParser func(token string) (Identity, error)

// Authenticate reads "Authorization: Bearer <token>" (or the "token" query
// parameter, which browsers need for websocket upgrades) and, when the token
// verifies, stores the identity in the Gin context. Invalid or missing tokens
// leave the request anonymous.
func Authenticate(parse TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok != "" && parse != nil {
			if id, err := parse(tok); err == nil && id.UserID != "" {
				c.Set(CtxUserID, id.UserID)
				c.Set(CtxUserEmail, id.Email)
				c.Set(CtxUserRole, id.Role)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed: 401 when anonymous,
// 403 otherwise.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if _, ok := allowed[Role(c)]; !ok {
			abortJSON(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or "".
func UserID(c *gin.Context) string { return c.GetString(CtxUserID) }

// UserEmail returns the authenticated user's email, or "".
func UserEmail(c *gin.Context) string { return c.GetString(CtxUserEmail) }

// Role returns the authenticated user's role, or "".
func Role(c *gin.Context) string { return c.GetString(CtxUserRole) }

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}

func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
