// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key support for POST endpoints. The
// validator checks the header, stashes the key, and asks a lookup whether
// (user, route, key) already produced a resource. Handlers then either serve
// the recorded resource (ReplayOf) or do the work and record it.
//
// A retried survey submission therefore returns the original response
// instead of failing with duplicate_submission.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// AnonymousUser scopes keys sent without authentication.
const AnonymousUser = "anonymous"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // *Replay
	ctxKeyRateBypass = "rate.bypass" // bool
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// Replay describes a previously completed request.
type Replay struct {
	ResourceID string
	Status     int
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 200.
	MaxLen int
	// Pattern restricts key characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup returns the recorded result of (userID, scope, key) that
// is still valid at now, or nil. Lookup errors do not block the request.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (*Replay, error)

// IdempotencyValidator validates the Idempotency-Key header of POST requests.
//
//   - No header, or not a POST: no-op.
//   - Malformed key: 400 bad_idempotency_key.
//   - Known key: the replay is stashed for the handler and rate limiting is
//     bypassed.
//
// The scope is the matched route (c.FullPath()), so one key may be reused on
// different endpoints.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			rep, err := lookup(c.Request.Context(), IdempotencyUser(c), IdempotencyScope(c), key, time.Now().UTC())
			if err == nil && rep != nil && rep.ResourceID != "" {
				c.Set(ctxKeyIdemReplay, rep)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

// GetIdempotencyKey returns the validated key, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// ReplayOf returns the recorded result for this request's key, or nil.
func ReplayOf(c *gin.Context) *Replay {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return nil
	}
	rep, _ := v.(*Replay)
	return rep
}

// IsReplay reports whether ReplayOf(c) is non-nil.
func IsReplay(c *gin.Context) bool { return ReplayOf(c) != nil }

// IdempotencyUser is the user half of the key scope.
func IdempotencyUser(c *gin.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return AnonymousUser
}

// IdempotencyScope is the route half of the key scope.
func IdempotencyScope(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
