// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket rate limiter built on
// golang.org/x/time/rate. Buckets are keyed by identity (user or client IP)
// and by rule: submissions get their own, stricter rule so a burst of survey
// answers cannot starve the read API and vice versa. Idle buckets are
// evicted opportunistically. Idempotent replays bypass limiting.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by "user:<id>" when authenticated and
// "ip:<addr>" otherwise.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := UserID(c); id != "" {
			return "user:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

// Limit is a token-bucket configuration.
type Limit struct {
	RPS   float64
	Burst int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces per-identity limits. Safe for concurrent use.
type RateLimiter struct {
	def    Limit
	routes map[string]Limit // "METHOD path" -> limit
	keyFn  keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	lookups  uint64
}

// NewRateLimiter returns a limiter applying rps/burst to every route without
// an override. burst <= 0 is coerced to 1.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	return &RateLimiter{
		def:      normalizeLimit(Limit{RPS: rps, Burst: burst}),
		routes:   make(map[string]Limit),
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// Route overrides the limit of one matched route, e.g.
// Route(http.MethodPost, "/api/v1/responses", Limit{RPS: 0.5, Burst: 3}).
// Overridden routes use buckets separate from the default ones.
func (rl *RateLimiter) Route(method, path string, l Limit) *RateLimiter {
	rl.routes[method+" "+path] = normalizeLimit(l)
	return rl
}

func normalizeLimit(l Limit) Limit {
	if l.Burst <= 0 {
		l.Burst = 1
	}
	return l
}

// limiterFor returns the bucket of key under rule, creating it with l. Idle
// buckets are swept every 5000 lookups, before the requested one is touched.
func (rl *RateLimiter) limiterFor(rule, key string, l Limit) *rate.Limiter {
	now := time.Now()
	id := rule + "|" + key

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[id]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rate.Limit(l.RPS), l.Burst)
	rl.visitors[id] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay.
func IsRateBypass(c *gin.Context) bool { return c.GetBool(ctxKeyRateBypass) }

// Handler returns the middleware. Rejections are 429 with Retry-After: 1
// and the standard error envelope (code "rate_limited").
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		rule, l := "default", rl.def
		if o, ok := rl.routes[c.Request.Method+" "+c.FullPath()]; ok {
			rule, l = c.Request.Method+" "+c.FullPath(), o
		}

		if rl.limiterFor(rule, rl.keyFn(c), l).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		abortJSON(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
	}
}
