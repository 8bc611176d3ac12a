// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, authentication, idempotency, rate limiting, CORS and security
// headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-survey-backend/internal/cache"
	"github.com/tbourn/go-survey-backend/internal/config"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/http/handlers"
	"github.com/tbourn/go-survey-backend/internal/http/middleware"
	"github.com/tbourn/go-survey-backend/internal/live"
	"github.com/tbourn/go-survey-backend/internal/mongostore"
	"github.com/tbourn/go-survey-backend/internal/repo"
	"github.com/tbourn/go-survey-backend/internal/services"
)

// Store is a services.Store that can also report list stats for ETags.
// repo.Store and mongostore.Store both qualify.
type Store interface {
	services.Store
	handlers.ListStats
}

var (
	_ Store = (*repo.Store)(nil)
	_ Store = (*mongostore.Store)(nil)
)

// Backends are optional runtime collaborators.
type Backends struct {
	// Cache holds computed analytics; nil runs uncached.
	Cache cache.AnalyticsCache
	// Hub streams submissions to websocket subscribers; nil disables
	// /surveys/{id}/live.
	Hub *live.Hub
}

// Services is the application layer assembled over one Store.
type Services struct {
	Auth      *services.AuthService
	Surveys   *services.SurveyService
	Responses *services.ResponseService
	Analytics *services.AnalyticsService
	Templates *services.TemplateService
	Workshops *services.WorkshopService
	Audit     *services.AuditService

	store Store
	hub   *live.Hub
}

// NewServices builds every service over st.
func NewServices(st Store, b Backends, cfg config.Config) *Services {
	audit := &services.AuditService{Store: st}
	analyticsSvc := services.NewAnalyticsService(st, b.Cache, audit, cfg.AudienceSize)

	// A nil *live.Hub must not end up inside the Publisher interface.
	var pub live.Publisher
	if b.Hub != nil {
		pub = b.Hub
	}

	return &Services{
		Auth: &services.AuthService{
			Users:  st,
			Secret: []byte(cfg.Auth.JWTSecret),
			TTL:    cfg.Auth.JWTTTL,
		},
		Surveys: &services.SurveyService{
			Surveys:   st,
			Templates: st,
			Cache:     b.Cache,
			Live:      pub,
			Audit:     audit,
		},
		Responses: &services.ResponseService{
			Surveys:   st,
			Responses: st,
			Cache:     b.Cache,
			Live:      pub,
			Audit:     audit,
		},
		Analytics: analyticsSvc,
		Templates: &services.TemplateService{Templates: st, Audit: audit},
		Workshops: &services.WorkshopService{
			Workshops: st,
			Surveys:   st,
			Analytics: analyticsSvc,
			Audit:     audit,
		},
		Audit: audit,
		store: st,
		hub:   b.Hub,
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine, then mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs, PII scrubbed unless LOG_REDACT=false
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip
//  7. Metrics
//  8. Authenticate: resolve the bearer token, never rejects
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, stricter on submissions, bypass on replay)
//  11. CORS and Security headers
func RegisterRoutes(r *gin.Engine, svc *Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	base := cfg.APIBasePath

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.Authenticate(tokenParser(svc.Auth)))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		idempotencyLookup(svc.store),
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).
		Route(http.MethodPost, joinPath(base, "/responses"), middleware.Limit{RPS: cfg.SubmitRPS, Burst: cfg.SubmitBurst})
	r.Use(rl.Handler())

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		NoStorePrefixes: []string{joinPath(base, "/auth")},
		EnablePolicy:    true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	deps := handlers.Deps{
		Auth:           svc.Auth,
		Surveys:        svc.Surveys,
		Responses:      svc.Responses,
		Analytics:      svc.Analytics,
		Templates:      svc.Templates,
		Workshops:      svc.Workshops,
		Audit:          svc.Audit,
		Stats:          svc.store,
		Idempotency:    svc.store,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
	if svc.hub != nil {
		deps.Live = svc.hub
		deps.Upgrader = live.NewUpgrader(cfg.CORS.AllowedOrigins)
	}
	h := handlers.New(deps)

	signedIn := middleware.RequireAuth()
	managers := middleware.RequireRole(string(domain.RoleAdmin), string(domain.RoleOrganizer))
	readers := middleware.RequireRole(string(domain.RoleAdmin), string(domain.RoleOrganizer), string(domain.RoleViewer))
	admins := middleware.RequireRole(string(domain.RoleAdmin))

	api := groupWithPrefix(r, base)
	{
		// Accounts
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/auth/me", signedIn, h.Me)

		// Surveys
		api.GET("/surveys", h.ListSurveys)
		api.GET("/surveys/:id", h.GetSurvey)
		api.POST("/surveys", managers, h.CreateSurvey)
		api.PATCH("/surveys/:id", managers, h.UpdateSurvey)
		api.DELETE("/surveys/:id", managers, h.DeleteSurvey)
		api.POST("/surveys/:id/publish", managers, h.PublishSurvey)
		api.POST("/surveys/:id/close", managers, h.CloseSurvey)

		// Responses
		api.POST("/responses", h.SubmitResponse)
		api.GET("/responses/:id", signedIn, h.GetResponse)
		api.DELETE("/responses/:id", managers, h.DeleteResponse)
		api.GET("/surveys/:id/responses", managers, h.ListSurveyResponses)
		api.GET("/surveys/:id/responses/search", managers, h.SearchResponses)

		// Analytics
		api.GET("/surveys/:id/analytics", readers, h.GetAnalytics)
		api.GET("/surveys/:id/export", readers, h.ExportAnalytics)
		api.GET("/surveys/:id/live", readers, h.LiveResponses)

		// Templates
		api.GET("/templates", h.ListTemplates)
		api.GET("/templates/:id", h.GetTemplate)
		api.POST("/templates", managers, h.CreateTemplate)
		api.DELETE("/templates/:id", managers, h.DeleteTemplate)

		// Workshops
		api.GET("/workshops", signedIn, h.ListWorkshops)
		api.GET("/workshops/:id", signedIn, h.GetWorkshop)
		api.GET("/workshops/:id/insights", readers, h.WorkshopInsights)
		api.POST("/workshops", managers, h.CreateWorkshop)
		api.PATCH("/workshops/:id", managers, h.UpdateWorkshop)
		api.DELETE("/workshops/:id", managers, h.DeleteWorkshop)
		api.POST("/workshops/:id/schedule", managers, h.ScheduleWorkshop)
		api.POST("/workshops/:id/start", managers, h.StartWorkshop)
		api.POST("/workshops/:id/complete", managers, h.CompleteWorkshop)
		api.POST("/workshops/:id/cancel", managers, h.CancelWorkshop)

		// Audit
		api.GET("/audit-logs", admins, h.ListAuditLogs)
	}
}

// tokenParser adapts AuthService.ParseToken to the middleware contract.
func tokenParser(a *services.AuthService) middleware.TokenParser {
	return func(tok string) (middleware.Identity, error) {
		cl, err := a.ParseToken(tok)
		if err != nil {
			return middleware.Identity{}, err
		}
		return middleware.Identity{UserID: cl.UserID, Email: cl.Email, Role: string(cl.Role)}, nil
	}
}

// idempotencyLookup turns a stored record into a replay. A missing record is
// not an error.
func idempotencyLookup(st services.IdempotencyStore) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (*middleware.Replay, error) {
		rec, err := st.GetIdempotency(ctx, userID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		if err != nil || rec == nil {
			return nil, err
		}
		return &middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, nil
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// echoes allowlisted origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "Content-Disposition", "ETag", "Location", handlers.HeaderIdempotencyReplayed}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

	if len(origins) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     methods,
				AllowHeaders:     allowHeaders,
				ExposeHeaders:    exposeHeaders,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath prefixes a route with the API base path.
func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
