package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-survey-backend/internal/config"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/http/handlers"
	"github.com/tbourn/go-survey-backend/internal/http/middleware"
	"github.com/tbourn/go-survey-backend/internal/live"
	"github.com/tbourn/go-survey-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestStore(t *testing.T) *repo.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return repo.NewStore(db)
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		MaxBodyBytes:   1 << 20,
		LogRedact:      true,
		AudienceSize:   50,
		RateRPS:        100,
		RateBurst:      50,
		SubmitRPS:      100,
		SubmitBurst:    50,
		IdempotencyTTL: time.Hour,
		CORS:           config.CORSConfig{AllowedOrigins: nil}, // allow-all branch
		Security:       config.SecurityConfig{EnableHSTS: false},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
		Auth: config.AuthConfig{
			JWTSecret: "router-test-secret-0123456789",
			JWTTTL:    time.Hour,
		},
	}
}

type server struct {
	r   *gin.Engine
	svc *Services
}

func newServer(t *testing.T, cfg config.Config, b Backends) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewServices(newTestStore(t), b, cfg)
	r := gin.New()
	RegisterRoutes(r, svc, cfg)
	return &server{r: r, svc: svc}
}

func (s *server) do(t *testing.T, method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

// adminToken seeds an admin account and signs in through the API.
func (s *server) adminToken(t *testing.T) string {
	t.Helper()
	if _, err := s.svc.Auth.EnsureAdmin(context.Background(), "admin@example.com", "admin-password"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", handlers.LoginRequest{Email: "admin@example.com", Password: "admin-password"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var ar handlers.AuthResponse
	_ = json.Unmarshal(w.Body.Bytes(), &ar)
	return ar.Token
}

func (s *server) participantToken(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", handlers.RegisterRequest{Email: email, Password: "participant-pw"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	var ar handlers.AuthResponse
	_ = json.Unmarshal(w.Body.Bytes(), &ar)
	return ar.Token
}

func (s *server) publishedSurvey(t *testing.T, token string) string {
	t.Helper()
	now := time.Now().UTC()
	w := s.do(t, http.MethodPost, "/api/v1/surveys", token, handlers.SurveyRequest{
		Title:     "Tooling survey",
		Purpose:   "Pick workshop topics",
		OpenDate:  now.Add(-time.Hour),
		CloseDate: now.Add(time.Hour),
		Questions: []domain.Question{{ID: "q1", Type: domain.QuestionRatingScale, Text: "Rate the tools"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var sv domain.Survey
	_ = json.Unmarshal(w.Body.Bytes(), &sv)
	if w := s.do(t, http.MethodPost, "/api/v1/surveys/"+sv.ID+"/publish", token, nil); w.Code != http.StatusOK {
		t.Fatalf("publish: %d %s", w.Code, w.Body.String())
	}
	return sv.ID
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var er handlers.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error %q: %v", w.Body.String(), err)
	}
	return er.Code
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	s := newServer(t, testConfig(), Backends{})

	w := s.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = s.do(t, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != handlers.ErrCodeNotFound {
		t.Fatalf("GET /nope: %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/health", "", nil)
	if w.Code != http.StatusMethodNotAllowed || errorCode(t, w) != handlers.ErrCodeMethodNotAllowed {
		t.Fatalf("POST /health: %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	s := newServer(t, cfg, Backends{})

	w := s.do(t, http.MethodGet, "/health", "", nil, "Origin", "http://example.com")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_GzipWhenAccepted(t *testing.T) {
	s := newServer(t, testConfig(), Backends{})
	w := s.do(t, http.MethodGet, "/api/v1/surveys", "", nil, "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding=%q", got)
	}
}

func TestRegisterRoutes_RoleGates(t *testing.T) {
	s := newServer(t, testConfig(), Backends{})
	admin := s.adminToken(t)
	alice := s.participantToken(t, "alice@example.com")

	body := map[string]any{"title": "x"}
	if w := s.do(t, http.MethodPost, "/api/v1/surveys", "", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/surveys", alice, body); w.Code != http.StatusForbidden {
		t.Fatalf("participant create: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/surveys", "not-a-jwt", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token create: %d", w.Code)
	}

	id := s.publishedSurvey(t, admin)
	if w := s.do(t, http.MethodGet, "/api/v1/surveys/"+id+"/analytics", alice, nil); w.Code != http.StatusForbidden {
		t.Fatalf("participant analytics: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/surveys/"+id+"/analytics", admin, nil); w.Code != http.StatusOK {
		t.Fatalf("admin analytics: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, "/api/v1/audit-logs", alice, nil); w.Code != http.StatusForbidden {
		t.Fatalf("participant audit: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/audit-logs", admin, nil); w.Code != http.StatusOK {
		t.Fatalf("admin audit: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous me: %d", w.Code)
	}
	w := s.do(t, http.MethodGet, "/api/v1/auth/me", alice, nil)
	if w.Code != http.StatusOK || w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("me: %d cache=%q", w.Code, w.Header().Get("Cache-Control"))
	}
}

func TestRegisterRoutes_SubmitIdempotencyAndRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.SubmitRPS = 0.001
	cfg.SubmitBurst = 2
	s := newServer(t, cfg, Backends{})
	id := s.publishedSurvey(t, s.adminToken(t))

	submit := func(email, key string) *httptest.ResponseRecorder {
		var hdr []string
		if key != "" {
			hdr = []string{middleware.HeaderIdempotencyKey, key}
		}
		return s.do(t, http.MethodPost, "/api/v1/responses", "", handlers.SubmitResponseRequest{
			SurveyID:        id,
			Anonymous:       true,
			RespondentEmail: email,
			Answers:         []domain.Answer{{QuestionID: "q1", Value: domain.NumberValue(4)}},
		}, hdr...)
	}

	w := submit("a@example.com", "k-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("first: %d %s", w.Code, w.Body.String())
	}
	var first domain.Response
	_ = json.Unmarshal(w.Body.Bytes(), &first)

	if w := submit("b@example.com", ""); w.Code != http.StatusCreated {
		t.Fatalf("second: %d %s", w.Code, w.Body.String())
	}

	w = submit("c@example.com", "")
	if w.Code != http.StatusTooManyRequests || errorCode(t, w) != handlers.ErrCodeRateLimited {
		t.Fatalf("third: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After")
	}

	// a replay bypasses the limiter and returns the original response
	w = submit("a@example.com", "k-1")
	if w.Code != http.StatusCreated || w.Header().Get(handlers.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: %d replayed=%q %s", w.Code, w.Header().Get(handlers.HeaderIdempotencyReplayed), w.Body.String())
	}
	var replayed domain.Response
	_ = json.Unmarshal(w.Body.Bytes(), &replayed)
	if replayed.ID != first.ID {
		t.Fatalf("replayed id=%s want %s", replayed.ID, first.ID)
	}

	// other routes keep the default budget
	if w := s.do(t, http.MethodGet, "/api/v1/surveys/"+id, "", nil); w.Code != http.StatusOK {
		t.Fatalf("get survey: %d", w.Code)
	}
}

func TestRegisterRoutes_LiveNeedsHub(t *testing.T) {
	s := newServer(t, testConfig(), Backends{})
	admin := s.adminToken(t)
	id := s.publishedSurvey(t, admin)
	if w := s.do(t, http.MethodGet, "/api/v1/surveys/"+id+"/live", admin, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("live without hub: %d", w.Code)
	}

	hub := live.NewHub()
	defer hub.Close()
	s = newServer(t, testConfig(), Backends{Hub: hub})
	admin = s.adminToken(t)
	id = s.publishedSurvey(t, admin)
	// a plain GET is not a websocket handshake; the upgrader answers 400
	if w := s.do(t, http.MethodGet, "/api/v1/surveys/"+id+"/live", admin, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("live without upgrade: %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix_joinPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}

	if got := joinPath("/", "/responses"); got != "/responses" {
		t.Fatalf("joinPath root = %q", got)
	}
	if got := joinPath("/api/v1", "/responses"); got != "/api/v1/responses" {
		t.Fatalf("joinPath = %q", got)
	}
}

func Test_idempotencyLookup_MissIsNotAnError(t *testing.T) {
	st := newTestStore(t)
	lookup := idempotencyLookup(st)

	rep, err := lookup(context.Background(), "u1", "/api/v1/responses", "nope", time.Now())
	if err != nil || rep != nil {
		t.Fatalf("miss: rep=%v err=%v", rep, err)
	}

	if _, err := st.CreateIdempotency(context.Background(), "u1", "/api/v1/responses", "k", "r-1", http.StatusCreated, time.Hour); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rep, err = lookup(context.Background(), "u1", "/api/v1/responses", "k", time.Now())
	if err != nil || rep == nil || rep.ResourceID != "r-1" || rep.Status != http.StatusCreated {
		t.Fatalf("hit: rep=%+v err=%v", rep, err)
	}
}
