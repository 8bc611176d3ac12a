package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndPathLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics("/metrics"))
	r.GET("/api/v1/surveys/:id", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	r.DELETE("/api/v1/responses/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "# metrics") })

	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/surveys/:id", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404"))
	base204 := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/api/v1/responses/:id", "204"))
	baseMetrics := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/metrics", "200"))

	_ = serve(r, http.MethodGet, "/api/v1/surveys/s1", nil)
	_ = serve(r, http.MethodGet, "/api/v1/surveys/s2", nil)
	_ = serve(r, http.MethodGet, "/does-not-exist", nil)
	_ = serve(r, http.MethodDelete, "/api/v1/responses/r1", nil)
	_ = serve(r, http.MethodGet, "/metrics", nil)

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/surveys/:id", "200")); got != baseOK+2 {
		t.Fatalf("route counter = %v, want %v", got, baseOK+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404")); got != base404+1 {
		t.Fatalf("404 counter = %v, want %v", got, base404+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/api/v1/responses/:id", "204")); got != base204+1 {
		t.Fatalf("204 counter = %v, want %v", got, base204+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/metrics", "200")); got != baseMetrics {
		t.Fatalf("skipped path was recorded: %v", got)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("inflight = %v, want 0", inFlight)
	}
}

func TestMetrics_UpgradeLeavesInflightBalanced(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/v1/surveys/:id/live", func(c *gin.Context) {
		if got := testutil.ToFloat64(httpInflight); got != 0 {
			t.Errorf("open subscription counted as inflight: %v", got)
		}
		c.Status(http.StatusBadRequest)
	})

	base := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/surveys/:id/live", "400"))
	_ = serve(r, http.MethodGet, "/api/v1/surveys/s1/live", func(req *http.Request) { req.Header.Set("Upgrade", "websocket") })

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/v1/surveys/:id/live", "400")); got != base+1 {
		t.Fatalf("upgrade not counted: %v", got)
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight = %v after upgrade", got)
	}
}
