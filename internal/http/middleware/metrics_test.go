package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newMetricsEngine(t *testing.T, skip ...string) (*gin.Engine, *httpMetrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := newHTTPMetrics(prometheus.NewRegistry())
	r := gin.New()
	r.Use(m.handler(skip...))
	// same shape as the router's fallback, so unmatched requests write a body
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "route not found"})
	})
	r.GET("/api/todos/:id", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": c.Param("id")}) })
	r.DELETE("/api/todos/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "# scrape") })
	return r, m
}

func serve(r http.Handler, method, target string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w.Code
}

func TestMetrics_LabelsByRouteTemplate(t *testing.T) {
	r, m := newMetricsEngine(t)

	for _, id := range []string{"1", "2", "3"} {
		if code := serve(r, http.MethodGet, "/api/todos/"+id); code != http.StatusOK {
			t.Fatalf("GET todo %s -> %d", id, code)
		}
	}

	if got := testutil.ToFloat64(m.reqs.WithLabelValues("GET", "/api/todos/:id", "200")); got != 3 {
		t.Fatalf("requests for route template = %v; want 3", got)
	}
	// ids never become label values
	if n := testutil.CollectAndCount(m.reqs); n != 1 {
		t.Fatalf("request series = %d; want 1", n)
	}
	if v := testutil.ToFloat64(m.inflight); v != 0 {
		t.Fatalf("inflight = %v; want 0", v)
	}
}

func TestMetrics_UnmatchedAndBodylessResponses(t *testing.T) {
	r, m := newMetricsEngine(t)

	if code := serve(r, http.MethodGet, "/wp-login.php"); code != http.StatusNotFound {
		t.Fatalf("scanner request -> %d", code)
	}
	if code := serve(r, http.MethodGet, "/.env"); code != http.StatusNotFound {
		t.Fatalf("scanner request -> %d", code)
	}
	if got := testutil.ToFloat64(m.reqs.WithLabelValues("GET", unmatchedPath, "404")); got != 2 {
		t.Fatalf("unmatched 404s = %v; want 2", got)
	}

	if code := serve(r, http.MethodDelete, "/api/todos/9"); code != http.StatusNoContent {
		t.Fatalf("delete -> %d", code)
	}
	if got := testutil.ToFloat64(m.reqs.WithLabelValues("DELETE", "/api/todos/:id", "204")); got != 1 {
		t.Fatalf("delete counter = %v; want 1", got)
	}
	// the 404 envelope is sized; the bodyless 204 is not
	if n := testutil.CollectAndCount(m.respSize); n != 1 {
		t.Fatalf("size series = %d; want 1 (unmatched GET only)", n)
	}
}

func TestMetrics_SkipsListedRoutes(t *testing.T) {
	r, m := newMetricsEngine(t, "/metrics")

	if code := serve(r, http.MethodGet, "/metrics"); code != http.StatusOK {
		t.Fatalf("scrape -> %d", code)
	}
	if n := testutil.CollectAndCount(m.reqs); n != 0 {
		t.Fatalf("scrape was observed: %d series", n)
	}
}
