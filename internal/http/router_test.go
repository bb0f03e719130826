package httpapi

import (
	"bytes"
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

	"github.com/tbourn/go-todo-backend/internal/config"
	"github.com/tbourn/go-todo-backend/internal/domain"
	"github.com/tbourn/go-todo-backend/internal/http/middleware"
	"github.com/tbourn/go-todo-backend/internal/repo"
	"github.com/tbourn/go-todo-backend/internal/search"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newIndexes() Indexes {
	return Indexes{Todos: search.NewTodoMirror(), Categories: search.NewCategoryMirror()}
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api",
		AppName:        "todoApp",
		RateRPS:        100,
		RateBurst:      50,
		MaxBodyBytes:   1 << 20,
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func serve(r *gin.Engine, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), newIndexes(), testConfig())

	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	w = serve(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	if w = serve(r, http.MethodGet, "/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if w = serve(r, http.MethodPost, "/health", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// swagger is off unless enabled
	if w = serve(r, http.MethodGet, "/swagger/index.html", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	RegisterRoutes(r, newTestDB(t), newIndexes(), cfg)

	w := serve(r, http.MethodGet, "/health", "", "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_EntityAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), newIndexes(), testConfig())

	w := serve(r, http.MethodPost, "/api/todos", `{"task":"AAAAAAAAAA","description":"AAAAAAAAAA","completed":false}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var td domain.Todo
	if err := json.Unmarshal(w.Body.Bytes(), &td); err != nil {
		t.Fatal(err)
	}
	id := *td.ID
	if w.Header().Get("X-todoApp-alert") != "todoApp.todo.created" {
		t.Fatalf("alert: %v", w.Header())
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got == "" {
		t.Fatalf("custom headers should be exposed")
	}

	w = serve(r, http.MethodGet, fmt.Sprintf("/api/_search/todos?query=id:%d", id), "")
	var hits []domain.Todo
	_ = json.Unmarshal(w.Body.Bytes(), &hits)
	if w.Code != http.StatusOK || len(hits) != 1 || *hits[0].ID != id {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}

	for _, m := range []string{http.MethodPut, http.MethodPatch} {
		if w = serve(r, m, "/api/todos", `{"task":"x"}`); w.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s without id = %d", m, w.Code)
		}
	}

	if w = serve(r, http.MethodDelete, fmt.Sprintf("/api/todos/%d", id), ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w = serve(r, http.MethodGet, fmt.Sprintf("/api/todos/%d", id), ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestRegisterRoutes_IdempotentCreateThroughStack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.RateBurst = 1
	cfg.RateRPS = 0.001
	RegisterRoutes(r, newTestDB(t), newIndexes(), cfg)

	first := serve(r, http.MethodPost, "/api/categories", `{"name":"home"}`, middleware.HeaderIdempotencyKey, "cat-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("first: %d %s", first.Code, first.Body.String())
	}
	// The bucket is empty now; only a replay gets through.
	replay := serve(r, http.MethodPost, "/api/categories", `{"name":"home"}`, middleware.HeaderIdempotencyKey, "cat-1")
	if replay.Code != http.StatusCreated || replay.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: %d %v", replay.Code, replay.Header())
	}
	other := serve(r, http.MethodPost, "/api/categories", `{"name":"work"}`, middleware.HeaderIdempotencyKey, "cat-2")
	if other.Code != http.StatusTooManyRequests {
		t.Fatalf("new key should be rate limited, got %d", other.Code)
	}

	bad := serve(r, http.MethodPost, "/api/categories", `{}`, middleware.HeaderIdempotencyKey, "bad key!")
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("invalid key: %d", bad.Code)
	}
}

func TestRegisterRoutes_RateLimitKey(t *testing.T) {
	cases := []struct {
		key                     string
		postCode, secondGetCode int
	}{
		{"ip", http.StatusTooManyRequests, http.StatusTooManyRequests},
		{"ip_method", http.StatusCreated, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			r := gin.New()
			cfg := testConfig()
			cfg.RateBurst = 1
			cfg.RateRPS = 0.001
			cfg.RateKey = tc.key
			RegisterRoutes(r, newTestDB(t), newIndexes(), cfg)

			if w := serve(r, http.MethodGet, "/api/todos", ""); w.Code != http.StatusOK {
				t.Fatalf("first GET: %d", w.Code)
			}
			if w := serve(r, http.MethodPost, "/api/todos", `{"task":"t"}`); w.Code != tc.postCode {
				t.Fatalf("POST after GET: %d, want %d", w.Code, tc.postCode)
			}
			if w := serve(r, http.MethodGet, "/api/todos", ""); w.Code != tc.secondGetCode {
				t.Fatalf("second GET: %d, want %d", w.Code, tc.secondGetCode)
			}
		})
	}
}

func TestRegisterRoutes_GzipAndSwagger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.GzipEnabled = true
	cfg.SwaggerEnabled = true
	RegisterRoutes(r, newTestDB(t), newIndexes(), cfg)

	w := serve(r, http.MethodGet, "/api/todos", "", "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("gzip: %d %v", w.Code, w.Header())
	}
	if w = serve(r, http.MethodGet, "/swagger/doc.json", ""); w.Code != http.StatusOK {
		t.Fatalf("swagger doc: %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := serve(r, http.MethodPost, "/echo", "0123456789AB")
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, "")
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}
