package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/diagram-service/internal/auth"
	"github.com/iliyamo/diagram-service/internal/config"
	"github.com/iliyamo/diagram-service/internal/handler"
	"github.com/iliyamo/diagram-service/internal/repository"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

func serve(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestErrorHandler_Envelope(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"validation", &handler.ValidationError{Message: "Missing required fields: name"}, 400, "Missing required fields: name"},
		{"not found", &handler.NotFoundError{ID: 3}, 404, "Diagram with ID '3' not found"},
		{"store create", &repository.StoreError{Op: "create", Err: errors.New("dup")}, 500, "Failed to create diagram"},
		{"store list", &repository.StoreError{Op: "list", Err: errors.New("x")}, 500, "Failed to read diagrams"},
		{"http error", echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), 429, "rate limit exceeded"},
		{"unknown", errors.New("boom"), 500, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEcho()
			e.GET("/x", func(echo.Context) error { return tc.err })

			rec := serve(e, http.MethodGet, "/x", nil)
			assert.Equal(t, tc.code, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tc.message, body["message"])
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["timestamp"])
		})
	}
}

func TestErrorHandler_UnknownRoute(t *testing.T) {
	rec := serve(newEcho(), http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestJWTAuthAndRole(t *testing.T) {
	const secret = "test-secret"
	e := newEcho()
	g := e.Group("/api", JWTAuth(secret), RequireRoleForWrites(auth.RoleEditor, auth.RoleAdmin))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, callerID(c)) }
	g.GET("/diagrams", ok)
	g.POST("/diagrams", ok)

	rec := serve(e, http.MethodGet, "/api/diagrams", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(e, http.MethodGet, "/api/diagrams", http.Header{"Authorization": {"Bearer garbage"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewer, err := auth.NewAccessToken(secret, "vic", auth.RoleViewer, time.Minute)
	require.NoError(t, err)
	hdr := http.Header{"Authorization": {"Bearer " + viewer.Token}}

	rec = serve(e, http.MethodGet, "/api/diagrams", hdr)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "vic", rec.Body.String())

	rec = serve(e, http.MethodPost, "/api/diagrams", hdr)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	editor, err := auth.NewAccessToken(secret, "eve", auth.RoleEditor, time.Minute)
	require.NoError(t, err)
	rec = serve(e, http.MethodPost, "/api/diagrams", http.Header{"Authorization": {"Bearer " + editor.Token}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "test-cache",
		MaxBodyBytes: 1 << 10,
	}
}

func TestRedisCache_HitMissInvalidate(t *testing.T) {
	mr, rdb := newRedis(t)
	rc := NewRedisCache(testCacheConfig(), rdb)
	require.NotNil(t, rc)

	calls := 0
	e := newEcho()
	e.GET("/api/diagrams", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, map[string]int{"calls": calls})
	}, rc.Middleware())

	rec := serve(e, http.MethodGet, "/api/diagrams?package_id=1", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	first := rec.Body.String()

	rec = serve(e, http.MethodGet, "/api/diagrams?package_id=1", nil)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, first, rec.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	rec = serve(e, http.MethodGet, "/api/diagrams?package_id=2", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)

	require.NoError(t, mr.Set("unrelated", "keep"))
	require.NoError(t, rc.Invalidate(testContext(t)))
	assert.Equal(t, []string{"unrelated"}, mr.Keys())

	rec = serve(e, http.MethodGet, "/api/diagrams?package_id=1", nil)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestRedisCache_SkipsErrorsAndLargeBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := testCacheConfig()
	cfg.MaxBodyBytes = 8
	rc := NewRedisCache(cfg, rdb)

	e := newEcho()
	e.GET("/big", func(c echo.Context) error {
		return c.String(http.StatusOK, strings.Repeat("x", 64))
	}, rc.Middleware())
	e.GET("/fail", func(echo.Context) error {
		return &handler.NotFoundError{ID: 1}
	}, rc.Middleware())

	serve(e, http.MethodGet, "/big", nil)
	rec := serve(e, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, mr.Keys())
}

func TestRedisCache_NilIsPassThrough(t *testing.T) {
	rc := NewRedisCache(config.CacheConfig{Enabled: false}, nil)
	assert.Nil(t, rc)
	assert.NoError(t, rc.Invalidate(testContext(t)))

	e := newEcho()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") }, rc.Middleware())
	rec := serve(e, http.MethodGet, "/x", nil)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "test-rl",
	}
	e := newEcho()
	e.Use(NewTokenBucket(cfg, rdb))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/x", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e := newEcho()
	e.Use(NewTokenBucket(cfg, rdb))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	mr.Close()
	for i := 0; i < 3; i++ {
		rec := serve(e, http.MethodGet, "/x", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/diagrams", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/diagrams")
	c.Set("user_id", "alice")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "subject_route"}
	assert.Equal(t, "rl:sub:alice:route:GET /api/diagrams", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))

	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:sub:alice:route:GET /api/diagrams", buildRateKey(cfg, c))
}

func TestMetricsMiddlewarePassesErrors(t *testing.T) {
	e := newEcho()
	e.Use(Metrics())
	e.GET("/x", func(echo.Context) error { return &handler.ValidationError{Message: "bad"} })
	rec := serve(e, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS_PreflightAllowsUpdateVerbs(t *testing.T) {
	const origin = "https://diagrams.example.com"
	e := newEcho()
	e.Use(CORS(origin))
	e.PATCH("/api/diagrams", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodOptions, "/api/diagrams", http.Header{
		"Origin":                        {origin},
		"Access-Control-Request-Method": {http.MethodPatch},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, origin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	allowed := rec.Header().Get(echo.HeaderAccessControlAllowMethods)
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.Contains(t, allowed, m)
	}
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

// testContext mirrors testing.T.Context (Go 1.24+): a context cancelled
// when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
