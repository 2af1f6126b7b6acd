package router

import (
	"context"
	"net/http"
	"net/http/httptest"
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
	"github.com/iliyamo/diagram-service/internal/middleware"
	"github.com/iliyamo/diagram-service/internal/model"
	"github.com/iliyamo/diagram-service/internal/repository"
)

type emptyStore struct{}

func (emptyStore) Create(_ context.Context, in model.DiagramInput) (*model.Diagram, error) {
	d := in.ApplyDefaults()
	d.DiagramID = 1
	return &d, nil
}

func (emptyStore) GetByID(context.Context, int64) (*model.Diagram, error) { return nil, nil }

func (emptyStore) List(context.Context, repository.DiagramFilter) ([]*model.Diagram, error) {
	return []*model.Diagram{}, nil
}

func (emptyStore) Update(context.Context, int64, model.DiagramInput) (*model.Diagram, error) {
	return nil, nil
}

func (emptyStore) Delete(context.Context, int64) (bool, error) { return false, nil }

const testSecret = "router-secret"

func bearer(t *testing.T, sub, role string) http.Header {
	t.Helper()
	tok, err := auth.NewAccessToken(testSecret, sub, role, time.Minute)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + tok.Token}}
}

func do(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newDiagramServer(t *testing.T, strategy string) *echo.Echo {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	limiter := middleware.NewTokenBucket(config.RateLimitConfig{
		Enabled:        true,
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    strategy,
		Prefix:         "rl",
		Debug:          true,
	}, rdb)

	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	RegisterDiagrams(e, handler.NewDiagramHandler(emptyStore{}, nil, nil), DiagramOptions{
		JWTSecret: testSecret,
		RateLimit: limiter,
	})
	return e
}

func TestRegisterDiagrams_RateLimitPerSubject(t *testing.T) {
	e := newDiagramServer(t, "subject")

	alice := bearer(t, "alice", auth.RoleViewer)
	bob := bearer(t, "bob", auth.RoleViewer)

	rec := do(e, http.MethodGet, "/api/diagrams", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rl:sub:alice", rec.Header().Get("X-RateLimit-Key"))

	rec = do(e, http.MethodGet, "/api/diagrams", bob)
	require.Equal(t, http.StatusOK, rec.Code, "each subject has its own bucket")
	assert.Equal(t, "rl:sub:bob", rec.Header().Get("X-RateLimit-Key"))

	rec = do(e, http.MethodGet, "/api/diagrams", alice)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRegisterDiagrams_AuthBeforeLimiter(t *testing.T) {
	e := newDiagramServer(t, "subject")

	// rejected requests must not drain anyone's bucket
	for i := 0; i < 3; i++ {
		rec := do(e, http.MethodGet, "/api/diagrams", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := do(e, http.MethodGet, "/api/diagrams", bearer(t, "alice", auth.RoleViewer))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterDiagrams_WritesNeedEditor(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	RegisterDiagrams(e, handler.NewDiagramHandler(emptyStore{}, nil, nil), DiagramOptions{JWTSecret: testSecret})

	rec := do(e, http.MethodDelete, "/api/diagrams?diagram_id=1", bearer(t, "vic", auth.RoleViewer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodDelete, "/api/diagrams?diagram_id=1", bearer(t, "eve", auth.RoleEditor))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPatch, "/api/diagrams?diagram_id=1", bearer(t, "eve", auth.RoleEditor))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty body is invalid JSON")
}

func TestRegisterDiagrams_OpenWithoutSecret(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	RegisterDiagrams(e, handler.NewDiagramHandler(emptyStore{}, nil, nil), DiagramOptions{})

	rec := do(e, http.MethodGet, "/api/diagrams", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e)

	rec := do(e, http.MethodGet, "/healthz", nil)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(e, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/api/hello", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
