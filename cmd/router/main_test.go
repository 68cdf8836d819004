package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mir00r/edge-router/internal/config"
	"github.com/mir00r/edge-router/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoutes(t *testing.T) (http.Handler, *config.Config) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = config.DriverMemory
	cfg.Admin.Enabled = true
	cfg.Admin.JWTSecret = "s3cret"
	require.NoError(t, cfg.Validate())

	a, err := newApp(cfg, testLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	routes, err := newRouter(a)
	require.NoError(t, err)
	return routes, cfg
}

func serve(routes http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, req)
	return rec
}

func TestRouterOperationalEndpoints(t *testing.T) {
	routes, _ := newTestRoutes(t)

	rec := serve(routes, httptest.NewRequest(http.MethodGet, "/liveness", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(routes, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(routes, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouterRedirectsRoot(t *testing.T) {
	routes, _ := newTestRoutes(t)

	rec := serve(routes, httptest.NewRequest(http.MethodGet, "http://dev.verihire.cc/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://dev.verihire.cc/app", rec.Header().Get("Location"))

	rec = serve(routes, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "edge_router_redirects_total 1")
}

func TestRouterAdminRequiresToken(t *testing.T) {
	routes, cfg := newTestRoutes(t)

	rec := serve(routes, httptest.NewRequest(http.MethodGet, "/admin/origins", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	jwtAuth, err := middleware.NewJWTAuthMiddleware(middleware.JWTAuthConfig{
		Secret: cfg.Admin.JWTSecret,
		Issuer: cfg.Admin.JWTIssuer,
	}, testLogger(t))
	require.NoError(t, err)
	token, err := jwtAuth.IssueToken("ops", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/origins", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(routes, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blue-api.dev.verihire.cc")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}
