package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/ui"
	"github.com/angelmondragon/storefront/pkg/auth/session"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

// stubAuthService accepts only the "admin" password and rotates to rotated.
type stubAuthService struct {
	rotated string
}

func (s stubAuthService) Login(_ context.Context, _ string, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if req.Password != "admin" || s.rotated == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	return &auth.LoginResponse{Username: req.Username, IsStaff: true, ExpiresAt: time.Now().Add(time.Hour), SessionID: s.rotated}, nil
}

func (stubAuthService) Logout(context.Context, string) error { return nil }

func (stubAuthService) AccessToken(context.Context, string) (string, error) {
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue")
}

func testConfig() *config.Config {
	return &config.Config{
		App:        config.AppConfig{Env: "dev"},
		Session:    config.SessionConfig{CookieName: "sf_session", TTL: time.Hour},
		LoginLimit: config.LoginRateLimitConfig{Window: time.Minute, IPLimit: 1, UsernameLimit: 5},
		Media:      config.MediaConfig{MaxUploadMB: 1},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWithAuth(t, stubAuthService{})
}

func newTestRouterWithAuth(t *testing.T, authSvc auth.Service) http.Handler {
	t.Helper()
	carts, err := cart.NewRegistry(cart.NewMemoryRepository())
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	return NewRouter(testConfig(), logger.Nop(), Dependencies{
		KV:       pkgredis.NewMemory(),
		Gatherer: reg,
		HTTP:     metrics.NewHTTPMetrics(reg),
		Carts:    carts,
		Sessions: carts,
		UI:       ui.NewRegistry(),
		Auth:     authSvc,
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCartIsScopedToSessionCookie(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{"variantId":7,"price":"500","quantity":3}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalItems":3`)
	assert.Contains(t, rec.Body.String(), `"totalPrice":"1500"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalItems":0`, "a new browser gets its own cart")
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/banners", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	router := newTestRouter(t)
	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"nope"}`))
		req.RemoteAddr = "7.7.7.7:1000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestLoginRotatesSessionAndKeepsCart(t *testing.T) {
	rotated, err := session.NewSessionID()
	require.NoError(t, err)
	router := newTestRouterWithAuth(t, stubAuthService{rotated: rotated})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cart/items", strings.NewReader(`{"variantId":7,"price":"500","quantity":2}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	anonymous := rec.Result().Cookies()
	require.Len(t, anonymous, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"admin"}`))
	req.AddCookie(anonymous[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	issued := rec.Result().Cookies()
	require.Len(t, issued, 1)
	assert.Equal(t, rotated, issued[0].Value)
	assert.NotEqual(t, anonymous[0].Value, issued[0].Value)

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(issued[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"totalItems":2`, "the cart follows the rotated session")

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(anonymous[0])
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"totalItems":0`, "the pre-login id no longer holds the cart")
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	router := newTestRouter(t)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
