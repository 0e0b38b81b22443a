package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type stubAuth struct {
	rotated   string
	loginErr  error
	loggedOut []string
}

func (s *stubAuth) Login(context.Context, string, auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &auth.LoginResponse{Username: "admin", IsStaff: true, ExpiresAt: time.Now().Add(time.Hour), SessionID: s.rotated}, nil
}

func (s *stubAuth) Logout(_ context.Context, sid string) error {
	s.loggedOut = append(s.loggedOut, sid)
	return nil
}

func (s *stubAuth) AccessToken(context.Context, string) (string, error) { return "access", nil }

type recordingHandoff struct {
	from, to string
	err      error
}

func (h *recordingHandoff) Move(_ context.Context, from, to string) error {
	h.from, h.to = from, to
	return h.err
}

type recordingPreviews struct {
	owners []string
}

func (p *recordingPreviews) CloseOwner(owner string) {
	p.owners = append(p.owners, owner)
}

func withSession(sid string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(middleware.WithSessionID(r.Context(), sid)))
	})
}

func TestAuthLoginRotatesSessionCookie(t *testing.T) {
	svc := &stubAuth{rotated: "new-sid"}
	handoff := &recordingHandoff{}
	cfg := config.SessionConfig{CookieName: "sf_session", TTL: time.Hour}
	h := withSession("old-sid", AuthLogin(svc, handoff, cfg, logger.Nop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"pw"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "old-sid", handoff.from)
	assert.Equal(t, "new-sid", handoff.to)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sf_session", cookies[0].Name)
	assert.Equal(t, "new-sid", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotContains(t, rec.Body.String(), "new-sid", "the session id only travels in the cookie")
}

func TestAuthLoginStillRotatesWhenHandoffFails(t *testing.T) {
	svc := &stubAuth{rotated: "new-sid"}
	handoff := &recordingHandoff{err: errors.New("redis down")}
	h := withSession("old-sid", AuthLogin(svc, handoff, config.SessionConfig{TTL: time.Hour}, logger.Nop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"pw"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "new-sid", cookies[0].Value)
}

func TestAuthLoginFailureKeepsCookie(t *testing.T) {
	svc := &stubAuth{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handoff := &recordingHandoff{}
	h := withSession("old-sid", AuthLogin(svc, handoff, config.SessionConfig{TTL: time.Hour}, logger.Nop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"nope"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("failed login must not reissue the cookie")
	}
	if handoff.to != "" {
		t.Fatalf("failed login must not move the cart, moved to %q", handoff.to)
	}
}

func TestAuthLogoutClosesPreviews(t *testing.T) {
	svc := &stubAuth{}
	previews := &recordingPreviews{}
	h := withSession("admin-sid", AuthLogout(svc, previews, logger.Nop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"admin-sid"}, svc.loggedOut)
	assert.Equal(t, []string{"admin-sid"}, previews.owners)
}
