package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/auth/session"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Service defines the behavior needed by the auth controller and the admin
// session middleware.
type Service interface {
	Login(ctx context.Context, sessionID string, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	AccessToken(ctx context.Context, sessionID string) (string, error)
}

type loginClient interface {
	Login(ctx context.Context, creds backend.Credentials) (backend.Tokens, error)
}

type sessionManager interface {
	Save(ctx context.Context, sessionID string, tokens session.Tokens, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (session.Tokens, error)
	Revoke(ctx context.Context, sessionID string) error
}

// LoginRequest is the credential payload posted by the admin login form.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is what the browser learns about its session. Tokens stay
// server-side. SessionID is the rotated id the cookie must switch to.
type LoginResponse struct {
	Username  string    `json:"username"`
	IsStaff   bool      `json:"isStaff"`
	ExpiresAt time.Time `json:"expiresAt"`
	SessionID string    `json:"-"`
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Backend        loginClient
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	// FallbackTTL is used when the access token carries no exp claim.
	FallbackTTL time.Duration
	Now         func() time.Time
	// NewSessionID mints the id a session moves to after login.
	NewSessionID func() (string, error)
}

type service struct {
	backend     loginClient
	sessions    sessionManager
	jwtCfg      config.JWTConfig
	fallbackTTL time.Duration
	now         func() time.Time
	newID       func() (string, error)
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.FallbackTTL <= 0 {
		return nil, fmt.Errorf("fallback ttl must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	newID := params.NewSessionID
	if newID == nil {
		newID = session.NewSessionID
	}
	return &service{
		backend:     params.Backend,
		sessions:    params.SessionManager,
		jwtCfg:      params.JWTConfig,
		fallbackTTL: params.FallbackTTL,
		now:         now,
		newID:       newID,
	}, nil
}

// Login exchanges credentials for backend tokens. Tokens are never stored
// under the pre-login id: the session is rotated to a fresh id and the old
// id loses any tokens it held.
func (s *service) Login(ctx context.Context, sessionID string, req LoginRequest) (*LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password are required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}

	tokens, err := s.backend.Login(ctx, backend.Credentials{Username: username, Password: req.Password})
	if err != nil {
		return nil, err
	}

	claims, err := pkgAuth.ParseAccessToken(s.jwtCfg, tokens.Access)
	if err != nil {
		if s.jwtCfg.Secret != "" {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "access token rejected")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend returned an unreadable token")
	}

	now := s.now()
	ttl, ok := claims.ExpiresIn(now)
	if !ok {
		ttl = s.fallbackTTL
	}
	if ttl <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token already expired")
	}

	rotated, err := s.newID()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session")
	}
	if err := s.sessions.Save(ctx, rotated, session.Tokens{Access: tokens.Access, Refresh: tokens.Refresh}, ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session tokens")
	}
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke previous session")
	}

	name := claims.Username
	if name == "" {
		name = username
	}
	return &LoginResponse{Username: name, IsStaff: claims.IsStaff, ExpiresAt: now.Add(ttl).UTC(), SessionID: rotated}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// AccessToken returns the backend token of a logged-in session.
func (s *service) AccessToken(ctx context.Context, sessionID string) (string, error) {
	tokens, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNoSession) {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue")
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session tokens")
	}
	return tokens.Access, nil
}
