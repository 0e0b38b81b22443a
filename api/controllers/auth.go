package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// SessionHandoff carries per-session state over to a rotated session id.
type SessionHandoff interface {
	Move(ctx context.Context, from, to string) error
}

// PreviewCloser releases image previews held for a session.
type PreviewCloser interface {
	CloseOwner(owner string)
}

// AuthLogin exchanges admin credentials for backend tokens held by the
// session. A successful login rotates the session id: the cart follows the
// browser to the new id and the cookie is reissued.
func AuthLogin(svc auth.Service, handoff SessionHandoff, sessionCfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		previous := middleware.SessionIDFromContext(ctx)
		resp, err := svc.Login(ctx, previous, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if handoff != nil && resp.SessionID != previous {
			if err := handoff.Move(ctx, previous, resp.SessionID); err != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "failed to carry cart over to rotated session")
			}
		}
		middleware.SetSessionCookie(w, sessionCfg, resp.SessionID)
		responses.WriteSuccess(w, resp)
	}
}

// AuthLogout drops the session's backend tokens and any image previews the
// admin left open.
func AuthLogout(svc auth.Service, previews PreviewCloser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}
		sid := middleware.SessionIDFromContext(r.Context())
		if err := svc.Logout(r.Context(), sid); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if previews != nil {
			previews.CloseOwner(sid)
		}
		responses.WriteNoContent(w)
	}
}
