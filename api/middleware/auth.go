package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type accessTokenSource interface {
	AccessToken(ctx context.Context, sessionID string) (string, error)
}

// RequireSession admits requests whose storefront session holds backend
// tokens and binds the access token for forwarding. It must run after
// Session.
func RequireSession(source accessTokenSource, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if source == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
				return
			}
			sid := SessionIDFromContext(ctx)
			if sid == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session"))
				return
			}

			token, err := source.AccessToken(ctx, sid)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if logg != nil {
				ctx = logg.WithField(ctx, "authenticated", true)
			}
			next.ServeHTTP(w, r.WithContext(WithAccessToken(ctx, token)))
		})
	}
}
