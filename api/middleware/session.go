package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/pkg/auth/session"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const defaultSessionCookie = "sf_session"

// Session binds every request to a storefront session. A browser without a
// cookie minted by this service is issued a fresh id.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(cookieName(cfg)); err == nil {
				sid = strings.TrimSpace(cookie.Value)
			}
			if !session.ValidSessionID(sid) {
				generated, err := session.NewSessionID()
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue session"))
					return
				}
				sid = generated
				SetSessionCookie(w, cfg, sid)
			}

			ctx := WithSessionID(r.Context(), sid)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sid)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie points the browser at sid, e.g. after login rotated it.
func SetSessionCookie(w http.ResponseWriter, cfg config.SessionConfig, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(cfg),
		Value:    sid,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieName(cfg config.SessionConfig) string {
	if cfg.CookieName == "" {
		return defaultSessionCookie
	}
	return cfg.CookieName
}
