package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"schoolgate/internal/models"
	"schoolgate/internal/session"
	pkghttp "schoolgate/pkg/http"
)

type contextKey string

const sessionContextKey contextKey = "session"

// RoleDestination resolves a role to its landing path. Satisfied by
// services.RoleRouter.
type RoleDestination interface {
	Destination(role models.Role) (string, error)
}

// LoadSession attaches a browser session to every request. A request without
// a valid session cookie gets a fresh session and cookie so the login form
// always has a CAPTCHA challenge and an anti-forgery token to render.
func LoadSession(store session.Store, cookies *session.CookieCodec, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *session.Session

			if token, err := cookies.Read(r); err == nil {
				sess, err = store.Get(r.Context(), token)
				if err != nil && !errors.Is(err, session.ErrNotFound) {
					logger.Error("failed to load session", slog.Any("error", err))
				}
			}

			if sess == nil {
				created, err := store.Create(r.Context())
				if err != nil {
					logger.Error("failed to create session", slog.Any("error", err))
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				if err := cookies.Write(w, created.Token); err != nil {
					logger.Error("failed to write session cookie", slog.Any("error", err))
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				sess = created
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session attached by LoadSession, or nil.
func SessionFromContext(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionContextKey).(*session.Session)
	return sess
}

// RequireAuth redirects unauthenticated requests to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r)
		if sess == nil || !sess.Authenticated() {
			pkghttp.Redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits only the given role. Authenticated accounts with a
// different (known) role are sent to their own landing page; an unknown role
// is a data fault and ends the session.
func RequireRole(role models.Role, router RoleDestination, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r)
			if sess == nil || !sess.Authenticated() {
				pkghttp.Redirect(w, r, "/login")
				return
			}

			if sess.Role == role {
				next.ServeHTTP(w, r)
				return
			}

			destination, err := router.Destination(sess.Role)
			if err != nil {
				logger.Error("session carries unrecognized role",
					slog.String("account_id", sess.AccountID))
				pkghttp.RedirectWithError(w, r, "/login", "server_error")
				return
			}
			pkghttp.Redirect(w, r, destination)
		})
	}
}
