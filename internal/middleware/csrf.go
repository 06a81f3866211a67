package middleware

import (
	"log/slog"
	"net/http"

	"schoolgate/internal/auth"
	"schoolgate/internal/session"
)

// CSRFProtection validates the form's anti-forgery token on state-changing
// requests against the token held in the session, and rotates the token
// after a successful check so a submitted form cannot be replayed.
//
// The login endpoint is exempt: the login guard performs its own token
// check so the failure can be classified alongside the other rejections.
func CSRFProtection(store session.Store, logger *slog.Logger, exemptPaths ...string) func(http.Handler) http.Handler {
	exempt := make(map[string]bool, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) || exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			sess := SessionFromContext(r)
			if sess == nil {
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}

			submitted := r.PostFormValue("csrf_token")
			if !auth.VerifyToken(sess.CSRFToken, submitted) {
				logger.Warn("CSRF token validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				http.Error(w, "CSRF token invalid", http.StatusForbidden)
				return
			}

			// Rotate so the consumed token cannot be replayed.
			fresh, err := auth.NewToken()
			if err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			sess.CSRFToken = fresh
			if err := store.Save(r.Context(), sess); err != nil {
				logger.Error("failed to rotate CSRF token", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
