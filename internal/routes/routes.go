package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schoolgate/internal/handlers"
	"schoolgate/internal/middleware"
	"schoolgate/internal/models"
	"schoolgate/internal/services"
	"schoolgate/internal/session"
	pkghttp "schoolgate/pkg/http"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	dashboardHandler *handlers.DashboardHandler,
	accountHandler *handlers.AccountHandler,
	contactHandler *handlers.ContactHandler,
	roleRouter *services.RoleRouter,
	sessions session.Store,
	logger *slog.Logger,
) {
	rateLimitConfig := middleware.DefaultLoginRateLimit()

	// The login POST carries its own token check inside the guard, so the
	// shared CSRF middleware skips it.
	router.Use(middleware.CSRFProtection(sessions, logger, "/login"))

	// Public routes
	router.Get("/login", authHandler.LoginPage)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/login", authHandler.Login)

	// Root forwards signed-in visitors to their landing page
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r)
		if sess != nil && sess.Authenticated() {
			if destination, err := roleRouter.Destination(sess.Role); err == nil {
				pkghttp.Redirect(w, r, destination)
				return
			}
		}
		pkghttp.Redirect(w, r, "/login")
	})

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Post("/logout", authHandler.Logout)

		r.Get("/contact", contactHandler.ContactPage)
		r.Post("/contact", contactHandler.SubmitContact)

		r.Get("/account/password", accountHandler.ChangePasswordPage)
		r.Post("/account/password", accountHandler.ChangePassword)

		// Role-specific landing pages
		r.With(middleware.RequireRole(models.RoleAdmin, roleRouter, logger)).
			Get("/admin", dashboardHandler.Admin)
		r.With(middleware.RequireRole(models.RoleFaculty, roleRouter, logger)).
			Get("/faculty", dashboardHandler.Faculty)
		r.With(middleware.RequireRole(models.RoleStudent, roleRouter, logger)).
			Get("/student", dashboardHandler.Student)

		// Admin-only account administration
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin, roleRouter, logger))
			r.Get("/admin/accounts/new", accountHandler.NewAccountPage)
			r.Post("/admin/accounts", accountHandler.CreateAccount)
		})
	})
}
