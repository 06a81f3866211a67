package handlers

import (
	"log/slog"
	"net/http"

	"schoolgate/internal/middleware"
	"schoolgate/internal/models"
)

// DashboardHandler serves the role-specific landing pages.
type DashboardHandler struct {
	logger *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{logger: logger}
}

type dashboardData struct {
	Title    string
	Username string
	Role     string
	IsAdmin  bool
}

func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, title string) {
	sess := middleware.SessionFromContext(r)
	if sess == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	renderTemplate(w, h.logger, "dashboard.html", dashboardData{
		Title:    title,
		Username: sess.Username,
		Role:     string(sess.Role),
		IsAdmin:  sess.Role == models.RoleAdmin,
	})
}

// Admin serves the administrator landing page
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Administration")
}

// Faculty serves the faculty landing page
func (h *DashboardHandler) Faculty(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Faculty Portal")
}

// Student serves the student landing page
func (h *DashboardHandler) Student(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Student Portal")
}
