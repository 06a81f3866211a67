package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"schoolgate/internal/middleware"
	"schoolgate/internal/models"
	pkgauth "schoolgate/pkg/auth"
	pkghttp "schoolgate/pkg/http"
)

// AccountServiceInterface defines the interface for account administration
type AccountServiceInterface interface {
	Create(ctx context.Context, username, password, displayName string, role models.Role) (*models.Account, error)
	ChangePassword(ctx context.Context, accountID, current, newPassword string) error
}

// AccountHandler handles account administration and self-service requests.
type AccountHandler struct {
	service AccountServiceInterface
	logger  *slog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountServiceInterface, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: service, logger: logger}
}

// createAccountForm mirrors the admin account creation form fields
type createAccountForm struct {
	Username    string `validate:"required,min=3,max=50"`
	Password    string `validate:"required"`
	DisplayName string `validate:"required,min=1,max=100"`
	Role        string `validate:"required,oneof=admin faculty student"`
}

type accountPageData struct {
	Title     string
	Error     string
	Message   string
	CSRFToken string
}

// NewAccountPage renders the admin form for creating an account
func (h *AccountHandler) NewAccountPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r)
	if sess == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	renderTemplate(w, h.logger, "account_new.html", accountPageData{
		Title:     "Create Account",
		Error:     r.URL.Query().Get("error"),
		Message:   statusMessages[r.URL.Query().Get("message")],
		CSRFToken: sess.CSRFToken,
	})
}

// CreateAccount processes the admin account creation form
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		pkghttp.RedirectWithError(w, r, "/admin/accounts/new", "invalid form submission")
		return
	}

	form := createAccountForm{
		Username:    strings.TrimSpace(r.PostFormValue("username")),
		Password:    r.PostFormValue("password"),
		DisplayName: strings.TrimSpace(r.PostFormValue("display_name")),
		Role:        r.PostFormValue("role"),
	}

	if err := ValidateRequest(form); err != nil {
		pkghttp.RedirectWithError(w, r, "/admin/accounts/new", err.Error())
		return
	}

	_, err := h.service.Create(r.Context(), form.Username, form.Password, form.DisplayName, models.Role(form.Role))
	if err != nil {
		var pve *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &pve):
			// Admins see the concrete requirements the password missed.
			pkghttp.RedirectWithError(w, r, "/admin/accounts/new", strings.Join(pve.Errors, "; "))
		case errors.Is(err, models.ErrConflict):
			pkghttp.RedirectWithError(w, r, "/admin/accounts/new", "that username is already taken")
		default:
			h.logger.Error("failed to create account", slog.Any("error", err))
			pkghttp.RedirectWithError(w, r, "/admin/accounts/new", "could not create the account")
		}
		return
	}

	pkghttp.RedirectWithMessage(w, r, "/admin/accounts/new", "account_created")
}

// ChangePassword processes the self-service password change form
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r)
	if sess == nil || !sess.Authenticated() {
		pkghttp.Redirect(w, r, "/login")
		return
	}

	if err := r.ParseForm(); err != nil {
		pkghttp.RedirectWithError(w, r, "/account/password", "invalid form submission")
		return
	}

	current := r.PostFormValue("current_password")
	replacement := r.PostFormValue("new_password")

	err := h.service.ChangePassword(r.Context(), sess.AccountID, current, replacement)
	if err != nil {
		var pve *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &pve):
			pkghttp.RedirectWithError(w, r, "/account/password", strings.Join(pve.Errors, "; "))
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.RedirectWithError(w, r, "/account/password", "current password is incorrect")
		default:
			h.logger.Error("failed to change password", slog.Any("error", err))
			pkghttp.RedirectWithError(w, r, "/account/password", "could not update the password")
		}
		return
	}

	pkghttp.RedirectWithMessage(w, r, "/login", "password_changed")
}

// ChangePasswordPage renders the self-service password change form
func (h *AccountHandler) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r)
	if sess == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	renderTemplate(w, h.logger, "account_password.html", accountPageData{
		Title:     "Change Password",
		Error:     r.URL.Query().Get("error"),
		Message:   statusMessages[r.URL.Query().Get("message")],
		CSRFToken: sess.CSRFToken,
	})
}
