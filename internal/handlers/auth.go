package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"schoolgate/internal/middleware"
	"schoolgate/internal/models"
	"schoolgate/internal/services"
	"schoolgate/internal/session"
	pkghttp "schoolgate/pkg/http"
)

// LoginGuardInterface defines the interface for the login decision pipeline
type LoginGuardInterface interface {
	Check(ctx context.Context, sess *session.Session, in services.LoginInput) (*services.LoginResult, error)
	LockoutRemaining(sess *session.Session) time.Duration
}

// RoleRouterInterface resolves a role to its post-login landing page
type RoleRouterInterface interface {
	Destination(role models.Role) (string, error)
}

// AuthHandler serves the login page and processes sign-in and sign-out.
type AuthHandler struct {
	guard    LoginGuardInterface
	router   RoleRouterInterface
	sessions session.Store
	cookies  *session.CookieCodec
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	guard LoginGuardInterface,
	router RoleRouterInterface,
	sessions session.Store,
	cookies *session.CookieCodec,
	ipConfig *pkghttp.IPConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		guard:    guard,
		router:   router,
		sessions: sessions,
		cookies:  cookies,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// loginPageData is the view model for the login template
type loginPageData struct {
	Title           string
	Error           string
	Message         string
	CSRFToken       string
	CaptchaQuestion string
	FailedAttempts  int
	LockoutSeconds  int
}

// errorMessages maps rejection codes carried in the query string to text the
// page can show. Codes outside this table render a generic line so the URL
// bar cannot be used to inject copy.
var errorMessages = map[services.RejectKind]string{
	services.RejectInvalidSecurityToken:    "Your form expired. Please try again.",
	services.RejectTemporarilyLocked:       "Too many failed attempts. Please wait before trying again.",
	services.RejectMissingCredentials:      "Please enter both your username and password.",
	services.RejectCaptchaMismatch:         "The verification answer was incorrect.",
	services.RejectInvalidIdentifierFormat: "That username is not valid.",
	services.RejectTooFast:                 "You are submitting too quickly. Please wait a moment.",
	services.RejectInvalidCredentials:      "The username or password is incorrect.",
	"server_error":                         "Something went wrong on our end. Please try again.",
}

var statusMessages = map[string]string{
	"logged_out":       "You have been signed out.",
	"password_changed": "Your password has been updated. Please sign in again.",
	"account_created":  "The account has been created.",
}

// LoginPage renders the sign-in form. Already-authenticated visitors are
// forwarded to their landing page instead.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r)
	if sess == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	if sess.Authenticated() {
		destination, err := h.router.Destination(sess.Role)
		if err == nil {
			pkghttp.Redirect(w, r, destination)
			return
		}
		// Unknown role on a live session is a data fault. End the session
		// and start over with a fresh one.
		h.logger.Error("authenticated session carries unrecognized role",
			slog.String("account_id", sess.AccountID))
		h.endSession(w, r, sess)
		pkghttp.RedirectWithError(w, r, "/login", "server_error")
		return
	}

	data := loginPageData{
		Title:           "Sign In",
		Error:           errorMessages[services.RejectKind(r.URL.Query().Get("error"))],
		Message:         statusMessages[r.URL.Query().Get("message")],
		CSRFToken:       sess.CSRFToken,
		CaptchaQuestion: sess.CaptchaQuestion,
		FailedAttempts:  sess.FailedAttempts,
		LockoutSeconds:  int(h.guard.LockoutRemaining(sess).Seconds()),
	}
	if r.URL.Query().Get("error") != "" && data.Error == "" {
		data.Error = "Sign-in failed. Please try again."
	}

	renderTemplate(w, h.logger, "login.html", data)
}

// Login processes a sign-in submission and redirects according to the
// guard's decision.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r)
	if sess == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	if err := r.ParseForm(); err != nil {
		pkghttp.RedirectWithError(w, r, "/login", string(services.RejectMissingCredentials))
		return
	}

	input := services.LoginInput{
		Identifier:    strings.TrimSpace(r.PostFormValue("username")),
		Secret:        r.PostFormValue("password"),
		CSRFToken:     r.PostFormValue("csrf_token"),
		CaptchaAnswer: strings.TrimSpace(r.PostFormValue("captcha_answer")),
		IPAddress:     pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:     r.UserAgent(),
	}

	result, err := h.guard.Check(r.Context(), sess, input)
	if err != nil {
		h.logger.Error("login check failed", slog.Any("error", err))
		pkghttp.RedirectWithError(w, r, "/login", "server_error")
		return
	}

	if !result.Authenticated() {
		rej := result.Rejection
		if rej.Kind == services.RejectTemporarilyLocked && rej.RetryAfter > 0 {
			pkghttp.RedirectWithQuery(w, r, "/login", url.Values{
				"error": {string(rej.Kind)},
				"wait":  {fmt.Sprintf("%d", int(rej.RetryAfter.Seconds()))},
			})
			return
		}
		pkghttp.RedirectWithError(w, r, "/login", string(rej.Kind))
		return
	}

	// The guard rotated the session token on success. Reissue the cookie so
	// the browser follows the new identity.
	if err := h.cookies.Write(w, sess.Token); err != nil {
		h.logger.Error("failed to write session cookie", slog.Any("error", err))
		pkghttp.RedirectWithError(w, r, "/login", "server_error")
		return
	}

	destination, err := h.router.Destination(result.Account.Role)
	if err != nil {
		// An account whose stored role is outside the known set must not
		// stay signed in.
		h.logger.Error("account has unrecognized role",
			slog.String("account_id", result.Account.ID))
		h.endSession(w, r, sess)
		pkghttp.RedirectWithError(w, r, "/login", "server_error")
		return
	}

	pkghttp.Redirect(w, r, destination)
}

// Logout ends the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.SessionFromContext(r); sess != nil {
		h.endSession(w, r, sess)
	}
	pkghttp.RedirectWithMessage(w, r, "/login", "logged_out")
}

func (h *AuthHandler) endSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := h.sessions.Delete(r.Context(), sess.Token); err != nil {
		h.logger.Error("failed to delete session", slog.Any("error", err))
	}
	h.cookies.Clear(w)
}
