package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"schoolgate/internal/middleware"
	pkghttp "schoolgate/pkg/http"
)

// ContactServiceInterface defines the interface for contact form submissions
type ContactServiceInterface interface {
	Submit(ctx context.Context, accountID, username, subject, body string) error
}

// ContactHandler serves the signed-in contact form.
type ContactHandler struct {
	service ContactServiceInterface
	logger  *slog.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactServiceInterface, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{service: service, logger: logger}
}

type contactForm struct {
	Subject string `validate:"required,min=1,max=200"`
	Body    string `validate:"required,min=1,max=5000"`
}

type contactPageData struct {
	Title     string
	Error     string
	Message   string
	CSRFToken string
}

// ContactPage renders the contact form
func (h *ContactHandler) ContactPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r)
	if sess == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	data := contactPageData{
		Title:     "Contact the Office",
		Error:     r.URL.Query().Get("error"),
		CSRFToken: sess.CSRFToken,
	}
	if r.URL.Query().Get("message") == "sent" {
		data.Message = "Your message has been sent."
	}

	renderTemplate(w, h.logger, "contact.html", data)
}

// SubmitContact processes a contact form submission
func (h *ContactHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r)
	if sess == nil || !sess.Authenticated() {
		pkghttp.Redirect(w, r, "/login")
		return
	}

	if err := r.ParseForm(); err != nil {
		pkghttp.RedirectWithError(w, r, "/contact", "invalid form submission")
		return
	}

	form := contactForm{
		Subject: strings.TrimSpace(r.PostFormValue("subject")),
		Body:    strings.TrimSpace(r.PostFormValue("body")),
	}

	if err := ValidateRequest(form); err != nil {
		pkghttp.RedirectWithError(w, r, "/contact", err.Error())
		return
	}

	if err := h.service.Submit(r.Context(), sess.AccountID, sess.Username, form.Subject, form.Body); err != nil {
		h.logger.Error("failed to submit contact message", slog.Any("error", err))
		pkghttp.RedirectWithError(w, r, "/contact", "could not send your message")
		return
	}

	pkghttp.RedirectWithMessage(w, r, "/contact", "sent")
}
