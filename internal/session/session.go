package session

import (
	"time"

	"schoolgate/internal/models"
)

// Session holds the per-browser ephemeral security state carried across the
// multi-step login protocol: the anti-forgery token, the pending CAPTCHA
// challenge, the failure-tracking counters, and (after a successful login)
// the authenticated identity.
type Session struct {
	// Token is the opaque identifier the browser holds in its cookie. It is
	// rotated on successful authentication to defeat fixation.
	Token string

	CSRFToken string

	CaptchaQuestion string
	// CaptchaAnswer is the expected sum. Server-side only; never rendered.
	CaptchaAnswer int

	FailedAttempts int
	// LastCheckAt is the time of the previous guard invocation for this
	// session, regardless of outcome. Feeds the minimum-interval throttle.
	LastCheckAt time.Time
	// LastFailureAt is the time of the most recent counted failure. Feeds
	// the lockout window.
	LastFailureAt time.Time

	// Identity fields, set on successful authentication.
	AccountID       string
	Username        string
	Role            models.Role
	AuthenticatedAt time.Time

	CreatedAt time.Time
	ExpiresAt time.Time
}

// Authenticated reports whether the session has been promoted by a
// successful login.
func (s *Session) Authenticated() bool {
	return s.AccountID != ""
}

// LockoutRemaining returns how long the session stays locked given the
// configured threshold and window, or zero if it is not locked.
func (s *Session) LockoutRemaining(threshold int, window time.Duration, now time.Time) time.Duration {
	if s.FailedAttempts < threshold {
		return 0
	}
	elapsed := now.Sub(s.LastFailureAt)
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}
