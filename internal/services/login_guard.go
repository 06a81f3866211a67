package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"schoolgate/internal/auth"
	"schoolgate/internal/models"
	"schoolgate/internal/session"
	pkgauth "schoolgate/pkg/auth"
	pkglogger "schoolgate/pkg/logger"
)

// AccountRepository defines the credential-store operations the services need
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
}

// AttemptRecorder records guard decisions for the audit trail
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
}

// RejectKind classifies why a login attempt was refused. The values double
// as redirect message codes for the presentation layer.
type RejectKind string

const (
	RejectInvalidSecurityToken    RejectKind = "invalid_security_token"
	RejectTemporarilyLocked       RejectKind = "temporarily_locked"
	RejectMissingCredentials      RejectKind = "missing_credentials"
	RejectCaptchaMismatch         RejectKind = "captcha_mismatch"
	RejectInvalidIdentifierFormat RejectKind = "invalid_identifier_format"
	RejectTooFast                 RejectKind = "too_fast"
	RejectInvalidCredentials      RejectKind = "invalid_credentials"
)

// Rejection carries the classification of a refused attempt. RetryAfter is
// non-zero only for RejectTemporarilyLocked.
type Rejection struct {
	Kind       RejectKind
	RetryAfter time.Duration
}

// LoginResult is the outcome of one guard invocation: either the
// authenticated account or a rejection, never both, never neither.
type LoginResult struct {
	Account   *models.Account
	Rejection *Rejection
}

// Authenticated reports whether the attempt succeeded.
func (r *LoginResult) Authenticated() bool {
	return r.Account != nil
}

// LoginInput is one submitted login form plus request metadata.
type LoginInput struct {
	Identifier    string
	Secret        string
	CSRFToken     string
	CaptchaAnswer string
	IPAddress     string
	UserAgent     string
}

// LoginGuardConfig holds the guard thresholds.
type LoginGuardConfig struct {
	LockoutThreshold   int           // counted failures before lockout engages
	LockoutWindow      time.Duration // how long after the last failure the lock holds
	MinAttemptInterval time.Duration // minimum spacing between guard invocations
	MinIdentifierLen   int
	MaxIdentifierLen   int
	AttemptRetention   time.Duration // how long audit records are kept
}

// DefaultLoginGuardConfig mirrors the portal's historical limits: five
// failures lock the session for fifteen seconds, attempts must be at least
// two seconds apart.
func DefaultLoginGuardConfig() LoginGuardConfig {
	return LoginGuardConfig{
		LockoutThreshold:   5,
		LockoutWindow:      15 * time.Second,
		MinAttemptInterval: 2 * time.Second,
		MinIdentifierLen:   3,
		MaxIdentifierLen:   50,
		AttemptRetention:   24 * time.Hour,
	}
}

// LoginGuard validates one login attempt against the session's security
// counters and either promotes the session or rejects with a reason. It is
// stateless per call except through the session store.
type LoginGuard struct {
	accounts AccountRepository
	sessions session.Store
	attempts AttemptRecorder
	timing   *auth.TimingDelay
	config   LoginGuardConfig
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

// NewLoginGuard creates a new LoginGuard
func NewLoginGuard(
	accounts AccountRepository,
	sessions session.Store,
	attempts AttemptRecorder,
	timing *auth.TimingDelay,
	config LoginGuardConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *LoginGuard {
	return &LoginGuard{
		accounts: accounts,
		sessions: sessions,
		attempts: attempts,
		timing:   timing,
		config:   config,
		logger:   logger,
		audit:    audit,
	}
}

// Check runs the ordered validation sequence against one attempt:
// anti-forgery, lockout, required fields, CAPTCHA, identifier shape, replay
// throttle, credentials. Every rejection leaves the session with a fresh
// CAPTCHA challenge and a fresh anti-forgery token so the next attempt is
// always possible. The returned error is infrastructure-only (store or
// repository failure); policy outcomes live in the LoginResult.
func (g *LoginGuard) Check(ctx context.Context, sess *session.Session, in LoginInput) (*LoginResult, error) {
	now := time.Now()
	identifier := strings.TrimSpace(in.Identifier)

	// 1. Anti-forgery. A stale token indicates a stale page, not a
	// credential guess, so the failure counter is not touched.
	if !auth.VerifyToken(sess.CSRFToken, in.CSRFToken) {
		return g.reject(ctx, sess, in, now, RejectInvalidSecurityToken, 0, false)
	}

	// 2. Lockout. The counter resets lazily once the window has elapsed.
	if sess.FailedAttempts >= g.config.LockoutThreshold {
		elapsed := now.Sub(sess.LastFailureAt)
		if elapsed < g.config.LockoutWindow {
			remaining := g.config.LockoutWindow - elapsed
			return g.reject(ctx, sess, in, now, RejectTemporarilyLocked, remaining, false)
		}
		sess.FailedAttempts = 0
		sess.LastFailureAt = time.Time{}
	}

	// 3. Required fields.
	if identifier == "" || in.Secret == "" {
		return g.reject(ctx, sess, in, now, RejectMissingCredentials, 0, false)
	}

	// 4. CAPTCHA. Checked against the currently stored expected value;
	// a mismatch counts as a failed attempt.
	answer, err := strconv.Atoi(strings.TrimSpace(in.CaptchaAnswer))
	if err != nil || answer != sess.CaptchaAnswer {
		return g.reject(ctx, sess, in, now, RejectCaptchaMismatch, 0, true)
	}

	// 5. Identifier shape. A malformed identifier is not an attempt.
	if len(identifier) < g.config.MinIdentifierLen || len(identifier) > g.config.MaxIdentifierLen {
		return g.reject(ctx, sess, in, now, RejectInvalidIdentifierFormat, 0, false)
	}

	// 6. Replay throttle: minimum spacing between guard invocations,
	// independent of the lockout counter.
	if !sess.LastCheckAt.IsZero() && now.Sub(sess.LastCheckAt) < g.config.MinAttemptInterval {
		return g.reject(ctx, sess, in, now, RejectTooFast, 0, false)
	}

	// 7. Credentials. Unknown identifier and wrong secret are deliberately
	// indistinguishable to the caller.
	account, err := g.accounts.GetByUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			g.timing.Wait(false)
			return g.reject(ctx, sess, in, now, RejectInvalidCredentials, 0, true)
		}
		g.logger.Error("failed to look up account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, in.Secret); err != nil {
		g.timing.Wait(false)
		return g.reject(ctx, sess, in, now, RejectInvalidCredentials, 0, true)
	}

	// 8. Success: reset counters, clear the challenge, rotate both the
	// anti-forgery token and the session identity.
	csrfToken, err := auth.NewToken()
	if err != nil {
		return nil, err
	}

	sess.FailedAttempts = 0
	sess.LastFailureAt = time.Time{}
	sess.LastCheckAt = now
	sess.CaptchaQuestion = ""
	sess.CaptchaAnswer = 0
	sess.CSRFToken = csrfToken
	sess.AccountID = account.ID
	sess.Username = account.Username
	sess.Role = account.Role
	sess.AuthenticatedAt = now

	if err := g.sessions.Regenerate(ctx, sess); err != nil {
		return nil, err
	}

	g.timing.Wait(true)
	g.recordAttempt(ctx, identifier, in, now, true, nil)
	g.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: account.ID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Success:   true,
	})

	return &LoginResult{Account: account}, nil
}

// reject records a refusal, regenerates the CAPTCHA challenge and rotates
// the anti-forgery token, and optionally counts the attempt as a failure.
func (g *LoginGuard) reject(
	ctx context.Context,
	sess *session.Session,
	in LoginInput,
	now time.Time,
	kind RejectKind,
	retryAfter time.Duration,
	countFailure bool,
) (*LoginResult, error) {
	sess.LastCheckAt = now
	if countFailure {
		sess.FailedAttempts++
		sess.LastFailureAt = now
	}

	captcha, err := auth.NewCaptcha()
	if err != nil {
		return nil, err
	}
	csrfToken, err := auth.NewToken()
	if err != nil {
		return nil, err
	}
	sess.CaptchaQuestion = captcha.Question
	sess.CaptchaAnswer = captcha.Answer
	sess.CSRFToken = csrfToken

	if err := g.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	reason := string(kind)
	g.recordAttempt(ctx, strings.TrimSpace(in.Identifier), in, now, false, &reason)
	g.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
		FailureReason: reason,
		Success:       false,
	})

	return &LoginResult{Rejection: &Rejection{Kind: kind, RetryAfter: retryAfter}}, nil
}

// recordAttempt writes the audit row. Best effort: a failed write is logged
// and never blocks the login decision.
func (g *LoginGuard) recordAttempt(ctx context.Context, identifier string, in LoginInput, now time.Time, success bool, reason *string) {
	attempt := &models.LoginAttempt{
		Username:    identifier,
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		AttemptTime: now,
		Success:     success,
		RejectKind:  reason,
		ExpiresAt:   now.Add(g.config.AttemptRetention),
	}

	if err := g.attempts.RecordAttempt(ctx, attempt); err != nil {
		g.logger.Error("failed to record login attempt", slog.Any("error", err))
	}
}

// LockoutRemaining exposes the session's remaining lockout time to the
// presentation layer.
func (g *LoginGuard) LockoutRemaining(sess *session.Session) time.Duration {
	return sess.LockoutRemaining(g.config.LockoutThreshold, g.config.LockoutWindow, time.Now())
}
