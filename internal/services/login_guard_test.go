package services

import (
	"context"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolgate/internal/auth"
	"schoolgate/internal/models"
	"schoolgate/internal/session"
	pkglogger "schoolgate/pkg/logger"
)

func newTestGuard(t *testing.T, accounts AccountRepository) (*LoginGuard, *MockAttemptRecorder, *session.MemoryStore) {
	t.Helper()

	store := session.NewMemoryStore(1 * time.Hour)
	t.Cleanup(store.Close)

	attempts := &MockAttemptRecorder{}
	logger := slog.Default()
	timing := auth.NewTimingDelay(auth.TimingConfig{}) // zero delay for tests

	guard := NewLoginGuard(
		accounts,
		store,
		attempts,
		timing,
		DefaultLoginGuardConfig(),
		logger,
		pkglogger.NewAuditLogger(logger),
	)
	return guard, attempts, store
}

func newLoginSession(t *testing.T, store *session.MemoryStore) *session.Session {
	t.Helper()
	sess, err := store.Create(context.Background())
	require.NoError(t, err)
	return sess
}

// validInput builds a submission that passes every check except (possibly)
// the credential lookup.
func validInput(sess *session.Session, username, password string) LoginInput {
	return LoginInput{
		Identifier:    username,
		Secret:        password,
		CSRFToken:     sess.CSRFToken,
		CaptchaAnswer: strconv.Itoa(sess.CaptchaAnswer),
		IPAddress:     "203.0.113.7",
		UserAgent:     "test-agent",
	}
}

func TestLoginGuard_Check_Success(t *testing.T) {
	account := NewTestAccountWithPassword("acct1", "jsmith", "CorrectHorse1", models.RoleStudent)
	accounts := &MockAccountRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
			if username == "jsmith" {
				return account, nil
			}
			return nil, models.ErrNotFound
		},
	}

	guard, attempts, store := newTestGuard(t, accounts)
	sess := newLoginSession(t, store)
	oldToken := sess.Token
	oldCSRF := sess.CSRFToken

	result, err := guard.Check(context.Background(), sess, validInput(sess, "jsmith", "CorrectHorse1"))

	require.NoError(t, err)
	require.True(t, result.Authenticated())
	assert.Equal(t, "acct1", result.Account.ID)

	// Identity promoted onto the session
	assert.Equal(t, "acct1", sess.AccountID)
	assert.Equal(t, models.RoleStudent, sess.Role)
	assert.False(t, sess.AuthenticatedAt.IsZero())

	// Counters cleared, challenge consumed, both tokens rotated
	assert.Zero(t, sess.FailedAttempts)
	assert.Empty(t, sess.CaptchaQuestion)
	assert.NotEqual(t, oldCSRF, sess.CSRFToken)
	assert.NotEqual(t, oldToken, sess.Token)

	// The old session identity must be gone from the store
	_, err = store.Get(context.Background(), oldToken)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// The new identity must resolve to the authenticated session
	stored, err := store.Get(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "acct1", stored.AccountID)

	// Audit row written with success flag
	require.Len(t, attempts.Recorded, 1)
	assert.True(t, attempts.Recorded[0].Success)
	assert.Nil(t, attempts.Recorded[0].RejectKind)
}

func TestLoginGuard_Check_CSRFMismatch(t *testing.T) {
	guard, attempts, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)
	oldCSRF := sess.CSRFToken

	in := validInput(sess, "jsmith", "whatever")
	in.CSRFToken = "forged-token"

	result, err := guard.Check(context.Background(), sess, in)

	require.NoError(t, err)
	require.False(t, result.Authenticated())
	assert.Equal(t, RejectInvalidSecurityToken, result.Rejection.Kind)

	// A stale form is not a credential guess
	assert.Zero(t, sess.FailedAttempts)

	// Token rotated so the next render carries a usable value
	assert.NotEqual(t, oldCSRF, sess.CSRFToken)
	assert.NotEmpty(t, sess.CSRFToken)

	require.Len(t, attempts.Recorded, 1)
	assert.False(t, attempts.Recorded[0].Success)
	require.NotNil(t, attempts.Recorded[0].RejectKind)
	assert.Equal(t, string(RejectInvalidSecurityToken), *attempts.Recorded[0].RejectKind)
}

func TestLoginGuard_Check_EmptyCSRFNeverMatches(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)

	// Even if the session somehow lost its token, an empty submission
	// must not pass the comparison.
	sess.CSRFToken = ""
	in := validInput(sess, "jsmith", "whatever")
	in.CSRFToken = ""

	result, err := guard.Check(context.Background(), sess, in)

	require.NoError(t, err)
	assert.Equal(t, RejectInvalidSecurityToken, result.Rejection.Kind)
}

func TestLoginGuard_Check_MissingCredentials(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})

	cases := []struct {
		name       string
		identifier string
		secret     string
	}{
		{"missing identifier", "", "secret123"},
		{"missing secret", "jsmith", ""},
		{"whitespace identifier", "   ", "secret123"},
		{"both missing", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := newLoginSession(t, store)
			in := validInput(sess, tc.identifier, tc.secret)

			result, err := guard.Check(context.Background(), sess, in)

			require.NoError(t, err)
			assert.Equal(t, RejectMissingCredentials, result.Rejection.Kind)
			assert.Zero(t, sess.FailedAttempts)
		})
	}
}

func TestLoginGuard_Check_CaptchaMismatch_CountsFailure(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)
	oldQuestion := sess.CaptchaQuestion

	in := validInput(sess, "jsmith", "secret123")
	in.CaptchaAnswer = strconv.Itoa(sess.CaptchaAnswer + 1)

	result, err := guard.Check(context.Background(), sess, in)

	require.NoError(t, err)
	assert.Equal(t, RejectCaptchaMismatch, result.Rejection.Kind)
	assert.Equal(t, 1, sess.FailedAttempts)
	assert.False(t, sess.LastFailureAt.IsZero())

	// A new challenge is issued so the stale answer cannot be retried
	assert.NotEmpty(t, sess.CaptchaQuestion)
	assert.NotEqual(t, oldQuestion, sess.CaptchaQuestion)
}

func TestLoginGuard_Check_NonNumericCaptchaAnswer(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)

	in := validInput(sess, "jsmith", "secret123")
	in.CaptchaAnswer = "seven"

	result, err := guard.Check(context.Background(), sess, in)

	require.NoError(t, err)
	assert.Equal(t, RejectCaptchaMismatch, result.Rejection.Kind)
	assert.Equal(t, 1, sess.FailedAttempts)
}

func TestLoginGuard_Check_IdentifierShape(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})

	longIdentifier := ""
	for i := 0; i < 51; i++ {
		longIdentifier += "a"
	}

	cases := []struct {
		name       string
		identifier string
	}{
		{"too short", "ab"},
		{"too long", longIdentifier},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := newLoginSession(t, store)
			in := validInput(sess, tc.identifier, "secret123")

			result, err := guard.Check(context.Background(), sess, in)

			require.NoError(t, err)
			assert.Equal(t, RejectInvalidIdentifierFormat, result.Rejection.Kind)
			// Shape errors are not counted as attempts
			assert.Zero(t, sess.FailedAttempts)
		})
	}
}

func TestLoginGuard_Check_BoundaryIdentifierLengthsPass(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})

	identifier50 := ""
	for i := 0; i < 50; i++ {
		identifier50 += "a"
	}

	// 3 and 50 characters are within range, so these reach the credential
	// check and fail there instead.
	for _, identifier := range []string{"abc", identifier50} {
		sess := newLoginSession(t, store)
		in := validInput(sess, identifier, "secret123")

		result, err := guard.Check(context.Background(), sess, in)

		require.NoError(t, err)
		assert.Equal(t, RejectInvalidCredentials, result.Rejection.Kind)
	}
}

func TestLoginGuard_Check_TooFast(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)

	// A guard invocation one second ago is inside the two-second floor
	sess.LastCheckAt = time.Now().Add(-1 * time.Second)
	before := sess.FailedAttempts

	result, err := guard.Check(context.Background(), sess, validInput(sess, "jsmith", "secret123"))

	require.NoError(t, err)
	assert.Equal(t, RejectTooFast, result.Rejection.Kind)
	// Machine-speed replays are throttled, not counted
	assert.Equal(t, before, sess.FailedAttempts)
}

func TestLoginGuard_Check_UnknownUserAndWrongPasswordIndistinguishable(t *testing.T) {
	account := NewTestAccountWithPassword("acct1", "jsmith", "CorrectHorse1", models.RoleFaculty)
	accounts := &MockAccountRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
			if username == "jsmith" {
				return account, nil
			}
			return nil, models.ErrNotFound
		},
	}
	guard, _, store := newTestGuard(t, accounts)

	// Unknown identifier
	sess1 := newLoginSession(t, store)
	result1, err := guard.Check(context.Background(), sess1, validInput(sess1, "nobody", "CorrectHorse1"))
	require.NoError(t, err)

	// Known identifier, wrong secret
	sess2 := newLoginSession(t, store)
	result2, err := guard.Check(context.Background(), sess2, validInput(sess2, "jsmith", "WrongHorse1"))
	require.NoError(t, err)

	assert.Equal(t, RejectInvalidCredentials, result1.Rejection.Kind)
	assert.Equal(t, result1.Rejection.Kind, result2.Rejection.Kind)
	assert.Equal(t, 1, sess1.FailedAttempts)
	assert.Equal(t, 1, sess2.FailedAttempts)
}

// failCaptcha drives one counted failure through the CAPTCHA step. The
// CAPTCHA check sits before the replay throttle, so consecutive calls do
// not need spacing.
func failCaptcha(t *testing.T, guard *LoginGuard, sess *session.Session) {
	t.Helper()
	in := validInput(sess, "jsmith", "secret123")
	in.CaptchaAnswer = "-1"
	result, err := guard.Check(context.Background(), sess, in)
	require.NoError(t, err)
	require.Equal(t, RejectCaptchaMismatch, result.Rejection.Kind)
}

func TestLoginGuard_Check_LockoutAfterThresholdFailures(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)

	for i := 0; i < 5; i++ {
		failCaptcha(t, guard, sess)
	}
	require.Equal(t, 5, sess.FailedAttempts)

	// The sixth attempt is refused before any other check runs, even with
	// perfectly valid form contents.
	result, err := guard.Check(context.Background(), sess, validInput(sess, "jsmith", "secret123"))

	require.NoError(t, err)
	assert.Equal(t, RejectTemporarilyLocked, result.Rejection.Kind)
	assert.Greater(t, result.Rejection.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, result.Rejection.RetryAfter, 15*time.Second)

	// A locked rejection does not feed the counter
	assert.Equal(t, 5, sess.FailedAttempts)
}

func TestLoginGuard_Check_LockoutExpiresLazily(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)

	sess.FailedAttempts = 5
	sess.LastFailureAt = time.Now().Add(-16 * time.Second)

	// The window has elapsed, so the attempt proceeds and fails on
	// credentials with a freshly started counter.
	result, err := guard.Check(context.Background(), sess, validInput(sess, "jsmith", "secret123"))

	require.NoError(t, err)
	assert.Equal(t, RejectInvalidCredentials, result.Rejection.Kind)
	assert.Equal(t, 1, sess.FailedAttempts)
}

func TestLoginGuard_Check_LockoutHoldsInsideWindow(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)

	sess.FailedAttempts = 5
	sess.LastFailureAt = time.Now().Add(-5 * time.Second)

	result, err := guard.Check(context.Background(), sess, validInput(sess, "jsmith", "secret123"))

	require.NoError(t, err)
	assert.Equal(t, RejectTemporarilyLocked, result.Rejection.Kind)
	// Roughly ten seconds of the fifteen remain
	assert.Greater(t, result.Rejection.RetryAfter, 8*time.Second)
	assert.LessOrEqual(t, result.Rejection.RetryAfter, 10*time.Second)
}

func TestLoginGuard_Check_EveryRejectionRotatesChallengeAndToken(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})

	rejections := []func(sess *session.Session) LoginInput{
		func(sess *session.Session) LoginInput { // CSRF
			in := validInput(sess, "jsmith", "secret123")
			in.CSRFToken = "bad"
			return in
		},
		func(sess *session.Session) LoginInput { // missing fields
			return validInput(sess, "", "")
		},
		func(sess *session.Session) LoginInput { // captcha
			in := validInput(sess, "jsmith", "secret123")
			in.CaptchaAnswer = "-1"
			return in
		},
		func(sess *session.Session) LoginInput { // identifier shape
			return validInput(sess, "ab", "secret123")
		},
		func(sess *session.Session) LoginInput { // credentials
			return validInput(sess, "nobody", "secret123")
		},
	}

	for _, build := range rejections {
		sess := newLoginSession(t, store)
		oldCSRF := sess.CSRFToken

		result, err := guard.Check(context.Background(), sess, build(sess))
		require.NoError(t, err)
		require.False(t, result.Authenticated())

		assert.NotEqual(t, oldCSRF, sess.CSRFToken)
		assert.NotEmpty(t, sess.CaptchaQuestion)

		// The refreshed state must be committed, not just mutated in memory
		stored, err := store.Get(context.Background(), sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.CSRFToken, stored.CSRFToken)
	}
}

func TestLoginGuard_Check_SuccessAfterFailuresClearsCounter(t *testing.T) {
	account := NewTestAccountWithPassword("acct1", "jsmith", "CorrectHorse1", models.RoleAdmin)
	accounts := &MockAccountRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
			return account, nil
		},
	}
	guard, _, store := newTestGuard(t, accounts)
	sess := newLoginSession(t, store)

	for i := 0; i < 3; i++ {
		failCaptcha(t, guard, sess)
	}
	require.Equal(t, 3, sess.FailedAttempts)

	// Clear the throttle left by the last failure
	sess.LastCheckAt = time.Now().Add(-3 * time.Second)

	result, err := guard.Check(context.Background(), sess, validInput(sess, "jsmith", "CorrectHorse1"))

	require.NoError(t, err)
	require.True(t, result.Authenticated())
	assert.Zero(t, sess.FailedAttempts)
	assert.True(t, sess.LastFailureAt.IsZero())
}

func TestLoginGuard_Check_RecorderFailureDoesNotBlockDecision(t *testing.T) {
	account := NewTestAccountWithPassword("acct1", "jsmith", "CorrectHorse1", models.RoleStudent)
	accounts := &MockAccountRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.Account, error) {
			return account, nil
		},
	}

	guard, attempts, store := newTestGuard(t, accounts)
	attempts.RecordAttemptFunc = func(ctx context.Context, attempt *models.LoginAttempt) error {
		return models.ErrInternalServer
	}

	sess := newLoginSession(t, store)
	result, err := guard.Check(context.Background(), sess, validInput(sess, "jsmith", "CorrectHorse1"))

	require.NoError(t, err)
	assert.True(t, result.Authenticated())
}

func TestLoginGuard_LockoutRemaining(t *testing.T) {
	guard, _, store := newTestGuard(t, &MockAccountRepository{})
	sess := newLoginSession(t, store)

	assert.Zero(t, guard.LockoutRemaining(sess))

	sess.FailedAttempts = 5
	sess.LastFailureAt = time.Now().Add(-5 * time.Second)
	remaining := guard.LockoutRemaining(sess)
	assert.Greater(t, remaining, 8*time.Second)
	assert.LessOrEqual(t, remaining, 10*time.Second)

	sess.LastFailureAt = time.Now().Add(-20 * time.Second)
	assert.Zero(t, guard.LockoutRemaining(sess))
}
