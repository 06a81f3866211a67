package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolgate/internal/models"
	"schoolgate/internal/services"
	"schoolgate/internal/session"
)

func newSessionFixture(t *testing.T) (*session.MemoryStore, *session.CookieCodec) {
	t.Helper()
	store := session.NewMemoryStore(time.Hour)
	t.Cleanup(store.Close)
	codec := session.NewCookieCodec([]byte("test-hash-key-0123456789abcdef00"), nil, "test_session", false, 3600)
	return store, codec
}

func TestLoadSession_MintsSessionForNewVisitor(t *testing.T) {
	store, codec := newSessionFixture(t)

	var got *session.Session
	handler := LoadSession(store, codec, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r)
	}))

	req := httptest.NewRequest("GET", "/login", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.NotNil(t, got)
	assert.NotEmpty(t, got.CSRFToken)
	assert.NotEmpty(t, got.CaptchaQuestion)

	// A cookie carrying the new token must be set
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "test_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoadSession_ReusesExistingSession(t *testing.T) {
	store, codec := newSessionFixture(t)

	existing, err := store.Create(t.Context())
	require.NoError(t, err)
	existing.FailedAttempts = 2
	require.NoError(t, store.Save(t.Context(), existing))

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Write(rec, existing.Token))

	var got *session.Session
	handler := LoadSession(store, codec, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r)
	}))

	req := httptest.NewRequest("GET", "/login", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, existing.Token, got.Token)
	assert.Equal(t, 2, got.FailedAttempts)
}

func TestLoadSession_ForgedCookieGetsFreshSession(t *testing.T) {
	store, codec := newSessionFixture(t)

	var got *session.Session
	handler := LoadSession(store, codec, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r)
	}))

	req := httptest.NewRequest("GET", "/login", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "forged"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.NotNil(t, got)
	// A fresh session was created, not trusted from the forged value
	assert.Len(t, w.Result().Cookies(), 1)
}

func TestRequireAuth(t *testing.T) {
	store, codec := newSessionFixture(t)

	protected := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("unauthenticated is redirected to login", func(t *testing.T) {
		sess, err := store.Create(t.Context())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		require.NoError(t, codec.Write(rec, sess.Token))

		req := httptest.NewRequest("GET", "/student", nil)
		req.AddCookie(rec.Result().Cookies()[0])
		w := httptest.NewRecorder()

		LoadSession(store, codec, slog.Default())(protected).ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login", w.Header().Get("Location"))
	})

	t.Run("authenticated passes through", func(t *testing.T) {
		sess, err := store.Create(t.Context())
		require.NoError(t, err)
		sess.AccountID = "acct1"
		sess.Role = models.RoleStudent
		require.NoError(t, store.Save(t.Context(), sess))

		rec := httptest.NewRecorder()
		require.NoError(t, codec.Write(rec, sess.Token))

		req := httptest.NewRequest("GET", "/student", nil)
		req.AddCookie(rec.Result().Cookies()[0])
		w := httptest.NewRecorder()

		LoadSession(store, codec, slog.Default())(protected).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireRole_WrongRoleForwardedToOwnArea(t *testing.T) {
	store, codec := newSessionFixture(t)
	router := services.NewRoleRouter(slog.Default())

	adminOnly := RequireRole(models.RoleAdmin, router, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	sess, err := store.Create(t.Context())
	require.NoError(t, err)
	sess.AccountID = "acct1"
	sess.Role = models.RoleStudent
	require.NoError(t, store.Save(t.Context(), sess))

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Write(rec, sess.Token))

	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	w := httptest.NewRecorder()

	LoadSession(store, codec, slog.Default())(adminOnly).ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/student", w.Header().Get("Location"))
}

func TestRequireRole_UnknownRoleEndsAtLogin(t *testing.T) {
	store, codec := newSessionFixture(t)
	router := services.NewRoleRouter(slog.Default())

	adminOnly := RequireRole(models.RoleAdmin, router, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	sess, err := store.Create(t.Context())
	require.NoError(t, err)
	sess.AccountID = "acct1"
	sess.Role = "superuser"
	require.NoError(t, store.Save(t.Context(), sess))

	rec := httptest.NewRecorder()
	require.NoError(t, codec.Write(rec, sess.Token))

	req := httptest.NewRequest("GET", "/admin", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	w := httptest.NewRecorder()

	LoadSession(store, codec, slog.Default())(adminOnly).ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?error=server_error", w.Header().Get("Location"))
}
