package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandlers(t *testing.T) (*Handlers, *Repository, *SessionRepository) {
	t.Helper()

	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	sessions := NewSessionRepository(db, time.Hour, zerolog.Nop())

	return NewHandlers(repo, sessions, zerolog.Nop()), repo, sessions
}

func TestHandleRegister(t *testing.T) {
	h, _, _ := testHandlers(t)

	body := `{"username":"alice","name":"Alice","email":"alice@example.com","password":"correct-horse"}`
	req := httptest.NewRequest("POST", "/api/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleRegister(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.IsAdmin, "first registered user")
	assert.NotContains(t, w.Body.String(), "hashed_password")

	// Same username again conflicts.
	req = httptest.NewRequest("POST", "/api/register", strings.NewReader(body))
	w = httptest.NewRecorder()
	h.HandleRegister(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleLogin(t *testing.T) {
	h, repo, sessions := testHandlers(t)

	_, err := repo.Create(validRegistration("alice"))
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(`{"username":"alice","password":"correct-horse"}`))
	w := httptest.NewRecorder()
	h.HandleLogin(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "login must set the session cookie")
	assert.True(t, cookie.HttpOnly)

	username, err := sessions.Resolve(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	h, repo, _ := testHandlers(t)

	_, err := repo.Create(validRegistration("alice"))
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/login", strings.NewReader(`{"username":"alice","password":"wrong"}`))
	w := httptest.NewRecorder()
	h.HandleLogin(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestHandleLogout(t *testing.T) {
	h, _, sessions := testHandlers(t)

	token, err := sessions.Create("alice")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	w := httptest.NewRecorder()
	h.HandleLogout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err = sessions.Resolve(token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestAuthMiddleware(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	sessions := NewSessionRepository(db, time.Hour, zerolog.Nop())

	admin, err := repo.Create(validRegistration("alice"))
	require.NoError(t, err)
	require.True(t, admin.IsAdmin)

	_, err = repo.Create(validRegistration("bob"))
	require.NoError(t, err)

	var seen Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := Auth(sessions, repo)(inner)

	t.Run("no cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "bogus"})
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid session", func(t *testing.T) {
		token, err := sessions.Create("alice")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", seen.Username)
		assert.True(t, seen.IsAdmin)
	})

	t.Run("admin gate", func(t *testing.T) {
		gated := Auth(sessions, repo)(RequireAdmin(inner))

		token, err := sessions.Create("bob")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		w := httptest.NewRecorder()
		gated.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)

		adminToken, err := sessions.Create("alice")
		require.NoError(t, err)

		req = httptest.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: adminToken})
		w = httptest.NewRecorder()
		gated.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
