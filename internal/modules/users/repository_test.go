package users

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pennyleague/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(database.Schema)
	require.NoError(t, err)

	return db
}

func validRegistration(username string) Registration {
	return Registration{
		Username: username,
		Name:     "Test User",
		Email:    username + "@example.com",
		Password: "correct-horse",
	}
}

func TestCreate_FirstUserIsAdmin(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	first, err := repo.Create(validRegistration("alice"))
	require.NoError(t, err)
	assert.True(t, first.IsAdmin)

	second, err := repo.Create(validRegistration("bob"))
	require.NoError(t, err)
	assert.False(t, second.IsAdmin)
}

func TestCreate_NormalizesUsername(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	user, err := repo.Create(Registration{
		Username: "  Alice ",
		Name:     "Alice",
		Email:    "Alice@Example.Com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestCreate_Duplicates(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	_, err := repo.Create(validRegistration("alice"))
	require.NoError(t, err)

	_, err = repo.Create(validRegistration("alice"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	dup := validRegistration("alice2")
	dup.Email = "alice@example.com"
	_, err = repo.Create(dup)
	assert.ErrorIs(t, err, ErrAlreadyExists, "duplicate email")
}

func TestRegistrationValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Registration)
		wantErr bool
	}{
		{"valid", func(r *Registration) {}, false},
		{"empty username", func(r *Registration) { r.Username = "" }, true},
		{"username with space", func(r *Registration) { r.Username = "a b" }, true},
		{"empty name", func(r *Registration) { r.Name = " " }, true},
		{"bad email", func(r *Registration) { r.Email = "not-an-email" }, true},
		{"short password", func(r *Registration) { r.Password = "short" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration("alice")
			tt.mutate(&reg)
			err := reg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	_, err := repo.Create(validRegistration("alice"))
	require.NoError(t, err)

	user, err := repo.Authenticate("alice", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = repo.Authenticate("alice", "wrong-password")
	assert.Error(t, err)

	_, err = repo.Authenticate("nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsernames_Ordered(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	for _, name := range []string{"zoe", "amy", "mia"} {
		_, err := repo.Create(validRegistration(name))
		require.NoError(t, err)
	}

	names, err := repo.Usernames()
	require.NoError(t, err)
	assert.Equal(t, []string{"amy", "mia", "zoe"}, names)
}

func TestDelete_RemovesSessions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	sessions := NewSessionRepository(db, time.Hour, zerolog.Nop())

	_, err := repo.Create(validRegistration("alice"))
	require.NoError(t, err)

	token, err := sessions.Create("alice")
	require.NoError(t, err)

	require.NoError(t, repo.Delete("alice"))

	_, err = repo.GetByUsername("alice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = sessions.Resolve(token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	assert.ErrorIs(t, repo.Delete("alice"), ErrNotFound)
}

func TestSessions_ResolveAndExpiry(t *testing.T) {
	db := setupTestDB(t)
	sessions := NewSessionRepository(db, time.Hour, zerolog.Nop())

	token, err := sessions.Create("alice")
	require.NoError(t, err)

	username, err := sessions.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = sessions.Resolve("not-a-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// A negative TTL writes an already-expired session.
	expired := NewSessionRepository(db, -time.Minute, zerolog.Nop())
	staleToken, err := expired.Create("alice")
	require.NoError(t, err)

	_, err = sessions.Resolve(staleToken)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = sessions.Resolve(staleToken)
	assert.ErrorIs(t, err, ErrSessionInvalid, "expired session is deleted on first sight")
}

func TestSessions_Delete(t *testing.T) {
	sessions := NewSessionRepository(setupTestDB(t), time.Hour, zerolog.Nop())

	token, err := sessions.Create("alice")
	require.NoError(t, err)

	require.NoError(t, sessions.Delete(token))

	_, err = sessions.Resolve(token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
