package users

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrSessionInvalid is returned for missing or expired session tokens.
var ErrSessionInvalid = errors.New("session invalid or expired")

// SessionRepository handles login sessions. Tokens are opaque uuids stored
// server-side with an expiry.
type SessionRepository struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sql.DB, ttl time.Duration, log zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		db:  db,
		ttl: ttl,
		log: log.With().Str("repo", "sessions").Logger(),
	}
}

// Create opens a new session for username and returns the token.
func (r *SessionRepository) Create(username string) (string, error) {
	token := uuid.NewString()
	expires := time.Now().UTC().Add(r.ttl)

	_, err := r.db.Exec(
		"INSERT INTO sessions (token, username, expires_at) VALUES (?, ?, ?)",
		token, username, expires.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return token, nil
}

// Resolve maps a token to its username. Expired sessions are deleted on
// sight and reported as invalid.
func (r *SessionRepository) Resolve(token string) (string, error) {
	var username, expiresAt string
	err := r.db.QueryRow(
		"SELECT username, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&username, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionInvalid
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}

	expires, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || time.Now().UTC().After(expires) {
		_ = r.Delete(token)
		return "", ErrSessionInvalid
	}

	return username, nil
}

// Delete closes a session.
func (r *SessionRepository) Delete(token string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
