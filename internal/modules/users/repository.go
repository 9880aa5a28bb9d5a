package users

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned when a username or email is taken.
var ErrAlreadyExists = errors.New("username or email already registered")

// Repository handles the users table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "users").Logger(),
	}
}

// Create registers a new user with a bcrypt-hashed password. The first user
// ever registered becomes the admin.
func (r *Repository) Create(reg Registration) (User, error) {
	if err := reg.Validate(); err != nil {
		return User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return User{}, fmt.Errorf("failed to count users: %w", err)
	}
	isAdmin := count == 0

	now := time.Now().UTC()
	res, err := r.db.Exec(`
		INSERT INTO users (username, name, email, hashed_password, registration_date, is_admin)
		VALUES (?, ?, ?, ?, ?, ?)`,
		reg.Username, reg.Name, reg.Email, string(hashed), now.Format(time.RFC3339), boolToInt(isAdmin),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return User{}, ErrAlreadyExists
		}
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("failed to read user id: %w", err)
	}

	r.log.Info().Str("username", reg.Username).Bool("is_admin", isAdmin).Msg("User registered")

	return User{
		ID:             id,
		Username:       reg.Username,
		Name:           reg.Name,
		Email:          reg.Email,
		HashedPassword: string(hashed),
		RegisteredAt:   now,
		IsAdmin:        isAdmin,
	}, nil
}

// Authenticate checks a username/password pair and returns the user.
func (r *Repository) Authenticate(username, password string) (User, error) {
	user, err := r.GetByUsername(username)
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return User{}, fmt.Errorf("invalid credentials")
	}

	return user, nil
}

// GetByUsername retrieves a user by username.
func (r *Repository) GetByUsername(username string) (User, error) {
	row := r.db.QueryRow(`
		SELECT user_id, username, name, email, hashed_password, registration_date, is_admin
		FROM users WHERE username = ?`,
		strings.ToLower(strings.TrimSpace(username)),
	)
	return scanUser(row)
}

// GetByEmail retrieves a user by email.
func (r *Repository) GetByEmail(email string) (User, error) {
	row := r.db.QueryRow(`
		SELECT user_id, username, name, email, hashed_password, registration_date, is_admin
		FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	)
	return scanUser(row)
}

// List returns all users ordered by username.
func (r *Repository) List() ([]User, error) {
	rows, err := r.db.Query(`
		SELECT user_id, username, name, email, hashed_password, registration_date, is_admin
		FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		list = append(list, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return list, nil
}

// Usernames returns every registered username, ordered, for the leaderboard.
func (r *Repository) Usernames() ([]string, error) {
	rows, err := r.db.Query("SELECT username FROM users ORDER BY username ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usernames: %w", err)
	}

	return names, nil
}

// Delete removes a user and their sessions. Their trades remain in the
// ledger until an admin removes them.
func (r *Repository) Delete(username string) error {
	username = strings.ToLower(strings.TrimSpace(username))

	res, err := r.db.Exec("DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", username, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion of user %s: %w", username, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if _, err := r.db.Exec("DELETE FROM sessions WHERE username = ?", username); err != nil {
		return fmt.Errorf("failed to delete sessions for %s: %w", username, err)
	}

	r.log.Info().Str("username", username).Msg("User deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var registered string
	var isAdmin int

	err := row.Scan(&user.ID, &user.Username, &user.Name, &user.Email, &user.HashedPassword, &registered, &isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}

	if t, err := time.Parse(time.RFC3339, registered); err == nil {
		user.RegisteredAt = t
	}
	user.IsAdmin = isAdmin == 1

	return user, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
