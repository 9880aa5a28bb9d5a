package users

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is a registered competition participant.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	RegisteredAt   time.Time `json:"registered_at"`
	IsAdmin        bool      `json:"is_admin"`
}

// Registration is the payload for creating a user.
type Registration struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks and normalizes registration data.
func (reg *Registration) Validate() error {
	reg.Username = strings.ToLower(strings.TrimSpace(reg.Username))
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))

	if reg.Username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if strings.ContainsAny(reg.Username, " \t") {
		return fmt.Errorf("username cannot contain whitespace")
	}
	if reg.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	if len(reg.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	return nil
}
