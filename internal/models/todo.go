package models

import "time"

type Task struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Completed bool      `json:"completed" yaml:"completed"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Identity is the authenticated person behind the active session.
// Name and Avatar are display-only.
type Identity struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Phone  string `json:"phone,omitempty"`
}

// DisplayName falls back to the email when no name is known
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// Account is a registered user. PasswordHash is a bcrypt hash and never rendered.
type Account struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is what the external profile lookup returns for an email
type Profile struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar"`
}
