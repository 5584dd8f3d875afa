package session

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minPasswordLen = 6

// same shape check the signup and login forms have always used
var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return email != "" && emailPattern.MatchString(email)
}

// ValidateLogin runs the login form checks. It says nothing about whether
// the credentials are right.
func ValidateLogin(email, password string) error {
	verr := &ValidationError{}
	if !validEmail(email) {
		verr.add("email", "Please enter a valid email address.")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		verr.add("password", "Password must be at least 6 characters.")
	}
	return verr.orNil()
}

func (s *Store) validateRegister(req RegisterRequest) error {
	verr := &ValidationError{}
	if strings.TrimSpace(req.Name) == "" {
		verr.add("name", "Name is required.")
	}
	if !validEmail(req.Email) {
		verr.add("email", "Please enter a valid email address.")
	}
	if _, taken := s.accounts[normalizeEmail(req.Email)]; taken {
		verr.add("email", "Email already registered.")
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLen {
		verr.add("password", "Password must be at least 6 characters.")
	}
	if req.Password != req.ConfirmPassword {
		verr.add("confirmPassword", "Passwords do not match.")
	}
	return verr.orNil()
}
