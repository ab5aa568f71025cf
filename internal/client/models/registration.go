package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var ErrInvalidForm = errors.New("invalid registration form")

const MinPasswordLength = 8

// RegistrationForm is what the user typed. Password is wiped by the caller
// once the account is created.
type RegistrationForm struct {
	FullName  string
	Email     string
	Mobile    string
	Password  []byte
	ImagePath string
}

// Validate checks that every required field is present and well formed.
// The error names the first offending field.
func (f *RegistrationForm) Validate() error {
	switch {
	case strings.TrimSpace(f.FullName) == "":
		return fmt.Errorf("%w: full name is required", ErrInvalidForm)
	case strings.TrimSpace(f.Email) == "":
		return fmt.Errorf("%w: email is required", ErrInvalidForm)
	case strings.TrimSpace(f.Mobile) == "":
		return fmt.Errorf("%w: mobile is required", ErrInvalidForm)
	case len(f.Password) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidForm, MinPasswordLength)
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(f.Email)); err != nil {
		return fmt.Errorf("%w: email is not valid", ErrInvalidForm)
	}
	return nil
}

// Account is a user created in the directory.
type Account struct {
	ID           string
	FullName     string
	Email        string
	Mobile       string
	PasswordHash string
	ImageURL     string
	CreatedAt    time.Time
}

// Receipt is the local record of the last successful registration.
type Receipt struct {
	AccountID string
	Email     string
	ImageURL  string
}
