package validation

import (
	"errors"
	"net/mail"
	"strings"
)

const (
	emailMinLength = 5
	emailMaxLength = 60
)

// NormalizeEmail trims and lowercases an address, the form in which emails are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail validates email format and length of a normalized address
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}

	if len(email) < emailMinLength {
		return errors.New("email address is too short (min 5 characters)")
	}

	if len(email) > emailMaxLength {
		return errors.New("email address is too long (max 60 characters)")
	}

	// net/mail also accepts "Name <addr>" forms, so require the bare address back
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address format")
	}

	return nil
}
