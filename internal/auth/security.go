// Package auth holds the secret-handling primitives used by the credential flows:
// password hashing, one-time code digests and session token issuance.
package auth

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Security is the immutable process-wide configuration of the credential primitives.
// It is built once at startup and passed by value into every constructor.
type Security struct {
	SigningKey    []byte
	DigestKey     []byte
	HashCost      int
	CodeValidity  time.Duration
	SessionExpiry time.Duration

	// MaxCodeAttempts is how many wrong guesses discard an outstanding code
	MaxCodeAttempts int
}

// WithDefaults fills zero fields with the production defaults.
func (s Security) WithDefaults() Security {
	if s.HashCost == 0 {
		s.HashCost = 12
	}
	if s.CodeValidity == 0 {
		s.CodeValidity = 5 * time.Minute
	}
	if s.SessionExpiry == 0 {
		s.SessionExpiry = 8 * time.Hour
	}
	if s.MaxCodeAttempts <= 0 {
		s.MaxCodeAttempts = 5
	}
	return s
}

// Validate reports configuration that would make the primitives unusable.
func (s Security) Validate() error {
	if len(s.SigningKey) == 0 {
		return ErrMissingSigningKey
	}
	if len(s.DigestKey) == 0 {
		return ErrMissingDigestKey
	}
	if s.HashCost < bcrypt.MinCost || s.HashCost > bcrypt.MaxCost {
		return ErrInvalidHashCost
	}
	return nil
}
