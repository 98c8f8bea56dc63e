package service

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrAlreadyVerified    = errors.New("account already verified")
	ErrCodeNotFound       = errors.New("code not found")
	ErrCodeExpired        = errors.New("code expired")
	ErrCodeInvalid        = errors.New("invalid code")
	ErrDeliveryFailed     = errors.New("code delivery failed")
	ErrInternal           = errors.New("internal error")
)

// ValidationError reports malformed input. It is returned before any store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Message: err.Error()}
}

// internal wraps an unexpected collaborator failure so callers can match ErrInternal
// while logs keep the cause.
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
