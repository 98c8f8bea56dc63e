package auth

import "errors"

var (
	ErrMissingSigningKey = errors.New("session signing key is required")
	ErrMissingDigestKey  = errors.New("code digest key is required")
	ErrInvalidHashCost   = errors.New("password hash cost is out of range")
	ErrFailedToHash      = errors.New("failed to hash secret")
	ErrInvalidToken      = errors.New("invalid token")
)
