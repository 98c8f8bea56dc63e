package model

import (
	"time"
)

// Account is the public projection of an account. It never carries secret material
// and is safe to return to callers.
type Account struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Verified  bool      `db:"verified" json:"verified"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// SecretField names a secret column that must be requested explicitly.
type SecretField string

const (
	SecretPassword           SecretField = "password"
	SecretVerificationCode   SecretField = "verification_code"
	SecretForgotPasswordCode SecretField = "forgot_password_code"
)

// InternalAccount is the account together with the secret fields a flow asked for.
// Fields that were not requested are left nil.
type InternalAccount struct {
	Account
	PasswordHash           *string    `db:"password_hash"`
	VerificationCodeHash   *string    `db:"verification_code_hash"`
	VerificationIssuedAt   *time.Time `db:"verification_code_issued_at"`
	ForgotPasswordCodeHash *string    `db:"forgot_password_code_hash"`
	ForgotPasswordIssuedAt *time.Time `db:"forgot_password_code_issued_at"`
}

// CodePurpose selects which one-time code pair a store operation touches.
type CodePurpose string

const (
	CodePurposeVerification   CodePurpose = "verification"
	CodePurposeForgotPassword CodePurpose = "forgot_password"
)

// PendingCode is an outstanding one-time code digest and the moment it was issued.
type PendingCode struct {
	Hash     string
	IssuedAt time.Time
}

// Code returns the outstanding code for purpose, or nil when either half of the
// pair is missing.
func (a *InternalAccount) Code(purpose CodePurpose) *PendingCode {
	var hash *string
	var issuedAt *time.Time

	switch purpose {
	case CodePurposeVerification:
		hash, issuedAt = a.VerificationCodeHash, a.VerificationIssuedAt
	case CodePurposeForgotPassword:
		hash, issuedAt = a.ForgotPasswordCodeHash, a.ForgotPasswordIssuedAt
	}

	if hash == nil || *hash == "" || issuedAt == nil {
		return nil
	}
	return &PendingCode{Hash: *hash, IssuedAt: *issuedAt}
}

// Expired reports whether the code is past its validity window at now.
// A check exactly at the window boundary is still valid.
func (c *PendingCode) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(c.IssuedAt) > window
}

func (a *InternalAccount) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}
