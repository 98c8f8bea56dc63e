package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/tisu1989/auth-project/internal/auth"
	"github.com/tisu1989/auth-project/internal/model"
	"github.com/tisu1989/auth-project/internal/repository"
	"github.com/tisu1989/auth-project/internal/validation"
)

// Session is the outcome of a successful signin.
type Session struct {
	Account   *model.Account
	Token     string
	ExpiresAt time.Time
}

// CredentialService runs the account credential flows: signup, signin, email
// verification, password change and password reset. Every method ends in exactly
// one outcome: a result or a single error.
type CredentialService struct {
	accounts     repository.AccountRepository
	mailer       Mailer
	hasher       *auth.Hasher
	cipher       *auth.CodeCipher
	tokens       *auth.TokenIssuer
	codeValidity time.Duration
	maxAttempts  int
	appName      string
	now          func() time.Time
}

func NewCredentialService(
	accounts repository.AccountRepository,
	mailer Mailer,
	tokens *auth.TokenIssuer,
	security auth.Security,
	appName string,
) *CredentialService {
	security = security.WithDefaults()

	return &CredentialService{
		accounts:     accounts,
		mailer:       mailer,
		hasher:       auth.NewHasher(security.HashCost),
		cipher:       auth.NewCodeCipher(security.DigestKey),
		tokens:       tokens,
		codeValidity: security.CodeValidity,
		maxAttempts:  security.MaxCodeAttempts,
		appName:      appName,
		now:          time.Now,
	}
}

func (s *CredentialService) Signup(ctx context.Context, email, password string) (*model.Account, error) {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, invalid("email", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, invalid("password", err)
	}

	// Fast path only; the unique index on email decides races
	_, err := s.accounts.ByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("signup: %w", ErrEmailTaken)
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, internal("lookup account", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internal("hash password", err)
	}

	account, err := s.accounts.Create(ctx, email, hash)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, fmt.Errorf("signup: %w", ErrEmailTaken)
	}
	if err != nil {
		return nil, internal("create account", err)
	}

	slog.Info("account created", "user_id", account.ID, "email", account.Email)
	return account, nil
}

func (s *CredentialService) Signin(ctx context.Context, email, password string) (*Session, error) {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, invalid("email", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, invalid("password", err)
	}

	account, err := s.lookupByEmail(ctx, email, model.SecretPassword)
	if err != nil {
		return nil, err
	}

	if !account.HasPassword() || !s.hasher.Verify(password, *account.PasswordHash) {
		return nil, fmt.Errorf("signin: %w", ErrInvalidCredentials)
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, account.Email, account.Verified)
	if err != nil {
		return nil, internal("issue token", err)
	}

	slog.Info("user signed in", "user_id", account.ID)
	return &Session{Account: &account.Account, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *CredentialService) SendVerificationCode(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return invalid("email", err)
	}

	account, err := s.lookupByEmail(ctx, email)
	if err != nil {
		return err
	}

	if account.Verified {
		return fmt.Errorf("send verification code: %w", ErrAlreadyVerified)
	}

	return s.issueCode(ctx, &account.Account, model.CodePurposeVerification, verificationCodeEmailTemplate)
}

func (s *CredentialService) VerifyVerificationCode(ctx context.Context, email, code string) error {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return invalid("email", err)
	}
	if err := validation.ValidateCode(code); err != nil {
		return invalid("verificationCode", err)
	}

	account, err := s.lookupByEmail(ctx, email, model.SecretVerificationCode)
	if err != nil {
		return err
	}

	// Code presence is checked first so a repeat call after success reports
	// the consumed code rather than the verified flag
	pending, err := s.checkCode(ctx, account, model.CodePurposeVerification, code)
	if err != nil {
		return err
	}

	if account.Verified {
		return fmt.Errorf("verify code: %w", ErrAlreadyVerified)
	}

	err = s.accounts.ConsumeVerificationCode(ctx, account.ID, pending.Hash)
	if errors.Is(err, repository.ErrCodeNotPending) {
		return fmt.Errorf("verify code: %w", ErrCodeNotFound)
	}
	if err != nil {
		return internal("consume verification code", err)
	}

	slog.Info("email verified", "user_id", account.ID)
	return nil
}

// ChangePassword replaces the password of the account named by claims. Only
// sessions issued to verified accounts may change passwords. Existing sessions
// stay valid until they expire.
func (s *CredentialService) ChangePassword(ctx context.Context, claims *auth.Claims, oldPassword, newPassword string) error {
	if err := validation.ValidatePassword(oldPassword); err != nil {
		return invalid("oldPassword", err)
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return invalid("newPassword", err)
	}

	if claims == nil || !claims.Verified {
		return fmt.Errorf("change password: %w", ErrNotVerified)
	}

	account, err := s.accounts.ByIDWithSecrets(ctx, claims.UserID, model.SecretPassword)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return fmt.Errorf("change password: %w", ErrAccountNotFound)
	}
	if err != nil {
		return internal("lookup account", err)
	}

	if !account.HasPassword() || !s.hasher.Verify(oldPassword, *account.PasswordHash) {
		return fmt.Errorf("change password: %w", ErrInvalidCredentials)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internal("hash password", err)
	}

	err = s.accounts.UpdatePassword(ctx, account.ID, hash)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return fmt.Errorf("change password: %w", ErrAccountNotFound)
	}
	if err != nil {
		return internal("update password", err)
	}

	slog.Info("password changed", "user_id", account.ID)
	return nil
}

// SendForgotPasswordCode mails a reset code. It works whether or not the
// account has verified its email.
func (s *CredentialService) SendForgotPasswordCode(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return invalid("email", err)
	}

	account, err := s.lookupByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.issueCode(ctx, &account.Account, model.CodePurposeForgotPassword, forgotPasswordCodeEmailTemplate)
}

func (s *CredentialService) VerifyForgotPasswordCode(ctx context.Context, email, code, newPassword string) error {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return invalid("email", err)
	}
	if err := validation.ValidateCode(code); err != nil {
		return invalid("verificationCode", err)
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return invalid("newPassword", err)
	}

	account, err := s.lookupByEmail(ctx, email, model.SecretForgotPasswordCode)
	if err != nil {
		return err
	}

	pending, err := s.checkCode(ctx, account, model.CodePurposeForgotPassword, code)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internal("hash password", err)
	}

	err = s.accounts.ConsumeForgotPasswordCode(ctx, account.ID, pending.Hash, hash)
	if errors.Is(err, repository.ErrCodeNotPending) {
		return fmt.Errorf("reset password: %w", ErrCodeNotFound)
	}
	if err != nil {
		return internal("consume forgot password code", err)
	}

	slog.Info("password reset", "user_id", account.ID)
	return nil
}

func (s *CredentialService) lookupByEmail(ctx context.Context, email string, fields ...model.SecretField) (*model.InternalAccount, error) {
	account, err := s.accounts.ByEmailWithSecrets(ctx, email, fields...)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, fmt.Errorf("lookup %s: %w", email, ErrAccountNotFound)
	}
	if err != nil {
		return nil, internal("lookup account", err)
	}
	return account, nil
}

// checkCode returns the outstanding code for purpose when code matches it and
// it is still inside the validity window. Each mismatch counts against the code,
// which is discarded after maxAttempts wrong guesses.
func (s *CredentialService) checkCode(ctx context.Context, account *model.InternalAccount, purpose model.CodePurpose, code string) (*model.PendingCode, error) {
	pending := account.Code(purpose)
	if pending == nil {
		return nil, fmt.Errorf("%s code: %w", purpose, ErrCodeNotFound)
	}

	if pending.Expired(s.now(), s.codeValidity) {
		return nil, fmt.Errorf("%s code: %w", purpose, ErrCodeExpired)
	}

	if !s.cipher.Equal(code, pending.Hash) {
		discarded, err := s.accounts.RecordFailedAttempt(ctx, account.ID, purpose, pending.Hash, s.maxAttempts)
		if err != nil && !errors.Is(err, repository.ErrCodeNotPending) {
			return nil, internal("record failed attempt", err)
		}
		if discarded {
			slog.Warn("code discarded after failed attempts", "user_id", account.ID, "purpose", purpose)
		}
		return nil, fmt.Errorf("%s code: %w", purpose, ErrCodeInvalid)
	}

	return pending, nil
}

type codeTemplate func(code, appName string, validity time.Duration) (string, string)

// issueCode generates a code and mails it. The digest is stored only after the
// mailer confirms the recipient accepted the message, so a failed delivery
// leaves the account as it was.
func (s *CredentialService) issueCode(ctx context.Context, account *model.Account, purpose model.CodePurpose, template codeTemplate) error {
	code, err := s.cipher.GenerateCode()
	if err != nil {
		return internal("generate code", err)
	}

	subject, body := template(code, s.appName, s.codeValidity)

	accepted, err := s.mailer.Send(ctx, account.Email, subject, body)
	if err != nil {
		slog.Error("failed to send code", "error", err, "user_id", account.ID, "purpose", purpose)
		return fmt.Errorf("send %s code: %w", purpose, ErrDeliveryFailed)
	}
	if !slices.Contains(accepted, account.Email) {
		slog.Error("code not accepted by mail provider", "user_id", account.ID, "purpose", purpose)
		return fmt.Errorf("send %s code: %w", purpose, ErrDeliveryFailed)
	}

	pending := model.PendingCode{
		Hash:     s.cipher.Digest(code),
		IssuedAt: s.now(),
	}

	err = s.accounts.SetCode(ctx, account.ID, purpose, pending)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return fmt.Errorf("send %s code: %w", purpose, ErrAccountNotFound)
	}
	if err != nil {
		return internal("store code", err)
	}

	slog.Info("code sent", "user_id", account.ID, "purpose", purpose)
	return nil
}
