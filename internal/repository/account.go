package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/tisu1989/auth-project/internal/model"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already exists")
	ErrCodeNotPending  = errors.New("no matching code pending")
	ErrUnknownSecret   = errors.New("unknown secret field")
	ErrUnknownPurpose  = errors.New("unknown code purpose")
)

// AccountRepository is the durable record of accounts. Reads return the public
// projection unless the caller names the secret fields it needs.
type AccountRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*model.Account, error)
	ByEmail(ctx context.Context, email string) (*model.Account, error)
	ByIDWithSecrets(ctx context.Context, id string, fields ...model.SecretField) (*model.InternalAccount, error)
	ByEmailWithSecrets(ctx context.Context, email string, fields ...model.SecretField) (*model.InternalAccount, error)

	// SetCode stores a code digest and its issue time together, replacing any
	// outstanding code of the same purpose.
	SetCode(ctx context.Context, id string, purpose model.CodePurpose, code model.PendingCode) error
	// ConsumeVerificationCode marks the account verified and clears the
	// verification code, only if codeHash is still the outstanding code.
	ConsumeVerificationCode(ctx context.Context, id, codeHash string) error
	// ConsumeForgotPasswordCode replaces the password and clears the reset code,
	// only if codeHash is still the outstanding code.
	ConsumeForgotPasswordCode(ctx context.Context, id, codeHash, passwordHash string) error
	// RecordFailedAttempt counts a wrong guess against the outstanding code and
	// discards the code once maxAttempts is reached. It reports whether the code
	// was discarded.
	RecordFailedAttempt(ctx context.Context, id string, purpose model.CodePurpose, codeHash string, maxAttempts int) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

const publicColumns = `id, email, verified, created_at, updated_at`

var secretColumns = map[model.SecretField][]string{
	model.SecretPassword:           {"password_hash"},
	model.SecretVerificationCode:   {"verification_code_hash", "verification_code_issued_at"},
	model.SecretForgotPasswordCode: {"forgot_password_code_hash", "forgot_password_code_issued_at"},
}

type codeColumnSet struct {
	hash, issuedAt, attempts string
}

var codeColumns = map[model.CodePurpose]codeColumnSet{
	model.CodePurposeVerification:   {"verification_code_hash", "verification_code_issued_at", "verification_code_failed_attempts"},
	model.CodePurposeForgotPassword: {"forgot_password_code_hash", "forgot_password_code_issued_at", "forgot_password_code_failed_attempts"},
}

type accountRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{db: db, now: time.Now}
}

func (r *accountRepository) Create(ctx context.Context, email, passwordHash string) (*model.Account, error) {
	now := r.now().UTC()
	account := &model.Account{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `INSERT INTO users (id, email, password_hash, verified, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query, account.ID, account.Email, passwordHash, false, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	return account, nil
}

func (r *accountRepository) ByEmail(ctx context.Context, email string) (*model.Account, error) {
	account := &model.Account{}
	query := `SELECT ` + publicColumns + ` FROM users WHERE email = $1`

	err := r.db.GetContext(ctx, account, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}

func (r *accountRepository) ByIDWithSecrets(ctx context.Context, id string, fields ...model.SecretField) (*model.InternalAccount, error) {
	return r.internal(ctx, "id", id, fields)
}

func (r *accountRepository) ByEmailWithSecrets(ctx context.Context, email string, fields ...model.SecretField) (*model.InternalAccount, error) {
	return r.internal(ctx, "email", email, fields)
}

func (r *accountRepository) internal(ctx context.Context, key, value string, fields []model.SecretField) (*model.InternalAccount, error) {
	columns, err := selectColumns(fields)
	if err != nil {
		return nil, err
	}

	account := &model.InternalAccount{}
	query := `SELECT ` + columns + ` FROM users WHERE ` + key + ` = $1`

	err = r.db.GetContext(ctx, account, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}

func selectColumns(fields []model.SecretField) (string, error) {
	columns := []string{publicColumns}
	seen := map[model.SecretField]bool{}

	for _, field := range fields {
		cols, ok := secretColumns[field]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownSecret, field)
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		columns = append(columns, cols...)
	}

	return strings.Join(columns, ", "), nil
}

func (r *accountRepository) SetCode(ctx context.Context, id string, purpose model.CodePurpose, code model.PendingCode) error {
	cols, ok := codeColumns[purpose]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPurpose, purpose)
	}

	query := `UPDATE users SET ` + cols.hash + ` = $1, ` + cols.issuedAt + ` = $2, ` + cols.attempts + ` = 0, updated_at = $3 WHERE id = $4`

	return r.execOne(ctx, ErrAccountNotFound, query, code.Hash, code.IssuedAt.UTC(), r.now().UTC(), id)
}

func (r *accountRepository) ConsumeVerificationCode(ctx context.Context, id, codeHash string) error {
	// Conditional on the digest so only one concurrent consumer can win
	query := `
		UPDATE users
		SET verified = $1, verification_code_hash = NULL, verification_code_issued_at = NULL,
			verification_code_failed_attempts = 0, updated_at = $2
		WHERE id = $3 AND verification_code_hash = $4
	`

	return r.execOne(ctx, ErrCodeNotPending, query, true, r.now().UTC(), id, codeHash)
}

func (r *accountRepository) ConsumeForgotPasswordCode(ctx context.Context, id, codeHash, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, forgot_password_code_hash = NULL, forgot_password_code_issued_at = NULL,
			forgot_password_code_failed_attempts = 0, updated_at = $2
		WHERE id = $3 AND forgot_password_code_hash = $4
	`

	return r.execOne(ctx, ErrCodeNotPending, query, passwordHash, r.now().UTC(), id, codeHash)
}

func (r *accountRepository) RecordFailedAttempt(ctx context.Context, id string, purpose model.CodePurpose, codeHash string, maxAttempts int) (bool, error) {
	cols, ok := codeColumns[purpose]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownPurpose, purpose)
	}

	// SET expressions see the row as it was, so the CASEs compare the new count
	query := `
		UPDATE users
		SET ` + cols.attempts + ` = ` + cols.attempts + ` + 1,
			` + cols.hash + ` = CASE WHEN ` + cols.attempts + ` + 1 >= $1 THEN NULL ELSE ` + cols.hash + ` END,
			` + cols.issuedAt + ` = CASE WHEN ` + cols.attempts + ` + 1 >= $1 THEN NULL ELSE ` + cols.issuedAt + ` END,
			updated_at = $2
		WHERE id = $3 AND ` + cols.hash + ` = $4
		RETURNING ` + cols.hash + ` IS NULL
	`

	var discarded bool
	err := r.db.GetContext(ctx, &discarded, query, maxAttempts, r.now().UTC(), id, codeHash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrCodeNotPending
	}
	if err != nil {
		return false, err
	}

	return discarded, nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`

	return r.execOne(ctx, ErrAccountNotFound, query, passwordHash, r.now().UTC(), id)
}

// execOne runs an UPDATE and returns notFound when it matched no row.
func (r *accountRepository) execOne(ctx context.Context, notFound error, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return notFound
	}

	return nil
}

// isUniqueViolation detects unique constraint failures for both PostgreSQL and SQLite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value")
}
