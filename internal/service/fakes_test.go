package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/tisu1989/auth-project/internal/model"
	"github.com/tisu1989/auth-project/internal/repository"
)

// fakeAccounts is an in-memory AccountRepository with the same projection and
// pairing rules as the SQL repository.
type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[string]*model.InternalAccount
	nextID   int
	err      error
	setCalls int
	attempts map[string]int

	// skipPreCheck makes ByEmail miss so Create sees the duplicate
	skipPreCheck bool
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]*model.InternalAccount{}, attempts: map[string]int{}}
}

func (f *fakeAccounts) find(email string) *model.InternalAccount {
	for _, a := range f.byID {
		if a.Email == email {
			return a
		}
	}
	return nil
}

func (f *fakeAccounts) Create(_ context.Context, email, passwordHash string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.find(email) != nil {
		return nil, repository.ErrDuplicateEmail
	}
	f.nextID++
	hash := passwordHash
	a := &model.InternalAccount{
		Account:      model.Account{ID: "user-" + strconv.Itoa(f.nextID), Email: email, CreatedAt: time.Now()},
		PasswordHash: &hash,
	}
	f.byID[a.ID] = a
	public := a.Account
	return &public, nil
}

func (f *fakeAccounts) ByEmail(_ context.Context, email string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a := f.find(email)
	if a == nil || f.skipPreCheck {
		return nil, repository.ErrAccountNotFound
	}
	public := a.Account
	return &public, nil
}

func (f *fakeAccounts) project(a *model.InternalAccount, fields []model.SecretField) *model.InternalAccount {
	out := &model.InternalAccount{Account: a.Account}
	for _, field := range fields {
		switch field {
		case model.SecretPassword:
			out.PasswordHash = copyString(a.PasswordHash)
		case model.SecretVerificationCode:
			out.VerificationCodeHash = copyString(a.VerificationCodeHash)
			out.VerificationIssuedAt = copyTime(a.VerificationIssuedAt)
		case model.SecretForgotPasswordCode:
			out.ForgotPasswordCodeHash = copyString(a.ForgotPasswordCodeHash)
			out.ForgotPasswordIssuedAt = copyTime(a.ForgotPasswordIssuedAt)
		}
	}
	return out
}

func (f *fakeAccounts) ByIDWithSecrets(_ context.Context, id string, fields ...model.SecretField) (*model.InternalAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return f.project(a, fields), nil
}

func (f *fakeAccounts) ByEmailWithSecrets(_ context.Context, email string, fields ...model.SecretField) (*model.InternalAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	a := f.find(email)
	if a == nil {
		return nil, repository.ErrAccountNotFound
	}
	return f.project(a, fields), nil
}

func (f *fakeAccounts) SetCode(_ context.Context, id string, purpose model.CodePurpose, code model.PendingCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.err != nil {
		return f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	hash, issued := code.Hash, code.IssuedAt
	f.attempts[id+"/"+string(purpose)] = 0
	switch purpose {
	case model.CodePurposeVerification:
		a.VerificationCodeHash, a.VerificationIssuedAt = &hash, &issued
	case model.CodePurposeForgotPassword:
		a.ForgotPasswordCodeHash, a.ForgotPasswordIssuedAt = &hash, &issued
	default:
		return repository.ErrUnknownPurpose
	}
	return nil
}

func (f *fakeAccounts) ConsumeVerificationCode(_ context.Context, id, codeHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a, ok := f.byID[id]
	if !ok || a.VerificationCodeHash == nil || *a.VerificationCodeHash != codeHash {
		return repository.ErrCodeNotPending
	}
	a.Verified = true
	a.VerificationCodeHash, a.VerificationIssuedAt = nil, nil
	delete(f.attempts, id+"/"+string(model.CodePurposeVerification))
	return nil
}

func (f *fakeAccounts) ConsumeForgotPasswordCode(_ context.Context, id, codeHash, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a, ok := f.byID[id]
	if !ok || a.ForgotPasswordCodeHash == nil || *a.ForgotPasswordCodeHash != codeHash {
		return repository.ErrCodeNotPending
	}
	hash := passwordHash
	a.PasswordHash = &hash
	a.ForgotPasswordCodeHash, a.ForgotPasswordIssuedAt = nil, nil
	delete(f.attempts, id+"/"+string(model.CodePurposeForgotPassword))
	return nil
}

func (f *fakeAccounts) RecordFailedAttempt(_ context.Context, id string, purpose model.CodePurpose, codeHash string, maxAttempts int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return false, repository.ErrCodeNotPending
	}

	var hash **string
	var issued **time.Time
	switch purpose {
	case model.CodePurposeVerification:
		hash, issued = &a.VerificationCodeHash, &a.VerificationIssuedAt
	case model.CodePurposeForgotPassword:
		hash, issued = &a.ForgotPasswordCodeHash, &a.ForgotPasswordIssuedAt
	default:
		return false, repository.ErrUnknownPurpose
	}
	if *hash == nil || **hash != codeHash {
		return false, repository.ErrCodeNotPending
	}

	key := id + "/" + string(purpose)
	f.attempts[key]++
	if f.attempts[key] < maxAttempts {
		return false, nil
	}
	*hash, *issued = nil, nil
	f.attempts[key] = 0
	return true, nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrAccountNotFound
	}
	hash := passwordHash
	a.PasswordHash = &hash
	return nil
}

// raw returns the stored record including every secret, for assertions.
func (f *fakeAccounts) raw(email string) *model.InternalAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.find(email)
	if a == nil {
		return nil
	}
	return f.project(a, []model.SecretField{model.SecretPassword, model.SecretVerificationCode, model.SecretForgotPasswordCode})
}

type sentMail struct {
	to, subject, body string
}

// fakeMailer records messages; accept overrides the accepted list when set.
type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	err    error
	accept func(to string) []string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	if m.accept != nil {
		return m.accept(to), nil
	}
	return []string{to}, nil
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

var errStoreDown = errors.New("store down")

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
