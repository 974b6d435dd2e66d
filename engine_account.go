package authcore

import (
	"context"
	"errors"
	netmail "net/mail"
	"unicode/utf8"
)

// RegisterRequest is a sign-up form.
type RegisterRequest struct {
	Email     string
	Password1 string
	Password2 string
}

// Register creates an unverified account and issues its first verification
// code. It returns ErrInvalidEmail, ErrPasswordMismatch, ErrPasswordPolicy or
// ErrAccountExists for rejected forms.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if e == nil || e.users == nil || e.passwords == nil {
		return User{}, ErrEngineNotReady
	}

	u, err := e.createAccount(ctx, req.Email, req.Password1, req.Password2, false)
	if err != nil {
		return User{}, err
	}
	if err := e.IssueVerificationCode(ctx, u.ID); err != nil {
		e.logger.Warn(ctx, "first verification code not issued", "user_id", u.ID, "error", err)
	}
	return u, nil
}

// CreateUser creates an account without mailing anything. verified marks the
// email as already confirmed; used by administrative tooling.
func (e *Engine) CreateUser(ctx context.Context, email, password string, verified bool) (User, error) {
	if e == nil || e.users == nil || e.passwords == nil {
		return User{}, ErrEngineNotReady
	}
	return e.createAccount(ctx, email, password, password, verified)
}

// MarkEmailVerified verifies userID's email without a code and clears any
// outstanding code.
func (e *Engine) MarkEmailVerified(ctx context.Context, userID string) (User, error) {
	u, err := e.updateUser(ctx, userID, func(u *User) error {
		u.IsEmailVerified = true
		u.EmailVerificationCode = ""
		u.EmailVerificationExpiresAt = nil
		return nil
	})
	if err != nil {
		return User{}, err
	}
	e.emitAudit(ctx, auditEventEmailVerificationConfirm, true, userID, "", nil, func() map[string]string {
		return map[string]string{"method": "admin"}
	})
	return u, nil
}

func (e *Engine) createAccount(ctx context.Context, email, password1, password2 string, verified bool) (User, error) {
	email = NormalizeEmail(email)
	fail := func(reason string, err error) (User, error) {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return User{}, err
	}

	if !validEmail(email) {
		return fail("invalid_email", ErrInvalidEmail)
	}
	if password1 != password2 {
		return fail("password_mismatch", ErrPasswordMismatch)
	}
	if utf8.RuneCountInString(password1) < e.config.Password.MinLength {
		return fail("password_too_short", ErrPasswordPolicy)
	}

	hash, err := e.passwords.Hash(password1)
	if err != nil {
		return fail("password_rejected", errors.Join(ErrPasswordPolicy, err))
	}

	now := e.now().UTC()
	u, err := e.users.Create(ctx, User{
		Email:           email,
		PasswordHash:    hash,
		IsEmailVerified: verified,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, "", "", err, nil)
			return User{}, ErrAccountExists
		}
		return fail("store_error", e.mapStoreError(err))
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, u.ID, "", nil, nil)
	return u, nil
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email
}
