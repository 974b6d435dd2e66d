package flows

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/terrascope/authcore/internal"
)

// ResetUser is the flow-local view of an account during password reset.
type ResetUser struct {
	ID           string
	Email        string
	PasswordHash string
}

type PasswordResetMetrics struct {
	Request        int
	ConfirmSuccess int
	ConfirmFailure int
}

type PasswordResetEvents struct {
	Request string
	Confirm string
}

type PasswordResetErrors struct {
	EngineNotReady    error
	UserNotFound      error
	ResetUserNotFound error
	InvalidToken      error
	PasswordMismatch  error
	PasswordPolicy    error
}

// PasswordResetDeps captures reset link dependencies. The capability is
// keyed by Key and bound to the account's current password hash, so any
// password change invalidates outstanding links.
type PasswordResetDeps struct {
	Key               []byte
	MaxAge            time.Duration
	BaseURL           string
	MinPasswordLength int

	Now            func() time.Time
	NormalizeEmail func(string) string

	GetUserByEmail func(context.Context, string) (ResetUser, error)
	GetUserByID    func(context.Context, string) (ResetUser, error)
	HashPassword   func(string) (string, error)

	// UpdatePasswordHash runs fn against the current stored hash inside one
	// atomic update and stores the hash fn returns. fn's error aborts the
	// update and is returned unchanged.
	UpdatePasswordHash func(ctx context.Context, userID string, fn func(current string) (string, error)) error
	InvalidateSessions func(ctx context.Context, userID string) error

	// SendResetLink delivers the link. It must not fail the flow.
	SendResetLink func(ctx context.Context, user ResetUser, resetURL string)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(context.Context, string, ...any)

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NormalizeEmail == nil {
		deps.NormalizeEmail = func(s string) string { return s }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.SendResetLink == nil {
		deps.SendResetLink = func(context.Context, ResetUser, string) {}
	}
}

// ResetURL joins base and the link path for uid and token.
func ResetURL(base, uidb64, token string) string {
	return strings.TrimRight(base, "/") + "/password-reset/" + uidb64 + "/" + token
}

// RunRequestPasswordReset issues a reset link for email and returns it. An
// unknown email yields Errors.UserNotFound.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) (string, error) {
	normalizePasswordResetDeps(&deps)
	if deps.GetUserByEmail == nil || len(deps.Key) == 0 {
		return "", deps.Errors.EngineNotReady
	}

	email = deps.NormalizeEmail(email)
	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Request, false, "", "", err, nil)
		return "", err
	}

	token := internal.SignCapability(deps.Key, user.ID, user.PasswordHash, deps.Now())
	link := ResetURL(deps.BaseURL, internal.EncodeUserID(user.ID), token)

	deps.MetricInc(deps.Metrics.Request)
	deps.EmitAudit(ctx, deps.Events.Request, true, user.ID, "", nil, nil)
	deps.SendResetLink(ctx, user, link)
	return link, nil
}

// RunCheckPasswordReset validates a link without changing anything.
func RunCheckPasswordReset(ctx context.Context, uidb64, token string, deps PasswordResetDeps) (ResetUser, error) {
	normalizePasswordResetDeps(&deps)
	if deps.GetUserByID == nil || len(deps.Key) == 0 {
		return ResetUser{}, deps.Errors.EngineNotReady
	}
	return checkResetLink(ctx, uidb64, token, deps)
}

func checkResetLink(ctx context.Context, uidb64, token string, deps PasswordResetDeps) (ResetUser, error) {
	userID, err := internal.DecodeUserID(uidb64)
	if err != nil {
		return ResetUser{}, deps.Errors.ResetUserNotFound
	}
	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, deps.Errors.UserNotFound) {
			return ResetUser{}, deps.Errors.ResetUserNotFound
		}
		return ResetUser{}, err
	}
	if err := internal.VerifyCapability(deps.Key, token, user.ID, user.PasswordHash, deps.Now(), deps.MaxAge); err != nil {
		return ResetUser{}, deps.Errors.InvalidToken
	}
	return user, nil
}

// RunConfirmPasswordReset sets a new password through a reset link. Checks
// run in order: user id, capability, confirmation match, policy. The
// capability is checked again against the stored hash inside the update so
// a concurrent password change wins.
func RunConfirmPasswordReset(ctx context.Context, uidb64, token, password1, password2 string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)
	if deps.GetUserByID == nil || deps.UpdatePasswordHash == nil || deps.HashPassword == nil || len(deps.Key) == 0 {
		return deps.Errors.EngineNotReady
	}

	fail := func(userID, reason string, err error) error {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, userID, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	user, err := checkResetLink(ctx, uidb64, token, deps)
	if err != nil {
		switch {
		case errors.Is(err, deps.Errors.ResetUserNotFound):
			return fail("", "user_not_found", err)
		case errors.Is(err, deps.Errors.InvalidToken):
			return fail("", "invalid_token", err)
		}
		return err
	}

	if password1 != password2 {
		return fail(user.ID, "password_mismatch", deps.Errors.PasswordMismatch)
	}
	if utf8.RuneCountInString(password1) < deps.MinPasswordLength {
		return fail(user.ID, "password_policy", deps.Errors.PasswordPolicy)
	}

	newHash, err := deps.HashPassword(password1)
	if err != nil {
		return fail(user.ID, "password_policy", errors.Join(deps.Errors.PasswordPolicy, err))
	}

	now := deps.Now()
	err = deps.UpdatePasswordHash(ctx, user.ID, func(current string) (string, error) {
		if err := internal.VerifyCapability(deps.Key, token, user.ID, current, now, deps.MaxAge); err != nil {
			return "", deps.Errors.InvalidToken
		}
		return newHash, nil
	})
	if err != nil {
		if errors.Is(err, deps.Errors.InvalidToken) {
			return fail(user.ID, "invalid_token", err)
		}
		return err
	}

	if deps.InvalidateSessions != nil {
		if err := deps.InvalidateSessions(ctx, user.ID); err != nil {
			deps.Warn(ctx, "session invalidation after reset failed", "user_id", user.ID, "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, user.ID, "", nil, nil)
	return nil
}
