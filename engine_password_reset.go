package authcore

import (
	"context"

	"github.com/terrascope/authcore/internal/flows"
	"github.com/terrascope/authcore/mail"
)

// RequestPasswordReset mails a reset link to the account registered under
// email. An unknown email returns ErrUserNotFound.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := flows.RunRequestPasswordReset(ctx, email, e.passwordResetFlowDeps())
	return err
}

// CheckPasswordReset validates a reset link without using it. It returns
// ErrResetUserNotFound or ErrResetInvalidToken.
func (e *Engine) CheckPasswordReset(ctx context.Context, uidb64, token string) (User, error) {
	ru, err := flows.RunCheckPasswordReset(ctx, uidb64, token, e.passwordResetFlowDeps())
	if err != nil {
		return User{}, err
	}
	return e.CurrentUser(ctx, ru.ID)
}

// ConfirmPasswordReset sets a new password through a reset link and signs
// the user out everywhere. The link stops working once the password
// changes. Errors match ErrReset except ErrPasswordPolicy.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, uidb64, token, password1, password2 string) error {
	return flows.RunConfirmPasswordReset(ctx, uidb64, token, password1, password2, e.passwordResetFlowDeps())
}

func (e *Engine) sendResetLink(ctx context.Context, user flows.ResetUser, resetURL string) {
	msg, err := e.renderer.PasswordReset(mail.PasswordResetData{
		User:     mail.Recipient{Email: user.Email},
		ResetURL: resetURL,
	})
	e.deliver(ctx, "password_reset", user.ID, msg, err)
}

func toResetUser(u User) flows.ResetUser {
	return flows.ResetUser{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash}
}

func (e *Engine) passwordResetFlowDeps() flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		Key:               e.config.PasswordReset.Key,
		MaxAge:            e.config.PasswordReset.MaxAge,
		BaseURL:           e.config.App.BaseURL,
		MinPasswordLength: e.config.Password.MinLength,

		Now:            e.now,
		NormalizeEmail: NormalizeEmail,

		GetUserByEmail: func(ctx context.Context, email string) (flows.ResetUser, error) {
			u, err := e.users.GetByEmail(ctx, email)
			if err != nil {
				return flows.ResetUser{}, e.mapStoreError(err)
			}
			return toResetUser(u), nil
		},
		GetUserByID: func(ctx context.Context, id string) (flows.ResetUser, error) {
			u, err := e.users.GetByID(ctx, id)
			if err != nil {
				return flows.ResetUser{}, e.mapStoreError(err)
			}
			return toResetUser(u), nil
		},
		HashPassword: e.passwords.Hash,
		UpdatePasswordHash: func(ctx context.Context, userID string, fn func(string) (string, error)) error {
			_, err := e.updateUser(ctx, userID, func(u *User) error {
				next, err := fn(u.PasswordHash)
				if err != nil {
					return err
				}
				u.PasswordHash = next
				return nil
			})
			return err
		},
		InvalidateSessions: func(ctx context.Context, userID string) error {
			_, err := e.sessions.DestroyAllForUser(ctx, userID)
			return err
		},
		SendResetLink: e.sendResetLink,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.logger.Warn,

		Metrics: flows.PasswordResetMetrics{
			Request:        int(MetricPasswordResetRequest),
			ConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			ConfirmFailure: int(MetricPasswordResetConfirmFailure),
		},
		Events: flows.PasswordResetEvents{
			Request: auditEventPasswordResetRequest,
			Confirm: auditEventPasswordResetConfirm,
		},
		Errors: flows.PasswordResetErrors{
			EngineNotReady:    ErrEngineNotReady,
			UserNotFound:      ErrUserNotFound,
			ResetUserNotFound: ErrResetUserNotFound,
			InvalidToken:      ErrResetInvalidToken,
			PasswordMismatch:  ErrResetPasswordMismatch,
			PasswordPolicy:    ErrPasswordPolicy,
		},
	}
}
