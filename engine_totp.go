package authcore

import (
	"context"
	"fmt"
)

// EnsureTOTPSecret returns userID's TOTP secret, creating and storing one
// only when none exists. Repeated calls return the same secret.
func (e *Engine) EnsureTOTPSecret(ctx context.Context, userID string) (string, error) {
	if e == nil || e.totp == nil || e.users == nil {
		return "", ErrEngineNotReady
	}
	fresh, err := e.totp.GenerateSecret(userID)
	if err != nil {
		return "", err
	}

	created := false
	u, err := e.updateUser(ctx, userID, func(u *User) error {
		if u.TOTPSecret != "" {
			return nil
		}
		u.TOTPSecret = fresh
		created = true
		return nil
	})
	if err != nil {
		return "", err
	}
	if created {
		e.emitAudit(ctx, auditEventTOTPSecretCreated, true, userID, "", nil, nil)
	}
	return u.TOTPSecret, nil
}

// ProvisioningURI derives the otpauth URI for user's existing secret,
// labelled with the account email and the configured issuer. It changes
// nothing and returns ErrTwoFactorNoSecret when no secret is stored.
func (e *Engine) ProvisioningURI(user User) (string, error) {
	if e == nil || e.totp == nil {
		return "", ErrEngineNotReady
	}
	if user.TOTPSecret == "" {
		return "", ErrTwoFactorNoSecret
	}
	return e.totp.ProvisionURI(user.TOTPSecret, user.Email)
}

// TwoFactorSetup ensures a secret exists for userID and returns it with its
// provisioning URI.
func (e *Engine) TwoFactorSetup(ctx context.Context, userID string) (TwoFactorSetup, error) {
	if _, err := e.EnsureTOTPSecret(ctx, userID); err != nil {
		return TwoFactorSetup{}, err
	}
	user, err := e.CurrentUser(ctx, userID)
	if err != nil {
		return TwoFactorSetup{}, err
	}
	uri, err := e.ProvisioningURI(user)
	if err != nil {
		return TwoFactorSetup{}, err
	}
	return TwoFactorSetup{Secret: user.TOTPSecret, ProvisioningURI: uri}, nil
}

// EnableTwoFactor turns on the second factor once code proves the user's
// authenticator holds the stored secret.
func (e *Engine) EnableTwoFactor(ctx context.Context, userID, code string) error {
	if e == nil || e.totp == nil || e.users == nil {
		return ErrEngineNotReady
	}
	now := e.now()
	_, err := e.updateUser(ctx, userID, func(u *User) error {
		if u.TOTPSecret == "" {
			return ErrTwoFactorNoSecret
		}
		ok, err := e.totp.VerifyCode(u.TOTPSecret, code, now)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTwoFactorInvalidCode, err)
		}
		if !ok {
			return ErrTwoFactorInvalidCode
		}
		u.Is2FAEnabled = true
		return nil
	})
	if err != nil {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTOTPEnabled, false, userID, "", err, nil)
		return err
	}
	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, auditEventTOTPEnabled, true, userID, "", nil, nil)
	return nil
}

// VerifyTwoFactor checks code against user's secret. It never changes the
// account.
func (e *Engine) VerifyTwoFactor(ctx context.Context, user User, code string) error {
	if e == nil || e.totp == nil {
		return ErrEngineNotReady
	}
	ok, err := e.totp.VerifyCode(user.TOTPSecret, code, e.now())
	if err != nil {
		e.logger.Warn(ctx, "totp verification error", "user_id", user.ID, "error", err)
	}
	if err != nil || !ok {
		e.metricInc(MetricTOTPFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, user.ID, "", ErrTwoFactorInvalidCode, nil)
		return ErrTwoFactorInvalidCode
	}
	e.metricInc(MetricTOTPSuccess)
	e.emitAudit(ctx, auditEventTwoFactorSuccess, true, user.ID, "", nil, nil)
	return nil
}
