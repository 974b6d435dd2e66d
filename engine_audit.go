package authcore

import (
	"context"
	"errors"

	"github.com/terrascope/authcore/internal/audit"
	"github.com/terrascope/authcore/session"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventLoginEmailUnverified     = "login_email_unverified"
	auditEventTwoFactorRequired        = "two_factor_required"
	auditEventTwoFactorSuccess         = "two_factor_success"
	auditEventTwoFactorFailure         = "two_factor_failure"
	auditEventTOTPSecretCreated        = "totp_secret_created"
	auditEventTOTPEnabled              = "totp_enabled"
	auditEventEmailVerificationIssue   = "email_verification_issue"
	auditEventEmailVerificationConfirm = "email_verification_confirm"
	auditEventPasswordResetRequest     = "password_reset_request"
	auditEventPasswordResetConfirm     = "password_reset_confirm"
	auditEventAccountCreationSuccess   = "account_creation_success"
	auditEventAccountCreationFailure   = "account_creation_failure"
	auditEventAccountCreationDuplicate = "account_creation_duplicate"
	auditEventLogout                   = "logout"
	auditEventMailSendFailure          = "mail_send_failure"
	auditEventRateLimitTriggered       = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label written into audit records.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrVerificationNoCode AuditErrorCode = "verification_no_code"
	auditErrVerificationExpiry AuditErrorCode = "verification_expired"
	auditErrVerificationWrong  AuditErrorCode = "verification_mismatch"
	auditErrTwoFactorNoSecret  AuditErrorCode = "totp_not_provisioned"
	auditErrTwoFactorInvalid   AuditErrorCode = "totp_invalid"
	auditErrNotPending         AuditErrorCode = "not_pending"
	auditErrResetUserNotFound  AuditErrorCode = "reset_user_not_found"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrPasswordMismatch   AuditErrorCode = "password_mismatch"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidEmail       AuditErrorCode = "invalid_email"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		RequestID: requestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, metadataBuilder func() map[string]string) {
	e.metricInc(MetricRateLimitHit)
	e.logger.Warn(ctx, "rate limit triggered", "scope", scope, "ip", clientIPFromContext(ctx))
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrResendRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrVerificationNoCode):
		return auditErrVerificationNoCode
	case errors.Is(err, ErrVerificationExpired):
		return auditErrVerificationExpiry
	case errors.Is(err, ErrVerificationMismatch):
		return auditErrVerificationWrong
	case errors.Is(err, ErrTwoFactorNoSecret):
		return auditErrTwoFactorNoSecret
	case errors.Is(err, ErrTwoFactorInvalidCode):
		return auditErrTwoFactorInvalid
	case errors.Is(err, ErrNotPending):
		return auditErrNotPending
	case errors.Is(err, ErrResetUserNotFound):
		return auditErrResetUserNotFound
	case errors.Is(err, ErrResetInvalidToken),
		errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrResetPasswordMismatch),
		errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordMismatch
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, session.ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrUserStoreUnavailable),
		errors.Is(err, ErrSessionUnavailable),
		errors.Is(err, ErrLimiterUnavailable),
		errors.Is(err, session.ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
