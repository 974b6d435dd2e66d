package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terrascope/authcore"
)

type errorMapping struct {
	err    error
	status int
	reason string
	notice string
}

// Checked in order; members precede their groups.
var errorTable = []errorMapping{
	{authcore.ErrInvalidCredentials, fiber.StatusUnauthorized, "invalid_credentials", NoticeInvalidCredentials},
	{authcore.ErrLoginRateLimited, fiber.StatusTooManyRequests, "rate_limited", NoticeLoginLimited},
	{authcore.ErrResendRateLimited, fiber.StatusTooManyRequests, "rate_limited", NoticeResendLimited},

	{authcore.ErrVerificationNoCode, fiber.StatusBadRequest, "no_code", NoticeNoCode},
	{authcore.ErrVerificationExpired, fiber.StatusBadRequest, "expired", NoticeCodeExpired},
	{authcore.ErrVerificationMismatch, fiber.StatusBadRequest, "mismatch", NoticeCodeMismatch},

	{authcore.ErrNotPending, fiber.StatusUnauthorized, "not_pending", NoticeNotPending},
	{authcore.ErrTwoFactorNoSecret, fiber.StatusBadRequest, "no_secret", NoticeTOTPNoSecret},
	{authcore.ErrTwoFactorInvalidCode, fiber.StatusBadRequest, "invalid_code", NoticeTOTPInvalid},

	{authcore.ErrResetUserNotFound, fiber.StatusBadRequest, "invalid_link", NoticeResetInvalid},
	{authcore.ErrResetInvalidToken, fiber.StatusBadRequest, "invalid_link", NoticeResetInvalid},
	{authcore.ErrResetPasswordMismatch, fiber.StatusBadRequest, "password_mismatch", NoticePasswordMismatch},

	{authcore.ErrInvalidEmail, fiber.StatusBadRequest, "invalid_email", NoticeInvalidEmail},
	{authcore.ErrPasswordMismatch, fiber.StatusBadRequest, "password_mismatch", NoticePasswordMismatch},
	{authcore.ErrPasswordPolicy, fiber.StatusBadRequest, "password_policy", NoticePasswordPolicy},
	{authcore.ErrAccountExists, fiber.StatusConflict, "account_exists", NoticeAccountExists},
	{authcore.ErrUserNotFound, fiber.StatusNotFound, "user_not_found", NoticeUserNotFound},

	{authcore.ErrTokenInvalid, fiber.StatusUnauthorized, "unauthorized", "unauthorized"},
	{authcore.ErrUnauthorized, fiber.StatusUnauthorized, "unauthorized", "unauthorized"},

	{authcore.ErrSessionUnavailable, fiber.StatusServiceUnavailable, "unavailable", NoticeUnavailable},
	{authcore.ErrUserStoreUnavailable, fiber.StatusServiceUnavailable, "unavailable", NoticeUnavailable},
	{authcore.ErrLimiterUnavailable, fiber.StatusServiceUnavailable, "unavailable", NoticeUnavailable},
	{authcore.ErrEngineNotReady, fiber.StatusServiceUnavailable, "unavailable", NoticeUnavailable},
}

func lookupError(err error) errorMapping {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m
		}
	}
	return errorMapping{err: err, status: fiber.StatusInternalServerError, reason: "internal", notice: NoticeInternal}
}

// writeError renders err through the error table. Unmapped errors are
// logged and reported as internal.
func (h *Handlers) writeError(c *fiber.Ctx, err error) error {
	m := lookupError(err)
	if m.status >= fiber.StatusInternalServerError {
		h.log.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	}
	return failure(c, m.status, m.notice, m.reason)
}

// errorHandler renders errors that escape handlers, including fiber's own.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return failure(c, fe.Code, fe.Message, "http_error")
	}
	m := lookupError(err)
	return failure(c, m.status, m.notice, m.reason)
}
