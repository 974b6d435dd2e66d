package authcore

import "errors"

// groupedError is a sentinel that also matches its group with errors.Is.
type groupedError struct {
	msg   string
	group error
}

func (e *groupedError) Error() string { return e.msg }
func (e *groupedError) Unwrap() error { return e.group }

func grouped(group error, msg string) error {
	return &groupedError{msg: msg, group: group}
}

var (
	// ErrVerification matches every email verification failure.
	ErrVerification = errors.New("email verification failed")
	// ErrTwoFactor matches every second-factor failure.
	ErrTwoFactor = errors.New("two-factor verification failed")
	// ErrReset matches every password reset confirmation failure.
	ErrReset = errors.New("password reset failed")
)

var (
	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrVerificationNoCode   = grouped(ErrVerification, "no verification code issued")
	ErrVerificationExpired  = grouped(ErrVerification, "verification code expired")
	ErrVerificationMismatch = grouped(ErrVerification, "verification code mismatch")

	ErrTwoFactorNoSecret    = grouped(ErrTwoFactor, "two-factor secret not provisioned")
	ErrTwoFactorInvalidCode = grouped(ErrTwoFactor, "invalid two-factor code")

	ErrResetUserNotFound     = grouped(ErrReset, "password reset user not found")
	ErrResetInvalidToken     = grouped(ErrReset, "password reset link invalid or expired")
	ErrResetPasswordMismatch = grouped(ErrReset, "passwords do not match")

	// ErrNotPending means the visitor has no live second-factor stage.
	ErrNotPending = errors.New("no pending two-factor login")
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrAccountExists        = errors.New("account already exists")
	ErrPasswordPolicy       = errors.New("password policy violation")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrResendRateLimited    = errors.New("verification resend rate limited")
	ErrLoginRateLimited     = errors.New("login rate limited")
	ErrInvalidTransition    = errors.New("invalid login state transition")
	ErrUserStoreUnavailable = errors.New("user store unavailable")
	ErrSessionUnavailable   = errors.New("session store unavailable")
	ErrLimiterUnavailable   = errors.New("rate limiter unavailable")
	ErrEngineNotReady       = errors.New("engine not initialized")
	ErrTokenInvalid         = errors.New("invalid token")
	ErrUnauthorized         = errors.New("unauthorized")
)
