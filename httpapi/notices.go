package httpapi

// User-facing messages returned in the envelope's message and error fields.
const (
	NoticeInvalidCredentials = "Invalid email or password"
	NoticeVerifyFirst        = "Please verify your email first. We just sent you a new code."
	NoticeAccountCreated     = "Account created successfully. Please sign in."
	NoticeAccountExists      = "An account with that email already exists."
	NoticeInvalidEmail       = "Enter a valid email address."
	NoticePasswordPolicy     = "Password is too short."
	NoticeNoCode             = "No verification code found. Please request a new one."
	NoticeCodeExpired        = "This code has expired. Please request a new one."
	NoticeCodeMismatch       = "Invalid verification code."
	NoticeEmailVerified      = "Email verified! You can now sign in."
	NoticeCodeResent         = "We sent you a new verification code."
	NoticeResendLimited      = "Please wait before requesting another code."
	NoticeUserNotFound       = "We couldn't find an account with that email."
	NoticeResetSent          = "We emailed you a password reset link."
	NoticeResetInvalid       = "This password reset link is invalid or expired."
	NoticePasswordMismatch   = "Passwords don't match."
	NoticePasswordUpdated    = "Password updated! You can now sign in."
	NoticeTOTPNoSecret       = "Something went wrong. Refresh the page to get a new QR code."
	NoticeTOTPEnabled        = "2FA enabled successfully"
	NoticeTOTPInvalid        = "Invalid code. Try again."
	NoticeTwoFactorLoggedIn  = "Logged in with 2FA"
	NoticeTwoFactorInvalid   = "Invalid 2FA code."
	NoticeNotPending         = "Your sign-in expired. Please sign in again."
	NoticeLoginLimited       = "Too many attempts. Try again later."
	NoticeLoggedOut          = "You have been signed out."
	NoticeUnavailable        = "Service temporarily unavailable."
	NoticeInternal           = "Something went wrong."
)
