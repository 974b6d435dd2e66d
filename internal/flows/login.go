package flows

import (
	"context"
	"errors"
	"fmt"
)

// CredentialUser is the flow-local view of an account during the
// credential check.
type CredentialUser struct {
	ID           string
	Email        string
	PasswordHash string
}

type LoginMetrics struct {
	LoginFailure     int
	LoginRateLimited int
	PasswordRehash   int
}

type LoginEvents struct {
	LoginFailure     string
	LoginRateLimited string
}

type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	LoginRateLimited   error
	LimiterUnavailable error
	UserNotFound       error
}

// LoginDeps captures credential check dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool
	// DummyHash is verified when the email is unknown so both failure paths
	// cost one hash verification.
	DummyHash string

	ClientIPFromContext func(context.Context) string
	NormalizeEmail      func(string) string

	CheckLoginRate     func(ctx context.Context, email, ip string) error
	RecordLoginFailure func(ctx context.Context, email, ip string) error
	ResetLoginRate     func(ctx context.Context, email string) error
	IsRateLimited      func(error) bool

	GetUserByEmail       func(context.Context, string) (CredentialUser, error)
	VerifyPassword       func(password, hash string) (bool, error)
	PasswordNeedsUpgrade func(hash string) bool
	HashPassword         func(string) (string, error)
	UpdatePasswordHash   func(ctx context.Context, userID, newHash string) error

	MetricInc     func(int)
	EmitAudit     AuditFunc
	EmitRateLimit RateLimitFunc
	Warn          func(context.Context, string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = noopRateLimit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = noClientIP
	}
	if deps.NormalizeEmail == nil {
		deps.NormalizeEmail = func(s string) string { return s }
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}
}

// RunAuthenticate checks email and password. Unknown email and wrong
// password both return Errors.InvalidCredentials.
func RunAuthenticate(ctx context.Context, email, password string, deps LoginDeps) (CredentialUser, error) {
	normalizeLoginDeps(&deps)
	if deps.GetUserByEmail == nil || deps.VerifyPassword == nil {
		return CredentialUser{}, deps.Errors.EngineNotReady
	}

	email = deps.NormalizeEmail(email)
	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			if !deps.IsRateLimited(err) {
				return CredentialUser{}, fmt.Errorf("%w: %v", deps.Errors.LimiterUnavailable, err)
			}
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{"email": email}
			})
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", "", deps.Errors.LoginRateLimited, nil)
			return CredentialUser{}, deps.Errors.LoginRateLimited
		}
	}

	fail := func(userID, reason string) (CredentialUser, error) {
		if deps.RecordLoginFailure != nil {
			if err := deps.RecordLoginFailure(ctx, email, ip); err != nil {
				deps.Warn(ctx, "login limiter record failed", "error", err)
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return CredentialUser{}, deps.Errors.InvalidCredentials
	}

	if email == "" {
		_, _ = deps.VerifyPassword(password, deps.DummyHash)
		return fail("", "empty_email")
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.UserNotFound) {
			return CredentialUser{}, err
		}
		_, _ = deps.VerifyPassword(password, deps.DummyHash)
		return fail("", "unknown_email")
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		deps.Warn(ctx, "stored password hash unreadable", "user_id", user.ID, "error", err)
		return fail(user.ID, "malformed_hash")
	}
	if !ok {
		return fail(user.ID, "bad_password")
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email); err != nil {
			deps.Warn(ctx, "login limiter reset failed", "error", err)
		}
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil &&
		deps.UpdatePasswordHash != nil && deps.PasswordNeedsUpgrade(user.PasswordHash) {
		if newHash, err := deps.HashPassword(password); err == nil {
			if err := deps.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
				deps.Warn(ctx, "password rehash not stored", "user_id", user.ID, "error", err)
			} else {
				user.PasswordHash = newHash
				deps.MetricInc(deps.Metrics.PasswordRehash)
			}
		}
	}

	return user, nil
}
