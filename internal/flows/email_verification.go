package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

// VerificationState is the flow-local view of an account's email
// verification fields.
type VerificationState struct {
	UserID    string
	Email     string
	Verified  bool
	Code      string
	ExpiresAt *time.Time
}

type EmailVerificationMetrics struct {
	Issued        int
	Success       int
	Failure       int
	ResendLimited int
}

type EmailVerificationEvents struct {
	Issue   string
	Confirm string
}

type EmailVerificationErrors struct {
	EngineNotReady     error
	NoCode             error
	Expired            error
	Mismatch           error
	ResendRateLimited  error
	LimiterUnavailable error
}

// EmailVerificationDeps captures code issue and confirm dependencies.
type EmailVerificationDeps struct {
	CodeDigits int
	CodeTTL    time.Duration

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string
	GenerateCode        func(digits int) (string, error)

	// UpdateUser runs fn inside one atomic user update. Changes made by fn
	// are persisted only when it returns nil, and fn's error is returned
	// unchanged.
	UpdateUser func(ctx context.Context, userID string, fn func(*VerificationState) error) (VerificationState, error)

	// AllowResend is nil when the resend bucket is disabled.
	AllowResend   func(ctx context.Context, userID, ip string) error
	IsRateLimited func(error) bool

	// SendCode delivers the code. It must not fail the flow.
	SendCode func(ctx context.Context, state VerificationState, code string)

	MetricInc     func(int)
	EmitAudit     AuditFunc
	EmitRateLimit RateLimitFunc

	Metrics EmailVerificationMetrics
	Events  EmailVerificationEvents
	Errors  EmailVerificationErrors
}

func normalizeEmailVerificationDeps(deps *EmailVerificationDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = noopRateLimit
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = noClientIP
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(error) bool { return false }
	}
	if deps.SendCode == nil {
		deps.SendCode = func(context.Context, VerificationState, string) {}
	}
}

// RunIssueVerificationCode stores a fresh code and expiry for userID,
// replacing any previous pair, then hands the code to SendCode. When resend
// is set the resend bucket is consulted first.
func RunIssueVerificationCode(ctx context.Context, userID string, resend bool, deps EmailVerificationDeps) error {
	normalizeEmailVerificationDeps(&deps)
	if deps.UpdateUser == nil || deps.GenerateCode == nil {
		return deps.Errors.EngineNotReady
	}

	if resend && deps.AllowResend != nil {
		ip := deps.ClientIPFromContext(ctx)
		if err := deps.AllowResend(ctx, userID, ip); err != nil {
			if !deps.IsRateLimited(err) {
				return fmt.Errorf("%w: %v", deps.Errors.LimiterUnavailable, err)
			}
			deps.MetricInc(deps.Metrics.ResendLimited)
			deps.EmitRateLimit(ctx, "verification_resend", func() map[string]string {
				return map[string]string{"user_id": userID}
			})
			deps.EmitAudit(ctx, deps.Events.Issue, false, userID, "", deps.Errors.ResendRateLimited, nil)
			return deps.Errors.ResendRateLimited
		}
	}

	code, err := deps.GenerateCode(deps.CodeDigits)
	if err != nil {
		return err
	}
	expiresAt := deps.Now().Add(deps.CodeTTL).UTC()

	state, err := deps.UpdateUser(ctx, userID, func(s *VerificationState) error {
		s.Code = code
		exp := expiresAt
		s.ExpiresAt = &exp
		return nil
	})
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Issue, false, userID, "", err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Issued)
	deps.EmitAudit(ctx, deps.Events.Issue, true, userID, "", nil, func() map[string]string {
		return map[string]string{"resend": fmt.Sprint(resend)}
	})
	deps.SendCode(ctx, state, code)
	return nil
}

// RunVerifyEmail checks code against the stored pair. Missing code or expiry
// is reported first, then expiry, then mismatch. On success the account is
// marked verified and both fields are cleared in the same update.
func RunVerifyEmail(ctx context.Context, userID, code string, deps EmailVerificationDeps) (VerificationState, error) {
	normalizeEmailVerificationDeps(&deps)
	if deps.UpdateUser == nil {
		return VerificationState{}, deps.Errors.EngineNotReady
	}

	now := deps.Now()
	state, err := deps.UpdateUser(ctx, userID, func(s *VerificationState) error {
		if s.Code == "" || s.ExpiresAt == nil {
			return deps.Errors.NoCode
		}
		if now.After(*s.ExpiresAt) {
			return deps.Errors.Expired
		}
		if subtle.ConstantTimeCompare([]byte(s.Code), []byte(code)) != 1 {
			return deps.Errors.Mismatch
		}
		s.Verified = true
		s.Code = ""
		s.ExpiresAt = nil
		return nil
	})
	if err != nil {
		reason := ""
		switch {
		case errors.Is(err, deps.Errors.NoCode):
			reason = "no_code"
		case errors.Is(err, deps.Errors.Expired):
			reason = "expired"
		case errors.Is(err, deps.Errors.Mismatch):
			reason = "mismatch"
		}
		if reason != "" {
			deps.MetricInc(deps.Metrics.Failure)
		}
		deps.EmitAudit(ctx, deps.Events.Confirm, false, userID, "", err, func() map[string]string {
			if reason == "" {
				return nil
			}
			return map[string]string{"reason": reason}
		})
		return VerificationState{}, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, userID, "", nil, nil)
	return state, nil
}
