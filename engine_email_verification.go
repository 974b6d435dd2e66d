package authcore

import (
	"context"
	"errors"

	"github.com/terrascope/authcore/internal/flows"
	"github.com/terrascope/authcore/internal/limiters"
	"github.com/terrascope/authcore/mail"
	"github.com/terrascope/authcore/session"
)

// IssueVerificationCode stores a fresh code with a CodeTTL expiry for userID,
// replacing any earlier code, and mails it. Mail failures are not returned.
func (e *Engine) IssueVerificationCode(ctx context.Context, userID string) error {
	return flows.RunIssueVerificationCode(ctx, userID, false, e.emailVerificationFlowDeps())
}

// ResendVerificationCode is IssueVerificationCode behind the resend limiter.
// It returns ErrResendRateLimited when the limiter is enabled and the bucket
// is empty.
func (e *Engine) ResendVerificationCode(ctx context.Context, userID string) error {
	return flows.RunIssueVerificationCode(ctx, userID, true, e.emailVerificationFlowDeps())
}

// VerifyEmail checks code for userID. It returns ErrVerificationNoCode,
// ErrVerificationExpired or ErrVerificationMismatch, all matching
// ErrVerification. On success the account is verified and the code is
// consumed.
func (e *Engine) VerifyEmail(ctx context.Context, userID, code string) error {
	_, err := flows.RunVerifyEmail(ctx, userID, code, e.emailVerificationFlowDeps())
	return err
}

// VerifyEmailInSession runs VerifyEmail and, when sess was waiting on this
// user's verification, returns the visitor to anonymous so they sign in
// again.
func (e *Engine) VerifyEmailInSession(ctx context.Context, sess *session.Session, userID, code string) error {
	if err := e.VerifyEmail(ctx, userID, code); err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	state := e.pending.State(sess)
	if state.Stage != StageEmailUnverified || state.UserID != userID {
		return nil
	}
	next, err := state.Apply(EventEmailVerified{}, e.now())
	if err != nil {
		return err
	}
	if err := e.pending.SetState(sess, next); err != nil {
		return err
	}
	if err := e.SaveVisit(ctx, sess); err != nil {
		e.logger.Warn(ctx, "visitor session not saved after verification", "error", err)
	}
	return nil
}

func (e *Engine) sendVerificationCode(ctx context.Context, state flows.VerificationState, code string) {
	msg, err := e.renderer.VerificationCode(mail.VerificationCodeData{
		User:         mail.Recipient{Email: state.Email},
		Code:         code,
		ValidMinutes: int(e.config.EmailVerification.CodeTTL.Minutes()),
	})
	e.deliver(ctx, "verification_code", state.UserID, msg, err)
}

func toVerificationState(u User) flows.VerificationState {
	return flows.VerificationState{
		UserID:    u.ID,
		Email:     u.Email,
		Verified:  u.IsEmailVerified,
		Code:      u.EmailVerificationCode,
		ExpiresAt: u.EmailVerificationExpiresAt,
	}
}

func (e *Engine) emailVerificationFlowDeps() flows.EmailVerificationDeps {
	deps := flows.EmailVerificationDeps{
		CodeDigits: e.config.EmailVerification.CodeDigits,
		CodeTTL:    e.config.EmailVerification.CodeTTL,

		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		GenerateCode:        e.codeGen,

		UpdateUser: func(ctx context.Context, userID string, fn func(*flows.VerificationState) error) (flows.VerificationState, error) {
			u, err := e.updateUser(ctx, userID, func(u *User) error {
				s := toVerificationState(*u)
				if err := fn(&s); err != nil {
					return err
				}
				u.IsEmailVerified = s.Verified
				u.EmailVerificationCode = s.Code
				u.EmailVerificationExpiresAt = s.ExpiresAt
				return nil
			})
			if err != nil {
				return flows.VerificationState{}, err
			}
			return toVerificationState(u), nil
		},
		IsRateLimited: func(err error) bool {
			return errors.Is(err, limiters.ErrResendRateLimited)
		},
		SendCode: e.sendVerificationCode,

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		EmitRateLimit: func(ctx context.Context, scope string, meta func() map[string]string) {
			e.emitRateLimit(ctx, scope, meta)
		},

		Metrics: flows.EmailVerificationMetrics{
			Issued:        int(MetricEmailVerificationIssued),
			Success:       int(MetricEmailVerificationSuccess),
			Failure:       int(MetricEmailVerificationFailure),
			ResendLimited: int(MetricEmailVerificationResendLimited),
		},
		Events: flows.EmailVerificationEvents{
			Issue:   auditEventEmailVerificationIssue,
			Confirm: auditEventEmailVerificationConfirm,
		},
		Errors: flows.EmailVerificationErrors{
			EngineNotReady:     ErrEngineNotReady,
			NoCode:             ErrVerificationNoCode,
			Expired:            ErrVerificationExpired,
			Mismatch:           ErrVerificationMismatch,
			ResendRateLimited:  ErrResendRateLimited,
			LimiterUnavailable: ErrLimiterUnavailable,
		},
	}
	if e.resendLimiter != nil {
		deps.AllowResend = func(ctx context.Context, userID, ip string) error {
			_, err := e.resendLimiter.Allow(ctx, userID, ip)
			return err
		}
	}
	return deps
}
