package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/terrascope/authcore/internal/flows"
	"github.com/terrascope/authcore/internal/limiters"
	"github.com/terrascope/authcore/session"
)

// Authenticate checks email and password. It returns ErrInvalidCredentials
// for an unknown email and for a wrong password alike.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (User, error) {
	var found User
	cu, err := flows.RunAuthenticate(ctx, email, password, e.loginFlowDeps(&found))
	if err != nil {
		return User{}, err
	}
	found.PasswordHash = cu.PasswordHash
	return found, nil
}

// Login runs the credential step for the visitor in sess and records the
// resulting login state there. Any earlier state in sess is discarded first.
//
// An unverified account is sent a fresh verification code. An account with
// a second factor is left pending; otherwise the visitor is authenticated
// and an access token is issued. sess is saved before Login returns, and its
// ID changes when the visitor becomes authenticated.
func (e *Engine) Login(ctx context.Context, sess *session.Session, email, password string) (*LoginResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, session.ErrSessionNotFound
	}
	start := time.Now()
	defer e.metricObserve(MetricLoginLatency, start)

	e.pending.Clear(sess)
	var state LoginState

	user, err := e.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			next, _ := state.Apply(EventCredentialsRejected{}, e.now())
			_ = e.pending.SetState(sess, next)
		}
		if saveErr := e.SaveVisit(ctx, sess); saveErr != nil {
			e.logger.Warn(ctx, "visitor session not saved after failed login", "error", saveErr)
		}
		return nil, err
	}

	next, err := state.Apply(EventCredentialsAccepted{
		UserID:    user.ID,
		Verified:  user.IsEmailVerified,
		TwoFactor: user.RequiresTwoFactor(),
	}, e.now())
	if err != nil {
		return nil, err
	}

	result := &LoginResult{UserID: user.ID}
	switch next.Stage {
	case StageEmailUnverified:
		if err := e.pending.SetState(sess, next); err != nil {
			return nil, err
		}
		if err := e.IssueVerificationCode(ctx, user.ID); err != nil {
			e.logger.Warn(ctx, "verification code not issued at login", "user_id", user.ID, "error", err)
		}
		e.metricInc(MetricLoginEmailUnverified)
		e.emitAudit(ctx, auditEventLoginEmailUnverified, false, user.ID, sess.ID, nil, nil)
		result.Next = NextVerifyEmail

	case StagePendingTwoFactor:
		if err := e.pending.Begin(sess, user); err != nil {
			return nil, err
		}
		e.metricInc(MetricTwoFactorRequired)
		e.emitAudit(ctx, auditEventTwoFactorRequired, true, user.ID, sess.ID, nil, nil)
		result.Next = NextTwoFactor

	case StageAuthenticated:
		token, err := e.authenticateVisit(ctx, sess, user, next)
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, sess.ID, nil, nil)
		result.Next = NextHome
		result.AccessToken = token
		return result, nil
	}

	if err := e.SaveVisit(ctx, sess); err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteTwoFactor finishes a pending login with a TOTP code. It returns
// ErrNotPending when sess holds no live pending marker and
// ErrTwoFactorInvalidCode when the code is rejected; the marker survives a
// rejected code until it expires.
func (e *Engine) CompleteTwoFactor(ctx context.Context, sess *session.Session, code string) (*LoginResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, ErrNotPending
	}

	userID, err := e.pending.Resolve(sess)
	if err != nil {
		if errors.Is(err, errPendingExpired) {
			e.metricInc(MetricPendingExpired)
			if saveErr := e.SaveVisit(ctx, sess); saveErr != nil {
				e.logger.Warn(ctx, "expired pending marker not cleared", "error", saveErr)
			}
		}
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, "", sess.ID, ErrNotPending, nil)
		return nil, ErrNotPending
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.pending.Clear(sess)
			_ = e.SaveVisit(ctx, sess)
			return nil, ErrNotPending
		}
		return nil, e.mapStoreError(err)
	}

	state := e.pending.State(sess)
	if err := e.VerifyTwoFactor(ctx, user, code); err != nil {
		if _, applyErr := state.Apply(EventTwoFactorRejected{}, e.now()); applyErr != nil {
			return nil, applyErr
		}
		return nil, err
	}

	next, err := state.Apply(EventTwoFactorAccepted{}, e.now())
	if err != nil {
		return nil, err
	}
	token, err := e.authenticateVisit(ctx, sess, user, next)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, sess.ID, nil, func() map[string]string {
		return map[string]string{"second_factor": "totp"}
	})
	return &LoginResult{Next: NextHome, UserID: user.ID, AccessToken: token}, nil
}

// authenticateVisit stores an authenticated state, moves the visitor to a
// fresh session ID and issues an access token bound to it.
func (e *Engine) authenticateVisit(ctx context.Context, sess *session.Session, user User, state LoginState) (string, error) {
	if err := e.pending.SetState(sess, state); err != nil {
		return "", err
	}
	if err := e.sessions.Rotate(ctx, sess); err != nil {
		return "", e.mapSessionError(err)
	}
	return e.issueAccess(user, sess.ID)
}

func (e *Engine) loginFlowDeps(found *User) flows.LoginDeps {
	deps := flows.LoginDeps{
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		DummyHash:              e.dummyHash,

		ClientIPFromContext: clientIPFromContext,
		NormalizeEmail:      NormalizeEmail,
		IsRateLimited: func(err error) bool {
			return errors.Is(err, limiters.ErrLoginRateLimited)
		},

		GetUserByEmail: func(ctx context.Context, email string) (flows.CredentialUser, error) {
			u, err := e.users.GetByEmail(ctx, email)
			if err != nil {
				return flows.CredentialUser{}, e.mapStoreError(err)
			}
			*found = u
			return flows.CredentialUser{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash}, nil
		},
		VerifyPassword:       e.passwords.Verify,
		PasswordNeedsUpgrade: e.passwords.NeedsRehash,
		HashPassword:         e.passwords.Hash,
		UpdatePasswordHash: func(ctx context.Context, userID, newHash string) error {
			_, err := e.updateUser(ctx, userID, func(u *User) error {
				u.PasswordHash = newHash
				return nil
			})
			return err
		},

		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		EmitRateLimit: func(ctx context.Context, scope string, meta func() map[string]string) {
			e.emitRateLimit(ctx, scope, meta)
		},
		Warn: e.logger.Warn,

		Metrics: flows.LoginMetrics{
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
			PasswordRehash:   int(MetricPasswordRehash),
		},
		Events: flows.LoginEvents{
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			LoginRateLimited:   ErrLoginRateLimited,
			LimiterUnavailable: ErrLimiterUnavailable,
			UserNotFound:       ErrUserNotFound,
		},
	}
	if e.loginLimiter != nil {
		deps.CheckLoginRate = e.loginLimiter.Check
		deps.RecordLoginFailure = e.loginLimiter.RecordFailure
		deps.ResetLoginRate = e.loginLimiter.Reset
	}
	return deps
}
