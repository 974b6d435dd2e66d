package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/terrascope/authcore/internal/audit"
	"github.com/terrascope/authcore/internal/limiters"
	"github.com/terrascope/authcore/internal/metrics"
	"github.com/terrascope/authcore/jwt"
	"github.com/terrascope/authcore/logging"
	"github.com/terrascope/authcore/mail"
	"github.com/terrascope/authcore/password"
	"github.com/terrascope/authcore/session"
)

// Engine runs every sign-in operation. Build one with [Builder]; an Engine
// is safe for concurrent use.
type Engine struct {
	config        Config
	users         UserStore
	redis         redis.UniversalClient
	sessions      *session.Store
	pending       *PendingStore
	passwords     *password.Manager
	jwtManager    *jwt.Manager
	totp          *totpManager
	renderer      *mail.Renderer
	mailer        mail.Mailer
	resendLimiter *limiters.ResendLimiter
	loginLimiter  *limiters.LoginLimiter
	audit         *audit.Dispatcher
	metrics       *Metrics
	logger        logging.Logger

	now       func() time.Time
	codeGen   func(digits int) (string, error)
	dummyHash string
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return metrics.EmptySnapshot()
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Logger returns the engine's logger.
func (e *Engine) Logger() logging.Logger {
	return e.logger
}

/*
====================================
VISITOR SESSIONS
====================================
*/

// StartVisit creates an anonymous visitor session.
func (e *Engine) StartVisit(ctx context.Context) (*session.Session, error) {
	sess, err := e.sessions.Create(ctx)
	if err != nil {
		return nil, e.mapSessionError(err)
	}
	return sess, nil
}

// LoadVisit returns the visitor session with id. Unknown, expired and corrupt
// sessions return session.ErrSessionNotFound so callers can start afresh.
func (e *Engine) LoadVisit(ctx context.Context, id string) (*session.Session, error) {
	sess, err := e.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, session.ErrSessionCorrupt) {
			e.logger.Warn(ctx, "discarding corrupt visitor session", "error", err)
			_ = e.sessions.Destroy(ctx, id)
			return nil, session.ErrSessionNotFound
		}
		return nil, e.mapSessionError(err)
	}
	return sess, nil
}

// SaveVisit persists sess.
func (e *Engine) SaveVisit(ctx context.Context, sess *session.Session) error {
	if err := e.sessions.Save(ctx, sess); err != nil {
		return e.mapSessionError(err)
	}
	return nil
}

// LoginState returns the login state stored in sess.
func (e *Engine) LoginState(sess *session.Session) LoginState {
	return e.pending.State(sess)
}

// Logout resets sess to anonymous and destroys it.
func (e *Engine) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	state := e.pending.State(sess)
	next, _ := state.Apply(EventLoggedOut{}, e.now())
	_ = e.pending.SetState(sess, next)

	if err := e.sessions.Destroy(ctx, sess.ID); err != nil {
		return e.mapSessionError(err)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, state.UserID, sess.ID, nil, nil)
	return nil
}

func (e *Engine) mapSessionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrSessionNotFound):
		return err
	case errors.Is(err, session.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	default:
		return err
	}
}

/*
====================================
ACCESS TOKENS
====================================
*/

func (e *Engine) issueAccess(user User, sessionID string) (string, error) {
	return e.jwtManager.CreateAccess(user.ID, user.Email, sessionID)
}

// ValidateAccess verifies a bearer access token.
func (e *Engine) ValidateAccess(token string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return &AuthResult{UserID: claims.UID, Email: claims.Email, SessionID: claims.SID}, nil
}

/*
====================================
USERS
====================================
*/

// CurrentUser returns the user with id.
func (e *Engine) CurrentUser(ctx context.Context, userID string) (User, error) {
	u, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return User{}, e.mapStoreError(err)
	}
	return u, nil
}

// ListUsers pages through accounts in creation order.
func (e *Engine) ListUsers(ctx context.Context, offset, limit int) ([]User, error) {
	users, err := e.users.List(ctx, offset, limit)
	if err != nil {
		return nil, e.mapStoreError(err)
	}
	return users, nil
}

func (e *Engine) mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrAccountExists),
		errors.Is(err, ErrUserStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUserStoreUnavailable, err)
	}
}

// updateUser runs fn inside the store's atomic update. An error returned by
// fn comes back unchanged; store failures are mapped.
func (e *Engine) updateUser(ctx context.Context, userID string, fn func(*User) error) (User, error) {
	var fnErr error
	u, err := e.users.Update(ctx, userID, func(u *User) error {
		fnErr = fn(u)
		return fnErr
	})
	if err != nil {
		if fnErr != nil && errors.Is(err, fnErr) {
			return User{}, fnErr
		}
		return User{}, e.mapStoreError(err)
	}
	return u, nil
}

/*
====================================
MAIL
====================================
*/

// deliver sends msg within the configured timeout. Failures are logged,
// counted and audited, never returned.
func (e *Engine) deliver(ctx context.Context, kind, userID string, msg mail.Message, renderErr error) {
	err := renderErr
	if err == nil {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Mail.SendTimeout)
		err = e.mailer.Send(sendCtx, msg)
		cancel()
	}
	if err == nil {
		e.logger.Debug(ctx, "mail sent", "kind", kind, "user_id", userID)
		return
	}
	e.metricInc(MetricMailSendFailure)
	e.logger.Error(ctx, "mail delivery failed", "kind", kind, "user_id", userID, "error", err)
	e.emitAudit(ctx, auditEventMailSendFailure, false, userID, "", err, func() map[string]string {
		return map[string]string{"kind": kind}
	})
}

/*
====================================
HEALTH
====================================
*/

// Health pings Redis and the user store.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{CheckedAt: e.now().UTC()}

	if _, err := e.sessions.Ping(ctx); err != nil {
		h.RedisErr = err.Error()
	} else {
		h.RedisOK = true
	}

	if p, ok := e.users.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			h.StoreErr = err.Error()
		} else {
			h.StoreOK = true
		}
	} else {
		h.StoreOK = true
	}
	return h
}
