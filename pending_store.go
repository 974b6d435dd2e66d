package authcore

import (
	"errors"
	"time"

	"github.com/terrascope/authcore/session"
)

// errPendingExpired is an ErrNotPending whose marker outlived its TTL.
var errPendingExpired = &groupedError{msg: "pending two-factor login expired", group: ErrNotPending}

// PendingStore records, inside a visitor session, that the credential step
// succeeded for a user who still owes a TOTP code. The marker is part of the
// session's [LoginState] and expires TTL after the credential check.
type PendingStore struct {
	key string
	ttl time.Duration
	now func() time.Time
}

// NewPendingStore returns a store writing under cfg.SessionKey.
func NewPendingStore(cfg PendingConfig, now func() time.Time) *PendingStore {
	if now == nil {
		now = time.Now
	}
	key := cfg.SessionKey
	if key == "" {
		key = defaultStateKey
	}
	return &PendingStore{key: key, ttl: cfg.TTL, now: now}
}

// State returns the login state stored in sess. A missing or undecodable
// value reads as anonymous.
func (p *PendingStore) State(sess *session.Session) LoginState {
	raw, _ := sess.Value(p.key)
	state, err := decodeLoginState(raw)
	if err != nil {
		return LoginState{}
	}
	return state
}

// SetState stores state in sess and keeps sess.UserID in step with it.
func (p *PendingStore) SetState(sess *session.Session, state LoginState) error {
	if sess == nil {
		return errors.New("nil session")
	}
	if state.Stage == StageAnonymous {
		sess.Delete(p.key)
		sess.UserID = ""
		return nil
	}
	raw, err := encodeLoginState(state)
	if err != nil {
		return err
	}
	sess.Set(p.key, raw)
	sess.UserID = state.UserID
	return nil
}

// Begin marks sess as waiting for user's second factor.
func (p *PendingStore) Begin(sess *session.Session, user User) error {
	if user.ID == "" {
		return errors.New("pending login requires a user id")
	}
	return p.SetState(sess, LoginState{
		Stage:  StagePendingTwoFactor,
		UserID: user.ID,
		Since:  p.now().UTC(),
	})
}

// Resolve returns the user awaiting a second factor. It returns ErrNotPending
// when no marker exists or the marker is older than the TTL; an expired
// marker is cleared.
func (p *PendingStore) Resolve(sess *session.Session) (string, error) {
	state := p.State(sess)
	if state.Stage != StagePendingTwoFactor || state.UserID == "" {
		return "", ErrNotPending
	}
	if p.ttl > 0 && p.now().After(state.Since.Add(p.ttl)) {
		p.Clear(sess)
		return "", errPendingExpired
	}
	return state.UserID, nil
}

// Clear drops any login state from sess.
func (p *PendingStore) Clear(sess *session.Session) {
	if sess == nil {
		return
	}
	sess.Delete(p.key)
	sess.UserID = ""
}
