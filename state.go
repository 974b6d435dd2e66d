package authcore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stage is the position of one visitor in the login flow.
type Stage uint8

const (
	StageAnonymous Stage = iota
	StageEmailUnverified
	StagePendingTwoFactor
	StageAuthenticated
)

var stageNames = [...]string{
	StageAnonymous:        "anonymous",
	StageEmailUnverified:  "email_unverified",
	StagePendingTwoFactor: "pending_2fa",
	StageAuthenticated:    "authenticated",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	if int(s) >= len(stageNames) {
		return nil, fmt.Errorf("unknown login stage %d", uint8(s))
	}
	return []byte(stageNames[s]), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for i, name := range stageNames {
		if name == string(b) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown login stage %q", b)
}

// LoginState is the tagged login state of one visitor session. UserID is
// empty only in StageAnonymous. Since records when the current stage was
// entered.
type LoginState struct {
	Stage  Stage     `json:"stage"`
	UserID string    `json:"user_id,omitempty"`
	Since  time.Time `json:"since,omitempty"`
}

// LoginEvent is an input to [LoginState.Apply].
type LoginEvent interface {
	loginEvent()
}

// EventCredentialsRejected: email/password did not match.
type EventCredentialsRejected struct{}

// EventCredentialsAccepted: email/password matched for UserID.
type EventCredentialsAccepted struct {
	UserID    string
	Verified  bool
	TwoFactor bool
}

// EventEmailVerified: the visitor's code was accepted.
type EventEmailVerified struct{}

type EventTwoFactorAccepted struct{}

type EventTwoFactorRejected struct{}

type EventLoggedOut struct{}

func (EventCredentialsRejected) loginEvent() {}
func (EventCredentialsAccepted) loginEvent() {}
func (EventEmailVerified) loginEvent()       {}
func (EventTwoFactorAccepted) loginEvent()   {}
func (EventTwoFactorRejected) loginEvent()   {}
func (EventLoggedOut) loginEvent()           {}

// Apply returns the state reached from s by event. Pairs outside the
// transition table return ErrInvalidTransition and leave s unchanged.
func (s LoginState) Apply(event LoginEvent, now time.Time) (LoginState, error) {
	switch ev := event.(type) {
	case EventCredentialsRejected, EventLoggedOut:
		return LoginState{Stage: StageAnonymous, Since: now}, nil

	case EventCredentialsAccepted:
		if ev.UserID == "" {
			return s, fmt.Errorf("%w: credentials accepted without user", ErrInvalidTransition)
		}
		next := LoginState{UserID: ev.UserID, Since: now}
		switch {
		case !ev.Verified:
			next.Stage = StageEmailUnverified
		case ev.TwoFactor:
			next.Stage = StagePendingTwoFactor
		default:
			next.Stage = StageAuthenticated
		}
		return next, nil

	case EventEmailVerified:
		if s.Stage == StageEmailUnverified {
			return LoginState{Stage: StageAnonymous, Since: now}, nil
		}

	case EventTwoFactorAccepted:
		if s.Stage == StagePendingTwoFactor {
			return LoginState{Stage: StageAuthenticated, UserID: s.UserID, Since: now}, nil
		}

	case EventTwoFactorRejected:
		if s.Stage == StagePendingTwoFactor {
			return s, nil
		}
	}
	return s, fmt.Errorf("%w: %T from %s", ErrInvalidTransition, event, s.Stage)
}

// IsAuthenticated reports whether s grants access for its UserID.
func (s LoginState) IsAuthenticated() bool {
	return s.Stage == StageAuthenticated && s.UserID != ""
}

func encodeLoginState(s LoginState) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeLoginState(raw string) (LoginState, error) {
	if raw == "" {
		return LoginState{}, nil
	}
	var s LoginState
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return LoginState{}, err
	}
	if s.Stage != StageAnonymous && s.UserID == "" {
		return LoginState{}, fmt.Errorf("login stage %s without user", s.Stage)
	}
	return s, nil
}
