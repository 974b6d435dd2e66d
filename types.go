package authcore

import (
	"context"
	"strings"
	"time"
)

// User is the account record shared by the engine and its [UserStore].
type User struct {
	ID           string
	Email        string
	PasswordHash string

	IsEmailVerified            bool
	EmailVerificationCode      string
	EmailVerificationExpiresAt *time.Time

	Is2FAEnabled bool
	TOTPSecret   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RequiresTwoFactor reports whether a successful credential check must be
// followed by a TOTP step. A flag without a provisioned secret does not count.
func (u User) RequiresTwoFactor() bool {
	return u.Is2FAEnabled && u.TOTPSecret != ""
}

// HasVerificationCode reports whether both the code and its expiry are set.
func (u User) HasVerificationCode() bool {
	return u.EmailVerificationCode != "" && u.EmailVerificationExpiresAt != nil
}

// UserStore persists [User] records. Implementations must be safe for
// concurrent use.
//
// Update performs an atomic read-modify-write of one record: fn receives a
// copy of the current record and its changes are persisted only when fn
// returns nil. Concurrent updates of the same record must serialize.
type UserStore interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, id string, fn func(*User) error) (User, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
}

// NormalizeEmail lower-cases and trims an address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginResult describes where a credential submission leads.
type LoginResult struct {
	Next        LoginNext
	UserID      string
	AccessToken string
}

// LoginNext names the page a client should show after a login step.
type LoginNext string

const (
	NextVerifyEmail LoginNext = "verify"
	NextTwoFactor   LoginNext = "2fa"
	NextHome        LoginNext = "home"
)

// TwoFactorSetup carries what a client needs to enroll an authenticator app.
type TwoFactorSetup struct {
	Secret          string
	ProvisioningURI string
}

// AuthResult is returned by [Engine.ValidateAccess].
type AuthResult struct {
	UserID    string
	Email     string
	SessionID string
}

// HealthStatus reports backend reachability.
type HealthStatus struct {
	RedisOK   bool
	StoreOK   bool
	RedisErr  string
	StoreErr  string
	CheckedAt time.Time
}

// Healthy reports whether every backend answered.
func (h HealthStatus) Healthy() bool {
	return h.RedisOK && h.StoreOK
}
