package authcore

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

const defaultStateKey = "auth_state"

// Config is the complete engine configuration. Start from [DefaultConfig]
// and override fields; [Builder.Build] validates it.
type Config struct {
	App               AppConfig
	Password          PasswordConfig
	EmailVerification EmailVerificationConfig
	TOTP              TOTPConfig
	Pending           PendingConfig
	PasswordReset     PasswordResetConfig
	JWT               JWTConfig
	Session           SessionConfig
	Security          SecurityConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
	Mail              MailConfig
}

/*
====================================
APP CONFIG
====================================
*/

// AppConfig names the product in mail and authenticator apps. BaseURL
// prefixes links sent by mail.
type AppConfig struct {
	Name    string
	BaseURL string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and the registration policy.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
EMAIL VERIFICATION CONFIG
====================================
*/

type EmailVerificationConfig struct {
	CodeDigits int
	CodeTTL    time.Duration
	Resend     ResendConfig
}

// ResendConfig shapes the optional resend token bucket. Each key holds up to
// Capacity tokens and regains one every RefillInterval.
type ResendConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
	PerIP          bool
}

/*
====================================
TOTP CONFIG
====================================
*/

type TOTPConfig struct {
	Issuer     string
	Digits     int
	Period     uint
	Skew       uint
	Algorithm  string
	SecretSize uint
}

/*
====================================
PENDING LOGIN CONFIG
====================================
*/

// PendingConfig controls the second-factor marker stored in a visitor
// session.
type PendingConfig struct {
	TTL        time.Duration
	SessionKey string
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig holds the server key for reset capabilities. Key must
// be at least 32 bytes.
type PasswordResetConfig struct {
	Key    []byte
	MaxAge time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	KeyID         string
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	RedisPrefix       string
	IdleTTL           time.Duration
	AbsoluteTTL       time.Duration
	SlidingExpiration bool
	CookieName        string
}

/*
====================================
SECURITY CONFIG
====================================
*/

type SecurityConfig struct {
	ProductionMode bool
	LoginThrottle  LoginThrottleConfig
}

// LoginThrottleConfig limits failed credential checks per email, and per
// client IP when PerIP is set.
type LoginThrottleConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
	PerIP       bool
}

/*
====================================
AUDIT / METRICS / MAIL CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// MailConfig bounds each synchronous send.
type MailConfig struct {
	SendTimeout time.Duration
}

// DefaultConfig returns a configuration suitable for development. A
// PasswordReset.Key and a JWT key must still be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:    "TerraScope",
			BaseURL: "http://localhost:8080",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		EmailVerification: EmailVerificationConfig{
			CodeDigits: 6,
			CodeTTL:    10 * time.Minute,
			Resend: ResendConfig{
				Enabled:        false,
				Capacity:       3,
				RefillInterval: time.Minute,
				PerIP:          false,
			},
		},
		TOTP: TOTPConfig{
			Issuer:     "TerraScope",
			Digits:     6,
			Period:     30,
			Skew:       1,
			Algorithm:  "SHA1",
			SecretSize: 20,
		},
		Pending: PendingConfig{
			TTL:        5 * time.Minute,
			SessionKey: defaultStateKey,
		},
		PasswordReset: PasswordResetConfig{
			MaxAge: 72 * time.Hour,
		},
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "authcore",
		},
		Session: SessionConfig{
			RedisPrefix:       "avs",
			IdleTTL:           30 * time.Minute,
			AbsoluteTTL:       24 * time.Hour,
			SlidingExpiration: true,
			CookieName:        "authcore_sid",
		},
		Security: SecurityConfig{
			ProductionMode: false,
			LoginThrottle: LoginThrottleConfig{
				Enabled:     false,
				MaxAttempts: 5,
				Window:      15 * time.Minute,
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Mail: MailConfig{
			SendTimeout: 10 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.PasswordReset.Key = cloneBytes(cfg.PasswordReset.Key)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.App.Name) == "" {
		return errors.New("App Name is required")
	}
	if c.App.BaseURL != "" {
		u, err := url.Parse(c.App.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("App BaseURL must be an absolute URL")
		}
	}

	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	if c.EmailVerification.CodeDigits < 6 || c.EmailVerification.CodeDigits > 10 {
		return errors.New("EmailVerification CodeDigits must be between 6 and 10")
	}
	if c.EmailVerification.CodeTTL <= 0 {
		return errors.New("EmailVerification CodeTTL must be > 0")
	}
	if r := c.EmailVerification.Resend; r.Enabled {
		if r.Capacity <= 0 {
			return errors.New("EmailVerification Resend Capacity must be > 0")
		}
		if r.RefillInterval <= 0 {
			return errors.New("EmailVerification Resend RefillInterval must be > 0")
		}
	}

	if strings.TrimSpace(c.TOTP.Issuer) == "" {
		return errors.New("TOTP Issuer is required")
	}
	if strings.Contains(c.TOTP.Issuer, ":") {
		return errors.New("TOTP Issuer must not contain ':'")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period < 15 {
		return errors.New("TOTP Period must be >= 15 seconds")
	}
	if c.TOTP.Skew > 3 {
		return errors.New("TOTP Skew must be <= 3")
	}
	switch c.TOTP.Algorithm {
	case "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("TOTP Algorithm must be SHA1, SHA256, or SHA512")
	}
	if c.TOTP.SecretSize < 16 {
		return errors.New("TOTP SecretSize must be >= 16 bytes")
	}

	if c.Pending.TTL <= 0 {
		return errors.New("Pending TTL must be > 0")
	}
	if strings.TrimSpace(c.Pending.SessionKey) == "" {
		return errors.New("Pending SessionKey is required")
	}

	if len(c.PasswordReset.Key) < 32 {
		return errors.New("PasswordReset Key must be >= 32 bytes")
	}
	if c.PasswordReset.MaxAge <= 0 {
		return errors.New("PasswordReset MaxAge must be > 0")
	}

	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	if c.Session.IdleTTL <= 0 {
		return errors.New("Session IdleTTL must be > 0")
	}
	if c.Session.AbsoluteTTL < c.Session.IdleTTL {
		return errors.New("Session AbsoluteTTL must be >= IdleTTL")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("Session CookieName is required")
	}

	if t := c.Security.LoginThrottle; t.Enabled {
		if t.MaxAttempts <= 0 {
			return errors.New("LoginThrottle MaxAttempts must be > 0")
		}
		if t.Window <= 0 {
			return errors.New("LoginThrottle Window must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Mail.SendTimeout <= 0 {
		return errors.New("Mail SendTimeout must be > 0")
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.Password.Memory < 65536 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if !strings.HasPrefix(c.App.BaseURL, "https://") {
			return errors.New("ProductionMode requires an https App BaseURL")
		}
		if c.PasswordReset.MaxAge > 72*time.Hour {
			return errors.New("ProductionMode requires PasswordReset MaxAge <= 72h")
		}
	}

	return nil
}
