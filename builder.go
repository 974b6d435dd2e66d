package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/terrascope/authcore/internal"
	"github.com/terrascope/authcore/internal/audit"
	"github.com/terrascope/authcore/internal/limiters"
	"github.com/terrascope/authcore/jwt"
	"github.com/terrascope/authcore/logging"
	"github.com/terrascope/authcore/mail"
	"github.com/terrascope/authcore/password"
	"github.com/terrascope/authcore/session"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserStore
	mailer    mail.Mailer
	auditSink AuditSink
	logger    logging.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing visitor sessions and limiters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithMailer sets the outgoing mail transport. Without one, mail is logged.
func (b *Builder) WithMailer(m mail.Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log logging.Logger) *Builder {
	b.logger = log
	return b
}

// WithClock replaces time.Now for every time-dependent check.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	log := b.logger
	if log == nil {
		log = logging.Nop()
	}
	mailer := b.mailer
	if mailer == nil {
		mailer = mail.NewLogMailer(log)
	}

	renderer, err := mail.NewRenderer(cfg.App.Name)
	if err != nil {
		return nil, err
	}

	pm, err := password.NewManager(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	dummy, err := dummyPasswordHash(pm)
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		KeyID:         cfg.JWT.KeyID,
	})
	if err != nil {
		return nil, err
	}

	store := session.NewStore(b.redis, session.Config{
		Prefix:      cfg.Session.RedisPrefix,
		IdleTTL:     cfg.Session.IdleTTL,
		AbsoluteTTL: cfg.Session.AbsoluteTTL,
		Sliding:     cfg.Session.SlidingExpiration,
	}).WithClock(now)

	var resend *limiters.ResendLimiter
	if r := cfg.EmailVerification.Resend; r.Enabled {
		resend = limiters.NewResendLimiter(b.redis, limiters.ResendConfig{
			Capacity:       r.Capacity,
			RefillInterval: r.RefillInterval,
			PerIP:          r.PerIP,
		}).WithClock(now)
	}

	var login *limiters.LoginLimiter
	if t := cfg.Security.LoginThrottle; t.Enabled {
		login = limiters.NewLoginLimiter(b.redis, limiters.LoginConfig{
			MaxAttempts: t.MaxAttempts,
			Window:      t.Window,
			PerIP:       t.PerIP,
		})
	}

	engine := &Engine{
		config:        cloneConfig(cfg),
		users:         b.users,
		redis:         b.redis,
		sessions:      store,
		pending:       NewPendingStore(cfg.Pending, now),
		passwords:     pm,
		jwtManager:    jm,
		totp:          newTOTPManager(cfg.TOTP),
		renderer:      renderer,
		mailer:        mailer,
		resendLimiter: resend,
		loginLimiter:  login,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
		logger:    log.With("component", "authcore"),
		now:       now,
		codeGen:   internal.NewNumericCode,
		dummyHash: dummy,
	}

	b.built = true
	return engine, nil
}

// dummyPasswordHash is verified for unknown emails so that the credential
// check costs the same whether or not the account exists.
func dummyPasswordHash(pm *password.Manager) (string, error) {
	secret, err := internal.NewToken(24)
	if err != nil {
		return "", err
	}
	return pm.Hash(secret)
}
