// Package appconfig loads the service configuration used by cmd/authcore
// from a YAML file and AUTHCORE_* environment variables.
package appconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/logging"
	"github.com/terrascope/authcore/mail"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// AUTHCORE_DATABASE_DSN for database.dsn.
const EnvPrefix = "AUTHCORE"

// ServiceConfig is the full service configuration.
type ServiceConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	SMTP     SMTPConfig     `mapstructure:"smtp" yaml:"smtp"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics" yaml:"metrics"`
}

// DatabaseConfig selects the user store backend
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
	Debug  bool   `mapstructure:"debug" yaml:"debug"`
}

// RedisConfig contains the session and limiter backend
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

// SMTPConfig contains the outgoing mail relay. An empty host logs mail
// instead of sending it.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	From     string `mapstructure:"from" yaml:"from"`
}

// LogConfig selects the log handler
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AuthConfig carries the engine settings an operator is expected to change.
type AuthConfig struct {
	AppName        string        `mapstructure:"app_name" yaml:"app_name"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Production     bool          `mapstructure:"production" yaml:"production"`
	JWTSecret      string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	ResetKey       string        `mapstructure:"reset_key" yaml:"reset_key"`
	TOTPIssuer     string        `mapstructure:"totp_issuer" yaml:"totp_issuer"`
	PendingTTL     time.Duration `mapstructure:"pending_ttl" yaml:"pending_ttl"`
	ResendLimit    bool          `mapstructure:"resend_limit" yaml:"resend_limit"`
	LoginThrottle  bool          `mapstructure:"login_throttle" yaml:"login_throttle"`
	Audit          bool          `mapstructure:"audit" yaml:"audit"`
	PasswordMinLen int           `mapstructure:"password_min_length" yaml:"password_min_length"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.metrics", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "authcore.db")
	v.SetDefault("database.debug", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@localhost")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("auth.app_name", "TerraScope")
	v.SetDefault("auth.base_url", "http://localhost:8080")
	v.SetDefault("auth.production", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.reset_key", "")
	v.SetDefault("auth.totp_issuer", "TerraScope")
	v.SetDefault("auth.pending_ttl", "5m")
	v.SetDefault("auth.resend_limit", false)
	v.SetDefault("auth.login_throttle", false)
	v.SetDefault("auth.audit", true)
	v.SetDefault("auth.password_min_length", 8)
}

// Load reads path (optional) and applies environment overrides on top of the
// defaults.
func Load(path string) (*ServiceConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	cfg := &ServiceConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings the engine cannot check for itself.
func (c *ServiceConfig) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database driver %q is not supported", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn is required")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis addr is required")
	}
	if c.Server.Addr == "" {
		return errors.New("server addr is required")
	}
	return nil
}

// Engine builds the engine configuration. Secrets come only from the
// service config; the engine rejects missing ones at Build.
func (c *ServiceConfig) Engine() authcore.Config {
	cfg := authcore.DefaultConfig()
	cfg.App.Name = c.Auth.AppName
	cfg.App.BaseURL = c.Auth.BaseURL
	cfg.Security.ProductionMode = c.Auth.Production
	cfg.JWT.PrivateKey = []byte(c.Auth.JWTSecret)
	cfg.PasswordReset.Key = []byte(c.Auth.ResetKey)
	if c.Auth.TOTPIssuer != "" {
		cfg.TOTP.Issuer = c.Auth.TOTPIssuer
	}
	if c.Auth.PendingTTL > 0 {
		cfg.Pending.TTL = c.Auth.PendingTTL
	}
	if c.Auth.PasswordMinLen > 0 {
		cfg.Password.MinLength = c.Auth.PasswordMinLen
	}
	cfg.EmailVerification.Resend.Enabled = c.Auth.ResendLimit
	cfg.Security.LoginThrottle.Enabled = c.Auth.LoginThrottle
	cfg.Audit.Enabled = c.Auth.Audit
	cfg.Metrics.Enabled = c.Server.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Server.Metrics
	return cfg
}

// Logger builds the service logger.
func (c *ServiceConfig) Logger() *logging.SlogLogger {
	return logging.New(logging.Options{Format: c.Log.Format, Level: c.Log.Level})
}

// Mailer returns an SMTP mailer, or a logging mailer when no host is set.
func (c *ServiceConfig) Mailer(log logging.Logger) (mail.Mailer, error) {
	if c.SMTP.Host == "" {
		return mail.NewLogMailer(log), nil
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
	})
}

// Redacted returns a copy with secrets masked, for display.
func (c ServiceConfig) Redacted() ServiceConfig {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Redis.Password = mask(c.Redis.Password)
	c.SMTP.Password = mask(c.SMTP.Password)
	c.Auth.JWTSecret = mask(c.Auth.JWTSecret)
	c.Auth.ResetKey = mask(c.Auth.ResetKey)
	return c
}

// YAML renders the config as YAML.
func (c ServiceConfig) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return out, nil
}
