package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terrascope/authcore/mail"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 5*time.Minute, cfg.Auth.PendingTTL)
	assert.True(t, cfg.Auth.Audit)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
  shutdown_timeout: 3s
database:
  driver: postgres
  dsn: "host=db user=auth dbname=auth"
auth:
  base_url: https://shop.example.test
  pending_ttl: 2m
`), 0o600))

	t.Setenv("AUTHCORE_REDIS_ADDR", "redis:6380")
	t.Setenv("AUTHCORE_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Minute, cfg.Auth.PendingTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(*ServiceConfig){
		"driver": func(c *ServiceConfig) { c.Database.Driver = "mysql" },
		"dsn":    func(c *ServiceConfig) { c.Database.DSN = " " },
		"redis":  func(c *ServiceConfig) { c.Redis.Addr = "" },
		"addr":   func(c *ServiceConfig) { c.Server.Addr = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := *base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Auth.JWTSecret = "jwt-secret-0123456789abcdef01234"
	cfg.Auth.ResetKey = "reset-key-0123456789abcdef012345"
	cfg.Auth.ResendLimit = true
	cfg.Auth.PendingTTL = 90 * time.Second

	ec := cfg.Engine()
	assert.Equal(t, []byte("jwt-secret-0123456789abcdef01234"), ec.JWT.PrivateKey)
	assert.Equal(t, []byte("reset-key-0123456789abcdef012345"), ec.PasswordReset.Key)
	assert.True(t, ec.EmailVerification.Resend.Enabled)
	assert.False(t, ec.Security.LoginThrottle.Enabled)
	assert.Equal(t, 90*time.Second, ec.Pending.TTL)
	assert.Equal(t, 10*time.Minute, ec.EmailVerification.CodeTTL)
	require.NoError(t, ec.Validate())
}

func TestMailerSelection(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	m, err := cfg.Mailer(cfg.Logger())
	require.NoError(t, err)
	assert.IsType(t, &mail.LogMailer{}, m)

	cfg.SMTP.Host = "smtp.example.test"
	m, err = cfg.Mailer(cfg.Logger())
	require.NoError(t, err)
	assert.IsType(t, &mail.SMTPMailer{}, m)
}

func TestRedactedYAML(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Auth.JWTSecret = "super-secret"
	cfg.SMTP.Password = "hunter2"

	out, err := cfg.Redacted().YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "super-secret")
	assert.NotContains(t, string(out), "hunter2")

	var back ServiceConfig
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "********", back.Auth.JWTSecret)
	assert.Equal(t, "", back.Redis.Password)
	assert.Equal(t, "super-secret", cfg.Auth.JWTSecret)
}
