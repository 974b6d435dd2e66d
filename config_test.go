package authcore

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.EmailVerification.CodeDigits != 6 || cfg.EmailVerification.CodeTTL != 10*time.Minute {
		t.Fatalf("unexpected verification defaults: %+v", cfg.EmailVerification)
	}
	if cfg.TOTP.Period != 30 || cfg.TOTP.Skew != 1 || cfg.TOTP.Digits != 6 || cfg.TOTP.Algorithm != "SHA1" {
		t.Fatalf("unexpected totp defaults: %+v", cfg.TOTP)
	}
	if cfg.Pending.TTL != 5*time.Minute {
		t.Fatalf("unexpected pending ttl: %v", cfg.Pending.TTL)
	}
	if cfg.PasswordReset.MaxAge != 72*time.Hour {
		t.Fatalf("unexpected reset max age: %v", cfg.PasswordReset.MaxAge)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "PasswordReset Key") {
		t.Fatalf("defaults without keys must fail on the reset key, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing app name", func(c *Config) { c.App.Name = " " }, "App Name"},
		{"relative base url", func(c *Config) { c.App.BaseURL = "/reset" }, "BaseURL"},
		{"weak argon memory", func(c *Config) { c.Password.Memory = 1024 }, "Memory"},
		{"short code", func(c *Config) { c.EmailVerification.CodeDigits = 4 }, "CodeDigits"},
		{"zero code ttl", func(c *Config) { c.EmailVerification.CodeTTL = 0 }, "CodeTTL"},
		{"resend without capacity", func(c *Config) {
			c.EmailVerification.Resend.Enabled = true
			c.EmailVerification.Resend.Capacity = 0
		}, "Resend Capacity"},
		{"issuer with colon", func(c *Config) { c.TOTP.Issuer = "Terra:Scope" }, "Issuer"},
		{"seven digit totp", func(c *Config) { c.TOTP.Digits = 7 }, "TOTP Digits"},
		{"large skew", func(c *Config) { c.TOTP.Skew = 5 }, "Skew"},
		{"md5 totp", func(c *Config) { c.TOTP.Algorithm = "MD5" }, "Algorithm"},
		{"zero pending ttl", func(c *Config) { c.Pending.TTL = 0 }, "Pending TTL"},
		{"short reset key", func(c *Config) { c.PasswordReset.Key = []byte("short") }, "PasswordReset Key"},
		{"short jwt key", func(c *Config) { c.JWT.PrivateKey = []byte("short") }, "hs256"},
		{"unknown signing method", func(c *Config) { c.JWT.SigningMethod = "rs256" }, "signing method"},
		{"absolute below idle", func(c *Config) { c.Session.AbsoluteTTL = time.Minute }, "AbsoluteTTL"},
		{"throttle without attempts", func(c *Config) {
			c.Security.LoginThrottle.Enabled = true
			c.Security.LoginThrottle.MaxAttempts = 0
		}, "MaxAttempts"},
		{"zero mail timeout", func(c *Config) { c.Mail.SendTimeout = 0 }, "SendTimeout"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfigProductionMode(t *testing.T) {
	cfg := testConfig()
	cfg.Security.ProductionMode = true
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "ProductionMode") {
		t.Fatalf("test argon params must fail production checks, got %v", err)
	}

	cfg.Password.Memory = 65536
	cfg.Password.Time = 3
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected production config to validate, got %v", err)
	}

	cfg.App.BaseURL = "http://shop.example.test"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "https") {
		t.Fatalf("expected https requirement, got %v", err)
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := testConfig()
	clone := cloneConfig(cfg)
	clone.PasswordReset.Key[0] = 'X'
	clone.JWT.PrivateKey[0] = 'X'
	if cfg.PasswordReset.Key[0] == 'X' || cfg.JWT.PrivateKey[0] == 'X' {
		t.Fatal("clone must not share key material")
	}
}
