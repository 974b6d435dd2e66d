package authcore

import (
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var errEmptyTOTPSecret = errors.New("empty totp secret")

type totpManager struct {
	config TOTPConfig
	opts   totp.ValidateOpts
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	return &totpManager{
		config: cfg,
		opts: totp.ValidateOpts{
			Period:    cfg.Period,
			Skew:      cfg.Skew,
			Digits:    otp.Digits(cfg.Digits),
			Algorithm: otpAlgorithm(cfg.Algorithm),
		},
	}
}

// GenerateSecret returns a fresh base32 secret without padding.
func (m *totpManager) GenerateSecret(account string) (string, error) {
	if m == nil {
		return "", ErrEngineNotReady
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: account,
		Period:      m.config.Period,
		SecretSize:  m.config.SecretSize,
		Digits:      m.opts.Digits,
		Algorithm:   m.opts.Algorithm,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// ProvisionURI renders the otpauth URI for secret, labelled with account.
func (m *totpManager) ProvisionURI(secret, account string) (string, error) {
	if m == nil {
		return "", ErrEngineNotReady
	}
	raw, err := decodeTOTPSecret(secret)
	if err != nil {
		return "", err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: account,
		Period:      m.config.Period,
		Secret:      raw,
		Digits:      m.opts.Digits,
		Algorithm:   m.opts.Algorithm,
	})
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}

// VerifyCode accepts code for the time step containing now or up to Skew
// steps either side. A code of the wrong shape is simply invalid.
func (m *totpManager) VerifyCode(secret, code string, now time.Time) (bool, error) {
	if m == nil {
		return false, ErrEngineNotReady
	}
	if secret == "" {
		return false, errEmptyTOTPSecret
	}
	code = strings.TrimSpace(code)
	if len(code) != m.config.Digits || !isDigits(code) {
		return false, nil
	}
	ok, err := totp.ValidateCustom(code, secret, now.UTC(), m.opts)
	if err != nil {
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// GenerateCode returns the code for the step containing t.
func (m *totpManager) GenerateCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t.UTC(), m.opts)
}

func decodeTOTPSecret(secret string) ([]byte, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if n := len(secret) % 8; n != 0 {
		secret += strings.Repeat("=", 8-n)
	}
	raw, err := base32.StdEncoding.DecodeString(secret)
	if err != nil || len(raw) == 0 {
		return nil, otp.ErrValidateSecretInvalidBase32
	}
	return raw, nil
}

func otpAlgorithm(name string) otp.Algorithm {
	switch strings.ToUpper(name) {
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
