package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the contract the engine depends on.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

// Manager hashes with Argon2id and also verifies legacy bcrypt hashes.
type Manager struct {
	argon *Argon2
}

// NewManager builds a Manager around an Argon2id hasher configured by cfg.
func NewManager(cfg Config) (*Manager, error) {
	a, err := NewArgon2(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{argon: a}, nil
}

// Hash always produces Argon2id.
func (m *Manager) Hash(password string) (string, error) {
	return m.argon.Hash(password)
}

// Verify dispatches on the hash prefix.
func (m *Manager) Verify(password, encoded string) (bool, error) {
	switch {
	case isArgon2(encoded):
		return m.argon.Verify(password, encoded)
	case isBcrypt(encoded):
		if len(password) > maxPassBytes {
			return false, ErrPasswordTooLong
		}
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, ErrMalformedHash
	default:
		return false, ErrMalformedHash
	}
}

// NeedsRehash reports whether encoded should be replaced after a successful
// verification. Unparseable hashes are left alone.
func (m *Manager) NeedsRehash(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}
	weaker, err := m.argon.Weaker(encoded)
	return err == nil && weaker
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}
