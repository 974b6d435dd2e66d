package authcore

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/terrascope/authcore/mail"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memUserStore is an in-memory UserStore with the same atomic Update
// contract as the gorm store.
type memUserStore struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]User
	byEmail map[string]string
	updates int
	failGet error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    map[string]User{},
		byEmail: map[string]string{},
	}
}

func (s *memUserStore) GetByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return User{}, s.failGet
	}
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return User{}, s.failGet
	}
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *memUserStore) Create(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := NormalizeEmail(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return User{}, ErrAccountExists
	}
	s.seq++
	if u.ID == "" {
		u.ID = "user-" + strconv.Itoa(s.seq)
	}
	u.Email = email
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	return u, nil
}

func (s *memUserStore) Update(_ context.Context, id string, fn func(*User) error) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	next := u
	if u.EmailVerificationExpiresAt != nil {
		exp := *u.EmailVerificationExpiresAt
		next.EmailVerificationExpiresAt = &exp
	}
	if err := fn(&next); err != nil {
		return User{}, err
	}
	next.ID = id
	s.byID[id] = next
	s.updates++
	return next, nil
}

func (s *memUserStore) List(_ context.Context, offset, limit int) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.byID))
	for i := 1; i <= s.seq; i++ {
		if u, ok := s.byID["user-"+strconv.Itoa(i)]; ok {
			out = append(out, u)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memUserStore) get(id string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

func (m *captureMailer) last(t *testing.T) mail.Message {
	t.Helper()
	msgs := m.messages()
	if len(msgs) == 0 {
		t.Fatal("expected a sent message")
	}
	return msgs[len(msgs)-1]
}

type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *captureSink) byType(eventType string) []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.App.BaseURL = "https://shop.example.test"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.PasswordReset.Key = []byte("reset-key-0123456789abcdef012345")
	cfg.JWT.PrivateKey = []byte("jwt-secret-0123456789abcdef01234")
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *memUserStore
	clock  *testClock
	mailer *captureMailer
	sink   *captureSink
	mr     *miniredis.Miniredis
	rdb    *redis.Client
}

func newTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	env := &testEnv{
		store:  newMemUserStore(),
		clock:  newTestClock(),
		mailer: &captureMailer{},
		sink:   &captureSink{},
		mr:     mr,
		rdb:    rdb,
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(env.store).
		WithMailer(env.mailer).
		WithAuditSink(env.sink).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// flushAudit closes the dispatcher so every emitted event reached the sink.
func (env *testEnv) flushAudit() {
	env.engine.Close()
}

func (env *testEnv) createUser(t *testing.T, email, password string, verified bool) User {
	t.Helper()
	u, err := env.engine.CreateUser(context.Background(), email, password, verified)
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return u
}

func fixedCode(code string) func(int) (string, error) {
	return func(int) (string, error) { return code, nil }
}

func codeFromMessage(t *testing.T, msg mail.Message) string {
	t.Helper()
	const marker = "Your new verification code is: "
	i := strings.Index(msg.Text, marker)
	if i < 0 {
		t.Fatalf("verification text missing code: %q", msg.Text)
	}
	rest := msg.Text[i+len(marker):]
	if len(rest) < 6 {
		t.Fatalf("short code in %q", msg.Text)
	}
	return rest[:6]
}

var errBoom = errors.New("boom")
