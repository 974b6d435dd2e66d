package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/mail"
	"github.com/terrascope/authcore/store/gormstore"
	"gorm.io/gorm"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *captureMailer) last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected a sent message")
	}
	return m.sent[len(m.sent)-1]
}

type testServer struct {
	app    *fiber.App
	engine *authcore.Engine
	mailer *captureMailer
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	db, err := gormstore.Open("sqlite", ":memory:", false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store := gormstore.New(db)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	cfg := authcore.DefaultConfig()
	cfg.App.BaseURL = "https://shop.example.test"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.PasswordReset.Key = []byte("reset-key-0123456789abcdef012345")
	cfg.JWT.PrivateKey = []byte("jwt-secret-0123456789abcdef01234")
	cfg.Metrics.Enabled = true

	mailer := &captureMailer{}
	engine, err := authcore.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testServer{
		app:    NewApp(engine, Options{ExposeMetrics: true}),
		engine: engine,
		mailer: mailer,
		db:     db,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Reason  string          `json:"reason"`
}

func (e envelope) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(e.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", e.Data, err)
	}
}

// client carries the session cookie between requests like a browser.
type client struct {
	srv    *testServer
	cookie string
	bearer string
}

func (s *testServer) client() *client {
	return &client{srv: s}
}

func (c *client) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	if body == nil {
		return c.doRaw(t, method, path, nil)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return c.doRaw(t, method, path, raw)
}

func (c *client) doRaw(t *testing.T, method, path string, body []byte) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: "authcore_sid", Value: c.cookie})
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.srv.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	for _, ck := range resp.Cookies() {
		if ck.Name != "authcore_sid" {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			c.cookie = ""
		} else {
			c.cookie = ck.Value
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: bad envelope %s: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

// get fetches a non-JSON endpoint.
func (s *testServer) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(raw)
}

func codeFromMail(t *testing.T, msg mail.Message) string {
	t.Helper()
	const marker = "Your new verification code is: "
	i := strings.Index(msg.Text, marker)
	if i < 0 || len(msg.Text) < i+len(marker)+6 {
		t.Fatalf("verification mail missing code: %q", msg.Text)
	}
	return msg.Text[i+len(marker) : i+len(marker)+6]
}

func resetPathFromMail(t *testing.T, msg mail.Message) string {
	t.Helper()
	const prefix = "https://shop.example.test"
	i := strings.Index(msg.Text, prefix+"/password-reset/")
	if i < 0 {
		t.Fatalf("reset mail missing link: %q", msg.Text)
	}
	return strings.Fields(msg.Text[i+len(prefix):])[0]
}

func otherCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
