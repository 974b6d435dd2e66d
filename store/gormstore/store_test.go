package gormstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/terrascope/authcore"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open("sqlite", ":memory:", false)
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	clock := &stepClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	s := New(db).WithClock(clock.Now)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("failed migrating users: %v", err)
	}
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, authcore.User{Email: " Alice@Example.com ", PasswordHash: "$argon2id$x"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" || created.Email != "alice@example.com" {
		t.Fatalf("unexpected created user %+v", created)
	}

	byID, err := s.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	byEmail, err := s.GetByEmail(ctx, "ALICE@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if byID.ID != created.ID || byEmail.ID != created.ID || byEmail.PasswordHash != "$argon2id$x" {
		t.Fatalf("lookups disagree: %+v %+v", byID, byEmail)
	}

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, authcore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, authcore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, authcore.User{Email: "bob@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Create(ctx, authcore.User{Email: "BOB@example.com", PasswordHash: "h"}); !errors.Is(err, authcore.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestUpdatePersistsAllFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, err := s.Create(ctx, authcore.User{Email: "carol@example.com", PasswordHash: "h1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	exp := time.Date(2026, 3, 2, 9, 10, 0, 0, time.UTC)
	updated, err := s.Update(ctx, u.ID, func(u *authcore.User) error {
		u.EmailVerificationCode = "048213"
		u.EmailVerificationExpiresAt = &exp
		u.TOTPSecret = "JBSWY3DPEHPK3PXP"
		u.Is2FAEnabled = true
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.EmailVerificationCode != "048213" || !updated.Is2FAEnabled {
		t.Fatalf("unexpected update result %+v", updated)
	}

	got, err := s.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.EmailVerificationExpiresAt == nil || !got.EmailVerificationExpiresAt.Equal(exp) {
		t.Fatalf("expiry not stored: %v", got.EmailVerificationExpiresAt)
	}
	if got.TOTPSecret != "JBSWY3DPEHPK3PXP" || !got.Is2FAEnabled || got.EmailVerificationCode != "048213" {
		t.Fatalf("fields not stored: %+v", got)
	}

	if _, err := s.Update(ctx, u.ID, func(u *authcore.User) error {
		u.IsEmailVerified = true
		u.EmailVerificationCode = ""
		u.EmailVerificationExpiresAt = nil
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ = s.GetByID(ctx, u.ID)
	if !got.IsEmailVerified || got.EmailVerificationCode != "" || got.EmailVerificationExpiresAt != nil {
		t.Fatalf("clearing fields failed: %+v", got)
	}
}

func TestUpdateCallbackErrorAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, _ := s.Create(ctx, authcore.User{Email: "dave@example.com", PasswordHash: "h1"})

	boom := errors.New("boom")
	_, err := s.Update(ctx, u.ID, func(u *authcore.User) error {
		u.PasswordHash = "h2"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	got, _ := s.GetByID(ctx, u.ID)
	if got.PasswordHash != "h1" {
		t.Fatal("aborted update must not write")
	}

	if _, err := s.Update(ctx, "missing", func(*authcore.User) error { return nil }); !errors.Is(err, authcore.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, _ := s.Create(ctx, authcore.User{Email: "erin@example.com", PasswordHash: "h1"})

	calls := 0
	_, err := s.Update(ctx, u.ID, func(cur *authcore.User) error {
		calls++
		if calls == 1 {
			if _, err := s.Update(ctx, u.ID, func(inner *authcore.User) error {
				inner.TOTPSecret = "SECRET"
				return nil
			}); err != nil {
				return err
			}
		}
		cur.IsEmailVerified = true
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected the callback to run twice, ran %d", calls)
	}

	got, _ := s.GetByID(ctx, u.ID)
	if got.TOTPSecret != "SECRET" || !got.IsEmailVerified {
		t.Fatalf("lost update: %+v", got)
	}
}

func TestUpdateGivesUpAfterRetries(t *testing.T) {
	s := newTestStore(t).WithMaxRetries(2)
	ctx := context.Background()
	u, _ := s.Create(ctx, authcore.User{Email: "finn@example.com", PasswordHash: "h1"})

	_, err := s.Update(ctx, u.ID, func(cur *authcore.User) error {
		if _, err := s.Update(ctx, u.ID, func(*authcore.User) error { return nil }); err != nil {
			return err
		}
		return nil
	})
	if !errors.Is(err, ErrUpdateConflict) {
		t.Fatalf("expected ErrUpdateConflict, got %v", err)
	}
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	s := newTestStore(t).WithMaxRetries(1000)
	ctx := context.Background()
	u, _ := s.Create(ctx, authcore.User{Email: "gail@example.com", PasswordHash: "0"})

	const workers, perWorker = 4, 5
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Update(ctx, u.ID, func(cur *authcore.User) error {
					cur.PasswordHash += "+"
					return nil
				}); err != nil {
					t.Errorf("Update failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, _ := s.GetByID(ctx, u.ID)
	if want := 1 + workers*perWorker; len(got.PasswordHash) != want {
		t.Fatalf("expected %d characters, got %q", want, got.PasswordHash)
	}
}

func TestListAndPing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, err := s.Create(ctx, authcore.User{Email: email, PasswordHash: "h"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	page, err := s.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 1 || page[0].Email != "b@example.com" {
		t.Fatalf("unexpected page %+v", page)
	}
	all, _ := s.List(ctx, 0, 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 users, got %d", len(all))
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "dsn", false); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
