package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/terrascope/authcore/internal"
	"github.com/terrascope/authcore/session"
)

func resetLinkFromMail(t *testing.T, env *testEnv) (uidb64, token string) {
	t.Helper()
	const prefix = "https://shop.example.test/password-reset/"
	text := env.mailer.last(t).Text
	i := strings.Index(text, prefix)
	if i < 0 {
		t.Fatalf("reset mail missing link: %q", text)
	}
	link := strings.Fields(text[i+len(prefix):])[0]
	parts := strings.Split(link, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		t.Fatalf("unexpected reset link %q", link)
	}
	return parts[0], parts[1]
}

func requestReset(t *testing.T, env *testEnv, email string) (string, string) {
	t.Helper()
	if err := env.engine.RequestPasswordReset(context.Background(), email); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	return resetLinkFromMail(t, env)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	if err := env.engine.RequestPasswordReset(context.Background(), "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if n := len(env.mailer.messages()); n != 0 {
		t.Fatalf("expected no mail, got %d", n)
	}
}

func TestPasswordResetEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "pat@example.com", "old-password", true)

	uid, token := requestReset(t, env, "Pat@Example.com")
	if msg := env.mailer.last(t); msg.To != "pat@example.com" {
		t.Fatalf("reset mail sent to %q", msg.To)
	}

	checked, err := env.engine.CheckPasswordReset(ctx, uid, token)
	if err != nil {
		t.Fatalf("CheckPasswordReset failed: %v", err)
	}
	if checked.ID != u.ID {
		t.Fatalf("link resolved to %q, want %q", checked.ID, u.ID)
	}

	if err := env.engine.ConfirmPasswordReset(ctx, uid, token, "new-password", "new-password"); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, "pat@example.com", "new-password"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, "pat@example.com", "old-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}

	err = env.engine.ConfirmPasswordReset(ctx, uid, token, "third-password", "third-password")
	if !errors.Is(err, ErrResetInvalidToken) || !errors.Is(err, ErrReset) {
		t.Fatalf("used link must be invalid, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricPasswordResetConfirmSuccess]; got != 1 {
		t.Fatalf("expected one confirm success, got %d", got)
	}
}

func TestPasswordResetTokenBoundToUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "quinn@example.com", "password-a", true)
	b := env.createUser(t, "rosa@example.com", "password-b", true)

	_, tokenA := requestReset(t, env, "quinn@example.com")
	uidB := internal.EncodeUserID(b.ID)

	if _, err := env.engine.CheckPasswordReset(ctx, uidB, tokenA); !errors.Is(err, ErrResetInvalidToken) {
		t.Fatalf("expected ErrResetInvalidToken, got %v", err)
	}
	if err := env.engine.ConfirmPasswordReset(ctx, uidB, tokenA, "hijacked-pw", "hijacked-pw"); !errors.Is(err, ErrResetInvalidToken) {
		t.Fatalf("expected ErrResetInvalidToken, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, "rosa@example.com", "password-b"); err != nil {
		t.Fatalf("victim password changed: %v", err)
	}
}

func TestPasswordResetLinkExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "sam@example.com", "old-password", true)
	uid, token := requestReset(t, env, "sam@example.com")

	env.clock.Advance(71 * time.Hour)
	if _, err := env.engine.CheckPasswordReset(ctx, uid, token); err != nil {
		t.Fatalf("link should still be valid, got %v", err)
	}
	env.clock.Advance(time.Hour + time.Second)
	if _, err := env.engine.CheckPasswordReset(ctx, uid, token); !errors.Is(err, ErrResetInvalidToken) {
		t.Fatalf("expected expired link, got %v", err)
	}
}

func TestPasswordResetInvalidAfterPasswordChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "tess@example.com", "old-password", true)
	uid, token := requestReset(t, env, "tess@example.com")

	hash, err := env.engine.passwords.Hash("changed-elsewhere")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if _, err := env.store.Update(ctx, u.ID, func(u *User) error {
		u.PasswordHash = hash
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if _, err := env.engine.CheckPasswordReset(ctx, uid, token); !errors.Is(err, ErrResetInvalidToken) {
		t.Fatalf("expected ErrResetInvalidToken, got %v", err)
	}
}

func TestPasswordResetRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "uma@example.com", "old-password", true)
	uid, token := requestReset(t, env, "uma@example.com")

	if err := env.engine.ConfirmPasswordReset(ctx, uid, token, "new-password", "new-passw0rd"); !errors.Is(err, ErrResetPasswordMismatch) {
		t.Fatalf("expected ErrResetPasswordMismatch, got %v", err)
	}
	if err := env.engine.ConfirmPasswordReset(ctx, uid, token, "short", "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if err := env.engine.ConfirmPasswordReset(ctx, "!!!", token, "new-password", "new-password"); !errors.Is(err, ErrResetUserNotFound) {
		t.Fatalf("expected ErrResetUserNotFound for garbage uid, got %v", err)
	}
	if _, err := env.engine.CheckPasswordReset(ctx, internal.EncodeUserID("user-404"), token); !errors.Is(err, ErrResetUserNotFound) {
		t.Fatalf("expected ErrResetUserNotFound for unknown uid, got %v", err)
	}
	if _, err := env.engine.CheckPasswordReset(ctx, uid, token[:10]); !errors.Is(err, ErrResetInvalidToken) {
		t.Fatalf("expected ErrResetInvalidToken for truncated token, got %v", err)
	}

	if err := env.engine.ConfirmPasswordReset(ctx, uid, token, "new-password", "new-password"); err != nil {
		t.Fatalf("link must survive rejected attempts, got %v", err)
	}
}

func TestPasswordResetCheckDoesNotMutate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "vic@example.com", "old-password", true)
	uid, token := requestReset(t, env, "vic@example.com")

	before := env.store.updates
	for i := 0; i < 3; i++ {
		if _, err := env.engine.CheckPasswordReset(ctx, uid, token); err != nil {
			t.Fatalf("CheckPasswordReset failed: %v", err)
		}
	}
	if env.store.updates != before {
		t.Fatal("CheckPasswordReset must not write")
	}
	if env.store.get(u.ID).PasswordHash != u.PasswordHash {
		t.Fatal("password hash changed")
	}
}

func TestPasswordResetDestroysSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "walt@example.com", "old-password", true)

	sess := startVisit(t, env)
	if _, err := env.engine.Login(ctx, sess, "walt@example.com", "old-password"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	uid, token := requestReset(t, env, "walt@example.com")
	if err := env.engine.ConfirmPasswordReset(ctx, uid, token, "new-password", "new-password"); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if _, err := env.engine.LoadVisit(ctx, sess.ID); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected session destroyed, got %v", err)
	}
}
