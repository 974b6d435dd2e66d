package internal

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewNumericCode(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		code, err := NewNumericCode(6)
		if err != nil {
			t.Fatalf("NewNumericCode error: %v", err)
		}
		if !IsNumericCode(code, 6) {
			t.Fatalf("unexpected code %q", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatal("expected codes to vary")
	}

	if _, err := NewNumericCode(2); err == nil {
		t.Fatal("expected error for too few digits")
	}
}

func TestIsNumericCode(t *testing.T) {
	cases := map[string]bool{
		"048213":  true,
		"48213":   false,
		"04821a":  false,
		"0482130": false,
		"":        false,
	}
	for in, want := range cases {
		if got := IsNumericCode(in, 6); got != want {
			t.Fatalf("IsNumericCode(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestUserIDRoundTrip(t *testing.T) {
	id := "8b1f6c2e-3a41-4c8e-9a51-2f3b5d7e9c10"
	enc := EncodeUserID(id)
	if strings.ContainsAny(enc, "+/=") {
		t.Fatalf("encoded id is not url safe: %q", enc)
	}
	got, err := DecodeUserID(enc)
	if err != nil {
		t.Fatalf("DecodeUserID error: %v", err)
	}
	if got != id {
		t.Fatalf("DecodeUserID = %q, want %q", got, id)
	}

	if _, err := DecodeUserID("!!!"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := DecodeUserID(""); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestCapabilityLifecycle(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	issued := time.Unix(1_700_000_000, 0)
	token := SignCapability(key, "user-a", "$argon2id$hash-a", issued)

	if err := VerifyCapability(key, token, "user-a", "$argon2id$hash-a", issued.Add(time.Hour), 24*time.Hour); err != nil {
		t.Fatalf("expected valid capability, got %v", err)
	}

	if err := VerifyCapability(key, token, "user-b", "$argon2id$hash-a", issued, 24*time.Hour); !errors.Is(err, ErrCapabilitySignature) {
		t.Fatalf("wrong user: got %v", err)
	}
	if err := VerifyCapability(key, token, "user-a", "$argon2id$hash-new", issued, 24*time.Hour); !errors.Is(err, ErrCapabilitySignature) {
		t.Fatalf("stale snapshot: got %v", err)
	}
	if err := VerifyCapability([]byte("another-key-another-key-another!"), token, "user-a", "$argon2id$hash-a", issued, 24*time.Hour); !errors.Is(err, ErrCapabilitySignature) {
		t.Fatalf("wrong key: got %v", err)
	}
	if err := VerifyCapability(key, token, "user-a", "$argon2id$hash-a", issued.Add(25*time.Hour), 24*time.Hour); !errors.Is(err, ErrCapabilityExpired) {
		t.Fatalf("expired: got %v", err)
	}
	if err := VerifyCapability(key, token[:len(token)-2], "user-a", "$argon2id$hash-a", issued, 24*time.Hour); !errors.Is(err, ErrCapabilityMalformed) {
		t.Fatalf("truncated: got %v", err)
	}
}

func TestCapabilityFieldBoundaries(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	issued := time.Unix(1_700_000_000, 0)
	token := SignCapability(key, "ab", "c", issued)

	if err := VerifyCapability(key, token, "a", "bc", issued, time.Hour); !errors.Is(err, ErrCapabilitySignature) {
		t.Fatalf("expected boundary shift to fail, got %v", err)
	}
}
