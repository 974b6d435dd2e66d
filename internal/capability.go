package internal

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

const (
	capabilityMACSize = sha256.Size
	capabilityRawSize = capabilityMACSize + 8
)

var (
	ErrCapabilityMalformed = errors.New("capability malformed")
	ErrCapabilitySignature = errors.New("capability signature mismatch")
	ErrCapabilityExpired   = errors.New("capability expired")
)

// SignCapability returns base64url(HMAC(key, userID || snapshot || issuedAt) || issuedAt).
// issuedAt is truncated to whole seconds.
func SignCapability(key []byte, userID, snapshot string, issuedAt time.Time) string {
	ts := issuedAt.Unix()
	mac := capabilityMAC(key, userID, snapshot, ts)

	raw := make([]byte, 0, capabilityRawSize)
	raw = append(raw, mac...)
	raw = binary.BigEndian.AppendUint64(raw, uint64(ts))
	return base64.RawURLEncoding.EncodeToString(raw)
}

// VerifyCapability recomputes the MAC for (userID, snapshot) and compares in
// constant time, then enforces maxAge against now. A token issued in the
// future beyond the same window is rejected as malformed.
func VerifyCapability(key []byte, token, userID, snapshot string, now time.Time, maxAge time.Duration) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != capabilityRawSize {
		return ErrCapabilityMalformed
	}

	ts := int64(binary.BigEndian.Uint64(raw[capabilityMACSize:]))
	expected := capabilityMAC(key, userID, snapshot, ts)
	if subtle.ConstantTimeCompare(expected, raw[:capabilityMACSize]) != 1 {
		return ErrCapabilitySignature
	}

	issued := time.Unix(ts, 0)
	if issued.After(now.Add(time.Minute)) {
		return ErrCapabilityMalformed
	}
	if now.Sub(issued) > maxAge {
		return ErrCapabilityExpired
	}
	return nil
}

// Fields are length-prefixed so that ("ab","c") and ("a","bc") never collide.
func capabilityMAC(key []byte, userID, snapshot string, ts int64) []byte {
	h := hmac.New(sha256.New, key)
	var lenBuf [4]byte

	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(userID)))
	h.Write(lenBuf[:])
	h.Write([]byte(userID))

	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(snapshot)))
	h.Write(lenBuf[:])
	h.Write([]byte(snapshot))

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(ts))
	h.Write(tsBuf[:])

	return h.Sum(nil)
}
