// Package session provides the Redis-backed per-visitor session store used to
// carry login state between requests.
//
// # Binary encoding
//
// Sessions are stored as a compact binary record with a leading schema
// version byte. Older versions are decoded and rewritten in the current
// format on the next Save.
//
// # Architecture boundaries
//
// This package stores opaque named string values. It does NOT interpret the
// login state kept under those names and does not issue cookies; the root
// package and the HTTP layer own those concerns.
//
// # What this package must NOT do
//
//   - Import authcore, jwt, or httpapi (no upward imports).
//   - Store plaintext passwords or TOTP secrets in session values.
package session
