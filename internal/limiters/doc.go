// Package limiters holds the Redis-backed throttles used by the engine.
//
//   - [ResendLimiter] is a token bucket per user and per client IP for
//     verification code resends.
//   - [LoginLimiter] is a fixed-window failed-attempt counter per email and
//     per client IP.
//
// Both are nil-safe: a nil limiter allows everything. Redis failures are
// returned wrapped in the package's Unavailable error so the caller can pick
// fail-open or fail-closed.
package limiters
