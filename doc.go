// Package authcore implements the TerraScope sign-in core: password
// credential checks, mandatory email-code verification, an optional TOTP
// second factor, and stateless password recovery.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the [User] record, the [UserStore] contract, and the tagged [LoginState]
// attached to each visitor session. Flow orchestration, limiters, audit
// dispatch and metrics storage live under internal/ and are never exported.
//
// Persistence of users is delegated to a [UserStore] (see store/gormstore).
// Per-visitor state lives in the Redis-backed session package. Mail delivery
// goes through mail.Mailer and never fails a request.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Import httpapi, middleware, or any sub-package that re-imports authcore.
//   - Reveal whether an email is registered from the credential check.
package authcore
