// Package internal holds helpers private to authcore: secure random codes,
// user identifier encoding for links, and the reset capability codec.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: flow orchestrators behind every Engine operation
//   - limiters: Redis-backed resend token bucket and login window
//   - appconfig: service configuration loading for cmd/authcore
//   - cli/format: table, JSON and YAML output for the admin CLI
//
// Nothing in here appears in the public authcore API.
package internal
