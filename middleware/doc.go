// Package middleware adapts authcore.Engine to fiber.
//
// # Handlers
//
//   - [RequestID] tags every request and carries the ID and client IP into
//     the user context for audit records.
//   - [RequestLogger] writes one structured line per request.
//   - [Visit] loads or starts the visitor session and keeps its cookie in
//     step with the session ID.
//   - [RequireAuth] admits a valid Bearer access token or a visitor session
//     whose login state is authenticated.
//
// This package translates HTTP semantics into Engine calls. Authentication
// decisions stay in the Engine.
package middleware
