// Package httpapi exposes the authcore engine as a JSON API on fiber.
//
// Every response uses one envelope:
//
//	{"success": true, "data": {...}}
//	{"success": false, "error": "<user-facing notice>", "reason": "<machine code>"}
//
// Visitor sessions travel in the session cookie managed by the middleware
// package; protected routes also accept a Bearer access token.
package httpapi
