// Package audit relays security events (logins, code issuance, resets) from
// the engine to a Sink without blocking request handling.
//
// The Dispatcher buffers events on a channel and drains them on one
// goroutine. When DropIfFull is set, a full buffer drops the event and
// increments Dropped instead of blocking the caller.
package audit
