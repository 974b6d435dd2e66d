package flows

import "context"

// AuditFunc emits one audit record. meta may be nil and is only invoked when
// auditing is enabled.
type AuditFunc func(ctx context.Context, event string, success bool, userID, sessionID string, err error, meta func() map[string]string)

// RateLimitFunc records a limiter denial for scope.
type RateLimitFunc func(ctx context.Context, scope string, meta func() map[string]string)

func noopAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func noopRateLimit(context.Context, string, func() map[string]string) {}

func noopMetric(int) {}

func noopWarn(context.Context, string, ...any) {}

func noClientIP(context.Context) string { return "" }
