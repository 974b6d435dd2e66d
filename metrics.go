package authcore

import "github.com/terrascope/authcore/internal/metrics"

// MetricID identifies one engine counter or histogram.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot = metrics.Snapshot

// Metrics is the engine's lock-free metric storage.
type Metrics = metrics.Metrics

const (
	MetricLoginSuccess                   = metrics.MetricLoginSuccess
	MetricLoginFailure                   = metrics.MetricLoginFailure
	MetricLoginRateLimited               = metrics.MetricLoginRateLimited
	MetricLoginEmailUnverified           = metrics.MetricLoginEmailUnverified
	MetricTwoFactorRequired              = metrics.MetricTwoFactorRequired
	MetricTOTPEnabled                    = metrics.MetricTOTPEnabled
	MetricTOTPSuccess                    = metrics.MetricTOTPSuccess
	MetricTOTPFailure                    = metrics.MetricTOTPFailure
	MetricPendingExpired                 = metrics.MetricPendingExpired
	MetricEmailVerificationIssued        = metrics.MetricEmailVerificationIssued
	MetricEmailVerificationSuccess       = metrics.MetricEmailVerificationSuccess
	MetricEmailVerificationFailure       = metrics.MetricEmailVerificationFailure
	MetricEmailVerificationResendLimited = metrics.MetricEmailVerificationResendLimited
	MetricPasswordResetRequest           = metrics.MetricPasswordResetRequest
	MetricPasswordResetConfirmSuccess    = metrics.MetricPasswordResetConfirmSuccess
	MetricPasswordResetConfirmFailure    = metrics.MetricPasswordResetConfirmFailure
	MetricAccountCreationSuccess         = metrics.MetricAccountCreationSuccess
	MetricAccountCreationDuplicate       = metrics.MetricAccountCreationDuplicate
	MetricLogout                         = metrics.MetricLogout
	MetricMailSendFailure                = metrics.MetricMailSendFailure
	MetricRateLimitHit                   = metrics.MetricRateLimitHit
	MetricPasswordRehash                 = metrics.MetricPasswordRehash
	MetricLoginLatency                   = metrics.MetricLoginLatency
)

// NewMetrics returns metric storage configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return metrics.New(metrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
