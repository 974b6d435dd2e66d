// Package otel publishes authcore engine metrics as OpenTelemetry observable
// instruments read from engine snapshots at collection time.
package otel
