package authcore

import (
	"io"

	"github.com/terrascope/authcore/internal/audit"
	"github.com/terrascope/authcore/logging"
)

// AuditEvent is one structured audit record emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's background dispatcher.
// Implementations must be safe for concurrent use.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

type LoggerSink = audit.LoggerSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLoggerSink writes audit events through log, at warn level for failures.
func NewLoggerSink(log logging.Logger) *LoggerSink {
	return audit.NewLoggerSink(log)
}
