package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by batch spans.
const (
	RunIDKey     = "camsync.run_id"
	SessionIDKey = "camsync.session_id"
	StageKey     = "camsync.stage"
	OutcomeKey   = "camsync.outcome"
	ChannelsKey  = "camsync.channels"
	OffsetMSKey  = "camsync.offset_ms"
)

// SessionAttributes describes one session span.
func SessionAttributes(runID, sessionID, stage string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.String(StageKey, stage),
	}
	if runID != "" {
		attrs = append(attrs, attribute.String(RunIDKey, runID))
	}
	return attrs
}

// EndWithError records err (if any) on span and ends it.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(OutcomeKey, "failed"))
	} else {
		span.SetAttributes(attribute.String(OutcomeKey, "completed"))
	}
	span.End()
}
