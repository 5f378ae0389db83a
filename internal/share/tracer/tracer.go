// Package tracer provides a lightweight tracing abstraction for the sharing
// module, keeping session-manager code decoupled from OpenTelemetry APIs.
//
// Implementations:
//   - NoopTracer: for tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes. The
	// returned context carries the span for child operations.
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the sharing module.
const (
	SpanSessionCreate   = "share.session.create"
	SpanSessionGet      = "share.session.get"
	SpanSessionActivate = "share.session.activate"
	SpanSessionRespond  = "share.session.respond"
	SpanSessionRevoke   = "share.session.revoke"
	SpanSessionList     = "share.session.list"
	SpanSessionCleanup  = "share.session.cleanup"
)

// Attribute keys used by the sharing module.
const (
	AttrSessionID   = "session.id"
	AttrSessionType = "session.type"
	AttrStatus      = "session.status"
	AttrProofCount  = "request.proof_count"
	AttrExpiredNow  = "session.expired_now"
	AttrSweptCount  = "cleanup.swept_count"
)
