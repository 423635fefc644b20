// Package tracer is a small tracing facade so services can emit spans without
// importing OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: tests and tracing-disabled deployments
//   - OTelTracer: OpenTelemetry adapter
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanConformanceCheck = "schema.conformance"
	SpanSchemaLookup     = "schema.lookup"
	SpanKeyLookup        = "keys.lookup"
	SpanFingerprintCheck = "credential.fingerprint"
)

// Attribute keys.
const (
	AttrSchemaID   = "schema.id"
	AttrKeyID      = "key.id"
	AttrConforms   = "conforms"
	AttrCacheHit   = "cache.hit"
	AttrOperation  = "operation"
	AttrVerified   = "verified"
	AttrFieldCount = "schema.field_count"
)
