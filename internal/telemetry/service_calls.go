package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxUserAgent bounds the user agent attribute
const maxUserAgent = 200

// ObjectCall describes one object storage request
type ObjectCall struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
}

// TraceObjectCall starts a client span for an object storage operation
// (put_object, delete_object)
func TraceObjectCall(ctx context.Context, operation string, call ObjectCall) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("storage.operation", operation),
		attribute.String("storage.bucket", call.Bucket),
	}
	if call.Key != "" {
		attrs = append(attrs, attribute.String("storage.key", call.Key))
	}
	if call.ContentType != "" {
		attrs = append(attrs, attribute.String("storage.content_type", call.ContentType))
	}
	if call.Size > 0 {
		attrs = append(attrs, attribute.Int64("storage.size_bytes", call.Size))
	}

	return otel.Tracer("storage").Start(ctx, "storage."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// TraceCacheCall starts a client span for a cache operation over keys.
// Single-key calls record the key; batches record only the count.
func TraceCacheCall(ctx context.Context, operation string, keys ...string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cache.operation", operation),
		attribute.Int("cache.key_count", len(keys)),
	}
	if len(keys) == 1 {
		attrs = append(attrs, attribute.String("cache.key", keys[0]))
	}

	return otel.Tracer("cache").Start(ctx, "cache."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// RecordServiceError marks span failed by a dependency
func RecordServiceError(span trace.Span, service string, err error) {
	if err == nil {
		return
	}
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err, trace.WithStackTrace(true))
	span.SetAttributes(
		attribute.String("error.type", "service_error"),
		attribute.String("error.service", service),
	)
}

// SetCorrelationID tags span with the id shared by one client action
func SetCorrelationID(span trace.Span, correlationID string) {
	if correlationID != "" {
		span.SetAttributes(attribute.String("trace.correlation_id", correlationID))
	}
}

// RequestAttributes are the per-request span attributes set by the HTTP layer
type RequestAttributes struct {
	RequestID string
	UserID    string
	UserAgent string
	Slug      string
	EventType string
}

// AnnotateRequest copies the non-empty fields of attrs onto span
func AnnotateRequest(span trace.Span, attrs RequestAttributes) {
	var kv []attribute.KeyValue
	if attrs.RequestID != "" {
		kv = append(kv, attribute.String("request.id", attrs.RequestID))
	}
	if attrs.UserID != "" {
		kv = append(kv, attribute.String("user.id", attrs.UserID))
	}
	if ua := attrs.UserAgent; ua != "" {
		if len(ua) > maxUserAgent {
			ua = ua[:maxUserAgent] + "..."
		}
		kv = append(kv, attribute.String("http.user_agent", ua))
	}
	if attrs.Slug != "" {
		kv = append(kv, attribute.String("profile.slug", attrs.Slug))
	}
	if attrs.EventType != "" {
		kv = append(kv, attribute.String("analytics.type", attrs.EventType))
	}
	span.SetAttributes(kv...)
}
