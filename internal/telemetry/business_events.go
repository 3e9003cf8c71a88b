package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents provides helper methods for tracing domain operations
// (an event was recorded, an archive ran) beyond HTTP/DB/cache tracing.
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("business-events"),
	}
}

// ============================================================================
// ANALYTICS RECORDING
// ============================================================================

// TraceRecordEvent creates a span for recording a page view or click
func (be *BusinessEvents) TraceRecordEvent(ctx context.Context, kind string, userID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "analytics.record",
		trace.WithAttributes(
			attribute.String("analytics.kind", kind),
			attribute.String("user.id", userID),
		),
	)
}

// ============================================================================
// ARCHIVAL
// ============================================================================

// ArchiveEventAttrs describes an archive run
type ArchiveEventAttrs struct {
	Category string // "pageView", "linkClick", "iconClick" or "" for all
	Filtered bool
}

// TraceArchive creates the root span of an archive run
func (be *BusinessEvents) TraceArchive(ctx context.Context, userID string, attrs ArchiveEventAttrs) (context.Context, trace.Span) {
	ctx, span := be.tracer.Start(ctx, "analytics.archive",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Bool("archive.date_filtered", attrs.Filtered),
		),
	)
	if attrs.Category != "" {
		span.SetAttributes(attribute.String("archive.category", attrs.Category))
	}
	return ctx, span
}

// TraceArchiveStage creates a child span for one stage: select, serialize, upload, delete, invalidate
func (be *BusinessEvents) TraceArchiveStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "analytics.archive."+stage,
		trace.WithAttributes(attribute.String("archive.stage", stage)),
	)
}

// RecordArchiveRows annotates an archive span with per-category row counts
func RecordArchiveRows(span trace.Span, pageViews, linkClicks, iconClicks int) {
	span.SetAttributes(
		attribute.Int("archive.page_views", pageViews),
		attribute.Int("archive.link_clicks", linkClicks),
		attribute.Int("archive.icon_clicks", iconClicks),
	)
}

// RecordError marks a span as failed
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
}

// ============================================================================
// HELPER: Global instance for convenient access
// ============================================================================

var (
	globalBusinessEvents *BusinessEvents
	businessEventsOnce   sync.Once
)

// GetBusinessEvents returns the global business events tracer
func GetBusinessEvents() *BusinessEvents {
	businessEventsOnce.Do(func() {
		globalBusinessEvents = NewBusinessEvents()
	})
	return globalBusinessEvents
}
