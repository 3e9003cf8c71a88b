package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/telemetry"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationHeader groups requests that belong to one client action
const CorrelationHeader = "X-Correlation-ID"

const correlationBaggageKey = "correlation_id"

// CorrelationMiddleware propagates X-Correlation-ID, falling back to the request id.
// It must run after RequestIDMiddleware and TracingMiddleware.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationHeader)
		if correlationID == "" || len(correlationID) > 128 {
			correlationID = RequestID(c)
		}
		if correlationID == "" {
			c.Next()
			return
		}

		c.Set("correlation_id", correlationID)
		c.Header(CorrelationHeader, correlationID)

		ctx := c.Request.Context()
		telemetry.SetCorrelationID(trace.SpanFromContext(ctx), correlationID)

		// Baggage carries the id into spans started by repositories and storage calls
		if member, err := baggage.NewMember(correlationBaggageKey, correlationID); err == nil {
			if bag, err := baggage.FromContext(ctx).SetMember(member); err == nil {
				ctx = baggage.ContextWithBaggage(ctx, bag)
			}
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CorrelationIDFromContext returns the correlation id stored in ctx's baggage
func CorrelationIDFromContext(ctx context.Context) string {
	return baggage.FromContext(ctx).Member(correlationBaggageKey).Value()
}
