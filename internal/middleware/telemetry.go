package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/biolink/internal/telemetry"
	"github.com/zfogg/biolink/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware traces HTTP requests with otelgin. The second handler runs
// inside the server span and annotates it once the request has been handled,
// so the session principal and handler errors are visible.
func TracingMiddleware(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), annotateSpan}
}

func annotateSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}

	attrs := telemetry.RequestAttributes{
		RequestID: RequestID(c),
		UserAgent: c.Request.UserAgent(),
		Slug:      c.Param("slug"),
		EventType: c.Query("type"),
	}
	if userID, ok := util.OptionalUserID(c); ok {
		attrs.UserID = userID
	}
	telemetry.AnnotateRequest(span, attrs)

	for _, ginErr := range c.Errors {
		if ginErr.Err != nil {
			span.RecordError(ginErr.Err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, ginErr.Error())
		}
	}
}
