package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zfogg/biolink/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanInstanceKey  = "otel:span"
	startInstanceKey = "otel:start"
	maxStatementLen  = 500
)

// GORMTracingPlugin returns a GORM plugin that wraps every create, query, update,
// delete and raw statement in a span and records its latency
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{tracer: otel.Tracer("gorm")}
}

type tracingPlugin struct {
	tracer trace.Tracer
	system string
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	p.system = dbSystem(db.Dialector.Name())

	cb := db.Callback()
	// gorm's processor types are unexported, so each hook registers through a closure
	hooks := []struct {
		operation string
		before    func(name string, fn func(*gorm.DB)) error
		after     func(name string, fn func(*gorm.DB)) error
	}{
		{"INSERT",
			func(n string, fn func(*gorm.DB)) error { return cb.Create().Before("gorm:create").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Create().After("gorm:create").Register(n, fn) }},
		{"SELECT",
			func(n string, fn func(*gorm.DB)) error { return cb.Query().Before("gorm:query").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Query().After("gorm:query").Register(n, fn) }},
		{"UPDATE",
			func(n string, fn func(*gorm.DB)) error { return cb.Update().Before("gorm:update").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Update().After("gorm:update").Register(n, fn) }},
		{"DELETE",
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().Before("gorm:delete").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Delete().After("gorm:delete").Register(n, fn) }},
		{"RAW",
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().Before("gorm:raw").Register(n, fn) },
			func(n string, fn func(*gorm.DB)) error { return cb.Raw().After("gorm:raw").Register(n, fn) }},
	}

	for _, h := range hooks {
		op := strings.ToLower(h.operation)
		if err := h.before("telemetry:before_"+op, p.start(h.operation)); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", op, err)
		}
		if err := h.after("telemetry:after_"+op, p.finish(h.operation)); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", op, err)
		}
	}
	return nil
}

// dbSystem maps a gorm dialector name to the OpenTelemetry db.system value
func dbSystem(dialector string) string {
	if dialector == "postgres" {
		return "postgresql"
	}
	return dialector
}

func (p *tracingPlugin) start(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		_, span := p.tracer.Start(ctx, "db."+strings.ToLower(operation),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", p.system),
				attribute.String("db.table", table),
				attribute.String("db.operation", operation),
			),
		)
		db.InstanceSet(spanInstanceKey, span)
		db.InstanceSet(startInstanceKey, time.Now())
	}
}

func (p *tracingPlugin) finish(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		p.end(db, operation)
	}
}

func (p *tracingPlugin) end(db *gorm.DB, operation string) {
	raw, ok := db.InstanceGet(spanInstanceKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}
	if started, ok := db.InstanceGet(startInstanceKey); ok {
		if t, ok := started.(time.Time); ok {
			elapsed := time.Since(t)
			span.SetAttributes(attribute.Int64("db.duration_ms", elapsed.Milliseconds()))
			metrics.Get().DBQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
		}
	}

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatementLen {
			sql = sql[:maxStatementLen] + "... (truncated)"
		}
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	if db.RowsAffected > 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
