package service

import (
	"context"
	"strings"

	"snapgram/internal/models"
	"snapgram/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// operation tracks one orchestrated mutation: its span, its outcome
// metric and its completion log line.
type operation struct {
	name   string
	span   *observability.Span
	log    *observability.ServiceLogger
	fields map[string]any
}

func startOperation(ctx context.Context, log *observability.ServiceLogger, name string) (*operation, context.Context) {
	span, ctx := observability.NewSpan(ctx, "service."+name, attribute.String("operation", name))
	return &operation{name: name, span: span, log: log, fields: map[string]any{}}, ctx
}

func (o *operation) set(key string, value string) {
	o.fields[key] = value
	o.span.AddAttributes(attribute.String(key, value))
}

func (o *operation) end(ctx context.Context, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(models.ErrorCode(err))
		o.span.SetError(err)
	}
	observability.OrchestrationTotal.WithLabelValues(o.name, outcome).Inc()
	o.log.LogOperation(ctx, o.name, err, o.fields)
	o.span.End()
}
