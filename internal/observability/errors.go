package observability

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RecordError fails a request: it records err on the span, bumps the error
// counter, logs with trace context and extra fields, and writes a JSON error
// body with the given status.
func RecordError(ctx context.Context, span trace.Span, counter metric.Int64Counter, opName, msg string, err error, status int, w http.ResponseWriter, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", opName),
		attribute.String("kind", "request"),
	))

	fields = append(fields,
		zap.String("operation", opName),
		zap.Int("status", status),
		zap.Error(err),
		zap.String("request_id", RequestIDFromContext(ctx)),
	)
	LoggerWithTrace(ctx).Error(msg, fields...)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}
