package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on batch and request spans.
const (
	AttrBatchNumber      = attribute.Key("batchfire.batch.number")
	AttrBatchConcurrency = attribute.Key("batchfire.batch.concurrency")
	AttrBatchFailures    = attribute.Key("batchfire.batch.failures")
	AttrRequestID        = attribute.Key("batchfire.request.id")
	AttrFailureReason    = attribute.Key("batchfire.request.reason")
	AttrHTTPStatus       = attribute.Key("http.response.status_code")
)

// StartBatchSpan opens the parent span of one batch.
func StartBatchSpan(ctx context.Context, tracer trace.Tracer, number, concurrency int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "batch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrBatchNumber.Int(number),
			AttrBatchConcurrency.Int(concurrency),
		),
	)
}

// StartRequestSpan opens a client span for one request of a batch.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, id int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "GET",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			AttrRequestID.Int(id),
		),
	)
}

// EndSpan finishes a span, marking it failed when reason is non-empty.
func EndSpan(span trace.Span, reason string, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if reason != "" {
		span.SetAttributes(AttrFailureReason.String(reason))
		span.SetStatus(codes.Error, reason)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders writes the W3C trace context of ctx into headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
