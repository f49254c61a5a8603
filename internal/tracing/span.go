package tracing

import (
	"context"
	"errors"
	"math/big"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/hailstone/internal/collatz"
	"github.com/torosent/hailstone/internal/runner"
)

// StartRunSpan starts the span covering one run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, start *big.Int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "collatz.run",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.Int("hailstone.start.bits", start.BitLen()),
	)
	if id, ok := runner.RunIDFromContext(ctx); ok {
		span.SetAttributes(attribute.String("hailstone.run.id", id.String()))
	}
	return ctx, span
}

// EndRunSpan finishes a run span with the result attributes and error status.
func EndRunSpan(span trace.Span, res collatz.Result, err error) {
	attrs := []attribute.KeyValue{
		attribute.Int64("hailstone.steps", clampInt64(res.Steps)),
	}
	if res.Outcome.Valid() {
		attrs = append(attrs, attribute.String("hailstone.outcome", res.Outcome.String()))
	}
	EndSpan(span, err, attrs...)
}

// EndSpan finishes a span, recording error status if applicable.
// Cancellation is recorded as an event rather than an error.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, context.Canceled):
		span.AddEvent("cancelled")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// tracedIterator wraps an Iterator with one span per run.
type tracedIterator struct {
	inner  runner.Iterator
	tracer trace.Tracer
}

// WithTracing wraps it so each run is exported as a span. A nil tracer
// returns it unchanged.
func WithTracing(it runner.Iterator, tracer trace.Tracer) runner.Iterator {
	if tracer == nil {
		return it
	}
	return &tracedIterator{inner: it, tracer: tracer}
}

func (t *tracedIterator) Run(ctx context.Context, start *big.Int) (collatz.Result, error) {
	ctx, span := StartRunSpan(ctx, t.tracer, start)
	res, err := t.inner.Run(ctx, start)
	EndRunSpan(span, res, err)
	return res, err
}

func clampInt64(v uint64) int64 {
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}
