// Package tracing wraps opentracing span creation so every node Tick
// reports a child span of whatever span (if any) already lives on the
// context, falling back to a no-op tracer when none does.
package tracing

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
)

var noop = opentracing.NoopTracer{}

// StartChildSpan starts a span named "behaviortree::"+operation as a child
// of whatever span is already on ctx, using that span's own tracer; if ctx
// carries no span, this package's own no-op tracer is used instead (not
// opentracing's global tracer).
func StartChildSpan(ctx context.Context, operation string) (opentracing.Span, context.Context) {
	var tracer opentracing.Tracer = &noop
	if span := opentracing.SpanFromContext(ctx); span != nil {
		tracer = span.Tracer()
	}
	return opentracing.StartSpanFromContextWithTracer(ctx, tracer, "behaviortree::"+operation)
}
