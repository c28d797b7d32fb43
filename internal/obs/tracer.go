// Package obs's Tracer lives as the pkg/session.Tracer/SpanContext
// interfaces themselves (the same Recorder-style seam pkg/metrics uses):
// this file only supplies the concrete OpenTelemetry-backed
// implementation, satisfying those interfaces without pkg/session
// importing this package.
package obs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cexll/agentsdk-core/pkg/session"
)

var _ session.Tracer = (*otelTracer)(nil)

// otelTracer wraps a go.opentelemetry.io/otel/trace.Tracer. Unlike the
// teacher's build-tag-split otel.go/otel_noop.go (which pulls in
// go.opentelemetry.io/otel/sdk/trace and the OTLP exporter to build a real
// provider), this runtime only imports go.opentelemetry.io/otel and its
// trace subpackage — the otel API already returns a working no-op
// trace.Tracer from otel.Tracer(name) when no SDK TracerProvider has been
// registered via otel.SetTracerProvider, so a single implementation covers
// both "tracing configured" and "tracing absent" without a build tag.
type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by the process-wide OpenTelemetry
// TracerProvider (otel.GetTracerProvider()). A caller wanting real export
// calls otel.SetTracerProvider with an SDK provider of its own choosing
// before constructing a Session; absent that, every span is a cheap no-op.
func NewTracer() session.Tracer {
	return &otelTracer{tracer: otel.Tracer("agentsdk-core")}
}

func (t *otelTracer) StartLoopSpan(sessionID string, iteration int) session.SpanContext {
	ctx, span := t.tracer.Start(context.Background(), "session.loop_step",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("session.iteration", iteration),
		),
	)
	return &otelSpan{ctx: ctx, span: span}
}

func (t *otelTracer) StartStreamSpan(parent session.SpanContext, providerName, model string) session.SpanContext {
	ctx, span := t.tracer.Start(parentContext(parent), "provider.stream",
		trace.WithAttributes(
			attribute.String("provider.name", providerName),
			attribute.String("provider.model", model),
		),
	)
	return &otelSpan{ctx: ctx, span: span}
}

func (t *otelTracer) StartToolSpan(parent session.SpanContext, toolName string) session.SpanContext {
	ctx, span := t.tracer.Start(parentContext(parent), "tool.execute",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
		),
	)
	return &otelSpan{ctx: ctx, span: span}
}

func (t *otelTracer) EndSpan(span session.SpanContext, attrs map[string]any, err error) {
	s, ok := span.(*otelSpan)
	if !ok || s == nil {
		return
	}
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			s.span.SetAttributes(attribute.String(k, val))
		case int:
			s.span.SetAttributes(attribute.Int(k, val))
		case int64:
			s.span.SetAttributes(attribute.Int64(k, val))
		case float64:
			s.span.SetAttributes(attribute.Float64(k, val))
		case bool:
			s.span.SetAttributes(attribute.Bool(k, val))
		}
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

func parentContext(parent session.SpanContext) context.Context {
	if p, ok := parent.(*otelSpan); ok && p != nil {
		return p.ctx
	}
	return context.Background()
}

type otelSpan struct {
	ctx  context.Context
	span trace.Span
}

func (s *otelSpan) TraceID() string {
	if s.span == nil {
		return ""
	}
	return s.span.SpanContext().TraceID().String()
}

func (s *otelSpan) SpanID() string {
	if s.span == nil {
		return ""
	}
	return s.span.SpanContext().SpanID().String()
}

func (s *otelSpan) IsRecording() bool {
	return s.span != nil && s.span.IsRecording()
}
