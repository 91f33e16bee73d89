package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/yabu/internal/core/ports"
)

// HostKey is the span attribute naming the build server a script runs on.
const HostKey attribute.Key = "yabu.host"

// OTelTracer is a concrete implementation of ports.Tracer using OpenTelemetry.
type OTelTracer struct {
	tracer trace.Tracer

	mu       sync.RWMutex
	renderer ports.Renderer
}

// NewOTelTracer creates a tracer from the global provider.
func NewOTelTracer(name string) *OTelTracer {
	return NewOTelTracerFrom(otel.GetTracerProvider(), name)
}

// NewOTelTracerFrom creates a tracer from tp.
func NewOTelTracerFrom(tp trace.TracerProvider, name string) *OTelTracer {
	return &OTelTracer{tracer: tp.Tracer(name)}
}

// WithRenderer streams span output to r.
func (t *OTelTracer) WithRenderer(r ports.Renderer) *OTelTracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer = r
	return t
}

func (t *OTelTracer) currentRenderer() ports.Renderer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.renderer
}

// Start creates a new span.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var startOpts []trace.SpanStartOption
	if cfg.Host != "" {
		startOpts = append(startOpts, trace.WithAttributes(HostKey.String(cfg.Host)))
	}
	ctx, span := t.tracer.Start(ctx, name, startOpts...)

	var batcher *BatchProcessor
	if r := t.currentRenderer(); r != nil {
		spanID := span.SpanContext().SpanID().String()
		batcher = NewBatchProcessor(0, 0, func(data []byte) {
			r.OnTaskLog(spanID, data)
		})
	}
	return ctx, &OTelSpan{span: span, batcher: batcher}
}

// EmitPlan records the requested targets on the current span and announces
// them to the renderer.
func (t *OTelTracer) EmitPlan(ctx context.Context, targets []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("targets", targets),
		))
	}
	if r := t.currentRenderer(); r != nil {
		r.OnPlanEmit(targets)
	}
}

// OTelSpan is a concrete implementation of ports.Span using OpenTelemetry.
type OTelSpan struct {
	span    trace.Span
	batcher *BatchProcessor
}

// End flushes pending output and completes the span.
func (s *OTelSpan) End() {
	if s.batcher != nil {
		_ = s.batcher.Close()
	}
	s.span.End()
}

// RecordError records err and marks the span as failed.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprint(v)))
	}
}

// Write streams p to the renderer, or records it as a span event when no
// renderer is attached.
func (s *OTelSpan) Write(p []byte) (int, error) {
	if s.batcher != nil {
		return s.batcher.Write(p)
	}
	s.span.AddEvent("output", trace.WithAttributes(attribute.String("data", string(p))))
	return len(p), nil
}
