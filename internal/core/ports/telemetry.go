package ports

import (
	"context"
	"io"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
	// EmitPlan signals the targets requested for this run.
	EmitPlan(ctx context.Context, targets []string)
}

// Span represents one executed script.
type Span interface {
	io.Writer
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig holds configuration for a starting span.
type SpanConfig struct {
	// Host is the queue the script runs on.
	Host string
}

// SpanOption is a functional option for configuring a span.
type SpanOption func(*SpanConfig)

// WithHost records the queue a span runs on.
func WithHost(host string) SpanOption {
	return func(c *SpanConfig) { c.Host = host }
}
