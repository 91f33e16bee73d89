package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/yabu/internal/adapters/telemetry"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/yabu/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestInterfaceSatisfaction(_ *testing.T) {
	var _ ports.Tracer = (*telemetry.OTelTracer)(nil)
	var _ ports.Span = (*telemetry.OTelSpan)(nil)
	var _ ports.Tracer = (*telemetry.NoOpTracer)(nil)
	var _ ports.Span = (*telemetry.NoOpSpan)(nil)
}

func TestOTelTracer_SpanAttributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := telemetry.NewOTelTracerFrom(tp, "test")

	_, span := tracer.Start(context.Background(), "prog", ports.WithHost("ci"))
	span.SetAttribute("yabu.script.kind", "b")
	span.SetAttribute("jobs", 3)
	span.SetAttribute("other", 1.5)
	span.RecordError(errors.New("script failed"))
	n, err := span.Write([]byte("cc -o prog\n"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "prog", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)

	attrs := map[string]string{}
	for _, kv := range s.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, map[string]string{
		"yabu.host":        "ci",
		"yabu.script.kind": "b",
		"jobs":             "3",
		"other":            "1.5",
	}, attrs)

	var events []string
	for _, ev := range s.Events() {
		events = append(events, ev.Name)
	}
	assert.Contains(t, events, "output")
}

func TestOTelTracer_StreamsToRenderer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	renderer := mocks.NewMockRenderer(ctrl)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)))
	tracer := telemetry.NewOTelTracerFrom(tp, "test").WithRenderer(renderer)

	var spanID string
	gomock.InOrder(
		renderer.EXPECT().OnPlanEmit([]string{"all"}),
		renderer.EXPECT().OnTaskStart(gomock.Any(), "", "a.o", gomock.Any()).
			Do(func(id, _, _ string, _ any) { spanID = id }),
		renderer.EXPECT().OnTaskLog(gomock.Any(), []byte("cc -c a.c\n")).
			Do(func(id string, _ []byte) { assert.Equal(t, spanID, id) }),
		renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), nil),
	)

	tracer.EmitPlan(context.Background(), []string{"all"})
	_, span := tracer.Start(context.Background(), "a.o")
	_, err := span.Write([]byte("cc -c a.c\n"))
	require.NoError(t, err)
	span.End()
}

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()
	ctx := context.Background()
	tracer.EmitPlan(ctx, []string{"all"})

	got, span := tracer.Start(ctx, "a.o", ports.WithHost("ci"))
	assert.Equal(t, ctx, got)
	span.SetAttribute("key", "value")
	span.RecordError(errors.New("boom"))
	n, err := span.Write([]byte("test log"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	span.End()
}
