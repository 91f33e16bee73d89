package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/yabu/internal/adapters/telemetry"
	"go.trai.ch/yabu/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func TestBridge_OnStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	renderer := mocks.NewMockRenderer(ctrl)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)))
	tracer := tp.Tracer("test")

	var parentID string
	renderer.EXPECT().OnTaskStart(gomock.Any(), "", "all", gomock.Any())
	renderer.EXPECT().OnTaskStart(gomock.Any(), gomock.Any(), "prog @ci", gomock.Any()).
		Do(func(_, parent, _ string, _ any) { parentID = parent })
	renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), nil).Times(2)

	ctx, root := tracer.Start(context.Background(), "all")
	_, child := tracer.Start(ctx, "prog", trace.WithAttributes(telemetry.HostKey.String("ci")))
	child.End()
	root.End()

	assert.Equal(t, root.SpanContext().SpanID().String(), parentID)
}

func TestBridge_OnEndWithError(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want string
	}{
		{name: "description", desc: "script failed: a.o", want: "script failed: a.o"},
		{name: "empty description", desc: "", want: "script failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			renderer := mocks.NewMockRenderer(ctrl)
			renderer.EXPECT().OnTaskStart(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any())
			renderer.EXPECT().OnTaskComplete(gomock.Any(), gomock.Any(), gomock.Any()).
				Do(func(_ string, _ any, err error) {
					assert.EqualError(t, err, tt.want)
				})

			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)))
			_, span := tp.Tracer("test").Start(context.Background(), "a.o")
			span.SetStatus(codes.Error, tt.desc)
			span.End()
		})
	}
}

func TestBridge_NilRenderer(t *testing.T) {
	bridge := telemetry.NewBridge(nil)
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(bridge))
	_, span := tp.Tracer("test").Start(context.Background(), "a.o")
	span.End()

	assert.NoError(t, bridge.ForceFlush(context.Background()))
	assert.NoError(t, bridge.Shutdown(context.Background()))
}
