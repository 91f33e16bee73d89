package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for output rendering.
// It decouples telemetry collection from presentation logic,
// allowing the same event stream to drive either a progress tape or linear CI logs.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and flushes
	// buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called with the targets requested for the run.
	OnPlanEmit(targets []string)

	// OnTaskStart is called when a script begins execution.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a script emits output.
	// data may contain partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a script finishes.
	OnTaskComplete(spanID string, endTime time.Time, err error)
}
