// Package progress renders build progress on an interactive terminal from a
// progrock recording.
package progress

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/yabu/internal/ui/output"
)

// DefaultInterval is the redraw interval of the live region.
const DefaultInterval = 100 * time.Millisecond

// Renderer implements ports.Renderer by recording every script as a
// progrock vertex.
type Renderer struct {
	board    *Board
	rec      *progrock.Recorder
	interval time.Duration

	mu       sync.Mutex
	vertices map[string]*progrock.VertexRecorder
	started  bool
	cancel   context.CancelFunc
	ticking  chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithInterval sets the redraw interval.
func WithInterval(d time.Duration) Option {
	return func(r *Renderer) { r.interval = d }
}

// NewRenderer creates a renderer drawing a live status board on w.
func NewRenderer(w io.Writer, opts ...Option) *Renderer {
	return NewRendererWithBoard(NewBoard(output.New(w), true), opts...)
}

// NewRendererWithBoard creates a renderer recording into board.
func NewRendererWithBoard(board *Board, opts ...Option) *Renderer {
	r := &Renderer{
		board:    board,
		rec:      progrock.NewRecorder(board),
		interval: DefaultInterval,
		vertices: make(map[string]*progrock.VertexRecorder),
		ticking:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins redrawing the live region until Stop is called or ctx ends.
func (r *Renderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)

	go func() {
		defer close(r.ticking)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.board.Tick()
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop ends the redraw loop and closes the board.
func (r *Renderer) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		r.mu.Lock()
		started, cancel := r.started, r.cancel
		r.mu.Unlock()
		if started {
			cancel()
			<-r.ticking
		}
		err = r.board.Close()
		close(r.stopped)
	})
	return err
}

// Wait blocks until Stop has completed.
func (r *Renderer) Wait() error {
	<-r.stopped
	return nil
}

// OnPlanEmit prints the requested targets.
func (r *Renderer) OnPlanEmit(targets []string) {
	r.board.Plan(targets)
}

// OnTaskStart records a new vertex for the script.
func (r *Renderer) OnTaskStart(spanID, _, name string, _ time.Time) {
	v := r.rec.Vertex(digest.FromString(spanID), name)
	r.mu.Lock()
	r.vertices[spanID] = v
	r.mu.Unlock()
}

// OnTaskLog writes data to the vertex output.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	if v := r.vertex(spanID, false); v != nil {
		_, _ = v.Stdout().Write(data)
	}
}

// OnTaskComplete marks the vertex done.
func (r *Renderer) OnTaskComplete(spanID string, _ time.Time, err error) {
	if v := r.vertex(spanID, true); v != nil {
		v.Done(err)
	}
}

func (r *Renderer) vertex(spanID string, remove bool) *progrock.VertexRecorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.vertices[spanID]
	if remove {
		delete(r.vertices, spanID)
	}
	return v
}
