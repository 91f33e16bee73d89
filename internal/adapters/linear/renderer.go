// Package linear provides a synchronous, line-buffered renderer for CI
// environments and pipes.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/yabu/internal/ui/output"
	"go.trai.ch/yabu/internal/ui/style"
)

// Renderer implements ports.Renderer with chronological output where every
// line carries the name of the script that produced it.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu    sync.Mutex
	tasks map[string]*taskState
}

type taskState struct {
	name    string
	started time.Time
	partial bytes.Buffer
}

// NewRenderer creates a Renderer. Nil writers select the process streams.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		output: output.NewWithProfile(stderr, output.ColorProfileANSI),
		tasks:  make(map[string]*taskState),
	}
}

// Start is a no-op for the linear renderer.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop prints the partial lines of scripts still running.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		r.flushLocked(task)
	}
	return nil
}

// Wait is a no-op for the linear renderer.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the requested targets.
func (r *Renderer) OnPlanEmit(targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.stderr, "%s %s\n",
		r.output.String("building").Foreground(r.output.Color(style.Hex(style.Iris))).String(),
		strings.Join(targets, " "))
}

// OnTaskStart registers a running script.
func (r *Renderer) OnTaskStart(spanID, _, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[spanID] = &taskState{name: name, started: startTime}
}

// OnTaskLog prints the complete lines in data. A trailing partial line is
// kept until more output arrives.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	task.partial.Write(data)
	for {
		i := bytes.IndexByte(task.partial.Bytes(), '\n')
		if i < 0 {
			return
		}
		line := task.partial.Next(i + 1)
		r.printLineLocked(task.name, line)
	}
}

// OnTaskComplete prints the remaining output and a summary line.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}
	delete(r.tasks, spanID)
	r.flushLocked(task)

	elapsed := endTime.Sub(task.started).Round(time.Millisecond)
	prefix := r.output.String(fmt.Sprintf("[%s]", task.name)).Faint().String()
	if err != nil {
		symbol := r.output.String(style.Cross).Foreground(r.output.Color(style.Hex(style.Red))).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s failed after %v: %v\n", prefix, symbol, elapsed, err)
		return
	}
	symbol := r.output.String(style.Check).Foreground(r.output.Color(style.Hex(style.Green))).String()
	_, _ = fmt.Fprintf(r.stderr, "%s %s done in %v\n", prefix, symbol, elapsed)
}

// flushLocked must be called with mu held.
func (r *Renderer) flushLocked(task *taskState) {
	if task.partial.Len() > 0 {
		r.printLineLocked(task.name, task.partial.Bytes())
		task.partial.Reset()
	}
}

// printLineLocked must be called with mu held.
func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", name, line)
}
