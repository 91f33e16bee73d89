package progress

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"github.com/vito/progrock"
	"go.trai.ch/yabu/internal/ui/style"
)

// MaxLiveLines caps the number of running scripts shown at the bottom of the
// terminal.
const MaxLiveLines = 10

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type vertexState struct {
	name      string
	started   time.Time
	completed time.Time
	err       string
	failed    bool
	done      bool
	out       bytes.Buffer
}

// Board is a progrock.Writer that prints finished scripts with their output
// and keeps a live region listing the scripts still running.
type Board struct {
	out  *termenv.Output
	live bool
	now  func() time.Time

	mu       sync.Mutex
	order    []string
	vertices map[string]*vertexState
	frame    int
	drawn    int
	closed   bool
}

// NewBoard returns a board writing to out. Without live, only permanent
// lines are printed.
func NewBoard(out *termenv.Output, live bool) *Board {
	return &Board{
		out:      out,
		live:     live,
		now:      time.Now,
		vertices: make(map[string]*vertexState),
	}
}

// WriteStatus merges an update from the recorder.
func (b *Board) WriteStatus(update *progrock.StatusUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}

	b.clearLocked()
	for _, v := range update.Vertexes {
		b.mergeLocked(v)
	}
	for _, l := range update.Logs {
		if st, ok := b.vertices[l.Vertex]; ok && !st.done {
			st.out.Write(l.Data)
		}
	}
	for _, v := range update.Vertexes {
		if st := b.vertices[v.Id]; st != nil && st.done && v.Completed != nil {
			b.printDoneLocked(st)
		}
	}
	b.drawLocked()
	return nil
}

// Plan prints the requested targets above the live region.
func (b *Board) Plan(targets []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.clearLocked()
	_, _ = fmt.Fprintf(b.out, "%s %s\n",
		b.out.String("building").Foreground(b.out.Color(style.Hex(style.Iris))).Bold().String(),
		strings.Join(targets, " "))
	b.drawLocked()
}

// Tick advances the spinner and redraws the live region.
func (b *Board) Tick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || !b.live {
		return
	}
	b.frame++
	b.clearLocked()
	b.drawLocked()
}

// Close removes the live region and reports scripts that never finished.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.clearLocked()
	b.closed = true
	for _, id := range b.order {
		st := b.vertices[id]
		if st.done {
			continue
		}
		_, _ = fmt.Fprintf(b.out, "%s %s interrupted\n",
			b.out.String(style.Skip).Foreground(b.out.Color(style.Hex(style.Yellow))).String(), st.name)
		_, _ = b.out.Write(st.out.Bytes())
	}
	return nil
}

func (b *Board) mergeLocked(v *progrock.Vertex) {
	st, ok := b.vertices[v.Id]
	if !ok {
		st = &vertexState{name: v.Name, started: b.now()}
		b.vertices[v.Id] = st
		b.order = append(b.order, v.Id)
	}
	if v.Started != nil {
		st.started = v.Started.AsTime()
	}
	if v.Completed != nil && !st.done {
		st.completed = v.Completed.AsTime()
		if v.Error != nil {
			st.failed = true
			st.err = *v.Error
		}
	}
}

// printDoneLocked prints the summary and collected output of a finished
// script once.
func (b *Board) printDoneLocked(st *vertexState) {
	if st.done {
		return
	}
	st.done = true
	elapsed := st.completed.Sub(st.started).Round(time.Millisecond)
	if st.failed {
		_, _ = fmt.Fprintf(b.out, "%s %s %v: %s\n",
			b.out.String(style.Cross).Foreground(b.out.Color(style.Hex(style.Red))).String(),
			st.name, elapsed, st.err)
	} else {
		_, _ = fmt.Fprintf(b.out, "%s %s %s\n",
			b.out.String(style.Check).Foreground(b.out.Color(style.Hex(style.Green))).String(),
			st.name, b.out.String(elapsed.String()).Faint().String())
	}
	data := st.out.Bytes()
	_, _ = b.out.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, _ = b.out.WriteString("\n")
	}
	st.out.Reset()
}

func (b *Board) clearLocked() {
	if b.drawn == 0 {
		return
	}
	b.out.ClearLines(b.drawn)
	b.drawn = 0
}

func (b *Board) drawLocked() {
	if !b.live {
		return
	}
	var running []*vertexState
	for _, id := range b.order {
		if st := b.vertices[id]; !st.done {
			running = append(running, st)
		}
	}
	spinner := b.out.String(spinnerFrames[b.frame%len(spinnerFrames)]).
		Foreground(b.out.Color(style.Hex(style.Iris))).String()
	now := b.now()
	for i, st := range running {
		if i == MaxLiveLines {
			_, _ = fmt.Fprintf(b.out, "  ... and %d more\n", len(running)-i)
			b.drawn++
			break
		}
		elapsed := now.Sub(st.started).Truncate(time.Second)
		_, _ = fmt.Fprintf(b.out, "%s %s %s\n", spinner, st.name, b.out.String(elapsed.String()).Faint().String())
		b.drawn++
	}
}
