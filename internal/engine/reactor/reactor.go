// Package reactor multiplexes the I/O of local job pipes and build server
// connections onto the single goroutine that owns the dependency graph.
//
// Every registered entry gets a reader goroutine that posts what it reads as an
// event. Handlers run only inside Poll, on the caller's goroutine, so they may
// touch graph and scheduler state without locking.
package reactor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

const readSize = 32 * 1024

// Event is one readiness notification for an entry.
type Event struct {
	// Data holds bytes read from the entry. It is owned by the handler.
	Data []byte
	// EOF is set once the reader reached the end of the stream.
	EOF bool
	// Err is a read or write error other than io.EOF.
	Err error
}

// Handler processes an event. Returning true removes the entry.
type Handler func(ev Event) (remove bool)

// Entry is a registered descriptor.
type Entry struct {
	r       *Reactor
	rw      io.ReadWriteCloser
	handler Handler

	removed bool

	wmu     sync.Mutex
	pending [][]byte
	wake    chan struct{}
	closed  bool
}

type event struct {
	entry *Entry
	ev    Event
	fn    func()
}

// Reactor is the event loop. The zero value is not usable; call New.
type Reactor struct {
	mu     sync.Mutex
	queue  []event
	notify chan struct{}

	// entries and purge are only touched by the polling goroutine.
	entries []*Entry
	purge   bool
}

// New creates an empty reactor.
func New() *Reactor {
	return &Reactor{notify: make(chan struct{}, 1)}
}

// Register adds a stream and starts reading from it. If rw is only an
// io.ReadCloser, Write on the entry fails.
func (r *Reactor) Register(rw io.ReadCloser, handler Handler) *Entry {
	e := &Entry{r: r, handler: handler, wake: make(chan struct{}, 1)}
	if w, ok := rw.(io.ReadWriteCloser); ok {
		e.rw = w
		go e.writeLoop()
	} else {
		e.rw = readOnly{rw}
	}
	r.entries = append(r.entries, e)
	go e.readLoop()
	return e
}

// Post queues fn to run on the polling goroutine.
func (r *Reactor) Post(fn func()) {
	r.push(event{fn: fn})
}

func (r *Reactor) push(ev event) {
	r.mu.Lock()
	r.queue = append(r.queue, ev)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of live entries.
func (r *Reactor) Len() int {
	n := 0
	for _, e := range r.entries {
		if !e.removed {
			n++
		}
	}
	return n
}

// Pending reports whether events are queued.
func (r *Reactor) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue) > 0
}

// Poll waits up to timeout for the first event and dispatches it together with
// every event queued at that moment. A zero timeout never blocks, a negative one
// waits until an event arrives or ctx is done. It returns the number of events
// dispatched.
//
// Events arriving while handlers run, including those of entries registered by a
// handler, are left for the next pass. Events of removed entries are dropped.
func (r *Reactor) Poll(ctx context.Context, timeout time.Duration) (int, error) {
	r.compact()

	batch := r.take()
	if len(batch) == 0 && timeout != 0 {
		var timer <-chan time.Time
		if timeout > 0 {
			t := time.NewTimer(timeout)
			defer t.Stop()
			timer = t.C
		}
	wait:
		for len(batch) == 0 {
			select {
			case <-r.notify:
				batch = r.take()
			case <-timer:
				break wait
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}

	n := 0
	for _, ev := range batch {
		if ev.fn != nil {
			ev.fn()
			n++
			continue
		}
		if ev.entry.removed {
			continue
		}
		n++
		if ev.entry.handler(ev.ev) {
			ev.entry.Remove()
		}
	}
	return n, nil
}

func (r *Reactor) take() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := r.queue
	r.queue = nil
	return batch
}

// compact drops removed entries from the table.
func (r *Reactor) compact() {
	if !r.purge {
		return
	}
	live := r.entries[:0]
	for _, e := range r.entries {
		if !e.removed {
			live = append(live, e)
		}
	}
	clear(r.entries[len(live):])
	r.entries = live
	r.purge = false
}

// Close removes every entry.
func (r *Reactor) Close() {
	for _, e := range r.entries {
		e.Remove()
	}
	r.compact()
}

// Write queues p for sending. It never blocks. Write errors are reported to the
// handler as an event.
func (e *Entry) Write(p []byte) error {
	if _, ok := e.rw.(readOnly); ok {
		return errReadOnly
	}
	e.wmu.Lock()
	if e.closed {
		e.wmu.Unlock()
		return io.ErrClosedPipe
	}
	e.pending = append(e.pending, p)
	e.wmu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// Remove marks the entry removed and closes its stream. Pending writes are
// discarded. It must be called on the polling goroutine.
func (e *Entry) Remove() {
	if e.removed {
		return
	}
	e.removed = true
	e.r.purge = true

	e.wmu.Lock()
	e.closed = true
	e.pending = nil
	e.wmu.Unlock()
	close(e.wake)
	_ = e.rw.Close()
}

// Removed reports whether Remove was called.
func (e *Entry) Removed() bool { return e.removed }

func (e *Entry) readLoop() {
	for {
		buf := make([]byte, readSize)
		n, err := e.rw.Read(buf)
		if n > 0 {
			e.r.push(event{entry: e, ev: Event{Data: buf[:n]}})
		}
		if err != nil {
			ev := Event{EOF: true}
			if !errors.Is(err, io.EOF) {
				ev.Err = err
			}
			e.r.push(event{entry: e, ev: ev})
			return
		}
	}
}

func (e *Entry) writeLoop() {
	for range e.wake {
		for {
			e.wmu.Lock()
			chunks := e.pending
			e.pending = nil
			e.wmu.Unlock()
			if len(chunks) == 0 {
				break
			}
			for _, p := range chunks {
				if _, err := e.rw.Write(p); err != nil {
					e.r.push(event{entry: e, ev: Event{Err: err}})
					return
				}
			}
		}
	}
}

var errReadOnly = errors.New("entry is read-only")

type readOnly struct{ io.ReadCloser }

func (readOnly) Write([]byte) (int, error) { return 0, errReadOnly }
