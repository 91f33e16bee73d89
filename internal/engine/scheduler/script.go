package scheduler

import (
	"bytes"
	"context"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
)

// MaxQueues is the number of execution queues: the local one plus up to 63 servers.
const MaxQueues = 64

// Mask is a set of execution queues. Bit 0 is the local queue, bit n the n-th server.
type Mask uint64

// LocalMask selects only the local queue.
const LocalMask Mask = 1

// Set adds queue q.
func (m Mask) Set(q int) Mask { return m | 1<<uint(q) }

// Clear removes queue q.
func (m Mask) Clear(q int) Mask { return m &^ (1 << uint(q)) }

// Has reports whether queue q is in the set.
func (m Mask) Has(q int) bool { return m&(1<<uint(q)) != 0 }

// Empty reports whether no queue is left.
func (m Mask) Empty() bool { return m == 0 }

// Kind tags what a script is for.
type Kind byte

const (
	// KindBuild is a target's build script.
	KindBuild Kind = 'b'
	// KindAutoDepend is a target's auto-depend script.
	KindAutoDepend Kind = 'a'
	// KindLocal is an internal script run with RunLocal.
	KindLocal Kind = 'l'
)

// Event is a script lifecycle notification.
type Event int

const (
	// EventStarted is sent when a script leaves the waiting list.
	EventStarted Event = iota
	// EventOK is sent when every chunk succeeded.
	EventOK
	// EventFailed is sent when a chunk failed or a running script was aborted.
	EventFailed
	// EventCancelled is sent when a script is dropped before it started.
	EventCancelled
)

func (e Event) String() string {
	switch e {
	case EventStarted:
		return "STARTED"
	case EventOK:
		return "SUCCESS"
	case EventFailed:
		return "FAILED"
	case EventCancelled:
		return "CANCELLED"
	}
	return "???"
}

// Notification reports an event of a script to its owner.
type Notification struct {
	Script *Script
	Event  Event
	// Host is the queue the script ran on.
	Host string
	// Output is the collected output of a finished Collect script.
	Output []byte
}

// Notifier receives script notifications on the polling goroutine.
type Notifier func(Notification)

// Script is a unit of work: a script body split into chunks, the queues it may
// run on, and its buffered output. A script is waiting, active or finished.
type Script struct {
	ID     uint32
	Kind   Kind
	Target *domain.Target
	// Cfg selects the queues the script may run on.
	Cfg  string
	Text string
	// Env holds per-script variables, NAME=VALUE.
	Env []string
	// Collect keeps the output for the final notification instead of printing it.
	Collect bool
	// Local forces local execution. Local scripts also run in dry-run mode.
	Local bool

	onDone Notifier

	mask     Mask
	chunks   *Chunker
	chunk    string
	host     string
	out      bytes.Buffer
	dryRun   bool
	active   bool
	finished bool

	ctx  context.Context
	span ports.Span
}

// Name is the target name, or "(local)" for internal scripts.
func (s *Script) Name() string {
	if s.Target != nil {
		return s.Target.Name
	}
	return "(local)"
}

// Host returns the queue the script was started on.
func (s *Script) Host() string { return s.host }

// Mask returns the queues the script is eligible for.
func (s *Script) Mask() Mask { return s.mask }

// Finished reports whether the final notification was sent.
func (s *Script) Finished() bool { return s.finished }
