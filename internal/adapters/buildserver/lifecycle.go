package buildserver

import (
	"sync"
	"time"
)

// Lifecycle shuts the server down after a period without client traffic.
type Lifecycle struct {
	mu           sync.Mutex
	timer        *time.Timer
	startTime    time.Time
	timeout      time.Duration
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycle creates a lifecycle with the given idle timeout. A timeout of
// zero never expires.
func NewLifecycle(timeout time.Duration) *Lifecycle {
	l := &Lifecycle{
		startTime:    time.Now(),
		timeout:      timeout,
		shutdownChan: make(chan struct{}),
	}
	if timeout > 0 {
		l.timer = time.AfterFunc(timeout, l.triggerShutdown)
	}
	return l
}

// ResetTimer restarts the idle timer.
func (l *Lifecycle) ResetTimer() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Reset(l.timeout)
	}
}

// Uptime returns how long the server has been running.
func (l *Lifecycle) Uptime() time.Duration {
	return time.Since(l.startTime)
}

// ShutdownChan is closed once shutdown is triggered.
func (l *Lifecycle) ShutdownChan() <-chan struct{} {
	return l.shutdownChan
}

func (l *Lifecycle) triggerShutdown() {
	l.shutdownOnce.Do(func() {
		close(l.shutdownChan)
	})
}

// Shutdown stops the timer and triggers shutdown. It is idempotent.
func (l *Lifecycle) Shutdown() {
	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.mu.Unlock()
	l.triggerShutdown()
}
