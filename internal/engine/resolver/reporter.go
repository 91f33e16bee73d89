package resolver

import (
	"sync"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

// Reporter is a ports.Logger that counts warnings and errors. Once more than
// maxWarnings warnings were reported, it reports ErrTooManyWarnings and calls
// the limit handler.
type Reporter struct {
	log         ports.Logger
	maxWarnings int

	mu       sync.Mutex
	warnings int
	errors   int
	tripped  bool
	onLimit  func()
}

var _ ports.Logger = (*Reporter)(nil)

// NewReporter wraps log. A maxWarnings of zero means no limit.
func NewReporter(log ports.Logger, maxWarnings int) *Reporter {
	return &Reporter{log: log, maxWarnings: maxWarnings}
}

// OnLimit installs the function called when the warning budget is exceeded.
func (r *Reporter) OnLimit(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onLimit = fn
}

func (r *Reporter) Info(msg string) { r.log.Info(msg) }

func (r *Reporter) Warn(msg string) {
	r.log.Warn(msg)

	r.mu.Lock()
	r.warnings++
	trip := r.maxWarnings > 0 && r.warnings > r.maxWarnings && !r.tripped
	if trip {
		r.tripped = true
	}
	fn := r.onLimit
	r.mu.Unlock()

	if trip {
		r.Error(zerr.With(domain.ErrTooManyWarnings, "limit", r.maxWarnings))
		if fn != nil {
			fn()
		}
	}
}

func (r *Reporter) Error(err error) {
	r.log.Error(err)

	r.mu.Lock()
	r.errors++
	r.mu.Unlock()
}

// Warnings returns the number of warnings reported.
func (r *Reporter) Warnings() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warnings
}

// Errors returns the number of errors reported.
func (r *Reporter) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}
