package resolver

import (
	"context"
	"fmt"
	"time"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/yabu/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// Runner executes scripts. It is implemented by *scheduler.Scheduler.
type Runner interface {
	SetNotifier(n scheduler.Notifier)
	Submit(sc *scheduler.Script) bool
	ProcessQueue(ctx context.Context, wait bool) error
	RunLocal(ctx context.Context, title, text string, env []string) ([]byte, error)
	Halt()
	Halted() bool
	Empty() bool
	Shutdown(ctx context.Context)
}

// Config holds the resolver settings of one run.
type Config struct {
	// Algo is the configured signature algorithm. TsDefault adopts the one
	// recorded in the state file.
	Algo         domain.TsAlgo
	UseStateFile bool
	StateFile    string
	AutoDepend   bool
	AutoMkdir    bool
	// DryRun is the number of -n flags. Two or more rebuild every rule target.
	DryRun int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Stats counts the outcome of a run.
type Stats struct {
	Built     int
	UpToDate  int
	Failed    int
	Cancelled int
}

// Resolver selects targets, decides what to build and reacts to finished
// scripts. It is driven from a single goroutine.
type Resolver struct {
	cfg   Config
	g     *Graph
	run   Runner
	fs    ports.FileSystem
	store ports.StateStore
	rep   *Reporter

	algo       domain.TsAlgo
	depth      int
	stats      Stats
	cleanState bool
}

// New creates a resolver and subscribes it to the runner's notifications.
func New(cfg Config, g *Graph, run Runner, fs ports.FileSystem, store ports.StateStore, rep *Reporter) *Resolver {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	r := &Resolver{
		cfg:   cfg,
		g:     g,
		run:   run,
		fs:    fs,
		store: store,
		rep:   rep,
		algo:  cfg.Algo.Effective(),
	}
	run.SetNotifier(r.OnJob)
	return r
}

// Graph returns the graph the resolver works on.
func (r *Resolver) Graph() *Graph { return r.g }

// Algo returns the effective signature algorithm.
func (r *Resolver) Algo() domain.TsAlgo { return r.algo }

// Stats returns the counters of the run so far.
func (r *Resolver) Stats() Stats { return r.stats }

// Select selects name and, recursively, its sources. Targets whose sources are
// complete are submitted right away.
func (r *Resolver) Select(ctx context.Context, name string) *domain.Target {
	t := r.g.Target(name)
	r.selectTarget(ctx, t, nil)
	return t
}

// Run builds the named targets, or "all" if there are none. It waits for every
// script, cancels whatever could not be built and saves the state file. The
// error wraps ErrBuildFailed if anything failed.
func (r *Resolver) Run(ctx context.Context, names []string) error {
	if len(names) == 0 {
		names = []string{TargetAll}
	}
	requested := make([]*domain.Target, 0, len(names))
	for _, name := range names {
		requested = append(requested, r.Select(ctx, name))
	}

	for !r.run.Halted() && !r.run.Empty() {
		if err := r.run.ProcessQueue(ctx, true); err != nil {
			r.rep.Warn(fmt.Sprintf("build interrupted: %v", err))
			r.run.Halt()
		}
	}
	r.run.Shutdown(context.WithoutCancel(ctx))
	r.CancelAll()

	if err := r.SaveState(); err != nil {
		r.rep.Error(err)
	}

	if r.stats.Built == 0 {
		for _, t := range requested {
			if t.Status == domain.StatusBuilt {
				r.rep.Info(fmt.Sprintf("%s is up to date", t.Name))
			}
		}
	}

	if n := r.stats.Failed + r.stats.Cancelled + r.rep.Errors(); n > 0 {
		return zerr.Wrap(domain.ErrBuildFailed, fmt.Sprintf("%d failed, %d cancelled", r.stats.Failed, r.stats.Cancelled))
	}
	return nil
}

// CancelAll cancels every target that is still selected.
func (r *Resolver) CancelAll() {
	for _, t := range r.g.Targets() {
		if t.Selected() {
			r.cancel(t)
		}
	}
}

func (r *Resolver) now() time.Time { return r.cfg.Now() }

// fileTime refreshes the signature of t from the file system.
func (r *Resolver) fileTime(t *domain.Target) domain.Ftime {
	if t.Alias {
		return t.Time
	}
	t.Time, t.RegularFile = r.fs.FileTime(t.Name, r.algo)
	return t.Time
}
