// Package scheduler runs build scripts chunk by chunk on the local machine or on
// build servers.
//
// The scheduler keeps a waiting and an active list of scripts. Each script is
// eligible for a subset of the execution queues; a script eligible for any
// server never runs locally. All state is owned by the goroutine that calls
// Submit and ProcessQueue.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/yabu/internal/engine/reactor"
	"go.trai.ch/zerr"
)

const (
	// pollTimeout bounds one blocking wait in ProcessQueue.
	pollTimeout = 2 * time.Second

	// Shutdown drain timing.
	drainFirstMessage = 2 * time.Second
	drainMessageEvery = 3 * time.Second
	drainLimit        = 10 * time.Second
	drainPoll         = 100 * time.Millisecond
)

// Compatibility decides whether a queue configured with from can run a script
// configured with to.
type Compatibility interface {
	Compatible(from, to string) bool
}

// Config holds the settings of one run.
type Config struct {
	// Root is the working directory of every job.
	Root  string
	Shell string
	// Hostname names the local queue.
	Hostname string
	// MaxJobs is the number of concurrent local jobs.
	MaxJobs int
	// Sequential runs at most one script at a time on all queues.
	Sequential bool
	// DryRun walks the chunks of non-local scripts without executing them.
	DryRun         bool
	Echo           bool
	EchoAfterError bool
	AutoMkdir      bool
	// MaxOutputLines truncates the printed output of each chunk. Zero prints
	// output as it arrives.
	MaxOutputLines int
	// LocalCfg is the configuration of the local queue.
	LocalCfg string
	// Servers are the remote build servers.
	Servers []domain.Host
	// StaticEnv is handed to every job, LocalEnv only to local ones.
	StaticEnv []string
	LocalEnv  []string
	// UID and Token authenticate at build servers.
	UID   int
	Token string
	// PTY runs local jobs on a pseudo terminal.
	PTY bool
}

// Scheduler owns the script queues and the execution queues.
type Scheduler struct {
	cfg     Config
	reactor *reactor.Reactor
	spawner ports.Spawner
	dialer  ports.Dialer
	tracer  ports.Tracer
	logger  ports.Logger
	compat  Compatibility
	notify  Notifier

	waiting []*Script
	active  []*Script
	jobs    []*job
	servers []*Server

	lastID      uint32
	idle        bool
	halted      bool
	noQueueCfgs map[string]bool
}

// NewScheduler creates a scheduler. Servers are connected lazily when the first
// script eligible for them is submitted.
func NewScheduler(
	cfg Config,
	spawner ports.Spawner,
	dialer ports.Dialer,
	tracer ports.Tracer,
	logger ports.Logger,
	compat Compatibility,
) *Scheduler {
	if cfg.MaxJobs < 1 {
		cfg.MaxJobs = 1
	}
	if cfg.Shell == "" {
		cfg.Shell = domain.DefaultShell
	}
	s := &Scheduler{
		cfg:         cfg,
		reactor:     reactor.New(),
		spawner:     spawner,
		dialer:      dialer,
		tracer:      tracer,
		logger:      logger,
		compat:      compat,
		notify:      func(Notification) {},
		noQueueCfgs: map[string]bool{},
	}
	for _, h := range cfg.Servers {
		if len(s.servers) == MaxQueues-1 {
			logger.Warn(fmt.Sprintf("too many build servers, ignoring %s", h.Name))
			continue
		}
		s.servers = append(s.servers, newServer(s, len(s.servers)+1, h))
	}
	return s
}

// SetNotifier installs the receiver of script notifications.
func (s *Scheduler) SetNotifier(n Notifier) {
	if n == nil {
		n = func(Notification) {}
	}
	s.notify = n
}

// Servers returns the configured build servers.
func (s *Scheduler) Servers() []*Server { return s.servers }

// Submit queues a script. It returns false, after sending EventCancelled, if no
// queue accepts the script's configuration.
func (s *Scheduler) Submit(sc *Script) bool {
	s.lastID++
	sc.ID = s.lastID
	sc.chunks = NewChunker(sc.Text)
	sc.dryRun = s.cfg.DryRun && !sc.Local
	s.waiting = append(s.waiting, sc)

	if sc.Local {
		sc.mask = LocalMask
		s.idle = false
		return true
	}
	if !s.selectQueues(sc) {
		if sc.Target != nil && !s.noQueueCfgs[sc.Cfg] {
			s.noQueueCfgs[sc.Cfg] = true
			s.logger.Warn(fmt.Sprintf("%s: no queue for configuration %q", sc.Target.Name, sc.Cfg))
		}
		s.finish(sc, EventCancelled)
		return false
	}
	return true
}

// selectQueues computes the script's queue mask. Servers come first; a script
// that no server accepts makes the local queue busy right away.
func (s *Scheduler) selectQueues(sc *Script) bool {
	ok := false
	for _, srv := range s.servers {
		if srv.state != StateDead && s.compat.Compatible(srv.cfg, sc.Cfg) {
			srv.idle = false
			srv.wanted = true
			sc.mask = sc.mask.Set(srv.qid)
			ok = true
		}
	}
	if s.compat.Compatible(s.cfg.LocalCfg, sc.Cfg) {
		sc.mask = sc.mask.Set(0)
		if !ok {
			ok = true
			s.idle = false
		}
	}
	return ok
}

// find returns the first waiting script for queue qid. The local queue only
// takes scripts no server can run.
func (s *Scheduler) find(qid int) *Script {
	if s.cfg.Sequential && len(s.active) > 0 {
		return nil
	}
	for _, sc := range s.waiting {
		if (qid == 0 && sc.mask == LocalMask) || (qid > 0 && sc.mask.Has(qid)) {
			return sc
		}
	}
	return nil
}

// activate moves sc to the active list.
func (s *Scheduler) activate(ctx context.Context, sc *Script, host string) {
	s.waiting = remove(s.waiting, sc)
	s.active = append(s.active, sc)
	sc.active = true
	sc.host = host
	sc.ctx, sc.span = s.tracer.Start(ctx, sc.Name(), ports.WithHost(host))
	sc.span.SetAttribute("yabu.script.kind", string(sc.Kind))
	s.dispatch(sc, Notification{Script: sc, Event: EventStarted, Host: host})
}

// nextStep flushes the output of the previous chunk and advances to the next
// one. It returns false, after the final notification, when the script is done.
func (s *Scheduler) nextStep(sc *Script, prevOK bool) bool {
	if !sc.Collect {
		s.flush(sc)
	}
	if !prevOK && !s.cfg.Echo && s.cfg.EchoAfterError && sc.chunk != "" {
		s.echo(sc, sc.chunk)
	}

	for prevOK {
		chunk, ok, err := sc.chunks.Next()
		if err != nil {
			s.logger.Error(zerr.With(err, "target", sc.Name()))
			prevOK = false
			break
		}
		if !ok {
			sc.chunk = ""
			break
		}
		sc.chunk = chunk
		if s.cfg.Echo {
			s.echo(sc, chunk)
		}
		if !sc.dryRun {
			return true
		}
	}

	if prevOK {
		s.finish(sc, EventOK)
	} else {
		s.finish(sc, EventFailed)
	}
	return false
}

// finish sends the final notification and drops sc from the lists.
func (s *Scheduler) finish(sc *Script, ev Event) {
	if sc.finished {
		return
	}
	sc.finished = true
	s.waiting = remove(s.waiting, sc)
	s.active = remove(s.active, sc)

	n := Notification{Script: sc, Event: ev, Host: sc.host}
	if sc.Collect {
		n.Output = slices.Clone(sc.out.Bytes())
	} else {
		s.flush(sc)
	}
	if sc.span != nil {
		if ev == EventFailed {
			sc.span.RecordError(zerr.With(domain.ErrScriptFailed, "target", sc.Name()))
		}
		sc.span.End()
	}
	s.dispatch(sc, n)
}

func (s *Scheduler) dispatch(sc *Script, n Notification) {
	if sc.onDone != nil {
		sc.onDone(n)
		return
	}
	s.notify(n)
}

// cancel aborts sc: running scripts fail, waiting ones are cancelled.
func (s *Scheduler) cancel(sc *Script) {
	if sc.active {
		s.finish(sc, EventFailed)
	} else {
		s.finish(sc, EventCancelled)
	}
}

// output receives bytes produced by the current chunk of sc.
func (s *Scheduler) output(sc *Script, data []byte) {
	if !sc.Collect && s.cfg.MaxOutputLines == 0 && sc.span != nil {
		_, _ = sc.span.Write(data)
		return
	}
	sc.out.Write(data)
}

func (s *Scheduler) flush(sc *Script) {
	if sc.out.Len() == 0 || sc.Collect {
		return
	}
	if sc.span != nil {
		_, _ = sc.span.Write(TruncateOutput(sc.out.Bytes(), s.cfg.MaxOutputLines))
	}
	sc.out.Reset()
}

func (s *Scheduler) echo(sc *Script, chunk string) {
	if sc.span == nil {
		return
	}
	text := chunk
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, _ = sc.span.Write([]byte(text))
}

// env builds the job environment. Later entries override earlier ones.
func (s *Scheduler) env(sc *Script, local bool) []string {
	lists := [][]string{s.cfg.StaticEnv, sc.Env}
	if local {
		lists = append(lists, s.cfg.LocalEnv)
	}
	index := map[string]int{}
	var out []string
	for _, l := range lists {
		for _, kv := range l {
			name, _, _ := strings.Cut(kv, "=")
			if i, ok := index[name]; ok {
				out[i] = kv
				continue
			}
			index[name] = len(out)
			out = append(out, kv)
		}
	}
	return out
}

// clearQueue removes a dead server from every waiting script. Scripts left
// without a queue are cancelled; scripts left with only the local queue become
// runnable locally.
func (s *Scheduler) clearQueue(qid int) {
	for _, sc := range slices.Clone(s.waiting) {
		sc.mask = sc.mask.Clear(qid)
		switch {
		case sc.mask.Empty():
			s.finish(sc, EventCancelled)
		case sc.mask == LocalMask:
			s.idle = false
		}
	}
}

// startServers sweeps all servers, starting at most one job per server and
// sweep, until a whole sweep starts nothing.
func (s *Scheduler) startServers(ctx context.Context) {
	for {
		idle := true
		for _, srv := range s.servers {
			srv.startJob(ctx)
			idle = idle && srv.idle
		}
		if idle {
			return
		}
	}
}

// ProcessQueue starts runnable scripts and dispatches pending I/O. With wait set
// it blocks until every script finished; otherwise it makes one non-blocking pass.
func (s *Scheduler) ProcessQueue(ctx context.Context, wait bool) error {
	return s.process(ctx, wait, s.Empty)
}

func (s *Scheduler) process(ctx context.Context, wait bool, done func() bool) error {
	for {
		if s.halted {
			wait = false
		} else {
			if !s.idle {
				s.startLocal(ctx)
			}
			s.startServers(ctx)
		}

		timeout := time.Duration(0)
		if wait {
			timeout = pollTimeout
		}
		if _, err := s.reactor.Poll(ctx, timeout); err != nil {
			return err
		}
		if !wait || done() {
			return nil
		}
	}
}

// RunLocal runs text on the local machine and blocks until it finished. Other
// scripts keep making progress meanwhile. The output is returned in any case.
func (s *Scheduler) RunLocal(ctx context.Context, title, text string, env []string) ([]byte, error) {
	if s.halted {
		return nil, zerr.With(zerr.Wrap(domain.ErrScriptFailed, "build is stopping"), "script", title)
	}
	var (
		done   bool
		result Notification
	)
	sc := &Script{Kind: KindLocal, Text: text, Env: env, Local: true, Collect: true}
	sc.onDone = func(n Notification) {
		if n.Event != EventStarted {
			done = true
			result = n
		}
	}
	s.Submit(sc)
	for !done {
		if err := s.process(ctx, true, func() bool { return done }); err != nil {
			return nil, err
		}
		if s.halted && !done {
			s.cancel(sc)
		}
	}
	if result.Event != EventOK {
		return result.Output, zerr.With(domain.ErrScriptFailed, "script", title)
	}
	return result.Output, nil
}

// Empty reports whether no script is waiting or running.
func (s *Scheduler) Empty() bool { return len(s.waiting) == 0 && len(s.active) == 0 }

// Active returns the number of running scripts.
func (s *Scheduler) Active() int { return len(s.active) }

// Waiting returns the number of queued scripts.
func (s *Scheduler) Waiting() int { return len(s.waiting) }

// Halt stops starting new scripts. Running ones continue until Shutdown.
func (s *Scheduler) Halt() { s.halted = true }

// Halted reports whether Halt was called.
func (s *Scheduler) Halted() bool { return s.halted }

// CancelWaiting cancels every script that has not started.
func (s *Scheduler) CancelWaiting() {
	for _, sc := range slices.Clone(s.waiting) {
		s.finish(sc, EventCancelled)
	}
}

// Shutdown cancels waiting scripts and gives running ones about ten seconds to
// finish before local jobs are killed and server connections closed.
func (s *Scheduler) Shutdown(ctx context.Context) {
	for _, srv := range s.servers {
		if srv.state == StateConnecting {
			srv.shutdown(nil)
		}
	}
	s.CancelWaiting()

	msgAt := time.Now().Add(drainFirstMessage)
	deadline := msgAt.Add(drainLimit - drainFirstMessage)
	for len(s.active) > 0 {
		now := time.Now()
		if !now.Before(deadline) {
			break
		}
		if !now.Before(msgAt) {
			s.logger.Info(fmt.Sprintf("waiting for %d running jobs", len(s.active)))
			msgAt = now.Add(drainMessageEvery)
		}
		if _, err := s.reactor.Poll(ctx, drainPoll); err != nil {
			break
		}
	}

	for _, srv := range s.servers {
		srv.shutdown(nil)
	}
	s.killAll()
	s.reactor.Close()
}

// mkdirPath is the path sent with M records.
func (s *Scheduler) mkdirPath(t *domain.Target) string {
	return filepath.Join(s.cfg.Root, t.Name)
}

func remove[T comparable](list []T, v T) []T {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}
