package resolver_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/engine/resolver"
	"go.trai.ch/yabu/internal/engine/scheduler"
)

type recordLogger struct {
	infos []string
	warns []string
	errs  []error
}

func (l *recordLogger) Info(msg string) { l.infos = append(l.infos, msg) }
func (l *recordLogger) Warn(msg string) { l.warns = append(l.warns, msg) }
func (l *recordLogger) Error(err error) { l.errs = append(l.errs, err) }

func (l *recordLogger) has(sentinel error) bool {
	for _, err := range l.errs {
		if strings.Contains(err.Error(), sentinel.Error()) {
			return true
		}
	}
	return false
}

// fakeFS maps file names to signatures. Names in dirs are directories.
type fakeFS struct {
	files  map[string]domain.Ftime
	dirs   map[string]bool
	reset  []string
	mkdirs []string
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: map[string]domain.Ftime{}, dirs: map[string]bool{}}
}

func (f *fakeFS) FileTime(name string, _ domain.TsAlgo) (domain.Ftime, bool) {
	if f.dirs[name] {
		return domain.TimeInit, false
	}
	tm, ok := f.files[name]
	return tm, ok
}

func (f *fakeFS) SetTimes(name string, _, mtime time.Time) error {
	f.reset = append(f.reset, name)
	if _, ok := f.files[name]; ok {
		f.files[name] = domain.FtimeOf(mtime)
	}
	return nil
}

func (f *fakeFS) MkdirParents(name string) error {
	f.mkdirs = append(f.mkdirs, name)
	return nil
}

type memStore struct {
	state   *domain.State
	saved   int
	removed int
}

func (m *memStore) Load(string) (*domain.State, error) {
	if m.state == nil {
		return &domain.State{}, nil
	}
	return m.state, nil
}

func (m *memStore) Save(_ string, st *domain.State) error {
	m.state = st
	m.saved++
	return nil
}

func (m *memStore) Remove(string) error {
	m.state = nil
	m.removed++
	return nil
}

// fakeRunner completes queued scripts in submission order when ProcessQueue
// is asked to wait.
type fakeRunner struct {
	notify   scheduler.Notifier
	queue    []*scheduler.Script
	scripts  []*scheduler.Script
	maxQueue int
	halted   bool

	// onRun decides the outcome of a script and its collected output.
	onRun func(sc *scheduler.Script) (scheduler.Event, string)
	local func(text string) ([]byte, error)
}

func (f *fakeRunner) SetNotifier(n scheduler.Notifier) { f.notify = n }

func (f *fakeRunner) Submit(sc *scheduler.Script) bool {
	f.queue = append(f.queue, sc)
	f.maxQueue = max(f.maxQueue, len(f.queue))
	return true
}

func (f *fakeRunner) ProcessQueue(_ context.Context, wait bool) error {
	for wait && len(f.queue) > 0 && !f.halted {
		sc := f.queue[0]
		f.queue = f.queue[1:]
		f.scripts = append(f.scripts, sc)
		f.notify(scheduler.Notification{Script: sc, Event: scheduler.EventStarted})
		ev, out := f.onRun(sc)
		f.notify(scheduler.Notification{Script: sc, Event: ev, Output: []byte(out)})
	}
	return nil
}

func (f *fakeRunner) RunLocal(_ context.Context, _, text string, _ []string) ([]byte, error) {
	return f.local(text)
}

func (f *fakeRunner) Halt()        { f.halted = true }
func (f *fakeRunner) Halted() bool { return f.halted }
func (f *fakeRunner) Empty() bool  { return len(f.queue) == 0 }

func (f *fakeRunner) Shutdown(context.Context) {
	queued := f.queue
	f.queue = nil
	for _, sc := range queued {
		f.notify(scheduler.Notification{Script: sc, Event: scheduler.EventCancelled})
	}
}

// ran lists "kind:target" for every executed script.
func (f *fakeRunner) ran() []string {
	out := make([]string, 0, len(f.scripts))
	for _, sc := range f.scripts {
		out = append(out, string(sc.Kind)+":"+sc.Name())
	}
	return out
}

func (f *fakeRunner) reset() { f.scripts = nil }

type harness struct {
	fs    *fakeFS
	run   *fakeRunner
	store *memStore
	log   *recordLogger
	clock uint32
}

// newHarness returns a harness whose build scripts create their target unless
// the script contains "false".
func newHarness() *harness {
	h := &harness{fs: newFakeFS(), store: &memStore{}, log: &recordLogger{}, clock: 1000}
	h.run = &fakeRunner{onRun: h.build}
	return h
}

func (h *harness) tick() domain.Ftime {
	h.clock++
	return domain.Ftime{Sec: h.clock}
}

func (h *harness) touch(names ...string) {
	for _, n := range names {
		h.fs.files[n] = h.tick()
	}
}

func (h *harness) build(sc *scheduler.Script) (scheduler.Event, string) {
	if strings.Contains(sc.Text, "false") {
		return scheduler.EventFailed, ""
	}
	if sc.Kind == scheduler.KindBuild && !sc.Target.Alias {
		h.touch(sc.Target.Name)
	}
	return scheduler.EventOK, ""
}

func (h *harness) config() resolver.Config {
	return resolver.Config{
		UseStateFile: true,
		StateFile:    domain.DefaultStateFile,
		AutoDepend:   true,
		Now:          func() time.Time { return time.Unix(5000, 0) },
	}
}

// newResolver creates a resolver for one run and loads the state.
func (h *harness) newResolver(t *testing.T, bf *domain.Buildfile, cfg resolver.Config) *resolver.Resolver {
	t.Helper()
	h.run.reset()
	h.run.halted = false
	g, err := resolver.NewGraph(bf, map[string]string{"_SYSTEM": "Linux"})
	require.NoError(t, err)
	r := resolver.New(cfg, g, h.run, h.fs, h.store, resolver.NewReporter(h.log, 0))
	require.NoError(t, r.LoadState())
	return r
}

// script builds a section from lines starting at line no.
func script(no int, lines ...string) *domain.Section {
	sec := &domain.Section{}
	for i, l := range lines {
		sec.Lines = append(sec.Lines, domain.Line{No: no + i, Text: "\t" + l})
	}
	return sec
}

func rule(line int, targets, sources string, lines ...string) *domain.Rule {
	r := &domain.Rule{Targets: targets, Sources: sources, Pos: domain.Pos{File: "Buildfile", Line: line}}
	if len(lines) > 0 {
		r.Script = script(line+1, lines...)
	}
	return r
}

// progBuildfile links prog from a.o and b.o, compiled from a.c and b.c.
func progBuildfile() *domain.Buildfile {
	return &domain.Buildfile{
		Path: "Buildfile",
		Rules: []*domain.Rule{
			rule(1, "all", "prog"),
			rule(2, "prog", "a.o b.o", "cc -o $(0) $(*)"),
			rule(4, "%.o", "%.c", "cc -c $(1)"),
		},
	}
}
