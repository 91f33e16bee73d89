// Package app implements the application layer for yabu.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/yabu/internal/adapters/auth"
	"go.trai.ch/yabu/internal/adapters/buildserver"
	"go.trai.ch/yabu/internal/adapters/config"
	"go.trai.ch/yabu/internal/adapters/detector"
	"go.trai.ch/yabu/internal/adapters/fs"
	"go.trai.ch/yabu/internal/adapters/linear"
	"go.trai.ch/yabu/internal/adapters/progress"
	"go.trai.ch/yabu/internal/adapters/telemetry"
	"go.trai.ch/yabu/internal/adapters/watcher"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/yabu/internal/engine/resolver"
	"go.trai.ch/yabu/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	parser       ports.BuildfileParser
	logger       ports.Logger
	store        ports.StateStore
	spawner      ports.Spawner
	dialer       ports.Dialer
	archives     ports.ArchiveIndex
	watchers     watcher.Factory

	stdout   io.Writer
	stderr   io.Writer
	sysinfo  func() SysInfo
	debounce time.Duration
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	parser ports.BuildfileParser,
	log ports.Logger,
	store ports.StateStore,
	spawner ports.Spawner,
	dialer ports.Dialer,
	archives ports.ArchiveIndex,
	watchers watcher.Factory,
) *App {
	return &App{
		configLoader: loader,
		parser:       parser,
		logger:       log,
		store:        store,
		spawner:      spawner,
		dialer:       dialer,
		archives:     archives,
		watchers:     watchers,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		sysinfo:      CurrentSysInfo,
		debounce:     watcher.DefaultDebounceWindow,
	}
}

// WithOutput redirects script output and progress.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithSysInfo replaces the inspection of the local machine.
func (a *App) WithSysInfo(si SysInfo) *App {
	a.sysinfo = func() SysInfo { return si }
	return a
}

// WithDebounce sets the quiet period of watch mode.
func (a *App) WithDebounce(d time.Duration) *App {
	a.debounce = d
	return a
}

// BuildOptions holds the command line settings of a build. They take
// precedence over the settings files and the Buildfile's !settings block.
type BuildOptions struct {
	// Dir is the working directory. It defaults to the process's.
	Dir string
	// File names the Buildfile, relative to Dir.
	File   string
	CfgDir string
	// Config is applied after the configured base options.
	Config     string
	Timestamps string
	// DryRun is the number of -n flags.
	DryRun     int
	NoServer   bool
	Sequential bool
	NoState    bool
	Mkdir      bool
	Echo       bool
	OutputMode string
}

// project is the loaded input of one build.
type project struct {
	settings *domain.Settings
	graph    *resolver.Graph
	sys      SysInfo
	localCfg string
}

// Build brings targets up to date, or "all" if there are none. The error wraps
// domain.ErrBuildFailed if any target failed.
func (a *App) Build(ctx context.Context, targets []string, opts BuildOptions) error {
	mode, err := detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode)
	if err != nil {
		return err
	}

	p, err := a.load(opts)
	if err != nil {
		return err
	}

	var renderer ports.Renderer
	if mode == detector.ModeProgress {
		renderer = progress.NewRenderer(a.stderr)
	} else {
		renderer = linear.NewRenderer(a.stdout, a.stderr)
	}

	bridge := telemetry.NewBridge(renderer)
	tp := setupOTel(bridge)
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()
	tracer := telemetry.NewOTelTracerFrom(tp, "yabu").WithRenderer(renderer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = zerr.With(domain.ErrInternal, "panic", fmt.Sprint(r))
			}
			_ = renderer.Stop()
		}()
		return a.run(ctx, p, tracer, targets, opts)
	})

	return g.Wait()
}

// load reads the settings and the Buildfile and applies the command line.
func (a *App) load(opts BuildOptions) (*project, error) {
	cwd := opts.Dir
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return nil, zerr.Wrap(err, "failed to get working directory")
		}
	}

	s, err := a.configLoader.Load(cwd, opts.CfgDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load settings")
	}

	path := filepath.Join(s.Root, s.Buildfile)
	if opts.File != "" {
		path = opts.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(cwd, path)
		}
	}
	bf, err := a.parser.Parse(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyOverrides(s, bf.Settings); err != nil {
		return nil, zerr.With(err, "file", path)
	}
	if err := applyOptions(s, opts); err != nil {
		return nil, err
	}

	sys := a.sysinfo()
	localCfg := "+" + domain.LocalOption
	if h, ok := s.LocalHost(sys.Hostname); ok {
		localCfg = h.Cfg + " " + localCfg
	}
	if !s.UseServer {
		s.MaxJobs = 1
	}

	graph, err := resolver.NewGraph(bf, sys.Vars(localCfg))
	if err != nil {
		return nil, err
	}
	return &project{settings: s, graph: graph, sys: sys, localCfg: localCfg}, nil
}

func applyOptions(s *domain.Settings, opts BuildOptions) error {
	if opts.Timestamps != "" {
		algo, err := domain.ParseTsAlgo(opts.Timestamps)
		if err != nil {
			return err
		}
		s.Timestamps = algo
	}
	if opts.NoServer {
		s.UseServer = false
	}
	if opts.Sequential {
		s.ParallelBuild = false
	}
	if opts.NoState {
		s.UseStateFile = false
	}
	if opts.Mkdir {
		s.AutoMkdir = true
	}
	if opts.Echo || opts.DryRun > 0 {
		s.Echo = true
	}
	return nil
}

// run drives the resolver and the scheduler until every requested target is
// settled.
func (a *App) run(ctx context.Context, p *project, tracer *telemetry.OTelTracer, targets []string, opts BuildOptions) error {
	s := p.settings

	cfg := scheduler.Config{
		Root:           s.Root,
		Shell:          s.Shell,
		Hostname:       p.sys.Hostname,
		MaxJobs:        s.MaxJobs,
		Sequential:     !s.ParallelBuild,
		DryRun:         opts.DryRun > 0,
		Echo:           s.Echo,
		EchoAfterError: s.EchoAfterError,
		AutoMkdir:      s.AutoMkdir,
		MaxOutputLines: s.MaxOutputLines,
		LocalCfg:       p.localCfg,
		StaticEnv:      clientEnv(p.sys.Hostname, s.CfgDir),
		LocalEnv:       p.sys.LocalEnv(),
		UID:            os.Getuid(),
		PTY:            detector.CurrentEnvironment().IsTTY,
	}
	if s.UseServer {
		if servers := s.RemoteHosts(p.sys.Hostname); len(servers) > 0 {
			if token, err := a.token(s.CfgDir); err != nil {
				a.logger.Warn(fmt.Sprintf("not using build servers: %v", err))
			} else {
				cfg.Servers = servers
				cfg.Token = token
			}
		}
	}

	sched := scheduler.NewScheduler(cfg, a.spawner, a.dialer, tracer, a.logger, p.graph.Scope)
	rep := resolver.NewReporter(a.logger, s.MaxWarnings)
	rep.OnLimit(sched.Halt)

	stateFile := s.StateFile
	if !filepath.IsAbs(stateFile) {
		stateFile = filepath.Join(s.Root, stateFile)
	}
	r := resolver.New(resolver.Config{
		Algo:         s.Timestamps,
		UseStateFile: s.UseStateFile,
		StateFile:    stateFile,
		AutoDepend:   s.AutoDependencies,
		AutoMkdir:    s.AutoMkdir,
		DryRun:       opts.DryRun,
	}, p.graph, sched, fs.New(s.Root, a.archives), a.store, rep)

	if err := r.LoadState(); err != nil {
		return err
	}
	if err := r.Configure(ctx, s.Configuration, opts.Config); err != nil {
		return err
	}

	if len(targets) == 0 {
		targets = []string{resolver.TargetAll}
	}
	tracer.EmitPlan(ctx, targets)

	err := r.Run(ctx, targets)
	st := r.Stats()
	if st.Built > 0 || st.Failed > 0 || st.Cancelled > 0 {
		a.logger.Info(fmt.Sprintf("%d built, %d up to date, %d failed, %d cancelled",
			st.Built, st.UpToDate, st.Failed, st.Cancelled))
	}
	return err
}

// Watch builds targets and rebuilds them whenever a file below the project
// root changes, until ctx is cancelled. Failed builds do not end the loop.
func (a *App) Watch(ctx context.Context, targets []string, opts BuildOptions) error {
	if err := a.Build(ctx, targets, opts); err != nil && !errors.Is(err, domain.ErrBuildFailed) {
		return err
	}

	cwd := opts.Dir
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return zerr.Wrap(err, "failed to get working directory")
		}
	}
	root := a.configLoader.DiscoverRoot(cwd)

	w, err := a.watchers()
	if err != nil {
		return err
	}
	if err := w.Start(ctx, root); err != nil {
		_ = w.Stop()
		return err
	}
	defer func() {
		_ = w.Stop()
	}()

	changed := make(chan []string, 1)
	deb := watcher.NewDebouncer(a.debounce, func(paths []string) {
		select {
		case changed <- paths:
		default:
		}
	})
	go func() {
		for ev := range w.Events() {
			deb.Add(ev.Path)
		}
	}()

	a.logger.Info(fmt.Sprintf("watching %s", root))
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changed:
			a.logger.Info(fmt.Sprintf("%d files changed, rebuilding", len(paths)))
			if err := a.Build(ctx, targets, opts); err != nil && !errors.Is(err, domain.ErrBuildFailed) {
				return err
			}
		}
	}
}

// ServeOptions configures the build server.
type ServeOptions struct {
	Dir    string
	CfgDir string
	// Listen overrides the address of the local host entry.
	Listen      string
	IdleTimeout time.Duration
}

// Serve runs the build server until ctx is cancelled or it has been idle for
// IdleTimeout.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	cwd := opts.Dir
	if cwd == "" {
		var err error
		if cwd, err = os.Getwd(); err != nil {
			return zerr.Wrap(err, "failed to get working directory")
		}
	}
	s, err := a.configLoader.Load(cwd, opts.CfgDir)
	if err != nil {
		return zerr.Wrap(err, "failed to load settings")
	}

	sys := a.sysinfo()
	h, ok := s.LocalHost(sys.Hostname)
	if !ok && opts.Listen == "" {
		return zerr.With(domain.ErrServerNotConfigured, "host", sys.Hostname)
	}
	addr := opts.Listen
	if addr == "" {
		port := h.Port
		if port == 0 {
			port = domain.DefaultPort
		}
		addr = fmt.Sprintf(":%d", port)
	}
	maxActive := h.Max
	if maxActive <= 0 {
		maxActive = s.MaxJobs
	}

	srv := buildserver.NewServer(buildserver.Config{
		Addr:        addr,
		MaxActive:   maxActive,
		Shell:       s.Shell,
		StaticEnv:   sys.ServerEnv(),
		IdleTimeout: opts.IdleTimeout,
		Nice:        buildserver.DefaultNice,
	}, auth.NewStore(s.CfgDir, a.logger), a.spawner, a.logger)

	ln, err := srv.Listen(ctx)
	if err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("build server listening on %s", ln.Addr()))
	return srv.Serve(ctx, ln)
}

// Token creates or refreshes the current user's auth token and returns the
// path of the token file.
func (a *App) Token(cfgDir string) (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", zerr.Wrap(err, "failed to look up current user")
	}
	store := auth.NewStore(config.CfgDir(cfgDir), a.logger)
	if _, err := store.Token(u.Username); err != nil {
		return "", err
	}
	return store.Path(u.Username), nil
}

func (a *App) token(cfgDir string) (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", zerr.Wrap(err, "failed to look up current user")
	}
	return auth.NewStore(cfgDir, a.logger).Token(u.Username)
}

// setupOTel creates a provider reporting every span to the renderer bridge and
// registers it globally.
func setupOTel(bridge *telemetry.Bridge) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bridge),
	)
	otel.SetTracerProvider(tp)
	return tp
}
