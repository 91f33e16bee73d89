package app_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/internal/adapters/archive"
	"go.trai.ch/yabu/internal/adapters/buildfile"
	"go.trai.ch/yabu/internal/adapters/config"
	"go.trai.ch/yabu/internal/adapters/logger"
	"go.trai.ch/yabu/internal/adapters/remote"
	"go.trai.ch/yabu/internal/adapters/state"
	"go.trai.ch/yabu/internal/adapters/watcher"
	"go.trai.ch/yabu/internal/app"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/yabu/internal/core/ports/mocks"
	_ "go.trai.ch/yabu/internal/wiring" // Register providers
	"go.uber.org/mock/gomock"
)

const testHost = "devbox"

func newApp(t *testing.T) (*app.App, *bytes.Buffer) {
	t.Helper()
	components, _, err := graft.ExecuteFor[*app.Components](context.Background())
	require.NoError(t, err)

	var out bytes.Buffer
	a := components.App.
		WithOutput(&out, &out).
		WithSysInfo(app.SysInfo{Hostname: testHost, System: "Linux", Release: "6.1", Machine: "x86_64"})
	return a, &out
}

// assemble builds an App from the real adapters around spawner and watchers.
func assemble(t *testing.T, spawner ports.Spawner, watchers watcher.Factory) *app.App {
	t.Helper()
	log := logger.New()
	archives, err := archive.NewIndex(log, archive.DefaultCacheSize)
	require.NoError(t, err)
	return app.New(
		config.NewLoader(log),
		buildfile.NewParser(),
		log,
		state.NewStore(log),
		spawner,
		remote.NewDialer(),
		archives,
		watchers,
	).
		WithOutput(io.Discard, io.Discard).
		WithSysInfo(app.SysInfo{Hostname: testHost, System: "Linux"})
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
		require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
	}
	return dir
}

func buildOptions(dir string) app.BuildOptions {
	return app.BuildOptions{
		Dir:        dir,
		CfgDir:     filepath.Join(dir, "cfg"),
		NoServer:   true,
		OutputMode: "linear",
	}
}

func TestAppWiring(t *testing.T) {
	components, _, err := graft.ExecuteFor[*app.Components](context.Background())
	require.NoError(t, err)
	require.NotNil(t, components)
	require.NotNil(t, components.App)
	require.NotNil(t, components.Logger)
}

func TestApp_Build(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"Buildfile": `all:: out.txt

out.txt: in.txt
	echo run >> log.txt
	cp in.txt out.txt
`,
		"in.txt": "hello\n",
	})
	a, _ := newApp(t)

	require.NoError(t, a.Build(context.Background(), nil, buildOptions(dir)))
	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
	assert.FileExists(t, filepath.Join(dir, domain.DefaultStateFile))

	require.NoError(t, a.Build(context.Background(), []string{"out.txt"}, buildOptions(dir)))
	log, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "run\n", string(log), "second build is up to date")
}

func TestApp_BuildFailure(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"Buildfile": "broken:\n\techo compiling\n\texit 3\n",
	})
	a, out := newApp(t)

	err := a.Build(context.Background(), []string{"broken"}, buildOptions(dir))
	require.ErrorIs(t, err, domain.ErrBuildFailed)
	assert.Contains(t, out.String(), "compiling")
}

func TestApp_BuildPanicIsAnError(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"Buildfile": "out.txt:\n\techo hi > out.txt\n",
	})
	ctrl := gomock.NewController(t)
	spawner := mocks.NewMockSpawner(ctrl)
	spawner.EXPECT().Spawn(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, ports.Command) (ports.Process, error) {
			panic("invariant violated")
		},
	)
	a := assemble(t, spawner, nil)

	err := a.Build(context.Background(), []string{"out.txt"}, buildOptions(dir))
	require.ErrorContains(t, err, domain.ErrInternal.Error())
	assert.NotErrorIs(t, err, domain.ErrBuildFailed)
	assert.ErrorContains(t, err, "invariant violated")
	assert.NoFileExists(t, filepath.Join(dir, domain.DefaultStateFile))
}

func TestApp_BuildDryRun(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"Buildfile": "out.txt: in.txt\n\tcp in.txt out.txt\n",
		"in.txt":    "x",
	})
	a, _ := newApp(t)

	opts := buildOptions(dir)
	opts.DryRun = 1
	require.NoError(t, a.Build(context.Background(), []string{"out.txt"}, opts))
	assert.NoFileExists(t, filepath.Join(dir, "out.txt"))
	assert.NoFileExists(t, filepath.Join(dir, domain.DefaultStateFile))
}

func TestApp_BuildSystemVariables(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"Buildfile": "host.txt:\n\techo $(_HOSTNAME) $(_SYSTEM) > host.txt\n",
	})
	a, _ := newApp(t)

	require.NoError(t, a.Build(context.Background(), []string{"host.txt"}, buildOptions(dir)))
	data, err := os.ReadFile(filepath.Join(dir, "host.txt"))
	require.NoError(t, err)
	assert.Equal(t, testHost+" Linux", strings.TrimSpace(string(data)))
}

func TestApp_BuildErrors(t *testing.T) {
	t.Run("invalid output mode", func(t *testing.T) {
		a, _ := newApp(t)
		opts := buildOptions(t.TempDir())
		opts.OutputMode = "fancy"
		err := a.Build(context.Background(), nil, opts)
		require.ErrorContains(t, err, domain.ErrInvalidOutputMode.Error())
	})
	t.Run("missing buildfile", func(t *testing.T) {
		a, _ := newApp(t)
		err := a.Build(context.Background(), nil, buildOptions(t.TempDir()))
		require.Error(t, err)
	})
	t.Run("invalid timestamps", func(t *testing.T) {
		dir := writeProject(t, map[string]string{"Buildfile": "all::\n"})
		a, _ := newApp(t)
		opts := buildOptions(dir)
		opts.Timestamps = "sha"
		err := a.Build(context.Background(), nil, opts)
		require.ErrorContains(t, err, domain.ErrInvalidTimestampAlgorithm.Error())
	})
}

func TestApp_ServeNotConfigured(t *testing.T) {
	a, _ := newApp(t)
	dir := t.TempDir()
	err := a.Serve(context.Background(), app.ServeOptions{Dir: dir, CfgDir: filepath.Join(dir, "cfg")})
	require.ErrorContains(t, err, domain.ErrServerNotConfigured.Error())
}

func TestApp_Token(t *testing.T) {
	a, _ := newApp(t)
	cfgDir := t.TempDir()

	path, err := a.Token(cfgDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfgDir, domain.AuthDirName), filepath.Dir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.PrivateFilePerm), info.Mode().Perm())
}
