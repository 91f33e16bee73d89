package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/cmd/yabu/commands"
	"go.trai.ch/yabu/internal/app"
	"go.trai.ch/yabu/internal/build"
)

type mockApp struct {
	buildFunc func(ctx context.Context, targets []string, opts app.BuildOptions) error
	watched   bool
	serveOpts app.ServeOptions
	tokenDir  string
}

func (m *mockApp) Build(ctx context.Context, targets []string, opts app.BuildOptions) error {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, targets, opts)
	}
	return nil
}

func (m *mockApp) Watch(ctx context.Context, targets []string, opts app.BuildOptions) error {
	m.watched = true
	return m.Build(ctx, targets, opts)
}

func (m *mockApp) Serve(_ context.Context, opts app.ServeOptions) error {
	m.serveOpts = opts
	return nil
}

func (m *mockApp) Token(cfgDir string) (string, error) {
	m.tokenDir = cfgDir
	return "/cfg/auth/alice", nil
}

type jsonSwitch struct{ enabled bool }

func (j *jsonSwitch) SetJSON(enable bool) { j.enabled = enable }

func TestCommands_Build(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.BuildOptions
		var capturedTargets []string

		mock := &mockApp{
			buildFunc: func(_ context.Context, targets []string, opts app.BuildOptions) error {
				capturedOpts = opts
				capturedTargets = targets
				return nil
			},
		}

		cli := commands.New(mock, nil)
		cli.SetArgs([]string{
			"build", "prog", "docs",
			"-nn", "-c", "+debug", "-f", "other.yabu", "-y", "cksum", "-g", "/etc/yabu",
			"-j", "-p", "-s", "-m", "-e", "--output-mode", "linear",
		})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Equal(t, []string{"prog", "docs"}, capturedTargets)
		assert.Equal(t, app.BuildOptions{
			File:       "other.yabu",
			CfgDir:     "/etc/yabu",
			Config:     "+debug",
			Timestamps: "cksum",
			DryRun:     2,
			NoServer:   true,
			Sequential: true,
			NoState:    true,
			Mkdir:      true,
			Echo:       true,
			OutputMode: "linear",
		}, capturedOpts)
		assert.False(t, mock.watched)
	})

	t.Run("defaults", func(t *testing.T) {
		var capturedOpts app.BuildOptions
		called := false
		mock := &mockApp{
			buildFunc: func(_ context.Context, targets []string, opts app.BuildOptions) error {
				assert.Empty(t, targets)
				capturedOpts = opts
				called = true
				return nil
			},
		}

		cli := commands.New(mock, nil)
		cli.SetArgs([]string{"build"})
		require.NoError(t, cli.Execute(context.Background()))
		assert.True(t, called)
		assert.Equal(t, app.BuildOptions{OutputMode: "auto"}, capturedOpts)
	})

	t.Run("watch", func(t *testing.T) {
		mock := &mockApp{}
		cli := commands.New(mock, nil)
		cli.SetArgs([]string{"build", "-w"})
		require.NoError(t, cli.Execute(context.Background()))
		assert.True(t, mock.watched)
	})

	t.Run("returns error on build failure", func(t *testing.T) {
		mock := &mockApp{
			buildFunc: func(_ context.Context, _ []string, _ app.BuildOptions) error {
				return errors.New("simulated error")
			},
		}

		cli := commands.New(mock, nil)
		cli.SetArgs([]string{"build", "target"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_LogJSON(t *testing.T) {
	log := &jsonSwitch{}
	cli := commands.New(&mockApp{}, log)
	cli.SetArgs([]string{"build", "--log-json"})
	require.NoError(t, cli.Execute(context.Background()))
	assert.True(t, log.enabled)
}

func TestCommands_Serve(t *testing.T) {
	mock := &mockApp{}
	cli := commands.New(mock, nil)
	cli.SetArgs([]string{"serve", "--listen", ":7000", "--idle-timeout", "5m", "-g", "/cfg"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, app.ServeOptions{CfgDir: "/cfg", Listen: ":7000", IdleTimeout: 5 * time.Minute}, mock.serveOpts)
}

func TestCommands_Token(t *testing.T) {
	mock := &mockApp{}
	cli := commands.New(mock, nil)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"token", "-g", "/cfg"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Equal(t, "/cfg", mock.tokenDir)
	assert.Equal(t, "/cfg/auth/alice\n", buf.String())
}

func TestCommands_Version(t *testing.T) {
	cli := commands.New(&mockApp{}, nil)

	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), build.Version)
}
