// Package shell starts build scripts as local processes.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

const interpreterPrefix = "#!"

var errMissingInterpreter = zerr.New("missing interpreter")

var _ ports.Spawner = (*Spawner)(nil)

// Spawner implements ports.Spawner using os/exec. Output is collected through
// a pipe, or through a pseudo terminal when the command asks for one.
type Spawner struct {
	// TempDir holds interpreter script files. Empty means os.TempDir().
	TempDir string
}

// NewSpawner creates a Spawner.
func NewSpawner() *Spawner {
	return &Spawner{}
}

// Spawn starts cmd. A script starting with "#!" names its interpreter on the
// first line; the remaining lines are written to a temporary executable file
// passed as the interpreter's last argument. Other scripts run with
// "<shell> -c <script>".
func (s *Spawner) Spawn(ctx context.Context, cmd ports.Command) (ports.Process, error) {
	p := &process{}
	var c *exec.Cmd
	if interp, body, ok := splitInterpreter(cmd.Script); ok {
		words := strings.Fields(interp)
		if len(words) == 0 {
			return nil, zerr.With(errMissingInterpreter, "script", cmd.Script)
		}
		file, err := s.writeScript(body)
		if err != nil {
			return nil, err
		}
		p.scriptFile = file
		//nolint:gosec // the interpreter comes from the build file
		c = exec.CommandContext(ctx, words[0], append(words[1:], file)...)
	} else {
		//nolint:gosec // scripts come from the build file
		c = exec.CommandContext(ctx, cmd.Shell, "-c", cmd.Script)
		c.Args[0] = filepath.Base(cmd.Shell)
	}
	c.Dir = cmd.Dir
	if cmd.Isolated {
		c.Env = mergeEnv(nil, cmd.Env)
	} else {
		c.Env = mergeEnv(os.Environ(), cmd.Env)
	}
	setCredential(c, cmd.Credential)
	c.Cancel = func() error { return killGroup(c.Process) }
	p.cmd = c

	var err error
	if cmd.PTY {
		err = p.startPTY()
	} else {
		err = p.startPipe()
	}
	if err != nil {
		p.cleanup()
		return nil, zerr.With(zerr.Wrap(err, "failed to start process"), "command", c.Path)
	}
	if cmd.Nice != 0 {
		// Best effort.
		_ = setNice(c.Process.Pid, cmd.Nice)
	}
	return p, nil
}

func splitInterpreter(script string) (interp, body string, ok bool) {
	rest, ok := strings.CutPrefix(script, interpreterPrefix)
	if !ok {
		return "", "", false
	}
	interp, body, _ = strings.Cut(rest, "\n")
	return interp, body, true
}

func (s *Spawner) writeScript(body string) (string, error) {
	f, err := os.CreateTemp(s.TempDir, "yabu-*")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create interpreter script")
	}
	name := f.Name()
	_, werr := io.WriteString(f, body)
	cerr := f.Close()
	if err := errors.Join(werr, cerr, os.Chmod(name, domain.ExecFilePerm)); err != nil {
		_ = os.Remove(name)
		return "", zerr.With(zerr.Wrap(err, "failed to write interpreter script"), "file", name)
	}
	return name, nil
}

// mergeEnv returns base with the entries of extra added or replaced.
func mergeEnv(base, extra []string) []string {
	index := make(map[string]int, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, kv := range list {
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

type process struct {
	cmd        *exec.Cmd
	out        io.ReadCloser
	scriptFile string

	waitOnce sync.Once
	status   domain.ExitStatus
}

func (p *process) startPipe() error {
	setProcessGroup(p.cmd)
	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	p.cmd.Stdout = w
	p.cmd.Stderr = w
	if err := p.cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return err
	}
	// The child holds its own copy; EOF arrives once every writer is gone.
	_ = w.Close()
	p.out = r
	return nil
}

func (p *process) startPTY() error {
	ptmx, err := pty.Start(p.cmd)
	if err != nil {
		return err
	}
	p.out = ptmx
	return nil
}

// Output hides the write side of pipes and terminals from callers.
func (p *process) Output() io.Reader {
	return readCloser{p.out}
}

type readCloser struct{ rc io.ReadCloser }

func (r readCloser) Read(b []byte) (int, error) { return r.rc.Read(b) }
func (r readCloser) Close() error               { return r.rc.Close() }

func (p *process) Wait() domain.ExitStatus {
	p.waitOnce.Do(func() {
		p.status = exitStatus(p.cmd.Wait())
		p.cleanup()
	})
	return p.status
}

func (p *process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := killGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return zerr.Wrap(err, "failed to kill process")
	}
	return nil
}

func (p *process) cleanup() {
	if p.scriptFile != "" {
		_ = os.Remove(p.scriptFile)
		p.scriptFile = ""
	}
}

func exitStatus(err error) domain.ExitStatus {
	if err == nil {
		return domain.Exited(0)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return domain.Unknown
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	switch {
	case !ok:
		return domain.Exited(exitErr.ExitCode())
	case ws.Signaled():
		return domain.Signaled(int(ws.Signal()))
	case ws.Exited():
		return domain.Exited(ws.ExitStatus())
	}
	return domain.Unknown
}
