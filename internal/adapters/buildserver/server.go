// Package buildserver implements the build server: it accepts client
// connections, authenticates users and runs their scripts.
package buildserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"
	"sync"
	"time"

	"go.trai.ch/yabu/internal/build"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const (
	// MinUID is the smallest user id allowed to log in.
	MinUID = 20
	// DefaultNice is the scheduling priority of server jobs.
	DefaultNice = 5
	// spawnFailedExit is reported when a script cannot be started.
	spawnFailedExit = 123
)

// Config describes one server instance.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// MaxActive caps the number of scripts running at once across all clients.
	MaxActive int
	Shell     string
	// StaticEnv is the initial environment of every client.
	StaticEnv   []string
	IdleTimeout time.Duration
	Nice        int
}

// Account is the local user a client logged in as.
type Account struct {
	Name   string
	UID    uint32
	GID    uint32
	Groups []uint32
}

func (a *Account) credential() *ports.Credential {
	return &ports.Credential{UID: a.UID, GID: a.GID, Groups: a.Groups}
}

// Server runs scripts for logged-in clients. Waiting scripts are started
// round-robin across clients so that every user gets a fair share.
type Server struct {
	cfg       Config
	tokens    ports.TokenStore
	spawner   ports.Spawner
	logger    ports.Logger
	lifecycle *Lifecycle

	lookup func(uid int) (*Account, error)
	// asRoot runs scripts under the client's credentials.
	asRoot bool

	mu       sync.Mutex
	sessions []*session
	next     int
	active   int
}

// NewServer creates a server.
func NewServer(cfg Config, tokens ports.TokenStore, spawner ports.Spawner, logger ports.Logger) *Server {
	if cfg.MaxActive <= 0 {
		cfg.MaxActive = 1
	}
	if cfg.Shell == "" {
		cfg.Shell = domain.DefaultShell
	}
	return &Server{
		cfg:       cfg,
		tokens:    tokens,
		spawner:   spawner,
		logger:    logger,
		lifecycle: NewLifecycle(cfg.IdleTimeout),
		lookup:    lookupAccount,
		asRoot:    os.Geteuid() == 0,
	}
}

// Lifecycle returns the idle-timeout manager.
func (s *Server) Lifecycle() *Lifecycle { return s.lifecycle }

// Listen opens the server socket.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "address unusable"), "addr", s.cfg.Addr)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled or the idle timeout
// expires. Running scripts are killed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info(fmt.Sprintf("yabu server %s running on %s", build.Version, ln.Addr()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.lifecycle.ShutdownChan():
		}
		_ = ln.Close()
		s.closeAll()
		return nil
	})
	g.Go(func() error {
		defer s.lifecycle.Shutdown()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return zerr.Wrap(err, "accept failed")
			}
			s.lifecycle.ResetTimer()
			sess := s.attach(conn)
			g.Go(func() error {
				sess.run(gctx)
				return nil
			})
		}
	})
	err := g.Wait()
	s.logger.Info(fmt.Sprintf("yabu server stopped after %s", s.lifecycle.Uptime().Round(time.Second)))
	return err
}

func (s *Server) attach(conn net.Conn) *session {
	sess := newSession(s, conn)
	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	s.mu.Unlock()
	s.logger.Info(fmt.Sprintf("[%s] connection from %s", sess.id, conn.RemoteAddr()))
	return sess
}

// detach forgets sess, drops its waiting scripts and kills its running ones.
func (s *Server) detach(sess *session) {
	s.mu.Lock()
	if sess.closed {
		s.mu.Unlock()
		return
	}
	sess.closed = true
	for i, other := range s.sessions {
		if other == sess {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			if s.next > i {
				s.next--
			}
			break
		}
	}
	sess.waiting = nil
	var procs []ports.Process
	for j := range sess.running {
		if j.proc != nil {
			procs = append(procs, j.proc)
		}
	}
	s.mu.Unlock()

	for _, p := range procs {
		_ = p.Kill()
	}
	_ = sess.conn.Close()
	s.logger.Info(fmt.Sprintf("[%s] disconnected", sess.id))
}

func (s *Server) closeAll() {
	s.mu.Lock()
	sessions := append([]*session(nil), s.sessions...)
	s.mu.Unlock()
	for _, sess := range sessions {
		s.detach(sess)
	}
}

// enqueue queues j and starts whatever fits.
func (s *Server) enqueue(ctx context.Context, sess *session, j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.closed {
		return
	}
	sess.waiting = append(sess.waiting, j)
	s.startJobs(ctx)
}

// startJobs starts waiting scripts round-robin until MaxActive is reached.
// The next call continues with the client after the last one served.
// s.mu must be held.
func (s *Server) startJobs(ctx context.Context) {
	n := len(s.sessions)
	if n == 0 {
		return
	}
	i := s.next % n
	first, again := i, false
	for s.active < s.cfg.MaxActive {
		sess := s.sessions[i]
		if len(sess.waiting) > 0 {
			j := sess.waiting[0]
			sess.waiting = sess.waiting[1:]
			sess.running[j] = struct{}{}
			s.active++
			go s.runJob(ctx, sess, j)
			if len(sess.waiting) > 0 {
				again = true
			}
		}
		if i = (i + 1) % n; i == first {
			if !again {
				break
			}
			again = false
		}
	}
	s.next = i
}

func (s *Server) runJob(ctx context.Context, sess *session, j *job) {
	defer s.finish(ctx, sess, j)

	cmd := ports.Command{
		Shell:    s.cfg.Shell,
		Script:   j.script,
		Dir:      j.dir,
		Env:      j.env,
		Isolated: true,
		Nice:     s.cfg.Nice,
	}
	if s.asRoot {
		cmd.Credential = j.account.credential()
	}
	proc, err := s.spawner.Spawn(ctx, cmd)
	if err != nil {
		sess.send(protocolOutput(j.id, []byte(err.Error()+"\n")))
		sess.send(protocolTermination(j.id, domain.Exited(spawnFailedExit)))
		return
	}

	s.mu.Lock()
	if sess.closed {
		s.mu.Unlock()
		_ = proc.Kill()
		proc.Wait()
		return
	}
	j.proc = proc
	s.mu.Unlock()

	buf := make([]byte, outputChunk)
	out := proc.Output()
	for {
		n, err := out.Read(buf)
		if n > 0 {
			s.lifecycle.ResetTimer()
			sess.send(protocolOutput(j.id, buf[:n]))
		}
		if err != nil {
			break
		}
	}
	if c, ok := out.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	sess.send(protocolTermination(j.id, proc.Wait()))
}

func (s *Server) finish(ctx context.Context, sess *session, j *job) {
	s.lifecycle.ResetTimer()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(sess.running, j)
	s.active--
	s.startJobs(ctx)
}

// Active returns the number of running scripts.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func lookupAccount(uid int) (*Account, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "unknown user"), "uid", uid)
	}
	acct := &Account{Name: u.Username, UID: uint32(uid)} //nolint:gosec // uid was parsed from a non-negative int
	if gid, err := strconv.ParseUint(u.Gid, 10, 32); err == nil {
		acct.GID = uint32(gid)
	}
	groups, err := u.GroupIds()
	if err == nil {
		for _, g := range groups {
			if v, err := strconv.ParseUint(g, 10, 32); err == nil {
				acct.Groups = append(acct.Groups, uint32(v))
			}
		}
	}
	return acct, nil
}
