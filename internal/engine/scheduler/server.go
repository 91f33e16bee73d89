package scheduler

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/engine/protocol"
	"go.trai.ch/yabu/internal/engine/reactor"
	"go.trai.ch/zerr"
)

// ServerState is the connection state of a build server.
type ServerState int

const (
	// StateCreated means no connection was attempted yet.
	StateCreated ServerState = iota
	// StateConnecting means the dial is in progress.
	StateConnecting
	// StateLogin means the login record was sent.
	StateLogin
	// StateReady means the server accepts jobs.
	StateReady
	// StateDead means the server is unusable for the rest of the run.
	StateDead
)

var serverStateNames = [...]string{"CREATED", "CONNECTING", "LOGIN", "READY", "DEAD"}

func (st ServerState) String() string {
	if int(st) < len(serverStateNames) {
		return serverStateNames[st]
	}
	return fmt.Sprintf("ServerState(%d)", int(st))
}

var serverTransitions = map[ServerState][]ServerState{
	StateCreated:    {StateConnecting, StateDead},
	StateConnecting: {StateLogin, StateDead},
	StateLogin:      {StateReady, StateDead},
	StateReady:      {StateDead},
}

// Server is the execution queue of one remote build server.
type Server struct {
	s    *Scheduler
	qid  int
	host domain.Host
	cfg  string
	max  int

	state  ServerState
	idle   bool
	wanted bool
	jobs   map[uint32]*Script

	entry  *reactor.Entry
	dec    protocol.Decoder
	cancel context.CancelFunc
}

func newServer(s *Scheduler, qid int, h domain.Host) *Server {
	max := h.Max
	if max < 1 {
		max = 1
	}
	return &Server{
		s:    s,
		qid:  qid,
		host: h,
		cfg:  h.Cfg + " -" + domain.LocalOption,
		max:  max,
		jobs: map[uint32]*Script{},
	}
}

// Name returns the host name.
func (srv *Server) Name() string { return srv.host.Name }

// State returns the connection state.
func (srv *Server) State() ServerState { return srv.state }

// Running returns the number of jobs started on the server.
func (srv *Server) Running() int { return len(srv.jobs) }

func (srv *Server) setState(st ServerState) {
	if !slices.Contains(serverTransitions[srv.state], st) {
		panic(fmt.Sprintf("%s: server %s: %s -> %s", domain.ErrIllegalTransition.Error(), srv.host.Name, srv.state, st))
	}
	srv.state = st
}

// connect dials the server in the background. The result arrives as a reactor
// event.
func (srv *Server) connect(ctx context.Context) {
	srv.setState(StateConnecting)
	dctx, cancel := context.WithCancel(ctx)
	srv.cancel = cancel
	addr := srv.host.Address()
	go func() {
		conn, err := srv.s.dialer.Dial(dctx, addr)
		srv.s.reactor.Post(func() { srv.onConnect(conn, err) })
	}()
}

func (srv *Server) onConnect(conn io.ReadWriteCloser, err error) {
	if srv.state != StateConnecting {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		srv.shutdown(err)
		return
	}
	srv.entry = srv.s.reactor.Register(conn, srv.handleInput)
	srv.setState(StateLogin)
	srv.send(protocol.TagLogin, protocol.Login(srv.s.cfg.UID, srv.s.cfg.Token))
}

func (srv *Server) send(tag byte, payload string) bool {
	if srv.entry == nil || srv.state == StateDead {
		return false
	}
	buf, err := protocol.AppendString(nil, tag, payload)
	if err == nil {
		err = srv.entry.Write(buf)
	}
	if err != nil {
		srv.shutdown(err)
		return false
	}
	return true
}

func (srv *Server) handleInput(ev reactor.Event) bool {
	if len(ev.Data) > 0 {
		srv.dec.Feed(ev.Data)
		for srv.state != StateDead {
			f, ok, err := srv.dec.Next()
			if err != nil {
				srv.shutdown(err)
				return true
			}
			if !ok {
				break
			}
			if err := srv.handleFrame(f); err != nil {
				srv.shutdown(err)
				return true
			}
		}
	}
	if srv.state == StateDead {
		return true
	}
	if ev.EOF || ev.Err != nil {
		err := zerr.Wrap(domain.ErrConnectionLost, srv.host.Name)
		if ev.Err != nil {
			err = zerr.With(err, "cause", ev.Err.Error())
		}
		srv.shutdown(err)
		return true
	}
	return false
}

func (srv *Server) handleFrame(f protocol.Frame) error {
	switch f.Tag {
	case protocol.TagLogin:
		if string(f.Payload) != protocol.LoginOK {
			return zerr.With(domain.ErrLoginFailed, "host", srv.host.Name)
		}
		if srv.state == StateLogin {
			srv.setState(StateReady)
		}
		srv.idle = false
		return nil

	case protocol.TagTermination:
		id, st, err := protocol.ParseTermination(f.Payload)
		if err != nil {
			return err
		}
		sc := srv.jobs[id]
		if sc == nil {
			return zerr.With(zerr.Wrap(domain.ErrProtocol, "unknown job"), "job", id)
		}
		srv.nextChunk(sc, st.OK())
		return nil

	case protocol.TagOutput:
		id, data, err := protocol.ParseOutput(f.Payload)
		if err != nil {
			return err
		}
		if sc := srv.jobs[id]; sc != nil {
			srv.s.output(sc, data)
		}
		return nil
	}
	return zerr.With(zerr.Wrap(domain.ErrProtocol, "unexpected record"), "frame", f.String())
}

// startJob starts one waiting script if the server is ready and has capacity.
func (srv *Server) startJob(ctx context.Context) {
	if srv.state == StateCreated && srv.wanted {
		srv.connect(ctx)
	}
	if srv.idle || srv.state != StateReady || len(srv.jobs) >= srv.max {
		srv.idle = true
		return
	}
	sc := srv.s.find(srv.qid)
	if sc == nil {
		srv.idle = true
		return
	}

	srv.s.activate(ctx, sc, srv.host.Name)
	srv.jobs[sc.ID] = sc
	for _, kv := range srv.s.env(sc, false) {
		if !srv.send(protocol.TagEnv, kv) {
			return
		}
	}
	if srv.s.cfg.AutoMkdir && sc.Target != nil && !sc.Target.Alias {
		if !srv.send(protocol.TagMkdir, srv.s.mkdirPath(sc.Target)) {
			return
		}
	}
	srv.nextChunk(sc, true)
}

// nextChunk sends the next chunk of sc or retires the job.
func (srv *Server) nextChunk(sc *Script, prevOK bool) {
	if !srv.s.nextStep(sc, prevOK) {
		delete(srv.jobs, sc.ID)
		srv.idle = false
		return
	}
	_ = srv.send(protocol.TagJobID, protocol.JobID(sc.ID)) &&
		srv.send(protocol.TagDir, srv.s.cfg.Root) &&
		srv.send(protocol.TagCommand, sc.chunk)
}

// shutdown marks the server dead, fails its running scripts and removes it
// from the queue masks of waiting scripts.
func (srv *Server) shutdown(err error) {
	if srv.state == StateDead {
		return
	}
	srv.state = StateDead
	if srv.cancel != nil {
		srv.cancel()
	}
	if srv.entry != nil {
		srv.entry.Remove()
	}
	if err != nil {
		srv.s.logger.Warn(fmt.Sprintf("build server %s unavailable: %v", srv.host.Name, err))
	}

	for _, id := range slices.Sorted(maps.Keys(srv.jobs)) {
		sc := srv.jobs[id]
		delete(srv.jobs, id)
		srv.s.cancel(sc)
	}
	srv.s.clearQueue(srv.qid)
}
