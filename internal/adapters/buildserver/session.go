package buildserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/yabu/internal/engine/protocol"
	"go.trai.ch/zerr"
)

const (
	readSize    = 8192
	outputChunk = readSize - 8
)

var (
	errNotLoggedIn = zerr.New("not logged in")
	errUnknownTag  = zerr.New("unknown command")
	errMkdirFailed = zerr.New("cannot create directory")
)

// job is one script submitted by a client.
type job struct {
	id      uint32
	script  string
	dir     string
	env     []string
	account *Account
	proc    ports.Process
}

// session is the state of one client connection. waiting, running and closed
// are guarded by the server's mutex; the rest belong to the reading goroutine.
type session struct {
	id   string
	srv  *Server
	conn net.Conn
	wmu  sync.Mutex

	env     []string
	dir     string
	jobID   uint32
	account *Account

	waiting []*job
	running map[*job]struct{}
	closed  bool
}

func newSession(srv *Server, conn net.Conn) *session {
	return &session{
		id:      uuid.NewString()[:8],
		srv:     srv,
		conn:    conn,
		env:     append([]string(nil), srv.cfg.StaticEnv...),
		running: map[*job]struct{}{},
	}
}

type frame struct {
	tag     byte
	payload []byte
}

func protocolOutput(id uint32, data []byte) frame {
	return frame{tag: protocol.TagOutput, payload: protocol.Output(id, data)}
}

func protocolTermination(id uint32, st domain.ExitStatus) frame {
	return frame{tag: protocol.TagTermination, payload: protocol.Termination(id, st)}
}

// send writes f. Write errors close the connection, which ends the session.
func (c *session) send(f frame) {
	buf, err := protocol.Append(nil, f.tag, f.payload)
	if err != nil {
		c.srv.logger.Error(err)
		return
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(buf); err != nil {
		_ = c.conn.Close()
	}
}

// run reads frames until the connection closes or a frame is rejected.
func (c *session) run(ctx context.Context) {
	defer c.srv.detach(c)

	var dec protocol.Decoder
	buf := make([]byte, readSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.srv.lifecycle.ResetTimer()
			dec.Feed(buf[:n])
			if herr := c.drain(ctx, &dec); herr != nil {
				c.srv.logger.Warn(fmt.Sprintf("[%s] %v", c.id, herr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.srv.logger.Warn(fmt.Sprintf("[%s] %v", c.id, err))
			}
			return
		}
	}
}

func (c *session) drain(ctx context.Context, dec *protocol.Decoder) error {
	for {
		f, ok, err := dec.Next()
		if err != nil || !ok {
			return err
		}
		if err := c.handle(ctx, f); err != nil {
			return err
		}
	}
}

func (c *session) handle(ctx context.Context, f protocol.Frame) error {
	switch f.Tag {
	case protocol.TagEnv:
		c.setEnv(string(f.Payload))
	case protocol.TagLogin:
		return c.login(f.Payload)
	case protocol.TagDir:
		c.dir = string(f.Payload)
	case protocol.TagJobID:
		id, err := protocol.ParseJobID(f.Payload)
		if err != nil {
			return err
		}
		c.jobID = id
	case protocol.TagMkdir:
		if c.account == nil {
			return errNotLoggedIn
		}
		return c.mkdirParents(ctx, string(f.Payload))
	case protocol.TagCommand:
		if c.account == nil {
			return errNotLoggedIn
		}
		c.srv.enqueue(ctx, c, &job{
			id:      c.jobID,
			script:  string(f.Payload),
			dir:     c.dir,
			env:     append([]string(nil), c.env...),
			account: c.account,
		})
		c.jobID++
	default:
		return zerr.With(errUnknownTag, "tag", fmt.Sprintf("0x%02x", f.Tag))
	}
	return nil
}

// setEnv adds or replaces one NAME=VALUE entry.
func (c *session) setEnv(kv string) {
	name, _, _ := strings.Cut(kv, "=")
	for i, old := range c.env {
		if n, _, _ := strings.Cut(old, "="); n == name {
			c.env[i] = kv
			return
		}
	}
	c.env = append(c.env, kv)
}

func (c *session) login(p []byte) error {
	uid, token, err := protocol.ParseLogin(p)
	if err != nil {
		return err
	}
	if uid < MinUID || token == "" {
		return zerr.With(zerr.Wrap(domain.ErrProtocol, "login rejected"), "uid", uid)
	}

	acct, err := c.srv.lookup(uid)
	ok := err == nil && c.srv.tokens.Verify(acct.Name, uid, token)
	if err != nil {
		c.srv.logger.Warn(fmt.Sprintf("[%s] %v", c.id, err))
	}
	result := protocol.LoginDenied
	if ok {
		c.account = acct
		result = protocol.LoginOK
		c.srv.logger.Info(fmt.Sprintf("[%s] login %s accepted", c.id, acct.Name))
	} else {
		c.srv.logger.Warn(fmt.Sprintf("[%s] login as uid %d denied", c.id, uid))
	}
	c.send(frame{tag: protocol.TagLogin, payload: []byte(result)})
	return nil
}

// mkdirParents creates the parent directories of path. A root server creates
// them as the logged-in account.
func (c *session) mkdirParents(ctx context.Context, path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}
	dir := filepath.Dir(path)
	if !c.srv.asRoot {
		if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, errMkdirFailed.Error()), "path", path)
		}
		return nil
	}

	proc, err := c.srv.spawner.Spawn(ctx, ports.Command{
		Shell:      c.srv.cfg.Shell,
		Script:     "mkdir -p -- " + shellQuote(dir),
		Dir:        "/",
		Env:        []string{"PATH=" + domain.DefaultPath},
		Isolated:   true,
		Credential: c.account.credential(),
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, errMkdirFailed.Error()), "path", path)
	}
	out, _ := io.ReadAll(proc.Output())
	if st := proc.Wait(); !st.OK() {
		return zerr.With(zerr.With(errMkdirFailed, "path", path), "output", strings.TrimSpace(string(out)))
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
