package scheduler

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/yabu/internal/engine/reactor"
	"go.trai.ch/zerr"
)

// outputGrace bounds how long a chunk waits for output EOF after its process
// exited. Background children may keep the output open indefinitely.
const outputGrace = 50 * time.Millisecond

// job runs one script on the local machine, one process per chunk.
type job struct {
	script *Script
	env    []string
	run    *chunkRun
}

// chunkRun is the process of one chunk. The chunk is complete once its exit
// status arrived and its output reached EOF or went quiet for outputGrace.
type chunkRun struct {
	proc   ports.Process
	entry  *reactor.Entry
	eof    bool
	exited bool
	status domain.ExitStatus
}

// startLocal starts waiting local scripts up to the job limit.
func (s *Scheduler) startLocal(ctx context.Context) {
	s.idle = true
	for len(s.jobs) < s.cfg.MaxJobs {
		sc := s.find(0)
		if sc == nil {
			return
		}
		s.idle = false
		s.activate(ctx, sc, s.cfg.Hostname)
		j := &job{script: sc, env: s.env(sc, true)}
		s.jobs = append(s.jobs, j)
		s.nextLocalChunk(j, true)
	}
}

// nextLocalChunk starts the next chunk of j or retires the job.
func (s *Scheduler) nextLocalChunk(j *job, prevOK bool) {
	j.run = nil
	if !s.nextStep(j.script, prevOK) {
		s.jobs = remove(s.jobs, j)
		s.idle = false
		return
	}
	s.exec(j)
}

func (s *Scheduler) exec(j *job) {
	sc := j.script
	cmd := ports.Command{
		Shell:  s.cfg.Shell,
		Script: sc.chunk,
		Dir:    s.cfg.Root,
		Env:    j.env,
		PTY:    s.cfg.PTY,
	}
	proc, err := s.spawner.Spawn(sc.ctx, cmd)
	if err != nil {
		s.logger.Error(zerr.With(zerr.Wrap(err, domain.ErrSpawnFailed.Error()), "target", sc.Name()))
		s.reactor.Post(func() {
			if j.run == nil && !sc.finished {
				s.nextLocalChunk(j, false)
			}
		})
		return
	}

	run := &chunkRun{proc: proc}
	j.run = run

	out, ok := proc.Output().(io.ReadCloser)
	if !ok {
		out = io.NopCloser(proc.Output())
	}
	run.entry = s.reactor.Register(out, func(ev reactor.Event) bool {
		if len(ev.Data) > 0 {
			s.output(sc, ev.Data)
		}
		if ev.EOF || ev.Err != nil {
			run.eof = true
			s.chunkDone(j, run)
			return true
		}
		return false
	})

	go func() {
		st := proc.Wait()
		s.reactor.Post(func() {
			run.exited = true
			run.status = st
			if !run.eof {
				time.AfterFunc(outputGrace, func() {
					s.reactor.Post(func() { s.abandonOutput(j, run) })
				})
			}
			s.chunkDone(j, run)
		})
	}()
}

// abandonOutput stops reading from a chunk whose process exited while a
// descendant still holds the output open.
func (s *Scheduler) abandonOutput(j *job, run *chunkRun) {
	if j.run != run || run.eof {
		return
	}
	run.eof = true
	run.entry.Remove()
	s.chunkDone(j, run)
}

func (s *Scheduler) chunkDone(j *job, run *chunkRun) {
	if j.run != run || !run.eof || !run.exited {
		return
	}
	if run.status.How == 'S' {
		s.logger.Warn(fmt.Sprintf("%s: script terminated by signal %d", j.script.Name(), run.status.Code))
	}
	s.nextLocalChunk(j, run.status.OK())
}

// killAll kills every local process and fails its script.
func (s *Scheduler) killAll() {
	for _, j := range s.jobs {
		if run := j.run; run != nil {
			_ = run.proc.Kill()
			run.entry.Remove()
			j.run = nil
		}
		s.cancel(j.script)
	}
	s.jobs = nil
}
