package resolver

import (
	"fmt"
	"os"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// tryBuild builds t, or decides it is up to date, once every source is built
// and its group is free.
func (r *Resolver) tryBuild(t *domain.Target) {
	if r.run.Halted() || t.Status != domain.StatusSelected {
		return
	}
	if g := t.Group; g != nil && g.LockedByOther(t) {
		if g.LockedBy.Status == domain.StatusFailed {
			r.cancel(t)
		}
		return
	}
	for _, d := range t.LiveSources() {
		if d.Src.Status != domain.StatusBuilt {
			return
		}
	}

	if r.buildSpecial(t) {
		r.setDone(t, nil)
		return
	}

	switch {
	case t.Rule != nil:
		if !t.Alias && !r.outdated(t) && r.cfg.DryRun < 2 {
			r.setDone(t, &r.stats.UpToDate)
			return
		}
		t.DeleteAutoSources()
		if t.Rule.CreateOnly && !r.fileTime(t).IsZero() {
			r.fail(t, zerr.With(domain.ErrTargetExists, "target", t.Name))
			return
		}
		r.exec(t)

	case t.Alias:
		t.Time = domain.FtimeOf(r.now())
		r.setDone(t, nil)

	case t.ReqBy == nil || r.outdated(t):
		r.fail(t, zerr.With(domain.ErrNoRule, "target", t.Name))

	case t.IsLeaf() && !t.RegularFile:
		r.fail(t, zerr.With(domain.ErrNonRegularLeaf, "target", t.Name))

	case t.IsLeaf():
		r.setDone(t, nil)

	default:
		r.setDone(t, &r.stats.UpToDate)
	}
}

// buildSpecial handles the builtin targets and reports whether t was one.
func (r *Resolver) buildSpecial(t *domain.Target) bool {
	switch t.Name {
	case TargetCleanState:
		t.Time = domain.FtimeOf(r.now())
		r.cleanState = true
		if r.cfg.UseStateFile {
			if err := r.store.Remove(r.cfg.StateFile); err != nil {
				r.rep.Warn(fmt.Sprintf("cannot remove state file: %v", err))
			}
		}
		for _, tt := range r.g.Targets() {
			for _, d := range tt.Srcs {
				d.LastSrcTime = domain.TimeMissing
			}
		}
	case TargetAlways:
		t.Time = domain.FtimeAlways(r.now())
	case TargetInit:
		t.Time = domain.TimeInit
	default:
		return false
	}
	return true
}

// outdated reports whether t has to be rebuilt. Under mt a target is outdated
// if a source is newer; under mtid and cksum if a source signature differs from
// the one recorded at the last build.
func (r *Resolver) outdated(t *domain.Target) bool {
	if t.Time.IsZero() {
		r.fileTime(t)
	}
	if t.Alias || t.Time.Less(domain.TimeInit) {
		return true
	}
	for _, d := range t.Srcs {
		if d.Rule == domain.InternalRule {
			continue
		}
		if d.Deleted {
			return true
		}
		src := d.Src
		if r.algo.Ordered() {
			if t.Time.Less(src.Time) {
				t.OlderThan = src
				return true
			}
		} else if src.Time != d.LastSrcTime {
			t.OlderThan = src
			return true
		}
	}
	return t.Rule != nil && t.RuleID != 0 && t.RuleIDNew != t.RuleID
}

// setDone marks t built, records the source signatures and wakes up the
// dependents and the group.
func (r *Resolver) setDone(t *domain.Target, counter *int) {
	t.RuleID = t.RuleIDNew
	r.deselect(t, domain.StatusBuilt)
	if counter != nil && (!t.Alias || t.Rule != nil || t.ReqBy == nil) {
		*counter++
	}
	for _, d := range t.LiveSources() {
		d.LastSrcTime = d.Src.Time
	}
	r.unlockGroup(t)
	for _, d := range t.LiveDependents() {
		r.tryBuild(d.Tgt)
	}
}

// unlockGroup releases the group lock held by t and lets the next member in.
func (r *Resolver) unlockGroup(t *domain.Target) {
	g := t.Group
	if g == nil || !g.Unlock(t) {
		return
	}
	for _, m := range g.Snapshot() {
		r.tryBuild(m)
		if g.LockedBy != nil {
			return
		}
	}
}

// fail marks t failed and cancels its dependents. A failed member of a fail-all
// group keeps the lock, so the other members are cancelled as well.
func (r *Resolver) fail(t *domain.Target, err error) {
	if err != nil {
		r.rep.Error(err)
	}
	r.stats.Failed++
	r.deselect(t, domain.StatusFailed)
	for _, d := range t.LiveDependents() {
		r.cancel(d.Tgt)
	}
	if g := t.Group; g != nil && g.FailAll {
		for _, m := range g.Snapshot() {
			if m != t && m.Time.IsZero() {
				r.cancel(m)
			}
		}
		return
	}
	r.unlockGroup(t)
}

func (r *Resolver) cancel(t *domain.Target) {
	switch t.Status {
	case domain.StatusFailed, domain.StatusIgnored, domain.StatusBuilt:
		return
	}
	r.stats.Cancelled++
	r.deselect(t, domain.StatusFailed)
	for _, d := range t.LiveDependents() {
		r.cancel(d.Tgt)
	}
	r.unlockGroup(t)
}

// exec submits the build script of t.
func (r *Resolver) exec(t *domain.Target) {
	if r.run.Halted() {
		r.cancel(t)
		return
	}
	t.SetStatus(domain.StatusBuilding)
	if g := t.Group; g != nil {
		g.Lock(t)
	}
	r.run.Submit(&scheduler.Script{
		Kind:   scheduler.KindBuild,
		Target: t,
		Cfg:    t.Cfg,
		Text:   t.Script,
		Env:    r.scriptEnv(t),
	})
}

// scriptEnv returns YABU_TARGET, YABU_CONFIGURATION and the exported
// variables expanded under the target's configuration.
func (r *Resolver) scriptEnv(t *domain.Target) []string {
	env := []string{"YABU_TARGET=" + t.Name, "YABU_CONFIGURATION=" + t.Cfg}
	if len(r.g.Exports) == 0 {
		return env
	}

	scope := r.g.Scope
	saved := scope.Save()
	defer scope.Restore(saved)
	if cfg, err := scope.Options().Parse(t.Cfg); err == nil {
		scope.Restore(cfg)
	}
	for _, e := range r.g.Exports {
		if e.FromEnv {
			if v, ok := os.LookupEnv(e.Name); ok {
				env = append(env, e.Name+"="+v)
			}
			continue
		}
		v, err := scope.Expand(e.Value, domain.Env{Args: t.Args, Tag: '%', Files: t.Files})
		if err != nil {
			r.rep.Warn(fmt.Sprintf("%s: cannot export %s: %v", t.Name, e.Name, err))
			continue
		}
		env = append(env, e.Name+"="+v)
	}
	return env
}

// OnJob receives the scheduler's notifications.
func (r *Resolver) OnJob(n scheduler.Notification) {
	sc := n.Script
	if sc == nil || sc.Target == nil || n.Event == scheduler.EventStarted {
		return
	}
	switch sc.Kind {
	case scheduler.KindBuild:
		r.onBuild(sc.Target, n)
	case scheduler.KindAutoDepend:
		r.onAutoDepend(sc.Target, n)
	}
}

func (r *Resolver) onBuild(t *domain.Target, n scheduler.Notification) {
	if t.Status != domain.StatusBuilding {
		return
	}
	switch n.Event {
	case scheduler.EventCancelled:
		r.cancel(t)

	case scheduler.EventFailed:
		r.fail(t, zerr.With(zerr.With(domain.ErrScriptFailed, "target", t.Name), "host", n.Host))
		if !t.Alias && r.algo.Ordered() && r.cfg.DryRun == 0 {
			// Make the half-written target older than everything else.
			if err := r.fs.SetTimes(t.Name, r.now(), domain.TimeInit.Time()); err != nil && !os.IsNotExist(err) {
				r.rep.Warn(fmt.Sprintf("%s: cannot reset modification time: %v", t.Name, err))
			}
		}

	case scheduler.EventOK:
		if t.Alias || r.cfg.DryRun > 0 {
			t.Time = domain.FtimeOf(r.now())
		} else if r.fileTime(t).IsZero() {
			r.fail(t, zerr.With(domain.ErrTargetNotBuilt, "target", t.Name))
			return
		}
		r.setDone(t, &r.stats.Built)
		if r.cfg.AutoDepend && r.cfg.UseStateFile && r.cfg.DryRun == 0 && t.AutoDepScript != "" {
			r.run.Submit(&scheduler.Script{
				Kind:    scheduler.KindAutoDepend,
				Target:  t,
				Cfg:     t.Cfg,
				Text:    t.AutoDepScript,
				Env:     r.scriptEnv(t),
				Collect: true,
			})
		}
	}
}

// onAutoDepend replaces the automatic sources of t by the words the script
// printed. Their current signatures become the recorded baseline.
func (r *Resolver) onAutoDepend(t *domain.Target, n scheduler.Notification) {
	switch n.Event {
	case scheduler.EventOK:
		t.DeleteAutoSources()
		for _, w := range strings.Fields(string(n.Output)) {
			if w == "\\" || strings.HasSuffix(w, ":") {
				continue
			}
			src := r.g.Target(w)
			if src.Time.IsZero() {
				r.fileTime(src)
			}
			d := domain.Connect(t, src, nil)
			d.LastSrcTime = src.Time
		}
	case scheduler.EventFailed:
		r.rep.Warn(fmt.Sprintf("%s: auto-depend script failed", t.Name))
	}
}
