package resolver

import (
	"fmt"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

// LoadState reads the state file into the graph: the configuration and rule
// signature of every recorded target, and its sources as automatic edges with
// their recorded signatures.
//
// A configured algorithm of TsDefault adopts the recorded one. If the recorded
// algorithm differs from the configured one, the recorded signatures are
// discarded.
func (r *Resolver) LoadState() error {
	if !r.cfg.UseStateFile {
		if !r.algo.Ordered() {
			return zerr.With(domain.ErrStateFileRequired, "timestamps", r.algo.String())
		}
		return nil
	}

	st, err := r.store.Load(r.cfg.StateFile)
	if err != nil {
		return err
	}

	discard := false
	switch {
	case r.cfg.Algo == domain.TsDefault && st.Algo.Valid():
		r.algo = st.Algo
	case st.Algo.Valid() && st.Algo != r.algo:
		r.rep.Info(fmt.Sprintf("timestamp algorithm changed from %s to %s, rebuilding", st.Algo, r.algo))
		discard = true
	}

	for _, rec := range st.Targets {
		t := r.g.Target(rec.Name)
		t.Cfg = rec.Cfg
		t.RuleID = rec.RuleID
		for _, s := range rec.Sources {
			d := domain.Connect(t, r.g.Target(s.Name), nil)
			if !discard {
				d.LastSrcTime = s.Time
			}
		}
	}
	return nil
}

// SaveState writes every file target with recorded sources. Nothing is written
// in dry-run mode or after !CLEAN_STATE was built.
func (r *Resolver) SaveState() error {
	if !r.cfg.UseStateFile || r.cleanState || r.cfg.DryRun > 0 {
		return nil
	}

	st := &domain.State{Algo: r.algo}
	for _, t := range r.g.Targets() {
		if t.Alias {
			continue
		}
		var srcs []domain.SourceRecord
		for _, d := range t.LiveSources() {
			if strings.HasPrefix(d.Src.Name, "!") {
				continue
			}
			srcs = append(srcs, domain.SourceRecord{Name: d.Src.Name, Time: d.LastSrcTime})
		}
		if len(srcs) == 0 {
			continue
		}
		st.Targets = append(st.Targets, domain.TargetRecord{
			Name:    t.Name,
			Cfg:     t.Cfg,
			RuleID:  t.RuleID,
			Sources: srcs,
		})
	}
	return r.store.Save(r.cfg.StateFile, st)
}
