package resolver

import (
	"context"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

// Configure sets the base configuration of the run: the given option strings
// in order, then every "!configure" block of the Buildfile.
func (r *Resolver) Configure(ctx context.Context, cfgs ...string) error {
	scope := r.g.Scope
	for _, cfg := range cfgs {
		if err := scope.CfgChange(cfg); err != nil {
			return zerr.With(err, "configuration", cfg)
		}
	}
	for _, ac := range r.g.AutoConfigure {
		var err error
		if ac.Selector != "" {
			err = r.configureBySelector(ac)
		} else {
			err = r.configureByScript(ctx, ac)
		}
		if err != nil {
			return zerr.With(err, "pos", ac.Pos.String())
		}
	}
	return nil
}

// configureBySelector applies the configuration of the first "pattern: cfg"
// line whose pattern matches the expanded selector.
func (r *Resolver) configureBySelector(ac domain.AutoConfigure) error {
	scope := r.g.Scope
	sel, err := scope.Expand(ac.Selector, domain.Env{})
	if err != nil {
		return err
	}
	sel = strings.TrimSpace(sel)

	for _, l := range ac.Script.Lines {
		pat, cfg, ok := strings.Cut(l.Text, ":")
		if !ok {
			return zerr.With(zerr.Wrap(domain.ErrSyntax, "expected pattern: configuration"), "line", l.No)
		}
		args, ok := domain.Match('%', strings.TrimSpace(pat), sel)
		if !ok {
			continue
		}
		cfg, err = scope.Expand(strings.TrimSpace(cfg), domain.Env{Args: args, Tag: '%'})
		if err != nil {
			return err
		}
		return scope.CfgChange(cfg)
	}
	return zerr.With(zerr.Wrap(domain.ErrUndefined, "no configuration for selector"), "selector", sel)
}

// configureByScript runs the block locally. Every output word is an option:
// "name" and "+name" turn it on, "-name" turns it off.
func (r *Resolver) configureByScript(ctx context.Context, ac domain.AutoConfigure) error {
	script, err := r.expandSection(&ac.Script, domain.Env{})
	if err != nil {
		return err
	}
	out, err := r.run.RunLocal(ctx, "!configure", script, nil)
	if err != nil {
		return err
	}

	words := strings.Fields(string(out))
	for i, w := range words {
		name := w
		if w[0] == '+' || w[0] == '-' {
			name = w[1:]
		} else {
			words[i] = "+" + w
		}
		if !domain.ValidName(name) {
			return zerr.With(zerr.Wrap(domain.ErrSyntax, "invalid option in configure output"), "word", w)
		}
	}
	return r.g.Scope.CfgChange(strings.Join(words, " "))
}
