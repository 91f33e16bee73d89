package resolver

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

// match is a rule that applies to a target.
type match struct {
	rule    *domain.Rule
	args    []string
	cfg     string
	files   []string
	score   int
	pattern string
}

func (r *Resolver) selectTarget(ctx context.Context, t *domain.Target, reqBy *domain.Dependency) {
	switch t.Status {
	case domain.StatusSelecting:
		r.rep.Error(zerr.With(domain.ErrCircularDependency, "target", t.Name))
		return
	case domain.StatusIgnored:
	default:
		return
	}
	if r.run.Halted() {
		return
	}

	r.depth++
	defer func() { r.depth-- }()
	if r.depth > domain.MaxSelectDepth {
		r.rep.Error(zerr.With(zerr.Wrap(domain.ErrCircularDependency, "nesting too deep"), "target", t.Name))
		return
	}

	if t.Name != TargetInit {
		domain.Connect(t, r.g.Target(TargetInit), domain.InternalRule)
	}
	t.SetStatus(domain.StatusSelecting)
	t.MarkSelected(true)
	t.ReqBy = reqBy

	r.selectRule(t)
	if t.Status != domain.StatusSelecting {
		return
	}

	// A discovered source that vanished and cannot be rebuilt is dropped.
	if t.Rule == nil && reqBy != nil && reqBy.Automatic() && t.Time.IsZero() && r.fileTime(t).IsZero() {
		r.deselect(t, domain.StatusIgnored)
		reqBy.Destroy()
		return
	}

	for _, d := range t.LiveSources() {
		if !d.Deleted {
			r.selectTarget(ctx, d.Src, d)
		}
	}
	if t.Status != domain.StatusSelecting {
		return
	}
	t.SetStatus(domain.StatusSelected)
	r.tryBuild(t)
	if err := r.run.ProcessQueue(ctx, false); err != nil {
		r.run.Halt()
	}
}

func (r *Resolver) deselect(t *domain.Target, st domain.Status) {
	t.MarkSelected(false)
	t.SetStatus(st)
}

// selectRule finds the rules applying to t. Rules without a script only add
// sources; of the rules with a script the most specific pattern wins.
func (r *Resolver) selectRule(t *domain.Target) {
	if r.cfg.AutoMkdir && !t.Alias {
		if err := r.fs.MkdirParents(t.Name); err != nil {
			r.rep.Warn(fmt.Sprintf("%s: cannot create directory: %v", t.Name, err))
		}
	}

	scope := r.g.Scope
	saved := scope.Save()
	defer scope.Restore(saved)
	if cfg, ok := domain.ConfigureFor(r.g.Configure, t.Name); ok {
		if err := scope.CfgChange(cfg); err != nil {
			r.fail(t, zerr.With(err, "target", t.Name))
			return
		}
	}

	var (
		best   *match
		second *match
		found  bool
	)
	bestScore := math.MinInt
	for _, rule := range r.g.Rules {
		if t.ReqBy != nil && t.ReqBy.Rule == rule {
			continue
		}
		m, err := r.matchRule(t, rule)
		if err != nil {
			r.fail(t, zerr.With(zerr.With(err, "target", t.Name), "rule", rule.Pos.String()))
			return
		}
		if m == nil {
			continue
		}
		if !rule.HasScript() {
			r.addSources(t, m.files, rule)
			found = true
			continue
		}
		switch {
		case m.score > bestScore:
			best, second, bestScore = m, nil, m.score
		case m.score == bestScore:
			second = m
		}
	}

	switch {
	case best != nil && second != nil:
		err := zerr.With(zerr.With(domain.ErrAmbiguousRules, "target", t.Name),
			"rules", best.rule.Pos.String()+" "+second.rule.Pos.String())
		r.fail(t, err)
	case best != nil:
		r.prepareBuild(t, best)
	case found:
		t.Alias = true
	}
}

// matchRule returns the match of the first pattern of rule that applies to t,
// or nil. Rules whose configuration guard conflicts with the current
// configuration do not apply.
func (r *Resolver) matchRule(t *domain.Target, rule *domain.Rule) (*match, error) {
	scope := r.g.Scope
	targets, err := scope.Expand(rule.Targets, domain.Env{})
	if err != nil {
		return nil, err
	}

	for _, pat := range strings.Fields(targets) {
		var args []string
		if strings.HasPrefix(pat, "!") {
			if pat != t.Name {
				continue
			}
		} else {
			var ok bool
			if args, ok = domain.Match('%', pat, t.Name); !ok {
				continue
			}
		}

		env := domain.Env{Args: args, Tag: '%', Files: []string{t.Name}}
		saved := scope.Save()
		if rule.Cfg != "" {
			cfg, err := scope.Expand(rule.Cfg, env)
			if err != nil {
				scope.Restore(saved)
				return nil, err
			}
			if !scope.TryCfgChange(cfg) {
				scope.Restore(saved)
				continue
			}
		}

		m := &match{
			rule:    rule,
			args:    args,
			cfg:     scope.CurrentCfg(),
			score:   domain.PatternPriority(pat),
			pattern: pat,
		}
		srcs, err := r.splitSources(rule.Sources, env)
		scope.Restore(saved)
		if err != nil {
			return nil, err
		}
		m.files = append([]string{t.Name}, srcs...)
		return m, nil
	}
	return nil, nil
}

// splitSources expands a source list into words. "lib.a(x.o y.o)" yields
// "lib.a(x.o)" and "lib.a(y.o)"; a lone "," is kept as a group separator.
func (r *Resolver) splitSources(text string, env domain.Env) ([]string, error) {
	exp, err := r.g.Scope.Expand(text, env)
	if err != nil {
		return nil, err
	}

	var out []string
	i := 0
	for i < len(exp) {
		for i < len(exp) && isBlank(exp[i]) {
			i++
		}
		start := i
		for i < len(exp) && !isBlank(exp[i]) && exp[i] != '(' {
			i++
		}
		word := exp[start:i]
		if i < len(exp) && exp[i] == '(' {
			end := strings.IndexByte(exp[i:], ')')
			if end < 0 {
				return nil, zerr.With(domain.ErrUnbalanced, "sources", exp)
			}
			for _, member := range strings.Fields(exp[i+1 : i+end]) {
				out = append(out, word+"("+member+")")
			}
			i += end + 1
			continue
		}
		if word != "" {
			out = append(out, word)
		}
	}
	return out, nil
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// addSources connects the sources in files[1:] to t. A source following a ","
// also depends on every source of the group before the comma. The result is
// files without the separators.
func (r *Resolver) addSources(t *domain.Target, files []string, rule *domain.Rule) []string {
	out := []string{files[0]}
	var prev, cur []*domain.Target
	for _, name := range files[1:] {
		if name == "," {
			if len(cur) > 0 {
				prev, cur = cur, nil
			}
			continue
		}
		src := r.g.Target(name)
		domain.Connect(t, src, rule)
		for _, p := range prev {
			if p != src {
				domain.Connect(src, p, rule)
			}
		}
		cur = append(cur, src)
		out = append(out, name)
	}
	return out
}

// prepareBuild records the winning rule and expands its scripts under the
// target's configuration.
func (r *Resolver) prepareBuild(t *domain.Target, m *match) {
	rule := m.rule
	t.Rule = rule
	t.Args = m.args
	t.Cfg = m.cfg
	t.Alias = t.Alias || rule.Alias || t.Name == TargetAll
	t.Files = r.addSources(t, m.files, rule)
	r.setGroup(t, m)

	scope := r.g.Scope
	saved := scope.Save()
	defer scope.Restore(saved)
	if cfg, err := scope.Options().Parse(t.Cfg); err == nil {
		scope.Restore(cfg)
	}

	env := domain.Env{Args: t.Args, Tag: '%', Files: t.Files}
	script, err := r.expandSection(rule.Script, env)
	if err != nil {
		r.fail(t, zerr.With(zerr.With(err, "target", t.Name), "rule", rule.Pos.String()))
		return
	}
	t.Script = script
	if r.cfg.AutoDepend && rule.AutoDepScript != nil {
		if t.AutoDepScript, err = r.expandSection(rule.AutoDepScript, env); err != nil {
			r.fail(t, zerr.With(zerr.With(err, "target", t.Name), "rule", rule.Pos.String()))
			return
		}
	}
	t.RuleIDNew = ruleID(t.Script, t.Files[1:])
}

// setGroup puts t into the first matching "!serialize" group or, for rules
// building several targets at once, into the rule invocation's group.
func (r *Resolver) setGroup(t *domain.Target, m *match) {
	grp := r.g.serialGroup(t.Name)
	if grp == nil && (len(m.args) > 0 || strings.TrimSpace(m.rule.Targets) != t.Name) {
		grp = r.g.implicitGroup(m.rule, m.args)
	}
	if grp == nil || grp == t.Group {
		return
	}
	if t.Group != nil {
		t.Group.Remove(t)
	}
	t.Group = grp
	grp.Add(t)
}
