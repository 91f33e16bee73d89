// Package resolver turns requested target names into a dependency graph,
// decides what is outdated and hands build scripts to the scheduler.
package resolver

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

// Special target names.
const (
	TargetInit       = "!INIT"
	TargetAlways     = "!ALWAYS"
	TargetCleanState = "!CLEAN_STATE"
	TargetAll        = "all"
)

type serial struct {
	patterns []string
	group    *domain.Group
}

type implicitKey struct {
	rule *domain.Rule
	args string
}

// Graph holds everything one run knows about the project: the target pool,
// the rules and the variable scope. It is built once per run.
type Graph struct {
	Scope         *domain.Scope
	Rules         []*domain.Rule
	Configure     []domain.ConfigureRule
	AutoConfigure []domain.AutoConfigure
	Exports       []domain.Export

	targets  map[string]*domain.Target
	serials  []serial
	implicit map[implicitKey]*domain.Group
}

// NewGraph declares the Buildfile's options, defines the system variables and
// executes the assignments.
func NewGraph(bf *domain.Buildfile, sys map[string]string) (*Graph, error) {
	opts := domain.NewOptions()
	for _, d := range bf.Options {
		if err := opts.Declare(d); err != nil {
			return nil, zerr.With(err, "file", bf.Path)
		}
	}

	scope := domain.NewScope(opts)
	for _, name := range slices.Sorted(maps.Keys(sys)) {
		scope.SetSystem(name, sys[name])
	}
	for _, a := range bf.Assignments {
		if err := scope.Assign(a); err != nil {
			return nil, zerr.With(err, "pos", a.Pos.String())
		}
	}

	g := &Graph{
		Scope:         scope,
		Rules:         bf.Rules,
		Configure:     bf.Configure,
		AutoConfigure: bf.AutoConfigure,
		Exports:       bf.Exports,
		targets:       map[string]*domain.Target{},
		implicit:      map[implicitKey]*domain.Group{},
	}
	for i, d := range bf.Serials {
		name := d.ID
		if name == "" {
			name = fmt.Sprintf("!serialize-%d", i+1)
		}
		g.serials = append(g.serials, serial{patterns: d.Patterns, group: domain.NewGroup(name, false)})
	}
	return g, nil
}

// Target returns the target called name, creating it on first reference.
func (g *Graph) Target(name string) *domain.Target {
	if t, ok := g.targets[name]; ok {
		return t
	}
	t := domain.NewTarget(name)
	g.targets[name] = t
	return t
}

// Lookup returns an existing target.
func (g *Graph) Lookup(name string) (*domain.Target, bool) {
	t, ok := g.targets[name]
	return t, ok
}

// Targets returns every target sorted by name.
func (g *Graph) Targets() []*domain.Target {
	out := make([]*domain.Target, 0, len(g.targets))
	for _, name := range slices.Sorted(maps.Keys(g.targets)) {
		out = append(out, g.targets[name])
	}
	return out
}

// serialGroup returns the first "!serialize" group with a pattern matching name.
func (g *Graph) serialGroup(name string) *domain.Group {
	for _, s := range g.serials {
		for _, p := range s.patterns {
			if _, ok := domain.Match('%', p, name); ok {
				return s.group
			}
		}
	}
	return nil
}

// implicitGroup returns the fail-all group shared by every target built by one
// rule invocation.
func (g *Graph) implicitGroup(rule *domain.Rule, args []string) *domain.Group {
	key := implicitKey{rule: rule, args: strings.Join(args, "\x00")}
	if grp, ok := g.implicit[key]; ok {
		return grp
	}
	name := rule.Pos.String()
	if len(args) > 0 {
		name += "(" + strings.Join(args, ",") + ")"
	}
	grp := domain.NewGroup(name, true)
	g.implicit[key] = grp
	return grp
}
