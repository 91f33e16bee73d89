package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/engine/resolver"
	"go.trai.ch/yabu/internal/engine/scheduler"
)

func TestRun_BuildsInDependencyOrder(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")

	r := h.newResolver(t, progBuildfile(), h.config())
	require.NoError(t, r.Run(context.Background(), nil))

	assert.Equal(t, []string{"b:a.o", "b:b.o", "b:prog"}, h.run.ran())
	assert.Equal(t, "cc -c a.c\n", h.run.scripts[0].Text)
	assert.Equal(t, "cc -o prog a.o b.o\n", h.run.scripts[2].Text)
	assert.Equal(t, resolver.Stats{Built: 3}, r.Stats())
	assert.Equal(t, 1, h.store.saved)
}

func TestRun_OnlyOutdatedTargetsAreRebuilt(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	require.NoError(t, h.newResolver(t, progBuildfile(), h.config()).Run(context.Background(), nil))

	r := h.newResolver(t, progBuildfile(), h.config())
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Empty(t, h.run.ran())
	assert.Contains(t, h.log.infos, "all is up to date")

	h.touch("a.c")
	r = h.newResolver(t, progBuildfile(), h.config())
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Equal(t, []string{"b:a.o", "b:prog"}, h.run.ran())
	assert.Equal(t, 2, r.Stats().Built)
	assert.Equal(t, 1, r.Stats().UpToDate)
}

func TestRun_OlderSourceKeepsTargetUpToDate(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	require.NoError(t, h.newResolver(t, progBuildfile(), h.config()).Run(context.Background(), nil))

	built := h.fs.files["a.o"]
	for _, tm := range []domain.Ftime{built, {Sec: built.Sec - 1}, domain.TimeInit} {
		h.fs.files["a.c"] = tm
		r := h.newResolver(t, progBuildfile(), h.config())
		require.NoError(t, r.Run(context.Background(), nil))
		assert.Empty(t, h.run.ran(), "a.c at %v", tm)
	}
}

func TestRun_ChecksumsAreStable(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	cfg := h.config()
	cfg.Algo = domain.TsCksum

	require.NoError(t, h.newResolver(t, progBuildfile(), cfg).Run(context.Background(), nil))
	require.Len(t, h.run.ran(), 3)

	r := h.newResolver(t, progBuildfile(), cfg)
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Empty(t, h.run.ran())

	h.fs.files["b.c"] = domain.Ftime{Sec: 77}
	r = h.newResolver(t, progBuildfile(), cfg)
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Equal(t, []string{"b:b.o", "b:prog"}, h.run.ran())
}

func TestRun_ChangedRuleRebuilds(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	require.NoError(t, h.newResolver(t, progBuildfile(), h.config()).Run(context.Background(), nil))

	bf := progBuildfile()
	bf.Rules[1] = rule(2, "prog", "a.o b.o", "cc -static -o $(0) $(*)")
	r := h.newResolver(t, bf, h.config())
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Equal(t, []string{"b:prog"}, h.run.ran())
}

func TestRun_ForcedDryRunRebuildsEverything(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	require.NoError(t, h.newResolver(t, progBuildfile(), h.config()).Run(context.Background(), nil))
	saved := h.store.saved

	h.run.onRun = func(*scheduler.Script) (scheduler.Event, string) { return scheduler.EventOK, "" }
	cfg := h.config()
	cfg.DryRun = 2
	r := h.newResolver(t, progBuildfile(), cfg)
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Equal(t, []string{"b:a.o", "b:b.o", "b:prog"}, h.run.ran())
	assert.Equal(t, saved, h.store.saved, "dry runs do not save state")
}

func TestRun_DryRunPropagatesToDependents(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	h.run.onRun = func(*scheduler.Script) (scheduler.Event, string) { return scheduler.EventOK, "" }
	cfg := h.config()
	cfg.DryRun = 1

	r := h.newResolver(t, progBuildfile(), cfg)
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Equal(t, []string{"b:a.o", "b:b.o", "b:prog"}, h.run.ran())
	assert.Zero(t, h.store.saved)
}

func TestRun_MostSpecificRuleWins(t *testing.T) {
	h := newHarness()
	h.touch("main.c")
	bf := &domain.Buildfile{Rules: []*domain.Rule{
		rule(1, "%.o", "%.c", "cc -c $(1)"),
		rule(3, "main.o", "main.c", "cc -O0 -c $(1)"),
	}}

	r := h.newResolver(t, bf, h.config())
	require.NoError(t, r.Run(context.Background(), []string{"main.o"}))
	require.Len(t, h.run.scripts, 1)
	assert.Equal(t, "cc -O0 -c main.c\n", h.run.scripts[0].Text)
}

func TestRun_AmbiguousRules(t *testing.T) {
	h := newHarness()
	h.touch("x.c", "x.s")
	bf := &domain.Buildfile{Rules: []*domain.Rule{
		rule(1, "%.o", "%.c", "cc -c $(1)"),
		rule(3, "%.o", "%.s", "as $(1)"),
	}}

	r := h.newResolver(t, bf, h.config())
	err := r.Run(context.Background(), []string{"x.o"})
	require.True(t, errors.Is(err, domain.ErrBuildFailed))
	assert.True(t, h.log.has(domain.ErrAmbiguousRules))
	assert.Empty(t, h.run.ran())
	assert.Equal(t, 1, r.Stats().Failed)
}

func TestRun_CircularDependency(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{Rules: []*domain.Rule{
		rule(1, "a", "b", "touch a"),
		rule(3, "b", "a", "touch b"),
	}}

	r := h.newResolver(t, bf, h.config())
	err := r.Run(context.Background(), []string{"a"})
	require.True(t, errors.Is(err, domain.ErrBuildFailed))
	assert.True(t, h.log.has(domain.ErrCircularDependency))
	assert.Empty(t, h.run.ran())
	assert.Equal(t, 2, r.Stats().Cancelled)
}

func TestRun_NoRule(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{Rules: []*domain.Rule{rule(1, "all", "missing.c")}}

	r := h.newResolver(t, bf, h.config())
	err := r.Run(context.Background(), nil)
	require.True(t, errors.Is(err, domain.ErrBuildFailed))
	assert.True(t, h.log.has(domain.ErrNoRule))
	assert.Equal(t, resolver.Stats{Failed: 1, Cancelled: 1}, r.Stats())
}

func TestRun_DirectoryLeafFails(t *testing.T) {
	h := newHarness()
	h.fs.dirs["src"] = true
	bf := &domain.Buildfile{Rules: []*domain.Rule{rule(1, "out", "src", "cp -r src out")}}

	r := h.newResolver(t, bf, h.config())
	require.Error(t, r.Run(context.Background(), []string{"out"}))
	assert.True(t, h.log.has(domain.ErrNonRegularLeaf))
}

func TestRun_FailureCancelsDependents(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	bf := progBuildfile()
	bf.Rules = append(bf.Rules, rule(6, "a.o", "a.c", "false"))
	h.fs.files["a.o"] = domain.Ftime{Sec: 1}

	r := h.newResolver(t, bf, h.config())
	err := r.Run(context.Background(), nil)
	require.True(t, errors.Is(err, domain.ErrBuildFailed))

	assert.Equal(t, []string{"b:a.o", "b:b.o"}, h.run.ran())
	assert.Equal(t, resolver.Stats{Built: 1, Failed: 1, Cancelled: 2}, r.Stats())
	assert.Equal(t, []string{"a.o"}, h.fs.reset)
	assert.Equal(t, domain.TimeInit, h.fs.files["a.o"])
	assert.True(t, h.log.has(domain.ErrScriptFailed))
}

func TestRun_MissingOutputFails(t *testing.T) {
	h := newHarness()
	h.touch("a.c")
	h.run.onRun = func(*scheduler.Script) (scheduler.Event, string) { return scheduler.EventOK, "" }
	bf := &domain.Buildfile{Rules: []*domain.Rule{rule(1, "%.o", "%.c", "true")}}

	r := h.newResolver(t, bf, h.config())
	require.Error(t, r.Run(context.Background(), []string{"a.o"}))
	assert.True(t, h.log.has(domain.ErrTargetNotBuilt))
}

func TestRun_SerializedTargetsBuildOneAtATime(t *testing.T) {
	bf := func(serial bool) *domain.Buildfile {
		f := &domain.Buildfile{Rules: []*domain.Rule{
			rule(1, "all", "x y"),
			rule(2, "x", "", "gen x"),
			rule(4, "y", "", "gen y"),
		}}
		if serial {
			f.Serials = []domain.SerialDecl{{Patterns: []string{"x", "y"}}}
		}
		return f
	}

	t.Run("parallel", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.newResolver(t, bf(false), h.config()).Run(context.Background(), nil))
		assert.Equal(t, 2, h.run.maxQueue)
	})
	t.Run("serialized", func(t *testing.T) {
		h := newHarness()
		require.NoError(t, h.newResolver(t, bf(true), h.config()).Run(context.Background(), nil))
		assert.Equal(t, 1, h.run.maxQueue)
		assert.Equal(t, []string{"b:x", "b:y"}, h.run.ran())
	})
}

func TestRun_SerializedFailureLetsTheNextMemberRun(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{
		Rules: []*domain.Rule{
			rule(1, "x", "", "false"),
			rule(3, "y", "", "gen y"),
		},
		Serials: []domain.SerialDecl{{ID: "gen", Patterns: []string{"%"}}},
	}

	r := h.newResolver(t, bf, h.config())
	require.Error(t, r.Run(context.Background(), []string{"x", "y"}))
	assert.Equal(t, []string{"b:x", "b:y"}, h.run.ran())
	assert.Equal(t, resolver.Stats{Built: 1, Failed: 1}, r.Stats())
}

func TestRun_MultiOutputRuleFailsTogether(t *testing.T) {
	h := newHarness()
	h.touch("gen.in")
	bf := &domain.Buildfile{Rules: []*domain.Rule{
		rule(1, "all", "a.h b.h"),
		rule(2, "a.h b.h", "gen.in", "false"),
	}}

	r := h.newResolver(t, bf, h.config())
	require.Error(t, r.Run(context.Background(), nil))
	assert.Equal(t, []string{"b:a.h"}, h.run.ran())
	assert.Equal(t, 1, r.Stats().Failed)
	assert.Equal(t, 2, r.Stats().Cancelled)
}

func TestSelect_GroupMembersBuildInTurn(t *testing.T) {
	h := newHarness()
	h.touch("common.c")
	gen := rule(1, "a.o b.o", "common.c", "cc -c common.c")
	gen.Alias = true
	r := h.newResolver(t, &domain.Buildfile{Rules: []*domain.Rule{gen}}, h.config())

	overlap := false
	h.run.onRun = func(sc *scheduler.Script) (scheduler.Event, string) {
		a, _ := r.Graph().Lookup("a.o")
		b, _ := r.Graph().Lookup("b.o")
		overlap = overlap || a.Status == domain.StatusBuilding && b.Status == domain.StatusBuilding
		return h.build(sc)
	}

	ctx := context.Background()
	a := r.Select(ctx, "a.o")
	b := r.Select(ctx, "b.o")
	assert.Equal(t, domain.StatusBuilding, a.Status)
	assert.Equal(t, domain.StatusSelected, b.Status)
	assert.Len(t, h.run.queue, 1)

	// b.o is submitted when a.o releases the group, without another Select.
	require.NoError(t, h.run.ProcessQueue(ctx, true))
	assert.Equal(t, []string{"b:a.o", "b:b.o"}, h.run.ran())
	assert.Equal(t, domain.StatusBuilt, a.Status)
	assert.Equal(t, domain.StatusBuilt, b.Status)
	assert.False(t, overlap)
	assert.Equal(t, 1, h.run.maxQueue)
	assert.Equal(t, 2, r.Stats().Built)
}

func TestSelect_CommaOrdersSourceGroups(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{Rules: []*domain.Rule{
		rule(1, "all", "gen.h , a.o b.o , link"),
	}}

	r := h.newResolver(t, bf, h.config())
	r.Select(context.Background(), "all")

	g := r.Graph()
	edge := func(tgt, src string) bool {
		a, _ := g.Lookup(tgt)
		b, _ := g.Lookup(src)
		return a != nil && b != nil && a.Source(b) != nil
	}
	assert.True(t, edge("a.o", "gen.h"))
	assert.True(t, edge("b.o", "gen.h"))
	assert.True(t, edge("link", "a.o"))
	assert.True(t, edge("link", "b.o"))
	assert.False(t, edge("link", "gen.h"))
	assert.False(t, edge("b.o", "a.o"))
}

func TestSelect_ArchiveMembers(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{Rules: []*domain.Rule{
		rule(1, "libx.a", "libx.a(x.o y.o) z.o", "ar rv $(0) $(*)"),
	}}

	r := h.newResolver(t, bf, h.config())
	tgt := r.Select(context.Background(), "libx.a")
	assert.Equal(t, []string{"libx.a", "libx.a(x.o)", "libx.a(y.o)", "z.o"}, tgt.Files)
}

func TestSelect_UnbalancedArchiveMember(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{Rules: []*domain.Rule{rule(1, "lib.a", "lib.a(x.o", "ar rv $(0)")}}

	r := h.newResolver(t, bf, h.config())
	tgt := r.Select(context.Background(), "lib.a")
	assert.Equal(t, domain.StatusFailed, tgt.Status)
	assert.True(t, h.log.has(domain.ErrUnbalanced))
}

func TestSelect_EdgesAreNotDuplicated(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{Rules: []*domain.Rule{
		rule(1, "prog", "a.o a.o", "cc -o prog a.o"),
		rule(3, "prog", "a.o"),
	}}

	r := h.newResolver(t, bf, h.config())
	tgt := r.Select(context.Background(), "prog")
	var named []string
	for _, d := range tgt.Srcs {
		named = append(named, d.Src.Name)
	}
	assert.ElementsMatch(t, []string{resolver.TargetInit, "a.o"}, named)
}

func TestPrepareBuild_ScriptIndentation(t *testing.T) {
	h := newHarness()
	h.run.onRun = func(*scheduler.Script) (scheduler.Event, string) { return scheduler.EventOK, "" }
	r := &domain.Rule{
		Targets: "all",
		Script: &domain.Section{Lines: []domain.Line{
			{No: 2, Text: "    if true; then"},
			{No: 3, Text: "\techo $(0)"},
			{No: 5, Text: "    fi"},
		}},
	}

	res := h.newResolver(t, &domain.Buildfile{Rules: []*domain.Rule{r}}, h.config())
	require.NoError(t, res.Run(context.Background(), nil))
	require.Len(t, h.run.scripts, 1)
	assert.Equal(t, "if true; then\n    echo all\n\nfi\n", h.run.scripts[0].Text)
}

func TestExec_Environment(t *testing.T) {
	h := newHarness()
	t.Setenv("YABU_TEST_HOME", "/home/test")
	bf := &domain.Buildfile{
		Options:     []domain.OptionDecl{{Name: "debug"}},
		Assignments: []domain.Assignment{{Name: "CC", Value: "gcc"}},
		Exports: []domain.Export{
			{Name: "CC", Value: "$(CC)"},
			{Name: "YABU_TEST_HOME", FromEnv: true},
			{Name: "YABU_TEST_UNSET", FromEnv: true},
		},
		Rules: []*domain.Rule{
			{Targets: "out", Cfg: "+debug", Script: script(2, "build"), Pos: domain.Pos{Line: 1}},
		},
	}

	r := h.newResolver(t, bf, h.config())
	require.NoError(t, r.Run(context.Background(), []string{"out"}))
	require.Len(t, h.run.scripts, 1)
	assert.Equal(t, []string{
		"YABU_TARGET=out",
		"YABU_CONFIGURATION=+debug",
		"CC=gcc",
		"YABU_TEST_HOME=/home/test",
	}, h.run.scripts[0].Env)
	assert.Equal(t, "+debug", h.run.scripts[0].Cfg)
}

func TestSelect_ConfigurationGuards(t *testing.T) {
	bf := &domain.Buildfile{
		Options: []domain.OptionDecl{{Name: "debug"}},
		Rules: []*domain.Rule{
			{Targets: "prog", Cfg: "+debug", Script: script(2, "cc -g"), Pos: domain.Pos{Line: 1}},
			{Targets: "prog", Cfg: "-debug", Script: script(4, "cc -O2"), Pos: domain.Pos{Line: 3}},
		},
	}

	for cfg, want := range map[string]string{"+debug": "cc -g\n", "-debug": "cc -O2\n"} {
		t.Run(cfg, func(t *testing.T) {
			h := newHarness()
			r := h.newResolver(t, bf, h.config())
			require.NoError(t, r.Configure(context.Background(), cfg))
			require.NoError(t, r.Run(context.Background(), []string{"prog"}))
			require.Len(t, h.run.scripts, 1)
			assert.Equal(t, want, h.run.scripts[0].Text)
		})
	}
}

func TestSelect_ConfigureRules(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{
		Options:   []domain.OptionDecl{{Name: "debug"}},
		Configure: []domain.ConfigureRule{{Cfg: "+debug", Patterns: []string{"dbg/%"}}},
		Rules: []*domain.Rule{
			{Targets: "%/prog", Cfg: "+debug", Script: script(2, "cc -g -o $(0)"), Pos: domain.Pos{Line: 1}},
		},
	}

	r := h.newResolver(t, bf, h.config())
	require.NoError(t, r.Configure(context.Background(), "-debug"))
	require.Error(t, r.Run(context.Background(), []string{"rel/prog"}))
	assert.True(t, h.log.has(domain.ErrNoRule))

	r = h.newResolver(t, bf, h.config())
	require.NoError(t, r.Configure(context.Background(), "-debug"))
	require.NoError(t, r.Run(context.Background(), []string{"dbg/prog"}))
	assert.Equal(t, []string{"b:dbg/prog"}, h.run.ran())
}

func TestRun_CreateOnly(t *testing.T) {
	h := newHarness()
	h.touch("config.h", "config.in")
	r := rule(1, "config.h", "config.in", "cp config.in config.h")
	r.CreateOnly = true

	res := h.newResolver(t, &domain.Buildfile{Rules: []*domain.Rule{r}}, h.config())
	require.Error(t, res.Run(context.Background(), []string{"config.h"}))
	assert.True(t, h.log.has(domain.ErrTargetExists))
	assert.Empty(t, h.run.ran())
}

func TestRun_AlwaysIsNeverUpToDate(t *testing.T) {
	h := newHarness()
	bf := &domain.Buildfile{Rules: []*domain.Rule{rule(1, "stamp", "!ALWAYS", "date > stamp")}}

	for range 2 {
		r := h.newResolver(t, bf, h.config())
		require.NoError(t, r.Run(context.Background(), []string{"stamp"}))
		assert.Equal(t, []string{"b:stamp"}, h.run.ran())
	}
}

func TestRun_AutoMkdir(t *testing.T) {
	h := newHarness()
	cfg := h.config()
	cfg.AutoMkdir = true
	bf := &domain.Buildfile{Rules: []*domain.Rule{rule(1, "out/%.txt", "", "echo > $(0)")}}

	r := h.newResolver(t, bf, cfg)
	require.NoError(t, r.Run(context.Background(), []string{"out/a.txt"}))
	assert.Contains(t, h.fs.mkdirs, "out/a.txt")
	assert.NotContains(t, h.fs.mkdirs, resolver.TargetInit)
}

func TestRun_AutoDepend(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "a.h")
	h.run.onRun = func(sc *scheduler.Script) (scheduler.Event, string) {
		if sc.Kind == scheduler.KindAutoDepend {
			return scheduler.EventOK, "a.o: a.c \\\n a.h\n"
		}
		return h.build(sc)
	}
	r := rule(1, "%.o", "%.c", "cc -c $(1)")
	r.AutoDepScript = script(3, "cc -MM $(1)")
	bf := &domain.Buildfile{Rules: []*domain.Rule{r}}

	res := h.newResolver(t, bf, h.config())
	require.NoError(t, res.Run(context.Background(), []string{"a.o"}))
	assert.Equal(t, []string{"b:a.o", "a:a.o"}, h.run.ran())
	assert.Equal(t, "cc -MM a.c\n", h.run.scripts[1].Text)
	assert.True(t, h.run.scripts[1].Collect)

	tgt, _ := res.Graph().Lookup("a.o")
	hdr, _ := res.Graph().Lookup("a.h")
	require.NotNil(t, tgt.Source(hdr))
	assert.True(t, tgt.Source(hdr).Automatic())
	assert.Equal(t, h.fs.files["a.h"], tgt.Source(hdr).LastSrcTime)

	res = h.newResolver(t, bf, h.config())
	require.NoError(t, res.Run(context.Background(), []string{"a.o"}))
	assert.Empty(t, h.run.ran())

	h.touch("a.h")
	res = h.newResolver(t, bf, h.config())
	require.NoError(t, res.Run(context.Background(), []string{"a.o"}))
	assert.Equal(t, []string{"b:a.o", "a:a.o"}, h.run.ran())
}

func TestRun_VanishedAutoSourceIsDropped(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "a.o")
	h.store.state = &domain.State{
		Algo: domain.TsMtime,
		Targets: []domain.TargetRecord{{
			Name: "a.o",
			Sources: []domain.SourceRecord{
				{Name: "a.c", Time: h.fs.files["a.c"]},
				{Name: "gone.h", Time: domain.Ftime{Sec: 3}},
			},
		}},
	}
	bf := &domain.Buildfile{Rules: []*domain.Rule{rule(1, "%.o", "%.c", "cc -c $(1)")}}

	r := h.newResolver(t, bf, h.config())
	require.NoError(t, r.Run(context.Background(), []string{"a.o"}))
	assert.Equal(t, []string{"b:a.o"}, h.run.ran())
	require.Len(t, h.store.state.Targets, 1)
	assert.Equal(t, []domain.SourceRecord{{Name: "a.c", Time: h.fs.files["a.c"]}}, h.store.state.Targets[0].Sources)
}

func TestRun_CleanState(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	require.NoError(t, h.newResolver(t, progBuildfile(), h.config()).Run(context.Background(), nil))
	saved := h.store.saved

	bf := progBuildfile()
	bf.Rules = append(bf.Rules, rule(6, "clean", "!CLEAN_STATE"))
	r := h.newResolver(t, bf, h.config())
	require.NoError(t, r.Run(context.Background(), []string{"clean"}))
	assert.Equal(t, 1, h.store.removed)
	assert.Equal(t, saved, h.store.saved)
	assert.Nil(t, h.store.state)
}

func TestRun_HaltStopsSelection(t *testing.T) {
	h := newHarness()
	h.touch("a.c", "b.c")
	h.run.Halt()

	g, err := resolver.NewGraph(progBuildfile(), nil)
	require.NoError(t, err)
	r := resolver.New(h.config(), g, h.run, h.fs, h.store, resolver.NewReporter(h.log, 0))
	require.NoError(t, r.Run(context.Background(), nil))
	assert.Empty(t, h.run.ran())

	all, _ := g.Lookup("all")
	assert.Equal(t, domain.StatusIgnored, all.Status)
}
