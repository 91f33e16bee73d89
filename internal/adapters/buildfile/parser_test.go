package buildfile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/internal/adapters/buildfile"
	"go.trai.ch/yabu/internal/core/domain"
)

func parse(t *testing.T, text string) *domain.Buildfile {
	t.Helper()
	bf, err := buildfile.NewParser().ParseReader("Buildfile", strings.NewReader(text))
	require.NoError(t, err)
	return bf
}

func TestParse_Rules(t *testing.T) {
	bf := parse(t, `# comment
all:: prog

prog: a.o b.o
	cc -o $(0) $(*)
%.o: [+debug] %.c
	[build]
	cc -g -c $(1)
	[auto-depend]
	cc -MM $(1)
VERSION.h:? version.txt
	echo > $(0)
lib.a: lib.a(x.o y.o)
`)
	require.Len(t, bf.Rules, 5)

	all := bf.Rules[0]
	assert.Equal(t, "all", all.Targets)
	assert.Equal(t, "prog", all.Sources)
	assert.True(t, all.Alias)
	assert.Nil(t, all.Script)

	prog := bf.Rules[1]
	assert.Equal(t, domain.Pos{File: "Buildfile", Line: 4}, prog.Pos)
	require.NotNil(t, prog.Script)
	assert.Equal(t, []domain.Line{{No: 5, Text: "\tcc -o $(0) $(*)"}}, prog.Script.Lines)

	obj := bf.Rules[2]
	assert.Equal(t, "%.o", obj.Targets)
	assert.Equal(t, "+debug", obj.Cfg)
	assert.Equal(t, "%.c", obj.Sources)
	assert.Equal(t, []domain.Line{{No: 8, Text: "\tcc -g -c $(1)"}}, obj.Script.Lines)
	assert.Equal(t, []domain.Line{{No: 10, Text: "\tcc -MM $(1)"}}, obj.AutoDepScript.Lines)

	assert.True(t, bf.Rules[3].CreateOnly)
	assert.Equal(t, "lib.a(x.o y.o)", bf.Rules[4].Sources)
}

func TestParse_ColonInsideParentheses(t *testing.T) {
	bf := parse(t, "$(OBJS:%.c=%.o): hdr.h\n")
	require.Len(t, bf.Rules, 1)
	assert.Equal(t, "$(OBJS:%.c=%.o)", bf.Rules[0].Targets)
	assert.Equal(t, "hdr.h", bf.Rules[0].Sources)
}

func TestParse_Assignments(t *testing.T) {
	bf := parse(t, `CFLAGS = -O2
CFLAGS += -Wall
CFLAGS[+debug] = -g
LIBS ?= "-lm -lz"
!configuration [+static]
	LDFLAGS = -static
	LIBS[-debug] += -lc
`)
	assert.Equal(t, []domain.Assignment{
		{Name: "CFLAGS", Mode: domain.AssignSet, Value: "-O2", Pos: domain.Pos{File: "Buildfile", Line: 1}},
		{Name: "CFLAGS", Mode: domain.AssignAppend, Value: "-Wall", Pos: domain.Pos{File: "Buildfile", Line: 2}},
		{Name: "CFLAGS", Cfg: "+debug", Mode: domain.AssignSet, Value: "-g", Pos: domain.Pos{File: "Buildfile", Line: 3}},
		{Name: "LIBS", Mode: domain.AssignMerge, Value: "-lm -lz", Pos: domain.Pos{File: "Buildfile", Line: 4}},
		{Name: "LDFLAGS", Cfg: "+static", Mode: domain.AssignSet, Value: "-static", Pos: domain.Pos{File: "Buildfile", Line: 6}},
		{Name: "LIBS", Cfg: "+static -debug", Mode: domain.AssignAppend, Value: "-lc", Pos: domain.Pos{File: "Buildfile", Line: 7}},
	}, bf.Assignments)
}

func TestParse_Continuation(t *testing.T) {
	bf := parse(t, "SRCS = a.c \\\n  b.c\nall: x\n")
	require.Len(t, bf.Assignments, 1)
	assert.Equal(t, "a.c   b.c", bf.Assignments[0].Value)
	assert.Equal(t, 1, bf.Assignments[0].Pos.Line)
	assert.Equal(t, 3, bf.Rules[0].Pos.Line)
}

func TestParse_Directives(t *testing.T) {
	bf := parse(t, `!options
	debug static
	os(linux bsd)
!configure [+debug] test-% check
!configure $(_SYSTEM)
	Linux: +linux
	%: +bsd
!configure
	uname -m
!export CC $HOME
	MODE=release
!serialize <db> db-%.sql
!serialize lock-a lock-b
!settings
	max_jobs = 2
	echo = true
`)
	assert.Equal(t, []domain.OptionDecl{
		{Name: "debug"}, {Name: "static"},
		{Group: "os", Name: "linux"}, {Group: "os", Name: "bsd"},
	}, bf.Options)
	assert.Equal(t, []domain.ConfigureRule{{Cfg: "+debug", Patterns: []string{"test-%", "check"}}}, bf.Configure)

	require.Len(t, bf.AutoConfigure, 2)
	assert.Equal(t, "$(_SYSTEM)", bf.AutoConfigure[0].Selector)
	assert.Len(t, bf.AutoConfigure[0].Script.Lines, 2)
	assert.Equal(t, 5, bf.AutoConfigure[0].Pos.Line)
	assert.Empty(t, bf.AutoConfigure[1].Selector)
	assert.Equal(t, "\tuname -m", bf.AutoConfigure[1].Script.Lines[0].Text)

	assert.Equal(t, []domain.Export{
		{Name: "CC", Value: "$(CC)"},
		{Name: "HOME", FromEnv: true},
		{Name: "MODE", Value: "release"},
	}, bf.Exports)
	assert.Equal(t, []domain.SerialDecl{
		{ID: "<db>", Patterns: []string{"db-%.sql"}},
		{Patterns: []string{"lock-a", "lock-b"}},
	}, bf.Serials)
	assert.Equal(t, map[string]string{"max_jobs": "2", "echo": "true"}, bf.Settings)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{name: "stray indentation", text: "\techo hi\n", err: domain.ErrSyntax},
		{name: "no colon", text: "just words\n", err: domain.ErrSyntax},
		{name: "empty targets", text: ": src\n", err: domain.ErrSyntax},
		{name: "unknown section", text: "a: b\n\t[deploy]\n\trsync\n", err: domain.ErrSyntax},
		{name: "section twice", text: "a: b\n\tx\n\t[build]\n\ty\n", err: domain.ErrSyntax},
		{name: "create-only without script", text: "a:? b\n", err: domain.ErrSyntax},
		{name: "unbalanced cfg", text: "a: [+debug b\n", err: domain.ErrUnbalanced},
		{name: "unbalanced group", text: "!options\n\tos(linux\n", err: domain.ErrUnbalanced},
		{name: "quote", text: "X = \"abc\n", err: domain.ErrSyntax},
		{name: "configuration needs assignments", text: "!configuration +x\n\tall: y\n", err: domain.ErrSyntax},
		{name: "bad export", text: "!export 9lives\n", err: domain.ErrSyntax},
		{name: "settings without value", text: "!settings\n\techo\n", err: domain.ErrSyntax},
		{name: "configure selector words", text: "!configure a b\n", err: domain.ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildfile.NewParser().ParseReader("Buildfile", strings.NewReader(tt.text))
			require.ErrorContains(t, err, tt.err.Error())
		})
	}
}

func TestParser_Parse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, domain.DefaultBuildfile)
	require.NoError(t, os.WriteFile(path, []byte("all: x\n"), domain.FilePerm))

	bf, err := buildfile.NewParser().Parse(path)
	require.NoError(t, err)
	assert.Equal(t, path, bf.Path)
	assert.Len(t, bf.Rules, 1)

	_, err = buildfile.NewParser().Parse(filepath.Join(dir, "missing"))
	require.ErrorContains(t, err, domain.ErrBuildfileNotFound.Error())
}
