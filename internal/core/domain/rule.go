package domain

import (
	"fmt"
	"strings"
)

// Pos is a Buildfile location.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return p.File
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Line is one raw script line as it appears in the Buildfile, indentation included.
type Line struct {
	No   int
	Text string
}

// Section is a script body: the indented lines following a rule or a section marker.
type Section struct {
	Lines []Line
}

// Rule is an immutable pattern-based recipe.
type Rule struct {
	Targets string
	Sources string
	// Cfg is an optional configuration guard, e.g. "+debug".
	Cfg string

	// Script is nil for rules that only add sources.
	Script        *Section
	AutoDepScript *Section

	Alias      bool
	CreateOnly bool
	Pos        Pos
}

// HasScript reports whether the rule can build its targets.
func (r *Rule) HasScript() bool { return r.Script != nil }

// PatternPriority scores a target pattern: +50 per literal character, -1 per
// placeholder. More specific patterns score higher.
func PatternPriority(pattern string) int {
	n := 0
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '%' {
			n--
		} else {
			n += 50
		}
	}
	return n
}

// ConfigureRule applies a configuration to every target matching one of its
// patterns before rule selection.
type ConfigureRule struct {
	Cfg      string
	Patterns []string
}

// ConfigureFor returns the configuration of the first rule whose pattern matches name.
func ConfigureFor(rules []ConfigureRule, name string) (string, bool) {
	for _, r := range rules {
		for _, p := range r.Patterns {
			if _, ok := Match('%', p, name); ok {
				return r.Cfg, true
			}
		}
	}
	return "", false
}

// AutoConfigure is a "!configure [selector]" block. Without a selector the script
// runs locally and its output words are options; with one, the lines are
// "pattern: cfg" pairs matched against the expanded selector.
type AutoConfigure struct {
	Selector string
	Script   Section
	Pos      Pos
}

// SerialDecl is a "!serialize [<id>] patterns..." statement.
type SerialDecl struct {
	ID       string
	Patterns []string
}

// Export is one exported environment variable. FromEnv variables take their value
// from the process environment.
type Export struct {
	Name    string
	Value   string
	FromEnv bool
}

// Assignment is a variable assignment, optionally conditional on a configuration.
type Assignment struct {
	Name  string
	Cfg   string
	Mode  AssignMode
	Value string
	Pos   Pos
}

// AssignMode distinguishes "=", "+=" and "?=".
type AssignMode int

const (
	// AssignSet defines a variable.
	AssignSet AssignMode = iota
	// AssignAppend appends words.
	AssignAppend
	// AssignMerge appends words that are not present yet.
	AssignMerge
)

func (m AssignMode) String() string {
	switch m {
	case AssignAppend:
		return "+="
	case AssignMerge:
		return "?="
	default:
		return "="
	}
}

// Buildfile is the parsed statement stream of one project.
type Buildfile struct {
	Path          string
	Options       []OptionDecl
	Assignments   []Assignment
	Rules         []*Rule
	Configure     []ConfigureRule
	AutoConfigure []AutoConfigure
	Serials       []SerialDecl
	Exports       []Export
	// Settings holds "!settings" overrides as raw key/value pairs.
	Settings map[string]string
}

// ContainsWord reports whether s contains w as a blank-separated word.
func ContainsWord(s, w string) bool {
	for _, f := range strings.Fields(s) {
		if f == w {
			return true
		}
	}
	return false
}
