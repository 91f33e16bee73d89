package domain

import (
	"fmt"
	"strings"
)

// Status is the selection state of a target during one run.
type Status int

const (
	// StatusIgnored is the initial state. Selection always starts here.
	StatusIgnored Status = iota
	// StatusSelecting means the target's sources are being selected.
	StatusSelecting
	// StatusSelected means the target waits for its sources or its group.
	StatusSelected
	// StatusBuilding means the target's build script is queued or running.
	StatusBuilding
	// StatusBuilt is terminal: the target is up to date.
	StatusBuilt
	// StatusFailed is terminal: the target failed or was cancelled.
	StatusFailed
)

var statusNames = [...]string{"IGNORED", "SELECTING", "SELECTED", "BUILDING", "BUILT", "FAILED"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// statusTransitions lists the legal successor states.
var statusTransitions = map[Status][]Status{
	StatusIgnored:   {StatusSelecting},
	StatusSelecting: {StatusSelected, StatusFailed, StatusIgnored},
	StatusSelected:  {StatusBuilding, StatusBuilt, StatusFailed},
	StatusBuilding:  {StatusBuilt, StatusFailed},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends the target's run.
func (s Status) Terminal() bool { return s == StatusBuilt || s == StatusFailed }

// Target is a buildable file or alias. Targets are created on first reference and
// live for the whole run.
type Target struct {
	Name  string
	Alias bool

	// Time is the current signature. It is computed lazily; zero means "not yet
	// computed" or "missing".
	Time        Ftime
	RegularFile bool

	// Cfg is the configuration the target was last built, or is being built, under.
	Cfg    string
	Status Status

	// ReqBy is the edge that caused the target's selection.
	ReqBy *Dependency
	// OlderThan is the first source found to be newer. Diagnostic only.
	OlderThan *Target

	// Srcs are the edges to the target's sources, Tgts the edges to its dependents.
	// Explicit edges precede automatic ones in both lists.
	Srcs []*Dependency
	Tgts []*Dependency

	// Build state filled in by rule selection.
	Rule          *Rule
	Args          []string
	Files         []string
	Script        string
	AutoDepScript string

	// RuleID is the persisted rule signature, RuleIDNew the one computed this run.
	RuleID    uint32
	RuleIDNew uint32

	Group *Group

	selected bool
}

// NewTarget creates a target in state IGNORED. Names starting with '!' are aliases.
func NewTarget(name string) *Target {
	return &Target{Name: name, Alias: strings.HasPrefix(name, "!")}
}

// SetStatus moves the target through its state machine. An illegal transition is
// an internal invariant violation and panics.
func (t *Target) SetStatus(s Status) {
	if !CanTransition(t.Status, s) {
		panic(fmt.Sprintf("%s: %s: %s -> %s", ErrIllegalTransition.Error(), t.Name, t.Status, s))
	}
	t.Status = s
}

// Selected reports whether the target is on the selected list, i.e. between
// BeginSelect and Deselect.
func (t *Target) Selected() bool { return t.selected }

// MarkSelected records list membership. It is maintained by the resolver.
func (t *Target) MarkSelected(on bool) { t.selected = on }

// LiveSources returns a snapshot of the non-deleted source edges.
func (t *Target) LiveSources() []*Dependency { return live(t.Srcs) }

// LiveDependents returns a snapshot of the non-deleted dependent edges.
func (t *Target) LiveDependents() []*Dependency { return live(t.Tgts) }

func live(deps []*Dependency) []*Dependency {
	out := make([]*Dependency, 0, len(deps))
	for _, d := range deps {
		if !d.Deleted {
			out = append(out, d)
		}
	}
	return out
}

// IsLeaf reports whether the target has no live explicit source.
func (t *Target) IsLeaf() bool {
	for _, d := range t.Srcs {
		if !d.Deleted && d.Rule != nil && d.Rule != InternalRule {
			return false
		}
	}
	return true
}

// DeleteAutoSources tombstones every automatic source edge. They have to be
// rediscovered by the auto-depend script.
func (t *Target) DeleteAutoSources() {
	for _, d := range t.Srcs {
		if d.Rule == nil {
			d.Destroy()
		}
	}
}

// Source returns the edge to src, deleted or not.
func (t *Target) Source(src *Target) *Dependency {
	for _, d := range t.Srcs {
		if d.Src == src {
			return d
		}
	}
	return nil
}
