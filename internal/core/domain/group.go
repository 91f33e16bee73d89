package domain

// Group is a set of targets sharing one build slot. Implicit groups come from
// rules producing several outputs and are fail-all; serialize groups are not.
type Group struct {
	Name     string
	FailAll  bool
	LockedBy *Target
	Members  []*Target
}

// NewGroup creates an empty, unlocked group.
func NewGroup(name string, failAll bool) *Group {
	return &Group{Name: name, FailAll: failAll}
}

// Add appends t to the member list.
func (g *Group) Add(t *Target) { g.Members = append(g.Members, t) }

// Remove drops t from the member list.
func (g *Group) Remove(t *Target) {
	for i, m := range g.Members {
		if m == t {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return
		}
	}
}

// Lock makes t the occupant if the group is free.
func (g *Group) Lock(t *Target) {
	if g.LockedBy == nil {
		g.LockedBy = t
	}
}

// Unlock frees the group if t holds it and reports whether it did.
func (g *Group) Unlock(t *Target) bool {
	if g.LockedBy != t {
		return false
	}
	g.LockedBy = nil
	return true
}

// LockedByOther reports whether a member other than t holds the lock.
func (g *Group) LockedByOther(t *Target) bool {
	return g.LockedBy != nil && g.LockedBy != t
}

// Snapshot returns a copy of the member list.
func (g *Group) Snapshot() []*Target {
	return append([]*Target(nil), g.Members...)
}
