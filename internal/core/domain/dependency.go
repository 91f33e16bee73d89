package domain

// InternalRule marks edges created by the resolver itself, such as the implicit
// !INIT prerequisite. Such edges do not make a target a non-leaf.
var InternalRule = &Rule{Targets: "!INIT", Pos: Pos{File: "<internal>"}}

// Dependency is the edge Src -> Tgt. A nil Rule marks an automatic edge.
type Dependency struct {
	Tgt  *Target
	Src  *Target
	Rule *Rule

	// Deleted is a tombstone. Edges are never unlinked during a run.
	Deleted bool

	// LastSrcTime is the source signature recorded at the last successful build.
	LastSrcTime Ftime
}

// Connect returns the edge tgt <- src, creating it if needed. An existing edge is
// revived and, when rule is non-nil, upgraded to explicit.
func Connect(tgt, src *Target, rule *Rule) *Dependency {
	if d := tgt.Source(src); d != nil {
		if rule != nil && d.Rule == nil {
			d.Rule = rule
		}
		d.Deleted = false
		return d
	}

	d := &Dependency{Tgt: tgt, Src: src, Rule: rule}
	tgt.Srcs = insertEdge(tgt.Srcs, d)
	src.Tgts = insertEdge(src.Tgts, d)
	return d
}

// insertEdge appends automatic edges and inserts explicit ones after the last
// explicit edge.
func insertEdge(list []*Dependency, d *Dependency) []*Dependency {
	if d.Rule == nil {
		return append(list, d)
	}
	pos := 0
	for pos < len(list) && list[pos].Rule != nil {
		pos++
	}
	list = append(list, nil)
	copy(list[pos+1:], list[pos:])
	list[pos] = d
	return list
}

// Destroy tombstones the edge.
func (d *Dependency) Destroy() { d.Deleted = true }

// Automatic reports whether the edge was discovered rather than declared.
func (d *Dependency) Automatic() bool { return d.Rule == nil }
