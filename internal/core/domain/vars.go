package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

type condValue struct {
	cfg   Config
	value string
	pos   Pos
}

// Variable is a Buildfile variable with its unconditional value and the
// conditional assignments that apply under matching configurations.
type Variable struct {
	Name  string
	Pos   Pos
	Value string

	set    []condValue
	append []condValue
	merge  []condValue
	locked bool
}

// Scope holds the variables and the current configuration of a project.
type Scope struct {
	opts *Options
	vars map[string]*Variable
	cur  Config
}

// NewScope creates a scope over a completed option table.
func NewScope(opts *Options) *Scope {
	return &Scope{
		opts: opts,
		vars: map[string]*Variable{},
		cur:  make(Config, opts.Len()),
	}
}

// Options returns the option table.
func (s *Scope) Options() *Options { return s.opts }

// Assign executes one assignment.
func (s *Scope) Assign(a Assignment) error {
	if !ValidName(a.Name) {
		return zerr.With(ErrSyntax, "variable", a.Name)
	}
	v := s.vars[a.Name]

	if strings.TrimSpace(a.Cfg) == "" {
		switch {
		case a.Mode == AssignSet && v != nil:
			return zerr.With(zerr.With(zerr.Wrap(ErrSyntax, "variable redefined"), "variable", a.Name), "previous", v.Pos.String())
		case a.Mode == AssignSet:
			if s.opts.Known(a.Name) {
				return zerr.With(zerr.Wrap(ErrSyntax, "name is an option"), "variable", a.Name)
			}
			s.vars[a.Name] = &Variable{Name: a.Name, Pos: a.Pos, Value: a.Value}
		case v == nil:
			return zerr.With(ErrUndefined, "variable", a.Name)
		case a.Mode == AssignAppend || !ContainsWord(v.Value, a.Value):
			v.Value = joinWords(v.Value, a.Value)
		}
		return nil
	}

	if v == nil {
		return zerr.With(ErrUndefined, "variable", a.Name)
	}
	cfg, err := s.opts.Parse(a.Cfg)
	if err != nil {
		return zerr.With(err, "variable", a.Name)
	}
	cv := condValue{cfg: cfg, value: a.Value, pos: a.Pos}
	switch a.Mode {
	case AssignAppend:
		v.append = append(v.append, cv)
	case AssignMerge:
		v.merge = append(v.merge, cv)
	default:
		v.set = append(v.set, cv)
	}
	return nil
}

// SetSystem defines or replaces a system variable such as _HOSTNAME.
func (s *Scope) SetSystem(name, value string) {
	s.vars[name] = &Variable{Name: name, Value: value, Pos: Pos{File: "<system>"}}
}

func joinWords(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

// Get returns the unexpanded value of name in the current configuration.
func (s *Scope) Get(name string) (string, error) {
	if strings.HasPrefix(name, "_") {
		if val, ok := s.opts.Value(s.cur, name[1:]); ok {
			return val, nil
		}
		if name == "_CONFIGURATION" {
			return s.CurrentCfg(), nil
		}
	}

	v := s.vars[name]
	if v == nil {
		return "", zerr.With(ErrUndefined, "variable", name)
	}
	if v.locked {
		return "", zerr.With(ErrCircularDependency, "variable", name)
	}

	val := v.Value
	var chosen *condValue
	for i := range v.set {
		cv := &v.set[i]
		if !SubsetOf(cv.cfg, s.cur) {
			continue
		}
		if chosen != nil {
			return "", zerr.With(zerr.With(zerr.Wrap(ErrSyntax, "conflicting values"), "variable", name), "positions", chosen.pos.String()+" "+cv.pos.String())
		}
		chosen = cv
		val = cv.value
	}
	for _, cv := range v.append {
		if SubsetOf(cv.cfg, s.cur) {
			val = joinWords(val, cv.value)
		}
	}
	for _, cv := range v.merge {
		if SubsetOf(cv.cfg, s.cur) && !ContainsWord(val, cv.value) {
			val = joinWords(val, cv.value)
		}
	}
	return val, nil
}

// CurrentCfg returns the normalized current configuration.
func (s *Scope) CurrentCfg() string { return s.opts.Format(s.cur) }

// Save snapshots the current configuration.
func (s *Scope) Save() Config { return append(Config(nil), s.cur...) }

// Restore resets the current configuration to a snapshot.
func (s *Scope) Restore(c Config) { copy(s.cur, c) }

// CfgChange applies cfg to the current configuration unconditionally.
func (s *Scope) CfgChange(cfg string) error {
	if strings.TrimSpace(cfg) == "" {
		return nil
	}
	return s.opts.Apply(s.cur, cfg)
}

// TryCfgChange applies cfg if it is compatible with the current configuration
// and reports whether it was.
func (s *Scope) TryCfgChange(cfg string) bool {
	if strings.TrimSpace(cfg) == "" {
		return true
	}
	c, err := s.opts.Parse(cfg)
	if err != nil || !Compat(c, s.cur) {
		return false
	}
	return s.opts.Apply(s.cur, cfg) == nil
}

// Compatible reports whether two configuration strings are compatible.
func (s *Scope) Compatible(from, to string) bool { return s.opts.Compatible(from, to) }

// Env carries the substitution context for Expand: placeholder arguments for
// Tag, and the values of $(0), $(1)... and $(*).
type Env struct {
	Args  []string
	Tag   byte
	Files []string
}

// Expand replaces $(...) references and, when env has arguments, placeholders.
func (s *Scope) Expand(text string, env Env) (string, error) {
	var b strings.Builder
	if err := s.expandInto(&b, text, env); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Scope) expandInto(b *strings.Builder, text string, env Env) error {
	if text == "" {
		return nil
	}
	if len(env.Args) > 0 {
		exp, err := ExpandSubstrings(env.Tag, text, env.Args)
		if err != nil {
			return err
		}
		text = exp
	}
	files := Env{Files: env.Files}

	for len(text) > 0 {
		i := strings.Index(text, "$(")
		if i < 0 {
			b.WriteString(text)
			return nil
		}
		b.WriteString(text[:i])
		ref, rest, err := parseVarRef(text[i:])
		if err != nil {
			return err
		}
		text = rest

		name, err := s.Expand(ref.name, files)
		if err != nil {
			return err
		}
		val, err := s.value(name, env.Files)
		if err != nil {
			return err
		}

		v := s.vars[name]
		if v != nil {
			v.locked = true
		}
		if !ref.transform {
			err = s.expandInto(b, val, files)
			unlock(v)
			if err != nil {
				return err
			}
			continue
		}

		words, err := s.Expand(val, files)
		unlock(v)
		if err != nil {
			return err
		}
		if err := s.transform(b, ref, words, files); err != nil {
			return err
		}
	}
	return nil
}

func unlock(v *Variable) {
	if v != nil {
		v.locked = false
	}
}

func (s *Scope) value(name string, files []string) (string, error) {
	if name != "" && isDigit(name[0]) {
		n, err := strconv.Atoi(name)
		if err != nil || n < 0 {
			return "", zerr.With(ErrSyntax, "variable", name)
		}
		if n >= len(files) {
			return "", zerr.With(ErrUndefined, "variable", name)
		}
		return files[n], nil
	}
	if name == "*" {
		if files == nil {
			return "", zerr.With(ErrUndefined, "variable", name)
		}
		if len(files) < 2 {
			return "", nil
		}
		return strings.Join(files[1:], " "), nil
	}
	return s.Get(name)
}

func (s *Scope) transform(b *strings.Builder, ref varRef, words string, files Env) error {
	pat, err := s.Expand(ref.pattern, files)
	if err != nil {
		return err
	}
	sep := false
	for _, w := range strings.Fields(words) {
		caps, ok := Match(ref.tag, pat, w)
		out := w
		switch {
		case !ok && ref.mode == ':':
			return zerr.With(zerr.With(ErrTransformNoMatch, "word", w), "pattern", pat)
		case !ok && ref.mode == '!':
			continue
		case ok && ref.hasRepl:
			out, err = s.Expand(ref.repl, Env{Args: caps, Tag: ref.tag, Files: files.Files})
			if err != nil {
				return err
			}
			if out == "" {
				continue
			}
		}
		if sep {
			b.WriteByte(' ')
		}
		b.WriteString(out)
		sep = true
	}
	return nil
}

type varRef struct {
	name      string
	transform bool
	mode      byte
	tag       byte
	pattern   string
	repl      string
	hasRepl   bool
}

// parseVarRef splits "$(NAME[mods]:pat=repl)..." and returns the remainder.
func parseVarRef(s string) (varRef, string, error) {
	body := s[2:]
	level, colon, eq, end := 0, -1, -1, -1
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '(':
			level++
		case c == ')' && level == 0:
			end = i
		case c == ')':
			level--
		case level == 0 && c == ':' && colon < 0:
			colon = i
		case level == 0 && c == '=' && colon >= 0 && eq < 0:
			eq = i
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return varRef{}, "", zerr.With(ErrUnbalanced, "text", s)
	}

	ref := varRef{mode: ':', tag: '*'}
	nameEnd := end
	if colon >= 0 {
		nameEnd = colon
		ref.transform = true
		var mode, tag byte
		for nameEnd > 0 && strings.IndexByte("!?@&^~+#", body[nameEnd-1]) >= 0 {
			nameEnd--
			c := body[nameEnd]
			target := &tag
			if c == '!' || c == '?' {
				target = &mode
			}
			if *target != 0 {
				return varRef{}, "", zerr.With(ErrSyntax, "variable", body[:colon])
			}
			*target = c
		}
		if mode != 0 {
			ref.mode = mode
		}
		if tag != 0 {
			ref.tag = tag
		}
		if eq < 0 {
			ref.pattern = body[colon+1 : end]
		} else {
			ref.pattern = body[colon+1 : eq]
			ref.repl = body[eq+1 : end]
			ref.hasRepl = true
		}
	}
	ref.name = body[:nameEnd]
	if ref.name == "" || ref.name == "." {
		return varRef{}, "", zerr.With(ErrSyntax, "variable", ref.name)
	}
	return ref, body[end+1:], nil
}
