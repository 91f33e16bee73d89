// Package buildfile parses Buildfiles into the statement stream the resolver
// consumes: rules, assignments and directives.
package buildfile

import (
	"errors"
	"io"
	"os"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

// Parser implements ports.BuildfileParser.
type Parser struct{}

var _ ports.BuildfileParser = (*Parser)(nil)

// NewParser creates a Parser.
func NewParser() *Parser { return &Parser{} }

// Parse reads and parses the Buildfile at path.
func (p *Parser) Parse(path string) (*domain.Buildfile, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the settings
	if errors.Is(err, os.ErrNotExist) {
		return nil, zerr.With(domain.ErrBuildfileNotFound, "path", path)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open buildfile"), "path", path)
	}
	defer func() { _ = f.Close() }()
	return p.ParseReader(path, f)
}

// ParseReader parses a Buildfile read from r. name is used in positions.
func (p *Parser) ParseReader(name string, r io.Reader) (*domain.Buildfile, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, zerr.With(err, "path", name)
	}
	st := &state{
		bf:    &domain.Buildfile{Path: name, Settings: map[string]string{}},
		lines: lines,
		file:  name,
	}
	if err := st.run(); err != nil {
		return nil, err
	}
	return st.bf, nil
}

type state struct {
	bf    *domain.Buildfile
	lines []domain.Line
	cur   int
	file  string
}

func (s *state) pos(l domain.Line) domain.Pos { return domain.Pos{File: s.file, Line: l.No} }

func (s *state) fail(err error, l domain.Line) error {
	return zerr.With(err, "pos", s.pos(l).String())
}

func (s *state) run() error {
	for s.cur < len(s.lines) {
		l := s.lines[s.cur]
		var err error
		switch {
		case indented(l):
			err = s.fail(zerr.Wrap(domain.ErrSyntax, "unexpected indented line"), l)
		case l.Text[0] == '!':
			err = s.directive(l)
		default:
			if a, ok, aerr := splitAssignment(l.Text); ok || aerr != nil {
				if aerr != nil {
					return s.fail(aerr, l)
				}
				a.Pos = s.pos(l)
				s.bf.Assignments = append(s.bf.Assignments, a)
				s.cur++
				continue
			}
			err = s.rule(l)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// block returns the indented lines following the current one and advances
// past them.
func (s *state) block() []domain.Line {
	s.cur++
	start := s.cur
	for s.cur < len(s.lines) && indented(s.lines[s.cur]) {
		s.cur++
	}
	return s.lines[start:s.cur]
}

func (s *state) directive(l domain.Line) error {
	word, rest, _ := strings.Cut(l.Text, " ")
	rest = strings.TrimSpace(rest)
	switch word {
	case "!options":
		return s.options(l, rest)
	case "!configuration":
		return s.configuration(l, rest)
	case "!configure":
		return s.configure(l, rest)
	case "!settings":
		return s.settings(l, rest)
	case "!export":
		return s.export(l, rest)
	case "!serialize":
		s.serialize(rest)
		s.cur++
		return nil
	}
	return s.rule(l)
}

func (s *state) options(l domain.Line, rest string) error {
	if rest != "" {
		return s.fail(domain.ErrSyntax, l)
	}
	for _, ol := range s.block() {
		decls, err := parseOptions(ol.Text)
		if err != nil {
			return s.fail(err, ol)
		}
		s.bf.Options = append(s.bf.Options, decls...)
	}
	return nil
}

// parseOptions reads "name" and "group ( a b c )" declarations.
func parseOptions(text string) ([]domain.OptionDecl, error) {
	words := strings.Fields(strings.NewReplacer("(", " ( ", ")", " ) ").Replace(text))
	var out []domain.OptionDecl
	for i := 0; i < len(words); i++ {
		w := words[i]
		if w == "(" || w == ")" {
			return nil, zerr.With(domain.ErrSyntax, "option", w)
		}
		if i+1 >= len(words) || words[i+1] != "(" {
			out = append(out, domain.OptionDecl{Name: w})
			continue
		}
		group := w
		i += 2
		for ; i < len(words) && words[i] != ")"; i++ {
			if words[i] == "(" {
				return nil, zerr.With(domain.ErrUnbalanced, "group", group)
			}
			out = append(out, domain.OptionDecl{Group: group, Name: words[i]})
		}
		if i == len(words) {
			return nil, zerr.With(domain.ErrUnbalanced, "group", group)
		}
	}
	return out, nil
}

// bracket extracts a leading "[...]" from s.
func bracket(s string) (inner, rest string, ok bool, err error) {
	s = strings.TrimLeft(s, " \t")
	if !strings.HasPrefix(s, "[") {
		return "", s, false, nil
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", s, false, domain.ErrUnbalanced
	}
	return strings.TrimSpace(s[1:end]), strings.TrimSpace(s[end+1:]), true, nil
}

func (s *state) configuration(l domain.Line, rest string) error {
	cfg, tail, ok, err := bracket(rest)
	switch {
	case err != nil:
		return s.fail(err, l)
	case !ok && rest == "":
		return s.fail(domain.ErrSyntax, l)
	case !ok:
		cfg = rest
	case tail != "":
		return s.fail(domain.ErrSyntax, l)
	}
	for _, al := range s.block() {
		a, isAssign, err := splitAssignment(strings.TrimLeft(al.Text, " \t"))
		if err != nil {
			return s.fail(err, al)
		}
		if !isAssign {
			return s.fail(zerr.Wrap(domain.ErrSyntax, "expected assignment"), al)
		}
		a.Cfg = strings.TrimSpace(cfg + " " + a.Cfg)
		a.Pos = s.pos(al)
		s.bf.Assignments = append(s.bf.Assignments, a)
	}
	return nil
}

func (s *state) configure(l domain.Line, rest string) error {
	cfg, tail, ok, err := bracket(rest)
	if err != nil {
		return s.fail(err, l)
	}
	if ok {
		s.bf.Configure = append(s.bf.Configure, domain.ConfigureRule{Cfg: cfg, Patterns: strings.Fields(tail)})
		s.cur++
		return nil
	}
	if len(strings.Fields(rest)) > 1 {
		return s.fail(domain.ErrSyntax, l)
	}
	s.cur++
	sec, _ := s.script()
	ac := domain.AutoConfigure{Selector: rest, Pos: s.pos(l)}
	if sec != nil {
		ac.Script = *sec
	}
	s.bf.AutoConfigure = append(s.bf.AutoConfigure, ac)
	return nil
}

func (s *state) settings(l domain.Line, rest string) error {
	if rest != "" {
		return s.fail(domain.ErrSyntax, l)
	}
	for _, sl := range s.block() {
		k, v, ok := strings.Cut(sl.Text, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return s.fail(zerr.Wrap(domain.ErrSyntax, "expected key = value"), sl)
		}
		s.bf.Settings[k] = strings.TrimSpace(v)
	}
	return nil
}

func (s *state) export(l domain.Line, rest string) error {
	if err := s.exportWords(rest); err != nil {
		return s.fail(err, l)
	}
	for _, el := range s.block() {
		text := strings.TrimLeft(el.Text, " \t")
		if !strings.Contains(text, "=") {
			if err := s.exportWords(text); err != nil {
				return s.fail(err, el)
			}
			continue
		}
		a, ok, err := splitAssignment(text)
		if err != nil || !ok || a.Cfg != "" || a.Mode != domain.AssignSet {
			return s.fail(zerr.Wrap(domain.ErrSyntax, "expected NAME=VALUE"), el)
		}
		s.bf.Exports = append(s.bf.Exports, domain.Export{Name: a.Name, Value: a.Value})
	}
	return nil
}

func (s *state) exportWords(text string) error {
	for _, w := range strings.Fields(text) {
		name, fromEnv := strings.CutPrefix(w, "$")
		if !domain.ValidName(name) {
			return zerr.With(domain.ErrSyntax, "export", w)
		}
		e := domain.Export{Name: name, FromEnv: fromEnv}
		if !fromEnv {
			e.Value = "$(" + name + ")"
		}
		s.bf.Exports = append(s.bf.Exports, e)
	}
	return nil
}

func (s *state) serialize(rest string) {
	var decl domain.SerialDecl
	for _, w := range strings.Fields(rest) {
		if decl.ID == "" && len(decl.Patterns) == 0 && len(w) > 1 && w[0] == '<' && w[len(w)-1] == '>' {
			decl.ID = w
			continue
		}
		decl.Patterns = append(decl.Patterns, w)
	}
	if len(decl.Patterns) > 0 {
		s.bf.Serials = append(s.bf.Serials, decl)
	}
}
