package buildfile

import (
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	sectionBuild      = "build"
	sectionAutoDepend = "auto-depend"
)

// splitAssignment recognizes "NAME[cfg] op value" with op one of "=", "+=" and
// "?=". Double quotes around the value are removed. ok is false if text is not
// an assignment.
func splitAssignment(text string) (a domain.Assignment, ok bool, err error) {
	i := 0
	for i < len(text) && isNameChar(text[i]) {
		i++
	}
	if i == 0 || !domain.ValidName(text[:i]) {
		return a, false, nil
	}
	a.Name = text[:i]
	c := text[i:]

	if strings.HasPrefix(c, "[") {
		end := strings.IndexByte(c, ']')
		if end < 0 {
			return a, false, nil
		}
		a.Cfg = strings.TrimSpace(c[1:end])
		c = c[end+1:]
	}

	c = strings.TrimLeft(c, " \t")
	switch {
	case strings.HasPrefix(c, "+="):
		a.Mode, c = domain.AssignAppend, c[2:]
	case strings.HasPrefix(c, "?="):
		a.Mode, c = domain.AssignMerge, c[2:]
	case strings.HasPrefix(c, "="):
		a.Mode, c = domain.AssignSet, c[1:]
	default:
		return domain.Assignment{}, false, nil
	}

	v := strings.TrimLeft(c, " \t")
	if strings.HasPrefix(v, `"`) {
		if len(v) < 2 || !strings.HasSuffix(v, `"`) {
			return a, true, zerr.With(zerr.Wrap(domain.ErrSyntax, "unterminated quote"), "variable", a.Name)
		}
		v = v[1 : len(v)-1]
	}
	a.Value = v
	return a, true, nil
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isIdentChar(c byte) bool { return isNameChar(c) || c == '-' }

// sectionMarker recognizes an indented "[build]" or "[auto-depend]" line.
func sectionMarker(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if len(t) < 3 || t[0] != '[' || t[len(t)-1] != ']' || !isIdentChar(t[1]) || !isIdentChar(t[len(t)-2]) {
		return "", false
	}
	return t[1 : len(t)-1], true
}

// script reads one section at the current line. A leading marker names it;
// "build" is the default. A marker following script lines starts the next
// section and is left unread.
func (s *state) script() (*domain.Section, string) {
	tag := sectionBuild
	var sec *domain.Section
	for ; s.cur < len(s.lines) && indented(s.lines[s.cur]); s.cur++ {
		l := s.lines[s.cur]
		if t, ok := sectionMarker(l.Text); ok {
			if sec != nil {
				break
			}
			tag = t
			continue
		}
		if sec == nil {
			sec = &domain.Section{}
		}
		sec.Lines = append(sec.Lines, l)
	}
	return sec, tag
}

// rule parses "targets : [cfg] sources" with ":" replaced by "::" for alias
// rules and ":?" for create-only rules, followed by its script sections.
func (s *state) rule(l domain.Line) error {
	text := strings.TrimLeft(l.Text, " \t")
	level, colon := 0, -1
	for i := 0; i < len(text) && colon < 0; i++ {
		switch text[i] {
		case '(':
			level++
		case ')':
			level--
		case ':':
			if level == 0 {
				colon = i
			}
		}
	}
	targets := ""
	if colon > 0 {
		targets = strings.TrimSpace(text[:colon])
	}
	if targets == "" {
		return s.fail(zerr.Wrap(domain.ErrSyntax, "expected rule"), l)
	}

	r := &domain.Rule{Targets: targets, Pos: s.pos(l)}
	rest := text[colon+1:]
	switch {
	case strings.HasPrefix(rest, ":"):
		r.Alias, rest = true, rest[1:]
	case strings.HasPrefix(rest, "?"):
		r.CreateOnly, rest = true, rest[1:]
	}

	cfg, tail, ok, err := bracket(rest)
	if err != nil {
		return s.fail(err, l)
	}
	if ok {
		r.Cfg = cfg
	}
	r.Sources = strings.TrimSpace(tail)

	s.cur++
	for {
		sec, tag := s.script()
		if sec == nil {
			break
		}
		var dst **domain.Section
		switch tag {
		case sectionBuild:
			dst = &r.Script
		case sectionAutoDepend:
			dst = &r.AutoDepScript
		default:
			return s.fail(zerr.With(domain.ErrSyntax, "section", tag), sec.Lines[0])
		}
		if *dst != nil {
			return s.fail(zerr.With(zerr.Wrap(domain.ErrSyntax, "section redefined"), "section", tag), sec.Lines[0])
		}
		*dst = sec
	}

	if r.CreateOnly && r.Script == nil {
		return s.fail(zerr.Wrap(domain.ErrSyntax, "create-only rule needs a script"), l)
	}
	s.bf.Rules = append(s.bf.Rules, r)
	return nil
}
