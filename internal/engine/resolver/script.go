package resolver

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/yabu/internal/core/domain"
)

const tabWidth = 8

// expandSection joins the lines of a script section and expands them. The
// indentation of the first line is removed from every line; gaps in the line
// numbers, left by comments and blank lines, become empty lines.
func (r *Resolver) expandSection(sec *domain.Section, env domain.Env) (string, error) {
	if sec == nil || len(sec.Lines) == 0 {
		return "", nil
	}
	indent := indentOf(sec.Lines[0].Text)

	var b strings.Builder
	last := 0
	for _, l := range sec.Lines {
		if last != 0 && l.No != last+1 {
			b.WriteByte('\n')
		}
		last = l.No

		line, err := r.g.Scope.Expand(stripIndent(l.Text, indent), env)
		if err != nil {
			return "", err
		}
		b.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// indentOf returns the column of the first non-blank character.
func indentOf(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ':
			n++
		case '\t':
			n = (n/tabWidth + 1) * tabWidth
		default:
			return n
		}
	}
	return n
}

// stripIndent removes up to indent columns of leading blanks. A tab reaching
// past indent leaves the excess as spaces.
func stripIndent(s string, indent int) string {
	n, i := 0, 0
	for ; i < len(s) && n < indent && (s[i] == ' ' || s[i] == '\t'); i++ {
		if s[i] == ' ' {
			n++
		} else {
			n = (n/tabWidth + 1) * tabWidth
		}
	}
	if n > indent {
		return strings.Repeat(" ", n-indent) + s[i:]
	}
	return s[i:]
}

// ruleID is the signature of an expanded script and its sources. A change
// makes the target outdated.
func ruleID(script string, sources []string) uint32 {
	h := xxhash.New()
	_, _ = h.WriteString(script)
	for _, s := range sources {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(s)
	}
	return uint32(h.Sum64()) //nolint:gosec // the state file stores 32 bits
}
