package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

const maxPlaceholders = 9

// Match matches text against pattern, where tag is the placeholder character.
//
// A single tag captures the longest run without '.' or '/', a doubled tag the
// longest run of anything; captures shrink on mismatch. A tag followed by a digit
// N refers back to capture N. A tripled tag is a literal tag character. The whole
// text must match. Captures are returned in order.
func Match(tag byte, pattern, text string) ([]string, bool) {
	m := matcher{tag: tag}
	if !m.match(pattern, text) {
		return nil, false
	}
	return m.caps, true
}

type matcher struct {
	tag  byte
	caps []string
}

func (m *matcher) match(p, t string) bool {
	for len(p) > 0 {
		if p[0] != m.tag {
			if len(t) == 0 || t[0] != p[0] {
				return false
			}
			p, t = p[1:], t[1:]
			continue
		}

		switch {
		case len(p) >= 3 && p[1] == m.tag && p[2] == m.tag:
			if len(t) == 0 || t[0] != m.tag {
				return false
			}
			p, t = p[3:], t[1:]

		case len(p) >= 2 && isDigit(p[1]):
			n := int(p[1]-'0') - 1
			if n < 0 {
				n = 0
			}
			if n >= len(m.caps) || !strings.HasPrefix(t, m.caps[n]) {
				return false
			}
			p, t = p[2:], t[len(m.caps[n]):]

		default:
			if len(m.caps) >= maxPlaceholders {
				return false
			}
			rest := p[1:]
			end := len(t)
			if len(rest) > 0 && rest[0] == m.tag {
				rest = rest[1:]
			} else if i := strings.IndexAny(t, "./"); i >= 0 {
				end = i
			}
			n := len(m.caps)
			m.caps = append(m.caps, "")
			for l := end; l >= 0; l-- {
				m.caps[n] = t[:l]
				if m.match(rest, t[l:]) {
					return true
				}
				m.caps = m.caps[:n+1]
			}
			m.caps = m.caps[:n]
			return false
		}
	}
	return len(t) == 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// ExpandSubstrings replaces tag placeholders in s with args. A doubled tag is a
// literal tag, tag+N is args[N-1] (tag+0 equals tag+1), and a bare tag is only
// allowed when there is at most one argument.
func ExpandSubstrings(tag byte, s string, args []string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != tag {
			b.WriteByte(c)
			continue
		}
		i++
		if i < len(s) && s[i] == tag {
			b.WriteByte(tag)
			continue
		}
		n := 0
		if i < len(s) && isDigit(s[i]) {
			n = int(s[i] - '0')
		} else {
			if len(args) > 1 {
				return "", zerr.With(ErrMissingDigit, "placeholder", string(tag))
			}
			i--
		}
		if n > 0 {
			n--
		}
		if n >= len(args) {
			return "", zerr.With(ErrUndefined, "placeholder", string(tag)+string(rune('1'+n)))
		}
		b.WriteString(args[n])
	}
	return b.String(), nil
}
