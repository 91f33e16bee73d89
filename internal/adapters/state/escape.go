package state

import (
	"strconv"
	"strings"
)

// escape makes s safe for a tab separated record.
func escape(s string) string {
	if !strings.ContainsFunc(s, needsEscape) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c < 0x20 || c == 0x7f:
			b.WriteString(`\x`)
			b.WriteString(strconv.FormatUint(uint64(c)>>4, 16))
			b.WriteString(strconv.FormatUint(uint64(c)&0xf, 16))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func needsEscape(r rune) bool { return r == '\\' || r < 0x20 || r == 0x7f }

var simpleEscapes = map[byte]byte{
	'e': 0x1b, 'f': '\f', 't': '\t', 'r': '\r', 'n': '\n',
	'a': '\a', 'b': '\b', '\\': '\\', '"': '"',
}

// unescape reverses escape. It also accepts octal and the usual single
// letter escapes; unknown sequences are kept literally.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		n := s[i+1]
		if v, ok := simpleEscapes[n]; ok {
			b.WriteByte(v)
			i++
			continue
		}
		if n == 'x' && i+3 < len(s) && isHex(s[i+2]) && isHex(s[i+3]) {
			v, _ := strconv.ParseUint(s[i+2:i+4], 16, 8)
			b.WriteByte(byte(v))
			i += 3
			continue
		}
		if j := octalEnd(s, i+1); j > i+1 {
			v, _ := strconv.ParseUint(s[i+1:j], 8, 8)
			b.WriteByte(byte(v))
			i = j - 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// octalEnd returns the end of up to three octal digits starting at i whose
// value fits in a byte.
func octalEnd(s string, i int) int {
	j := i
	for j < len(s) && j < i+3 && '0' <= s[j] && s[j] <= '7' {
		j++
	}
	for j > i {
		if v, err := strconv.ParseUint(s[i:j], 8, 16); err == nil && v <= 0xff {
			break
		}
		j--
	}
	return j
}
