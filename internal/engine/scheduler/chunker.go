package scheduler

import (
	"bytes"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

// Chunker splits a script into independently executed chunks.
//
//   - If the first non-blank line starts with "#!", the rest of the script is
//     one chunk, run by the named interpreter.
//   - A line holding only "{" opens a block that ends at the matching "}". Lines
//     ending in "{" or "}" nest. The braces are not part of the chunk.
//   - A line starting with "|" continues on every following line that also
//     starts with "|". The bars are stripped.
//   - Any other non-blank line is a chunk of its own.
type Chunker struct {
	text string
	pos  int
	done bool
}

// NewChunker creates a chunker over text.
func NewChunker(text string) *Chunker {
	return &Chunker{text: text}
}

// Next returns the next chunk. The second result is false at the end of the
// script. An unterminated block is an error and ends the script.
func (c *Chunker) Next() (string, bool, error) {
	if c.done {
		return "", false, nil
	}
	rest := strings.TrimLeft(c.text[c.pos:], " \t\r\n")
	if rest == "" {
		c.done = true
		return "", false, nil
	}
	start := len(c.text) - len(rest)

	switch {
	case strings.HasPrefix(rest, "#!"):
		c.done = true
		return rest, true, nil

	case strings.HasPrefix(rest, "{\n"):
		body := rest[2:]
		level := 1
		for i := 0; i < len(body); {
			end := strings.IndexByte(body[i:], '\n')
			if end < 0 {
				end = len(body)
			} else {
				end += i
			}
			line := body[i:end]
			switch {
			case strings.HasSuffix(line, "{"):
				level++
			case strings.HasSuffix(line, "}"):
				level--
			}
			if level == 0 {
				c.pos = min(start+2+end+1, len(c.text))
				return body[:end-1], true, nil
			}
			i = end + 1
		}
		c.done = true
		return "", false, zerr.With(zerr.Wrap(domain.ErrUnbalanced, "missing '}'"), "block", firstLine(rest))

	case rest[0] == '|':
		var b strings.Builder
		i := 1
		for {
			end := strings.IndexByte(rest[i:], '\n')
			if end < 0 {
				b.WriteString(rest[i:])
				c.pos = len(c.text)
				return b.String(), true, nil
			}
			end += i
			b.WriteString(rest[i:end])
			next := end + 1
			for next < len(rest) && (rest[next] == ' ' || rest[next] == '\t') {
				next++
			}
			if next >= len(rest) || rest[next] != '|' {
				c.pos = start + next
				return b.String(), true, nil
			}
			b.WriteByte('\n')
			i = next + 1
		}

	default:
		end := strings.IndexByte(rest, '\n')
		if end < 0 {
			c.pos = len(c.text)
			return rest, true, nil
		}
		c.pos = start + end + 1
		return rest[:end+1], true, nil
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// TruncateOutput limits out to its first maxLines lines followed by an ellipsis
// and the last three lines. maxLines <= 0 keeps everything. The result always
// ends with a newline unless it is empty.
func TruncateOutput(out []byte, maxLines int) []byte {
	if len(out) == 0 {
		return nil
	}
	end := len(out)
	var b bytes.Buffer

	if maxLines <= 0 {
		b.Write(out)
	} else {
		n, c := 0, 0
		for n < maxLines && c < end {
			if out[c] == '\n' {
				n++
			}
			c++
		}
		b.Write(out[:c])
		if c < end {
			if out[c-1] != '\n' {
				b.WriteByte('\n')
			}
			d, m := end, 0
			if out[end-1] != '\n' {
				m = 1
			}
			for d > c && m < 4 {
				d--
				if out[d] == '\n' {
					m++
				}
			}
			for d < end && out[d] == '\n' {
				d++
			}
			b.WriteString("...\n")
			b.Write(out[d:])
		}
	}

	if out[end-1] != '\n' {
		b.WriteByte('\n')
	}
	return b.Bytes()
}
