package buildfile

import (
	"bufio"
	"io"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

const maxLineSize = 1 << 20

// readLines returns the statement lines of r. Trailing blanks are cut,
// backslash continuations are joined and empty lines as well as lines starting
// with '#' are dropped. Each line keeps the number of its first physical line.
func readLines(r io.Reader) ([]domain.Line, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)

	var (
		lines []domain.Line
		cur   strings.Builder
		start int
		no    int
	)
	for sc.Scan() {
		no++
		text := strings.TrimRight(sc.Text(), " \t\r")
		if cur.Len() == 0 {
			start = no
		}
		if strings.HasSuffix(text, `\`) {
			cur.WriteString(text[:len(text)-1])
			continue
		}
		cur.WriteString(text)
		line := cur.String()
		cur.Reset()
		if line == "" || line[0] == '#' {
			continue
		}
		lines = append(lines, domain.Line{No: start, Text: line})
	}
	if err := sc.Err(); err != nil {
		return nil, zerr.Wrap(err, "failed to read buildfile")
	}
	if cur.Len() > 0 {
		lines = append(lines, domain.Line{No: start, Text: cur.String()})
	}
	return lines, nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func indented(l domain.Line) bool { return l.Text != "" && isSpace(l.Text[0]) }
