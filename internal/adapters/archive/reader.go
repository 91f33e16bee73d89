package archive

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"

	"go.trai.ch/yabu/internal/adapters/fs"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	magic      = "!<arch>\n"
	headerSize = 60
	nameLen    = 16
	timeOff    = 16
	timeLen    = 12
	sizeOff    = 48
	sizeLen    = 10
	bsdLong    = "#1/"
)

// ReadMembers parses an ar archive and returns the signature of every member:
// the header's modification time, or the checksum of the content under the
// cksum algorithm. GNU ("//" name table, "name/") and BSD ("#1/len", blank
// padded) names are understood. On a malformed archive the members read so
// far are returned together with the error.
func ReadMembers(r io.Reader, algo domain.TsAlgo) (map[string]domain.Ftime, error) {
	br := bufio.NewReader(r)
	members := map[string]domain.Ftime{}

	head := make([]byte, len(magic))
	if _, err := io.ReadFull(br, head); err != nil || string(head) != magic {
		return members, zerr.Wrap(domain.ErrArchiveFormat, "missing ar magic")
	}

	var longNames []byte
	hdr := make([]byte, headerSize)
	for {
		if _, err := io.ReadFull(br, hdr); err != nil {
			if errors.Is(err, io.EOF) {
				return members, nil
			}
			return members, zerr.Wrap(domain.ErrArchiveFormat, "truncated header")
		}
		if hdr[58] != '`' || hdr[59] != '\n' {
			return members, zerr.Wrap(domain.ErrArchiveFormat, "bad header terminator")
		}
		size, err := strconv.ParseInt(strings.TrimSpace(string(hdr[sizeOff:sizeOff+sizeLen])), 10, 64)
		if err != nil || size < 0 {
			return members, zerr.Wrap(domain.ErrArchiveFormat, "bad member size")
		}
		padded := size + size%2

		rawName := string(hdr[:nameLen])
		switch {
		case strings.HasPrefix(rawName, "//"):
			longNames = make([]byte, padded)
			if _, err := io.ReadFull(br, longNames); err != nil {
				return members, zerr.Wrap(domain.ErrArchiveFormat, "truncated name table")
			}
			continue
		case strings.HasPrefix(rawName, "/ "), strings.HasPrefix(rawName, "/SYM64/"),
			strings.HasPrefix(rawName, "__.SYMDEF"):
			if _, err := br.Discard(int(padded)); err != nil {
				return members, zerr.Wrap(domain.ErrArchiveFormat, "truncated symbol table")
			}
			continue
		}

		name, nameInData, err := memberName(rawName, longNames)
		if err != nil {
			return members, err
		}
		data := io.LimitReader(br, size)
		if nameInData > 0 {
			buf := make([]byte, nameInData)
			if _, err := io.ReadFull(data, buf); err != nil {
				return members, zerr.Wrap(domain.ErrArchiveFormat, "truncated member name")
			}
			name = string(bytes.TrimRight(buf, "\x00"))
		}

		var sig domain.Ftime
		if algo.Effective() == domain.TsCksum {
			sum, err := fs.Sum32(data)
			if err != nil {
				return members, zerr.Wrap(domain.ErrArchiveFormat, "truncated member")
			}
			sig = domain.Checksum(sum)
		} else {
			sec, err := strconv.ParseUint(strings.TrimSpace(string(hdr[timeOff:timeOff+timeLen])), 10, 32)
			if err != nil {
				return members, zerr.Wrap(domain.ErrArchiveFormat, "bad member time")
			}
			sig = domain.Ftime{Sec: uint32(sec)}
		}
		if _, err := io.Copy(io.Discard, data); err != nil {
			return members, zerr.Wrap(domain.ErrArchiveFormat, "truncated member")
		}
		if size%2 == 1 {
			if _, err := br.Discard(1); err != nil && !errors.Is(err, io.EOF) {
				return members, zerr.Wrap(domain.ErrArchiveFormat, "missing padding")
			}
		}
		members[name] = sig
	}
}

// memberName decodes the name field of a header. For BSD long names it returns
// the number of leading data bytes holding the name instead.
func memberName(raw string, longNames []byte) (string, int64, error) {
	if n, ok := strings.CutPrefix(raw, bsdLong); ok {
		l, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil || l <= 0 {
			return "", 0, zerr.Wrap(domain.ErrArchiveFormat, "bad BSD name length")
		}
		return "", l, nil
	}
	if strings.HasPrefix(raw, "/") {
		off, err := strconv.Atoi(strings.TrimSpace(raw[1:]))
		if err != nil || off < 0 || off >= len(longNames) {
			return "", 0, zerr.Wrap(domain.ErrArchiveFormat, "bad long name offset")
		}
		name := longNames[off:]
		if end := bytes.IndexAny(name, "/\n"); end >= 0 {
			name = name[:end]
		}
		return string(name), 0, nil
	}
	if end := strings.IndexByte(raw, '/'); end >= 0 {
		return raw[:end], 0, nil
	}
	return strings.TrimRight(raw, " "), 0, nil
}
