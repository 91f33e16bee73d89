// Package protocol implements the record framing spoken between the build client
// and the build server.
//
// A record is a tag byte, a 24-bit big-endian payload length, the payload and a
// trailing NUL that is not counted in the length.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
)

// Record tags. Client to server: Login, Dir, Env, Mkdir, JobID, Command.
// Server to client: Login (result), Output, Termination.
const (
	TagLogin       byte = 'U'
	TagDir         byte = 'D'
	TagEnv         byte = 'E'
	TagMkdir       byte = 'M'
	TagJobID       byte = 'I'
	TagCommand     byte = 'C'
	TagOutput      byte = 'O'
	TagTermination byte = 'T'
)

const (
	headerLen = 4
	// MaxPayload is the largest payload the length field can carry.
	MaxPayload = 1<<24 - 1
)

// Frame is one decoded record.
type Frame struct {
	Tag     byte
	Payload []byte
}

func (f Frame) String() string {
	return fmt.Sprintf("%c %q", f.Tag, f.Payload)
}

// Append encodes one record and appends it to buf.
func Append(buf []byte, tag byte, payload []byte) ([]byte, error) {
	n := len(payload)
	if n > MaxPayload {
		return buf, zerr.With(zerr.With(domain.ErrFrameTooLarge, "tag", string(tag)), "size", n)
	}
	buf = append(buf, tag, byte(n>>16), byte(n>>8), byte(n))
	buf = append(buf, payload...)
	return append(buf, 0), nil
}

// AppendString is Append for textual payloads.
func AppendString(buf []byte, tag byte, payload string) ([]byte, error) {
	return Append(buf, tag, []byte(payload))
}

// Decoder splits a byte stream into frames. Bytes may arrive in arbitrary pieces.
type Decoder struct {
	buf []byte
	off int
}

// Feed appends received bytes.
func (d *Decoder) Feed(p []byte) {
	if d.off > 0 && d.off == len(d.buf) {
		d.buf = d.buf[:0]
		d.off = 0
	}
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes not yet consumed.
func (d *Decoder) Buffered() int { return len(d.buf) - d.off }

// Next returns the next complete frame. The second result is false when more
// input is needed. The payload stays valid until the next call to Feed or Next.
func (d *Decoder) Next() (Frame, bool, error) {
	rest := d.buf[d.off:]
	if len(rest) < headerLen {
		d.compact()
		return Frame{}, false, nil
	}
	n := int(rest[1])<<16 | int(rest[2])<<8 | int(rest[3])
	if len(rest) < headerLen+n+1 {
		d.compact()
		return Frame{}, false, nil
	}
	if rest[headerLen+n] != 0 {
		return Frame{}, false, zerr.With(zerr.Wrap(domain.ErrProtocol, "missing record terminator"), "tag", string(rest[0]))
	}
	f := Frame{Tag: rest[0], Payload: rest[headerLen : headerLen+n : headerLen+n]}
	d.off += headerLen + n + 1
	return f, true, nil
}

// compact moves a partial frame to the start of the buffer.
func (d *Decoder) compact() {
	if d.off == 0 {
		return
	}
	n := copy(d.buf, d.buf[d.off:])
	d.buf = d.buf[:n]
	d.off = 0
}

// JobID formats a job id the way I records carry it.
func JobID(id uint32) string { return strconv.FormatUint(uint64(id), 16) }

// ParseJobID parses an I record payload.
func ParseJobID(p []byte) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(string(p)), 16, 32)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(domain.ErrProtocol, "invalid job id"), "payload", string(p))
	}
	return uint32(v), nil
}

// Termination formats a T payload: "<id> <how> <code>" in hex.
func Termination(id uint32, st domain.ExitStatus) []byte {
	how := st.How
	if how == 0 {
		how = '?'
	}
	return fmt.Appendf(nil, "%x %c %x", id, how, uint32(st.Code)) //nolint:gosec // signal numbers and exit codes are small
}

// ParseTermination parses a T payload.
func ParseTermination(p []byte) (uint32, domain.ExitStatus, error) {
	var (
		id   uint32
		how  byte
		code uint32
	)
	if _, err := fmt.Sscanf(string(p), "%x %c %x", &id, &how, &code); err != nil {
		return 0, domain.Unknown, zerr.With(zerr.Wrap(domain.ErrProtocol, "invalid termination record"), "payload", string(p))
	}
	switch how {
	case 'E', 'S', '?':
	default:
		return 0, domain.Unknown, zerr.With(zerr.Wrap(domain.ErrProtocol, "invalid termination kind"), "payload", string(p))
	}
	return id, domain.ExitStatus{How: how, Code: int(code)}, nil
}

// Output formats an O payload: the job id as 8 lowercase hex digits followed
// by the raw bytes.
func Output(id uint32, data []byte) []byte {
	p := make([]byte, 0, 8+len(data))
	p = fmt.Appendf(p, "%08x", id)
	return append(p, data...)
}

// ParseOutput splits an O payload.
func ParseOutput(p []byte) (uint32, []byte, error) {
	if len(p) <= 8 {
		return 0, nil, zerr.With(zerr.Wrap(domain.ErrProtocol, "short output record"), "size", len(p))
	}
	v, err := strconv.ParseUint(string(p[:8]), 16, 32)
	if err != nil {
		return 0, nil, zerr.With(zerr.Wrap(domain.ErrProtocol, "invalid output record"), "payload", string(p[:8]))
	}
	return uint32(v), p[8:], nil
}

// Login formats the client's U payload.
func Login(uid int, token string) string { return fmt.Sprintf("%d %s", uid, token) }

// ParseLogin parses the client's U payload.
func ParseLogin(p []byte) (int, string, error) {
	uidStr, token, ok := strings.Cut(string(p), " ")
	uid, err := strconv.Atoi(uidStr)
	if !ok || err != nil || uid < 0 {
		return 0, "", zerr.Wrap(domain.ErrProtocol, "invalid login record")
	}
	return uid, token, nil
}

// Login results sent by the server.
const (
	LoginOK     = "+"
	LoginDenied = "-"
)
