package domain

import (
	"fmt"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// Ftime is a file signature: a modification time with sub-second part, or a
// checksum stored in Sec. The zero value means "missing".
type Ftime struct {
	Sec  uint32
	Nsec uint32
}

var (
	// TimeMissing is the signature of a file that does not exist.
	TimeMissing = Ftime{}
	// TimeInit is the smallest real signature. Directories and !INIT carry it.
	TimeInit = Ftime{Sec: 2}
)

// FtimeOf converts a wall clock time.
func FtimeOf(t time.Time) Ftime {
	return Ftime{Sec: uint32(t.Unix()), Nsec: uint32(t.Nanosecond())} //nolint:gosec // 32-bit seconds, like the state file
}

// FtimeAlways is newer than every real time and differs from every recorded baseline.
func FtimeAlways(now time.Time) Ftime {
	return Ftime{Sec: 0x7FFFFFFF, Nsec: uint32(now.Unix())} //nolint:gosec // only used for inequality
}

// Checksum builds a signature from a content checksum. Values below TimeInit are
// shifted so that a checksum is never mistaken for a missing file.
func Checksum(sum uint32) Ftime {
	if sum < TimeInit.Sec {
		sum += TimeInit.Sec
	}
	return Ftime{Sec: sum}
}

// Compare orders two signatures lexicographically.
func (t Ftime) Compare(o Ftime) int {
	switch {
	case t.Sec < o.Sec:
		return -1
	case t.Sec > o.Sec:
		return 1
	case t.Nsec < o.Nsec:
		return -1
	case t.Nsec > o.Nsec:
		return 1
	}
	return 0
}

// Less reports whether t is older than o.
func (t Ftime) Less(o Ftime) bool { return t.Compare(o) < 0 }

// IsZero reports whether t is the missing signature.
func (t Ftime) IsZero() bool { return t == TimeMissing }

// Time converts t back to wall clock time.
func (t Ftime) Time() time.Time { return time.Unix(int64(t.Sec), int64(t.Nsec)) }

// String formats t the way the state file stores it.
func (t Ftime) String() string { return fmt.Sprintf("%x.%x", t.Sec, t.Nsec) }

// ParseFtime parses the "%x.%x" state file form.
func ParseFtime(s string) (Ftime, error) {
	var t Ftime
	if _, err := fmt.Sscanf(s, "%x.%x", &t.Sec, &t.Nsec); err != nil {
		return Ftime{}, zerr.With(zerr.Wrap(err, "invalid signature"), "value", s)
	}
	return t, nil
}

// TsAlgo selects how signatures are computed and compared.
type TsAlgo int

const (
	// TsDefault resolves to TsMtime.
	TsDefault TsAlgo = iota
	// TsMtime compares modification times: a target is outdated if a source is newer.
	TsMtime
	// TsMtimeID compares each source's mtime with the value recorded at the last build.
	TsMtimeID
	// TsCksum compares content checksums with the values recorded at the last build.
	TsCksum
)

// ParseTsAlgo parses the settings and command line spelling.
func ParseTsAlgo(s string) (TsAlgo, error) {
	switch strings.TrimSpace(s) {
	case "":
		return TsDefault, nil
	case "mt":
		return TsMtime, nil
	case "mtid":
		return TsMtimeID, nil
	case "cksum":
		return TsCksum, nil
	}
	return TsDefault, zerr.With(ErrInvalidTimestampAlgorithm, "value", s)
}

// Effective resolves TsDefault.
func (a TsAlgo) Effective() TsAlgo {
	if a == TsDefault {
		return TsMtime
	}
	return a
}

// Ordered reports whether the algorithm compares by "newer than" rather than by "changed".
func (a TsAlgo) Ordered() bool { return a.Effective() == TsMtime }

// Valid reports whether a is a concrete algorithm as stored in the state file.
func (a TsAlgo) Valid() bool { return a == TsMtime || a == TsMtimeID || a == TsCksum }

func (a TsAlgo) String() string {
	switch a.Effective() {
	case TsMtimeID:
		return "mtid"
	case TsCksum:
		return "cksum"
	default:
		return "mt"
	}
}
