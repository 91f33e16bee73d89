// Package state reads and writes the state file that records what every
// target was last built from.
package state

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/yabu/internal/build"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	keyAlgo   = "tsa"
	keyTarget = "target"
)

var _ ports.StateStore = (*Store)(nil)

// Store implements ports.StateStore with a line oriented text file.
type Store struct {
	logger ports.Logger
}

// NewStore creates a Store that reports discarded files to logger.
func NewStore(logger ports.Logger) *Store {
	return &Store{logger: logger}
}

func header() string { return "yabu " + build.StateVersion }

// Load reads the state file at path.
func (s *Store) Load(path string) (*domain.State, error) {
	//nolint:gosec // path comes from the settings
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.State{}, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStateReadFailed.Error()), "path", path)
	}
	defer func() { _ = f.Close() }()

	st, err := decode(f)
	if errors.Is(err, errHeader) {
		s.logger.Warn(fmt.Sprintf("%s: %s, discarding it", path, domain.ErrStateFileInvalid))
		if rmErr := s.Remove(path); rmErr != nil {
			return nil, rmErr
		}
		return &domain.State{}, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStateReadFailed.Error()), "path", path)
	}
	return st, nil
}

var errHeader = errors.New("bad header")

func decode(r io.Reader) (*domain.State, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, errHeader
	}
	if strings.TrimRight(sc.Text(), "\r") != header() {
		return nil, errHeader
	}

	st := &domain.State{}
	for sc.Scan() {
		fields := strings.Split(sc.Text(), "\t")
		switch fields[0] {
		case keyAlgo:
			if len(fields) < 2 {
				continue
			}
			if v, err := strconv.ParseInt(fields[1], 16, 0); err == nil && domain.TsAlgo(v).Valid() {
				st.Algo = domain.TsAlgo(v)
			}
		case keyTarget:
			if rec, ok := decodeTarget(fields[1:]); ok {
				st.Targets = append(st.Targets, rec)
			}
		}
	}
	return st, sc.Err()
}

// decodeTarget parses "name cfg ruleid (source time)*". Malformed records
// are skipped.
func decodeTarget(fields []string) (domain.TargetRecord, bool) {
	if len(fields) < 3 || len(fields)%2 != 1 {
		return domain.TargetRecord{}, false
	}
	id, err := strconv.ParseUint(fields[2], 16, 32)
	if err != nil {
		return domain.TargetRecord{}, false
	}
	rec := domain.TargetRecord{
		Name:   unescape(fields[0]),
		Cfg:    unescape(fields[1]),
		RuleID: uint32(id),
	}
	for i := 3; i+1 < len(fields); i += 2 {
		tm, err := domain.ParseFtime(fields[i+1])
		if err != nil {
			return domain.TargetRecord{}, false
		}
		rec.Sources = append(rec.Sources, domain.SourceRecord{Name: unescape(fields[i]), Time: tm})
	}
	return rec, true
}

// Save writes the state to a temporary file next to path and renames it into
// place.
func (s *Store) Save(path string, st *domain.State) error {
	fail := func(err error) error {
		return zerr.With(zerr.Wrap(err, domain.ErrStateWriteFailed.Error()), "path", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fail(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	encode(w, st)
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fail(err)
	}
	if err := tmp.Chmod(domain.FilePerm); err != nil {
		_ = tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fail(err)
	}
	return nil
}

func encode(w *bufio.Writer, st *domain.State) {
	_, _ = w.WriteString(header() + "\n")
	_, _ = fmt.Fprintf(w, "%s\t%x\n", keyAlgo, int(st.Algo.Effective()))
	for _, rec := range st.Targets {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%x", keyTarget, escape(rec.Name), escape(rec.Cfg), rec.RuleID)
		for _, src := range rec.Sources {
			_, _ = fmt.Fprintf(w, "\t%s\t%s", escape(src.Name), src.Time)
		}
		_ = w.WriteByte('\n')
	}
}

// Remove deletes the state file.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, domain.ErrStateWriteFailed.Error()), "path", path)
	}
	return nil
}
