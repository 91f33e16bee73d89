// Package auth manages the per-user tokens clients present to build servers.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// TokenSize is the length of a token in bytes.
	TokenSize = 16
	// MaxTokenAge is how long a token file is reused before a new token is made.
	MaxTokenAge = 32000 * time.Second
)

var _ ports.TokenStore = (*Store)(nil)

// Store keeps tokens in <cfgdir>/auth/<user>. Both client and server read the
// same directory, typically shared over NFS.
type Store struct {
	cfgDir string
	logger ports.Logger
	now    func() time.Time
	random io.Reader
}

// NewStore creates a Store rooted at cfgDir.
func NewStore(cfgDir string, logger ports.Logger) *Store {
	return &Store{cfgDir: cfgDir, logger: logger, now: time.Now, random: rand.Reader}
}

// Path returns the token file of user.
func (s *Store) Path(user string) string {
	return domain.AuthPath(s.cfgDir, user)
}

// Token returns the token of user. A token file that is recent, private and
// has the right size is reused; otherwise a new token is written.
func (s *Store) Token(user string) (string, error) {
	if user == "" {
		return "", zerr.New("unknown user")
	}
	path := s.Path(user)
	if tok, ok := s.reuse(path); ok {
		return tok, nil
	}

	tok, err := s.generate()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create token directory"), "path", path)
	}
	//nolint:gosec // path is derived from the config directory
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.PrivateFilePerm)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to write token"), "path", path)
	}
	// An existing file keeps its mode on open.
	if err := f.Chmod(domain.PrivateFilePerm); err != nil {
		_ = f.Close()
		return "", zerr.With(zerr.Wrap(err, "failed to write token"), "path", path)
	}
	_, werr := io.WriteString(f, tok)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return "", zerr.With(zerr.Wrap(werr, "failed to write token"), "path", path)
	}
	return tok, nil
}

func (s *Store) reuse(path string) (string, bool) {
	fi, err := os.Stat(path)
	if err != nil || fi.Size() != TokenSize || fi.Mode().Perm()&0o077 != 0 {
		return "", false
	}
	if fi.ModTime().Add(MaxTokenAge).Before(s.now()) {
		return "", false
	}
	//nolint:gosec // path is derived from the config directory
	data, err := os.ReadFile(path)
	if err != nil || len(data) != TokenSize {
		return "", false
	}
	return string(data), true
}

// generate draws printable ASCII characters ('!' to '~') without bias.
func (s *Store) generate() (string, error) {
	const span = '~' - '!' + 1
	tok := make([]byte, 0, TokenSize)
	buf := make([]byte, TokenSize)
	for len(tok) < TokenSize {
		if _, err := io.ReadFull(s.random, buf); err != nil {
			return "", zerr.Wrap(err, "failed to generate token")
		}
		for _, b := range buf {
			if int(b) < 256-256%span && len(tok) < TokenSize {
				tok = append(tok, '!'+b%span)
			}
		}
	}
	return string(tok), nil
}

// Verify checks token against the file of user. The file must have the token
// size, belong to uid and be private.
func (s *Store) Verify(user string, uid int, token string) bool {
	path := s.Path(user)
	//nolint:gosec // path is derived from the config directory
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("cannot read %s: %v", path, err))
		return false
	}
	defer func() { _ = f.Close() }()

	want := make([]byte, TokenSize)
	if _, err := io.ReadFull(f, want); err != nil {
		s.logger.Warn(fmt.Sprintf("cannot read %s: %v", path, err))
		return false
	}
	if subtle.ConstantTimeCompare(want, []byte(token)) != 1 {
		s.logger.Warn(fmt.Sprintf("wrong token for user %s", user))
		return false
	}

	fi, err := f.Stat()
	if err != nil || fi.Size() != TokenSize || fi.Mode().Perm()&0o077 != 0 {
		s.logger.Warn(fmt.Sprintf("%s: bad file attributes", path))
		return false
	}
	if owner, ok := fileOwner(fi); ok && owner != uid {
		s.logger.Warn(fmt.Sprintf("%s: bad file attributes", path))
		return false
	}
	return true
}
