// Package fs computes file signatures and performs the file operations the
// resolver needs. Relative names are resolved against the project root.
package fs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileSystem = (*FileSystem)(nil)

// FileSystem implements ports.FileSystem on the local disk.
type FileSystem struct {
	root     string
	archives ports.ArchiveIndex
}

// New creates a FileSystem rooted at root. Archive member names such as
// "lib.a(x.o)" are looked up through archives, which may be nil.
func New(root string, archives ports.ArchiveIndex) *FileSystem {
	return &FileSystem{root: root, archives: archives}
}

// Path resolves name against the root.
func (f *FileSystem) Path(name string) string {
	if filepath.IsAbs(name) || f.root == "" {
		return name
	}
	return filepath.Join(f.root, name)
}

// FileTime returns the signature of name.
func (f *FileSystem) FileTime(name string, algo domain.TsAlgo) (domain.Ftime, bool) {
	if f.archives != nil && IsMemberRef(name) {
		return f.archives.MemberTime(f.Path(name), algo)
	}

	path := f.Path(name)
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return domain.TimeMissing, false
	case info.IsDir():
		return domain.TimeInit, false
	case !info.Mode().IsRegular():
		return domain.FtimeOf(info.ModTime()), false
	}

	if algo.Effective() != domain.TsCksum {
		return domain.FtimeOf(info.ModTime()), true
	}
	sum, err := FileSum32(path)
	if err != nil {
		return domain.TimeMissing, false
	}
	return domain.Checksum(sum), true
}

// SetTimes changes the access and modification time of name.
func (f *FileSystem) SetTimes(name string, atime, mtime time.Time) error {
	if err := os.Chtimes(f.Path(name), atime, mtime); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to set file times"), "file", name)
	}
	return nil
}

// MkdirParents creates the directories leading to name.
func (f *FileSystem) MkdirParents(name string) error {
	if IsMemberRef(name) {
		name, _, _ = strings.Cut(name, "(")
	}
	dir := filepath.Dir(f.Path(name))
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "dir", dir)
	}
	return nil
}

// IsMemberRef reports whether name has the form "archive(member)".
func IsMemberRef(name string) bool {
	open := strings.IndexByte(name, '(')
	return open > 0 && strings.HasSuffix(name, ")") && open < len(name)-2
}
