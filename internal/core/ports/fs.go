package ports

import (
	"time"

	"go.trai.ch/yabu/internal/core/domain"
)

// FileSystem computes signatures and performs the few file operations the
// resolver needs.
//
//go:generate mockgen -source=fs.go -destination=mocks/mock_fs.go -package=mocks
type FileSystem interface {
	// FileTime returns the signature of name under algo and whether it is a
	// regular file (archive members count as regular). Missing files yield a zero
	// signature; directories yield domain.TimeInit.
	FileTime(name string, algo domain.TsAlgo) (domain.Ftime, bool)

	// SetTimes changes the access and modification time of name.
	SetTimes(name string, atime, mtime time.Time) error

	// MkdirParents creates the parent directories of name.
	MkdirParents(name string) error
}

// ArchiveIndex looks up members of ar archives.
type ArchiveIndex interface {
	// MemberTime resolves names of the form "lib.a(member.o)". The second result is
	// false if name is not an archive member reference or the member does not exist.
	MemberTime(name string, algo domain.TsAlgo) (domain.Ftime, bool)
}
