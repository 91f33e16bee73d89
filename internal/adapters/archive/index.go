// Package archive looks up member signatures in ar archives for sources named
// "lib.a(member.o)".
package archive

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultCacheSize is the number of parsed archives kept in memory.
const DefaultCacheSize = 64

var _ ports.ArchiveIndex = (*Index)(nil)

type cacheKey struct {
	path string
	algo domain.TsAlgo
}

// table is a parsed archive together with the file identity it was read from.
type table struct {
	mtime   time.Time
	size    int64
	inode   uint64
	members map[string]domain.Ftime
}

// Index implements ports.ArchiveIndex. Parsed member tables are cached and
// reread when the archive's mtime, size or inode changes.
type Index struct {
	mu     sync.Mutex
	cache  *lru.Cache[cacheKey, *table]
	logger ports.Logger
}

// NewIndex creates an Index caching up to size archives.
func NewIndex(logger ports.Logger, size int) (*Index, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, *table](size)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create archive cache")
	}
	return &Index{cache: cache, logger: logger}, nil
}

// SplitMemberRef splits "lib.a(x.o)" into archive and member.
func SplitMemberRef(name string) (archive, member string, ok bool) {
	open := strings.IndexByte(name, '(')
	if open <= 0 || !strings.HasSuffix(name, ")") {
		return "", "", false
	}
	member = name[open+1 : len(name)-1]
	if member == "" || strings.ContainsAny(member, "()") {
		return "", "", false
	}
	return name[:open], member, true
}

// MemberTime returns the signature of the member named by name.
func (x *Index) MemberTime(name string, algo domain.TsAlgo) (domain.Ftime, bool) {
	archive, member, ok := SplitMemberRef(name)
	if !ok {
		return domain.TimeMissing, false
	}
	t := x.lookup(archive, algo.Effective())
	if t == nil {
		return domain.TimeMissing, false
	}
	sig, ok := t.members[member]
	return sig, ok
}

func (x *Index) lookup(path string, algo domain.TsAlgo) *table {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	key := cacheKey{path: path, algo: algo}
	ino := inode(info)
	if t, ok := x.cache.Get(key); ok && t.mtime.Equal(info.ModTime()) && t.size == info.Size() && t.inode == ino {
		return t
	}

	t := &table{mtime: info.ModTime(), size: info.Size(), inode: ino}
	f, err := os.Open(path) //nolint:gosec // archive named by the Buildfile
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	t.members, err = ReadMembers(f, algo)
	if err != nil && x.logger != nil {
		x.logger.Warn(fmt.Sprintf("%s: %v", path, err))
	}
	x.cache.Add(key, t)
	return t
}
