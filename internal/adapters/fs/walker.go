package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// Walker enumerates the directories below a project root.
type Walker struct{}

// NewWalker creates a Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkDirs yields root and every directory below it, skipping version control
// directories and directories whose name matches one of ignores.
func (w *Walker) WalkDirs(root string, ignores []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil //nolint:nilerr // unreadable entries are skipped
			}
			if path != root && skipDir(d.Name(), ignores) {
				return filepath.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func skipDir(name string, ignores []string) bool {
	if name == ".git" || name == ".jj" {
		return true
	}
	for _, ig := range ignores {
		if ok, _ := filepath.Match(ig, name); ok {
			return true
		}
	}
	return false
}
