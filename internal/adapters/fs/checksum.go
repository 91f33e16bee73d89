package fs

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// Sum32 folds the XXHash of r's content into the 32 bits a signature holds.
func Sum32(r io.Reader) (uint32, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return 0, zerr.Wrap(err, "failed to hash content")
	}
	sum := h.Sum64()
	return uint32(sum>>32) ^ uint32(sum), nil //nolint:gosec // folding
}

// FileSum32 returns Sum32 of the file at path.
func FileSum32(path string) (uint32, error) {
	f, err := os.Open(path) //nolint:gosec // path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer func() { _ = f.Close() }()

	sum, err := Sum32(f)
	if err != nil {
		return 0, zerr.With(err, "path", path)
	}
	return sum, nil
}
