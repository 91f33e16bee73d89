package ports

import "go.trai.ch/yabu/internal/core/domain"

// StateStore persists the build state between runs.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type StateStore interface {
	// Load reads the state file. A missing or invalid file yields an empty state
	// and no error; invalid files are removed.
	Load(path string) (*domain.State, error)

	// Save replaces the state file atomically.
	Save(path string, state *domain.State) error

	// Remove deletes the state file. A missing file is not an error.
	Remove(path string) error
}
