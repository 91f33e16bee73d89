package ports

import "go.trai.ch/yabu/internal/core/domain"

// ConfigLoader defines the interface for loading the run settings.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers the project root from cwd, merges the global and project
	// settings files over the defaults and returns the result.
	Load(cwd, cfgDir string) (*domain.Settings, error)

	// DiscoverRoot walks up from cwd to the directory containing yabu.yaml.
	// It returns cwd if there is none.
	DiscoverRoot(cwd string) string
}
