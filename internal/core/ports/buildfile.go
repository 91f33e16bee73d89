package ports

import "go.trai.ch/yabu/internal/core/domain"

// BuildfileParser reads a Buildfile into its statement stream.
//
//go:generate mockgen -source=buildfile.go -destination=mocks/mock_buildfile.go -package=mocks
type BuildfileParser interface {
	Parse(path string) (*domain.Buildfile, error)
}
