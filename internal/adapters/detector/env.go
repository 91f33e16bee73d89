// Package detector picks the output renderer for the current environment.
package detector

import (
	"os"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/term"
)

// OutputMode represents the rendering mode.
type OutputMode int

const (
	// ModeAuto detects the mode from the environment.
	ModeAuto OutputMode = iota
	// ModeProgress draws a live status board on the terminal.
	ModeProgress
	// ModeLinear prints prefixed lines, suitable for CI logs.
	ModeLinear
)

// String returns the flag spelling of m.
func (m OutputMode) String() string {
	switch m {
	case ModeProgress:
		return "progress"
	case ModeLinear:
		return "linear"
	default:
		return "auto"
	}
}

// Environment is the part of the process environment the detector consults.
type Environment struct {
	IsTTY bool
	CI    string
}

// CurrentEnvironment inspects stdout and the CI variable.
func CurrentEnvironment() Environment {
	return Environment{
		IsTTY: term.IsTerminal(int(os.Stdout.Fd())),
		CI:    os.Getenv("CI"),
	}
}

// Detect returns the mode recommended for env.
func Detect(env Environment) OutputMode {
	isCI := env.CI == "true" || env.CI == "1"
	if !env.IsTTY || isCI {
		return ModeLinear
	}
	return ModeProgress
}

// DetectEnvironment returns the mode recommended for the current process.
func DetectEnvironment() OutputMode {
	return Detect(CurrentEnvironment())
}

// ResolveMode applies the --output-mode flag to the detected mode.
func ResolveMode(detected OutputMode, flag string) (OutputMode, error) {
	switch flag {
	case "progress", "tty":
		return ModeProgress, nil
	case "linear", "ci":
		return ModeLinear, nil
	case "auto", "":
		return detected, nil
	default:
		return ModeAuto, zerr.With(domain.ErrInvalidOutputMode, "mode", flag)
	}
}
