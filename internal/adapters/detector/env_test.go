package detector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/yabu/internal/adapters/detector"
	"go.trai.ch/yabu/internal/core/domain"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		env  detector.Environment
		want detector.OutputMode
	}{
		{name: "terminal", env: detector.Environment{IsTTY: true}, want: detector.ModeProgress},
		{name: "pipe", env: detector.Environment{}, want: detector.ModeLinear},
		{name: "CI=true", env: detector.Environment{IsTTY: true, CI: "true"}, want: detector.ModeLinear},
		{name: "CI=1", env: detector.Environment{IsTTY: true, CI: "1"}, want: detector.ModeLinear},
		{name: "CI=false", env: detector.Environment{IsTTY: true, CI: "false"}, want: detector.ModeProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detector.Detect(tt.env))
		})
	}
}

func TestDetectEnvironment_CI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.Equal(t, detector.ModeLinear, detector.DetectEnvironment())
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		flag     string
		detected detector.OutputMode
		want     detector.OutputMode
	}{
		{flag: "", detected: detector.ModeProgress, want: detector.ModeProgress},
		{flag: "auto", detected: detector.ModeLinear, want: detector.ModeLinear},
		{flag: "progress", detected: detector.ModeLinear, want: detector.ModeProgress},
		{flag: "tty", detected: detector.ModeLinear, want: detector.ModeProgress},
		{flag: "linear", detected: detector.ModeProgress, want: detector.ModeLinear},
		{flag: "ci", detected: detector.ModeProgress, want: detector.ModeLinear},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			got, err := detector.ResolveMode(tt.detected, tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.String())
		})
	}

	_, err := detector.ResolveMode(detector.ModeLinear, "fancy")
	require.ErrorContains(t, err, domain.ErrInvalidOutputMode.Error())
}
