// Package config loads the yabu settings: defaults, the global yabu.yaml in the
// config directory, the project yabu.yaml and the Buildfile's !settings block.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader.
type Loader struct {
	Logger ports.Logger
	// Hostname names the local host entry. Defaults to os.Hostname.
	Hostname func() (string, error)
}

var _ ports.ConfigLoader = (*Loader)(nil)

// NewLoader creates a Loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger, Hostname: os.Hostname}
}

// DiscoverRoot walks up from cwd to the directory holding yabu.yaml.
func (l *Loader) DiscoverRoot(cwd string) string {
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, domain.SettingsFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd
		}
		dir = parent
	}
}

// CfgDir resolves the global config directory: dir if set, else $YABU_CFG_DIR,
// else ~/.yabu.
func CfgDir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv(domain.CfgDirEnv); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return domain.DefaultCfgDirName
	}
	return filepath.Join(home, domain.DefaultCfgDirName)
}

// Load returns the merged settings of the project containing cwd. The project's
// .env file is loaded into the process environment first; variables that are
// already set win.
func (l *Loader) Load(cwd, cfgDir string) (*domain.Settings, error) {
	s := domain.DefaultSettings()
	s.Root = l.DiscoverRoot(cwd)
	s.CfgDir = CfgDir(cfgDir)

	envPath := filepath.Join(s.Root, domain.EnvFileName)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			l.Logger.Warn(fmt.Sprintf("ignoring %s: %v", envPath, err))
		}
	}

	maxJobsSet := false
	for _, path := range []string{
		filepath.Join(s.CfgDir, domain.SettingsFileName),
		filepath.Join(s.Root, domain.SettingsFileName),
	} {
		f, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		if err := apply(s, &f.Settings); err != nil {
			return nil, zerr.With(err, "file", path)
		}
		maxJobsSet = maxJobsSet || f.Settings.MaxJobs != nil
		if f.Buildfile != "" {
			s.Buildfile = f.Buildfile
		}
		if len(f.Hosts) > 0 {
			s.Hosts = hosts(f.Hosts)
		}
	}

	if !maxJobsSet && l.Hostname != nil {
		if name, err := l.Hostname(); err == nil {
			if h, ok := s.LocalHost(name); ok && h.Max > 0 {
				s.MaxJobs = h.Max
			}
		}
	}
	return s, nil
}

// readFile parses one yabu.yaml. A missing file yields nil.
func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the project root
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "file", path)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "file", path)
	}
	for i, h := range f.Hosts {
		if h.Name == "" {
			return nil, zerr.With(zerr.With(domain.ErrConfigParseFailed, "file", path), "host", i)
		}
	}
	return &f, nil
}

func hosts(dtos []HostDTO) []domain.Host {
	out := make([]domain.Host, len(dtos))
	for i, h := range dtos {
		out[i] = domain.Host{Name: h.Name, Addr: h.Addr, Port: h.Port, Cfg: h.Cfg, Max: h.Max, Prio: h.Prio}
	}
	slices.SortStableFunc(out, func(a, b domain.Host) int { return b.Prio - a.Prio })
	return out
}

func apply(s *domain.Settings, d *SettingsDTO) error {
	setIf(&s.UseStateFile, d.UseStateFile)
	setIf(&s.StateFile, d.StateFile)
	setIf(&s.Echo, d.Echo)
	setIf(&s.EchoAfterError, d.EchoAfterError)
	setIf(&s.AutoMkdir, d.AutoMkdir)
	setIf(&s.UseServer, d.UseServer)
	setIf(&s.ParallelBuild, d.ParallelBuild)
	setIf(&s.AutoDependencies, d.AutoDependencies)
	setIf(&s.Shell, d.Shell)
	setIf(&s.MaxOutputLines, d.MaxOutputLines)
	setIf(&s.MaxWarnings, d.MaxWarnings)
	setIf(&s.MaxJobs, d.MaxJobs)
	setIf(&s.Configuration, d.Configuration)
	if d.Timestamps != nil {
		algo, err := domain.ParseTsAlgo(*d.Timestamps)
		if err != nil {
			return err
		}
		s.Timestamps = algo
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
