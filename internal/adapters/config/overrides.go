package config

import (
	"slices"

	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// ApplyOverrides applies the "key = value" pairs of a Buildfile's !settings
// block. Values are read as YAML scalars, so "true", "12" and "cksum" take the
// type of the setting they name.
func ApplyOverrides(s *domain.Settings, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv[k]},
		)
	}

	var dto SettingsDTO
	if err := node.Decode(&dto); err != nil {
		return zerr.Wrap(err, domain.ErrConfigParseFailed.Error())
	}
	for _, k := range keys {
		if !knownSetting(k) {
			return zerr.With(domain.ErrSyntax, "setting", k)
		}
	}
	return apply(s, &dto)
}

var settingNames = []string{
	"use_state_file", "state_file", "echo", "echo_after_error", "auto_mkdir",
	"use_server", "parallel_build", "auto_dependencies", "shell",
	"max_output_lines", "max_warnings", "max_jobs", "timestamps", "configuration",
}

func knownSetting(k string) bool { return slices.Contains(settingNames, k) }
