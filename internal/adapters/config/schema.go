package config

// File is the structure of yabu.yaml, both the project file and the global one
// in the config directory. Unset fields keep the value of the layer below.
type File struct {
	Buildfile string      `yaml:"buildfile"`
	Settings  SettingsDTO `yaml:"settings"`
	Hosts     []HostDTO   `yaml:"hosts"`
}

// SettingsDTO holds the run settings.
type SettingsDTO struct {
	UseStateFile     *bool   `yaml:"use_state_file"`
	StateFile        *string `yaml:"state_file"`
	Echo             *bool   `yaml:"echo"`
	EchoAfterError   *bool   `yaml:"echo_after_error"`
	AutoMkdir        *bool   `yaml:"auto_mkdir"`
	UseServer        *bool   `yaml:"use_server"`
	ParallelBuild    *bool   `yaml:"parallel_build"`
	AutoDependencies *bool   `yaml:"auto_dependencies"`
	Shell            *string `yaml:"shell"`
	MaxOutputLines   *int    `yaml:"max_output_lines"`
	MaxWarnings      *int    `yaml:"max_warnings"`
	MaxJobs          *int    `yaml:"max_jobs"`
	Timestamps       *string `yaml:"timestamps"`
	Configuration    *string `yaml:"configuration"`
}

// HostDTO is one entry of the hosts list.
type HostDTO struct {
	Name string `yaml:"name"`
	Addr string `yaml:"addr"`
	Port int    `yaml:"port"`
	Cfg  string `yaml:"cfg"`
	Max  int    `yaml:"max"`
	Prio int    `yaml:"prio"`
}
