package domain

import "runtime"

// Host is a build server, or the local machine when Name is the local hostname.
type Host struct {
	Name string
	Addr string
	Port int
	Cfg  string
	Max  int
	Prio int
}

// Address returns addr:port for dialing.
func (h Host) Address() string {
	addr := h.Addr
	if addr == "" {
		addr = h.Name
	}
	port := h.Port
	if port == 0 {
		port = DefaultPort
	}
	return joinHostPort(addr, port)
}

// Settings is the effective configuration of one run.
type Settings struct {
	// Root is the project root: the directory holding yabu.yaml, or the working
	// directory if there is none.
	Root      string
	Buildfile string
	CfgDir    string

	UseStateFile     bool
	StateFile        string
	Echo             bool
	EchoAfterError   bool
	AutoMkdir        bool
	UseServer        bool
	ParallelBuild    bool
	AutoDependencies bool
	Shell            string
	MaxOutputLines   int
	MaxWarnings      int
	MaxJobs          int
	Timestamps       TsAlgo
	Configuration    string

	Hosts []Host
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Buildfile:        DefaultBuildfile,
		UseStateFile:     true,
		StateFile:        DefaultStateFile,
		EchoAfterError:   true,
		UseServer:        true,
		ParallelBuild:    true,
		AutoDependencies: true,
		Shell:            DefaultShell,
		MaxJobs:          runtime.NumCPU(),
	}
}

// LocalHost returns the host entry describing the local machine.
func (s *Settings) LocalHost(hostname string) (Host, bool) {
	for _, h := range s.Hosts {
		if h.Name == hostname {
			return h, true
		}
	}
	return Host{}, false
}

// RemoteHosts returns every host entry except the local one.
func (s *Settings) RemoteHosts(hostname string) []Host {
	out := make([]Host, 0, len(s.Hosts))
	for _, h := range s.Hosts {
		if h.Name != hostname {
			out = append(out, h)
		}
	}
	return out
}
