package app

import (
	"os"
	"strings"

	"go.trai.ch/yabu/internal/core/domain"
)

// FakeHostnameEnv overrides the local hostname. Tests use it to pose as a
// configured build host.
const FakeHostnameEnv = "YABU_FAKE_HOSTNAME"

// SysInfo describes the machine yabu runs on.
type SysInfo struct {
	// Hostname is the short host name, cut at the first dot.
	Hostname string
	System   string
	Release  string
	Machine  string
}

// CurrentSysInfo inspects the local machine.
func CurrentSysInfo() SysInfo {
	host := os.Getenv(FakeHostnameEnv)
	if host == "" {
		host, _ = os.Hostname()
	}
	host, _, _ = strings.Cut(host, ".")

	si := SysInfo{Hostname: host}
	si.System, si.Release, si.Machine = uname()
	return si
}

// Vars returns the system variables of the Buildfile scope.
func (si SysInfo) Vars(localCfg string) map[string]string {
	return map[string]string{
		"_HOSTNAME":  si.Hostname,
		"_SYSTEM":    si.System,
		"_RELEASE":   si.Release,
		"_MACHINE":   si.Machine,
		"_LOCAL_CFG": localCfg,
	}
}

// LocalEnv is handed to scripts running on this machine.
func (si SysInfo) LocalEnv() []string {
	return []string{
		"YABU_MACHINE=" + si.Machine,
		"YABU_SYSTEM=" + si.System,
		"YABU_RELEASE=" + si.Release,
		"YABU_HOSTNAME=" + si.Hostname,
	}
}

// ServerEnv is the initial environment of every build server client.
func (si SysInfo) ServerEnv() []string {
	return []string{
		"YABU_HOSTNAME=" + si.Hostname,
		"YABU_SYSTEM=" + si.System,
		"YABU_RELEASE=" + si.Release,
		"YABU_MACHINE=" + si.Machine,
	}
}

// clientEnv is handed to every script of a build, local or remote.
func clientEnv(hostname, cfgDir string) []string {
	var env []string
	for _, name := range []string{"USER", "LOGNAME", "TERM"} {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	env = append(env, "YABU_CHOST="+hostname)
	if cfgDir != "" {
		env = append(env, domain.CfgDirEnv+"="+cfgDir)
	}
	return append(env, "PATH="+domain.DefaultPath)
}
