//go:build !unix

package shell

import (
	"os"
	"os/exec"

	"go.trai.ch/yabu/internal/core/ports"
)

func setCredential(*exec.Cmd, *ports.Credential) {}

func setProcessGroup(*exec.Cmd) {}

func killGroup(proc *os.Process) error { return proc.Kill() }

func setNice(int, int) error { return nil }
