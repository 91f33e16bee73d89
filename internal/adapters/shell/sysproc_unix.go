//go:build unix

package shell

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"go.trai.ch/yabu/internal/core/ports"
	"golang.org/x/sys/unix"
)

func setCredential(c *exec.Cmd, cred *ports.Credential) {
	if cred == nil {
		return
	}
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.Credential = &syscall.Credential{Uid: cred.UID, Gid: cred.GID, Groups: cred.Groups}
}

// setProcessGroup makes the child lead a new process group. Terminal mode
// starts a new session instead, which leads a group as well.
func setProcessGroup(c *exec.Cmd) {
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.Setpgid = true
}

// killGroup kills the process group led by proc.
func killGroup(proc *os.Process) error {
	err := unix.Kill(-proc.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		err = proc.Kill()
	}
	return err
}

func setNice(pid, nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, pid, nice)
}
