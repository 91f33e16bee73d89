//go:build unix

package app

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func uname() (system, release, machine string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOOS, "", runtime.GOARCH
	}
	return unix.ByteSliceToString(u.Sysname[:]),
		unix.ByteSliceToString(u.Release[:]),
		unix.ByteSliceToString(u.Machine[:])
}
