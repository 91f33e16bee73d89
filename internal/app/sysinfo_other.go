//go:build !unix

package app

import "runtime"

func uname() (system, release, machine string) {
	return runtime.GOOS, "", runtime.GOARCH
}
