package domain

import (
	"net"
	"strconv"
)

// ExitStatus describes how a chunk ended: 'E' exited with Code, 'S' killed by
// signal Code, '?' unknown.
type ExitStatus struct {
	How  byte
	Code int
}

// OK reports a normal exit with code 0.
func (e ExitStatus) OK() bool { return e.How == 'E' && e.Code == 0 }

// Exited builds an 'E' status.
func Exited(code int) ExitStatus { return ExitStatus{How: 'E', Code: code} }

// Signaled builds an 'S' status.
func Signaled(sig int) ExitStatus { return ExitStatus{How: 'S', Code: sig} }

// Unknown is reported when the status cannot be determined.
var Unknown = ExitStatus{How: '?'}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
