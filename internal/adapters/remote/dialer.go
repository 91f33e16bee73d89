// Package remote opens connections to build servers.
package remote

import (
	"context"
	"io"
	"net"
	"time"

	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultTimeout bounds connection setup.
const DefaultTimeout = 10 * time.Second

var _ ports.Dialer = (*Dialer)(nil)

// Dialer implements ports.Dialer over TCP.
type Dialer struct {
	Timeout time.Duration
}

// NewDialer creates a Dialer with DefaultTimeout.
func NewDialer() *Dialer {
	return &Dialer{Timeout: DefaultTimeout}
}

// Dial connects to addr ("host:port").
func (d *Dialer) Dial(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	nd := net.Dialer{Timeout: d.Timeout, KeepAlive: 30 * time.Second}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "cannot connect"), "addr", addr)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return conn, nil
}
