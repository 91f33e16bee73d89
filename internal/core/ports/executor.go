package ports

import (
	"context"
	"io"

	"go.trai.ch/yabu/internal/core/domain"
)

// Command describes one chunk to execute.
type Command struct {
	// Shell runs Script with "-c" unless Script starts with "#!".
	Shell  string
	Script string
	Dir    string
	Env    []string
	// PTY attaches the process to a pseudo terminal.
	PTY bool
	// Isolated runs the process with Env only instead of extending the
	// current environment.
	Isolated bool
	// Nice is the scheduling priority of the process. Zero leaves it unchanged.
	Nice int
	// Credential runs the process as another user. Nil keeps the current user.
	Credential *Credential
}

// Credential identifies the user and groups a process runs as.
type Credential struct {
	UID    uint32
	GID    uint32
	Groups []uint32
}

// Process is a running chunk.
type Process interface {
	// Output returns the merged stdout and stderr stream. It reaches EOF when the
	// process and all its children closed it.
	Output() io.Reader

	// Wait blocks until the process exits and releases its resources.
	Wait() domain.ExitStatus

	// Kill terminates the process.
	Kill() error
}

// Spawner starts local processes.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (Process, error)
}

// Dialer opens connections to build servers.
type Dialer interface {
	Dial(ctx context.Context, addr string) (io.ReadWriteCloser, error)
}
