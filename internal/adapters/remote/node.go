package remote

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/yabu/internal/core/ports"
)

// NodeID is the graft node providing the build server dialer.
const NodeID graft.ID = "adapter.dialer"

func init() {
	graft.Register(graft.Node[ports.Dialer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Dialer, error) {
			return NewDialer(), nil
		},
	})
}
