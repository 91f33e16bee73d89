package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/yabu/internal/core/ports"
)

// NodeID is the graft node providing the process spawner.
const NodeID graft.ID = "adapter.spawner"

func init() {
	graft.Register(graft.Node[ports.Spawner]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Spawner, error) {
			return NewSpawner(), nil
		},
	})
}
