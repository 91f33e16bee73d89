package state

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/yabu/internal/adapters/logger"
	"go.trai.ch/yabu/internal/core/ports"
)

// NodeID is the graft node providing the state store.
const NodeID graft.ID = "adapter.state"

func init() {
	graft.Register(graft.Node[ports.StateStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.StateStore, error) {
			log, err := graft.Dep[*logger.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(log), nil
		},
	})
}
