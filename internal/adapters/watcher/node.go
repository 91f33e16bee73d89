package watcher

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/yabu/internal/adapters/fs"
	"go.trai.ch/yabu/internal/adapters/logger"
	"go.trai.ch/yabu/internal/core/ports"
)

// NodeID is the unique identifier for the file watcher Graft node.
const NodeID graft.ID = "adapter.watcher"

// Factory creates a watcher for one watch session.
type Factory func() (ports.Watcher, error)

func init() {
	graft.Register(graft.Node[Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{fs.WalkerNodeID, logger.NodeID},
		Run: func(ctx context.Context) (Factory, error) {
			walker, err := graft.Dep[*fs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[*logger.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return func() (ports.Watcher, error) {
				return NewWatcher(walker, log, ".git")
			}, nil
		},
	})
}
