package archive

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/yabu/internal/adapters/logger"
)

// NodeID is the graft node providing the archive index.
const NodeID graft.ID = "adapter.archive"

func init() {
	graft.Register(graft.Node[*Index]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Index, error) {
			log, err := graft.Dep[*logger.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewIndex(log, DefaultCacheSize)
		},
	})
}
