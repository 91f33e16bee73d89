package logger

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID is the graft node providing the process logger.
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[*Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (*Logger, error) {
			return New(), nil
		},
	})
}
