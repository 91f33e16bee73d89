package buildfile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/yabu/internal/core/ports"
)

// NodeID is the graft node providing the Buildfile parser.
const NodeID graft.ID = "adapter.buildfile"

func init() {
	graft.Register(graft.Node[ports.BuildfileParser]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (ports.BuildfileParser, error) {
			return NewParser(), nil
		},
	})
}
