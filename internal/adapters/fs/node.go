package fs

import (
	"context"

	"github.com/grindlemire/graft"
)

// WalkerNodeID is the graft node providing the directory walker.
const WalkerNodeID graft.ID = "adapter.fs.walker"

func init() {
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})
}
