package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/yabu/internal/adapters/archive"   //nolint:depguard // Wired in app layer
	"go.trai.ch/yabu/internal/adapters/buildfile" //nolint:depguard // Wired in app layer
	"go.trai.ch/yabu/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/yabu/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/yabu/internal/adapters/remote"    //nolint:depguard // Wired in app layer
	"go.trai.ch/yabu/internal/adapters/shell"     //nolint:depguard // Wired in app layer
	"go.trai.ch/yabu/internal/adapters/state"     //nolint:depguard // Wired in app layer
	"go.trai.ch/yabu/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/yabu/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			buildfile.NodeID,
			logger.NodeID,
			state.NodeID,
			shell.NodeID,
			remote.NodeID,
			archive.NodeID,
			watcher.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	parser, err := graft.Dep[ports.BuildfileParser](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[*logger.Logger](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.StateStore](ctx)
	if err != nil {
		return nil, err
	}
	spawner, err := graft.Dep[ports.Spawner](ctx)
	if err != nil {
		return nil, err
	}
	dialer, err := graft.Dep[ports.Dialer](ctx)
	if err != nil {
		return nil, err
	}
	archives, err := graft.Dep[*archive.Index](ctx)
	if err != nil {
		return nil, err
	}
	watchers, err := graft.Dep[watcher.Factory](ctx)
	if err != nil {
		return nil, err
	}
	return New(loader, parser, log, store, spawner, dialer, archives, watchers), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	a, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[*logger.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return &Components{App: a, Logger: log}, nil
}
