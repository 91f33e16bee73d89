// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/yabu/internal/adapters/archive"
	_ "go.trai.ch/yabu/internal/adapters/buildfile"
	_ "go.trai.ch/yabu/internal/adapters/config"
	_ "go.trai.ch/yabu/internal/adapters/fs"
	_ "go.trai.ch/yabu/internal/adapters/logger"
	_ "go.trai.ch/yabu/internal/adapters/remote"
	_ "go.trai.ch/yabu/internal/adapters/shell"
	_ "go.trai.ch/yabu/internal/adapters/state"
	_ "go.trai.ch/yabu/internal/adapters/watcher"
	// Register app nodes.
	_ "go.trai.ch/yabu/internal/app"
)
