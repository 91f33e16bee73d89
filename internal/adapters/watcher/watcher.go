// Package watcher reports file changes below the project root for watch mode.
package watcher

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/yabu/internal/core/domain"
	"go.trai.ch/yabu/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// DirWalker enumerates the directories to watch.
type DirWalker interface {
	WalkDirs(root string, ignores []string) iter.Seq[string]
}

// Watcher implements recursive file system watching using fsnotify.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	walker    DirWalker
	logger    ports.Logger
	ignores   []string
	events    chan ports.WatchEvent
}

// NewWatcher creates a watcher. Directories matching ignores are not
// watched.
func NewWatcher(walker DirWalker, logger ports.Logger, ignores ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create file watcher")
	}
	return &Watcher{
		fsWatcher: w,
		walker:    walker,
		logger:    logger,
		ignores:   ignores,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
	}, nil
}

// Start begins watching root recursively.
func (w *Watcher) Start(ctx context.Context, root string) error {
	for dir := range w.walker.WalkDirs(root, w.ignores) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to watch directory"), "dir", dir)
		}
	}
	go w.processEvents(ctx)
	return nil
}

// Stop releases the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// Events returns an iterator over file events. It ends when the watcher stops.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			we, ok := convertEvent(event)
			if !ok || Ignored(event.Name) {
				continue
			}

			select {
			case w.events <- we:
			case <-ctx.Done():
				return
			}

			if we.Operation == ports.OpCreate {
				w.addTree(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher: " + err.Error())
		}
	}
}

// addTree watches a newly created directory and everything below it.
func (w *Watcher) addTree(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	for dir := range w.walker.WalkDirs(path, w.ignores) {
		_ = w.fsWatcher.Add(dir)
	}
}

func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	var op ports.WatchOp
	switch {
	case event.Has(fsnotify.Write):
		op = ports.OpWrite
	case event.Has(fsnotify.Create):
		op = ports.OpCreate
	case event.Has(fsnotify.Remove):
		op = ports.OpRemove
	case event.Has(fsnotify.Rename):
		op = ports.OpRename
	default:
		return ports.WatchEvent{}, false
	}
	return ports.WatchEvent{Path: event.Name, Operation: op}, true
}

// Ignored reports whether a change to path never triggers a rebuild: the
// state file and its temporary copies, and editor scratch files.
func Ignored(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, domain.DefaultStateFile):
		return true
	case strings.HasPrefix(base, ".#"), strings.HasSuffix(base, "~"):
		return true
	case strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case base == "4913":
		return true
	}
	return false
}
