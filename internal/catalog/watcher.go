package catalog

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/types"
)

// Watcher hot-reloads rule toggles when the catalog file changes on disk.
type Watcher struct {
	path    string
	log     *logrus.Logger
	watcher *fsnotify.Watcher
	onRules func(rules []types.Rule)
}

// NewWatcher creates a watcher for the catalog file at path. onRules is
// invoked with the reloaded rule set after each change.
func NewWatcher(path string, log *logrus.Logger, onRules func(rules []types.Rule)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory so editors that replace the file are still seen
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{path: path, log: log, watcher: fw, onRules: onRules}, nil
}

// Start runs the watch loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()
	w.log.WithField("path", w.path).Info("Watching catalog for rule changes")
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Catalog watch error")
		}
	}
}

func (w *Watcher) reload() {
	seed, err := Load(w.path)
	if err != nil {
		w.log.WithError(err).WithField("path", w.path).Warn("Catalog reload failed")
		return
	}
	w.onRules(seed.Rules)
	w.log.WithField("rules", len(seed.Rules)).Info("Catalog rules reloaded")
}
