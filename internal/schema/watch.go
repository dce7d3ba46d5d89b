package schema

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/branchgraph/branchgraph/pkg/logger"
)

// Watcher reloads a Cache whenever its backing descriptor file changes on
// disk, grounded on the teacher's config hot-reload convention of pairing a
// copy-on-write cache with an fsnotify.Watcher goroutine.
type Watcher struct {
	cache *Cache
	log   *slog.Logger
	fsw   *fsnotify.Watcher
	done  chan struct{}
}

// NewWatcher starts watching cache's descriptor file for writes/renames. The
// caller must call Close to stop the watch goroutine.
func NewWatcher(cache *Cache, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(cache.path); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{cache: cache, log: log.With(logger.Scope("schema.watch")), fsw: fsw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.cache.Load(context.Background()); err != nil {
				w.log.Error("schema reload failed", logger.Error(err))
				continue
			}
			w.log.Info("schema reloaded", slog.String("hash", w.cache.Hash()))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("schema watch error", logger.Error(err))
		case <-w.done:
			return
		}
	}
}

// Close stops the watch goroutine and releases the underlying fsnotify
// watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
