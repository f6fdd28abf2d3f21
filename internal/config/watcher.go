package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SchemaWatcher hot reloads the form field schema when its file changes,
// so schema edits take effect without a restart.
type SchemaWatcher struct {
	path     string
	provider *SchemaProvider
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
}

// NewSchemaWatcher starts watching the schema file. The provider is
// updated in place on every successful reload; parse failures keep the
// previous schema.
func NewSchemaWatcher(path string, provider *SchemaProvider, logger *zap.Logger) (*SchemaWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch schema file: %w", err)
	}

	w := &SchemaWatcher{
		path:     path,
		provider: provider,
		logger:   logger,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("form schema hot reloading enabled", zap.String("path", path))
	return w, nil
}

// watchLoop monitors for file changes and triggers reloads, debounced to
// avoid reloading on every partial write.
func (w *SchemaWatcher) watchLoop() {
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("schema watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

func (w *SchemaWatcher) reload() {
	fields, err := LoadSchemaFile(w.path)
	if err != nil {
		w.logger.Error("schema reload failed, keeping previous schema",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}
	w.provider.Replace(fields)
	w.logger.Info("form schema reloaded",
		zap.String("path", w.path),
		zap.Int("fields", len(fields)),
	)
}

// Stop shuts the watcher down.
func (w *SchemaWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}
