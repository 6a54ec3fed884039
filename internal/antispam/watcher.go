package antispam

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher hot-reloads the rules file into a Provider when it changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	provider *Provider
	path     string
	logger   *zap.Logger
}

// NewWatcher creates a file watcher for the rules file. The file must exist.
func NewWatcher(path string, provider *Provider, logger *zap.Logger) (*Watcher, error) {
	if provider == nil {
		return nil, fmt.Errorf("antispam: provider is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("antispam: rules file: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("antispam: create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("antispam: watch %q: %w", path, err)
	}

	return &Watcher{
		watcher:  watcher,
		provider: provider,
		path:     path,
		logger:   logger,
	}, nil
}

// Run watches for file changes and reloads rules. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	// Debounce so editors that write in multiple steps trigger one reload.
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("rules watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	rules, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error("rules reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.provider.Replace(rules)
	w.logger.Info("rules reloaded", zap.String("path", w.path))
}
