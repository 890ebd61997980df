package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits after the last
// filesystem event before reloading, absorbing editor write storms.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher builds a watcher for the config file at path. debounce <= 0
// uses DefaultDebounceInterval.
func NewWatcher(path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		logger:   slog.Default().With("component", "config-watcher"),
	}
}

// Watch blocks until ctx is done, calling onReload with the freshly loaded
// configuration after each debounced change. A change that fails to load or
// validate is logged and skipped; the previous configuration stays active.
//
// The parent directory is watched rather than the file itself because most
// editors replace files on save, which drops a plain file watch.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	w.logger.Info("config watcher started", "path", w.path, "debounce", w.debounce)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			cfg, err := LoadConfigWithEnvOverrides(w.path)
			if err != nil {
				w.logger.Warn("config reload failed, keeping previous configuration", "error", err)
				continue
			}
			w.logger.Info("configuration reloaded", "path", w.path)
			onReload(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}
