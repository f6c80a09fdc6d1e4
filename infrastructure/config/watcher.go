package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the YAML overlay file and notifies subscribers.
// Primarily a development convenience: sync timing (staleness window, fetch
// timeout) can be tuned without restarting the session.
type Watcher struct {
	config    *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher creates a watcher over the config's overlay file. When no
// overlay is configured, or outside development, the watcher is inert.
func NewWatcher(initial *Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		config: initial,
		logger: logger.Named("config"),
		stopCh: make(chan struct{}),
	}

	if !initial.IsDevelopment() || initial.OverlayPath == "" {
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsWatcher.Add(initial.OverlayPath); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("watch config overlay: %w", err)
	}
	w.watcher = fsWatcher

	go w.watchLoop()
	w.logger.Info("configuration hot reloading enabled",
		zap.String("path", initial.OverlayPath))
	return w, nil
}

// Current returns the latest configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnChange registers a callback invoked after each successful reload
func (w *Watcher) OnChange(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Stop shuts the watcher down
func (w *Watcher) Stop() {
	close(w.stopCh)
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	next := *w.config
	if err := next.ApplyOverlay(next.OverlayPath); err != nil {
		w.mu.Unlock()
		w.logger.Warn("config reload failed, keeping previous values", zap.Error(err))
		return
	}
	if err := next.Validate(); err != nil {
		w.mu.Unlock()
		w.logger.Warn("reloaded config invalid, keeping previous values", zap.Error(err))
		return
	}
	w.config = &next
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded")
	for _, cb := range callbacks {
		cb(&next)
	}
}
