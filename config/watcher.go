package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits for writes to settle before
// reloading.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads the layered configuration when any of its files change.
type Watcher struct {
	watcher  *fsnotify.Watcher
	startDir string
	debounce time.Duration
	logger   *logrus.Entry
	onReload func(*Config)

	mu      sync.Mutex
	pending *time.Timer
	closed  bool
}

// NewWatcher watches startDir, the directories of the files merged into the
// current configuration and the global config directory. onReload receives
// every successfully reloaded configuration; a file that fails to load is
// logged and the previous configuration stays in effect.
func NewWatcher(startDir string, debounce time.Duration, logger *logrus.Entry, onReload func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dirs := []string{startDir}
	if cfg, err := LoadFrom(startDir); err == nil {
		for _, src := range cfg.Sources() {
			dirs = append(dirs, filepath.Dir(src))
		}
	}
	if global := GlobalConfigPath(); global != "" {
		dirs = append(dirs, filepath.Dir(global))
	}

	watched := make(map[string]bool)
	for _, dir := range dirs {
		if watched[dir] {
			continue
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logger.WithError(err).Warnf("Failed to watch %s", dir)
			continue
		}
		watched[dir] = true
		logger.Debugf("Watching config directory: %s", dir)
	}

	return &Watcher{
		watcher:  watcher,
		startDir: startDir,
		debounce: debounce,
		logger:   logger,
		onReload: onReload,
	}, nil
}

// Start processes file events until ctx is cancelled or the watcher is
// closed.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if isConfigFile(event.Name) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.Close()
			return
		}
	}
}

// schedule restarts the debounce timer so a burst of writes causes a single
// reload after the last one.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	cfg, err := LoadFromWithLogger(w.startDir, w.logger.Logger)
	if err != nil {
		w.logger.WithError(err).Warn("Config reload failed, keeping previous configuration")
		return
	}
	w.logger.WithField("sources", cfg.Sources()).Info("Config reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Close stops the watcher. Pending reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func isConfigFile(name string) bool {
	base := filepath.Base(name)
	if base == filepath.Base(GlobalConfigPath()) {
		return true
	}
	for _, n := range configNames {
		if base == n {
			return true
		}
	}
	for _, n := range overrideNames {
		if base == n {
			return true
		}
	}
	return false
}
