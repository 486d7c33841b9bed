package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called with the freshly loaded configuration after the
// config file changes on disk.
type ReloadFunc func(cfg *Config)

// Watcher monitors the configuration file and reloads it on change.
// It wraps fsnotify with debouncing, since editors typically emit a
// burst of events per save.
type Watcher struct {
	loader     *Loader
	configPath string
	debounce   time.Duration
	onReload   ReloadFunc

	fsWatcher *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Timer
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewWatcher creates a watcher for the given config file path. An
// empty path falls back to the loader's default location.
func NewWatcher(loader *Loader, configPath string, onReload ReloadFunc) (*Watcher, error) {
	if configPath == "" {
		configPath = loader.DefaultConfigPath()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		loader:     loader,
		configPath: configPath,
		debounce:   100 * time.Millisecond,
		onReload:   onReload,
		fsWatcher:  fsWatcher,
	}, nil
}

// Start begins watching. The parent directory is watched rather than
// the file itself, so atomic save-and-rename writes are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	if err := w.fsWatcher.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true

	go w.loop(ctx)
	return nil
}

// Stop stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		w.fsWatcher.Close()
		return
	}
	w.cancel()
	<-w.done
	if w.pending != nil {
		w.pending.Stop()
	}
	w.fsWatcher.Close()
	w.started = false
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.scheduleReload()
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		cfg, err := w.loader.Load(w.configPath)
		if err != nil {
			// A half-written or invalid file keeps the previous
			// configuration in effect.
			return
		}
		w.onReload(cfg)
	})
}
