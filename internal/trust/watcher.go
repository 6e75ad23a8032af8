package trust

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"authhandler/pkg/logging"
)

const (
	// DefaultDebounceInterval is how long the watcher waits after the last
	// change before reloading.
	DefaultDebounceInterval = 250 * time.Millisecond

	// DefaultPollInterval is the fallback polling interval when fsnotify is unavailable.
	DefaultPollInterval = 5 * time.Second
)

// Watcher reloads a Store when its file changes, so rules revoked or added
// from the command line apply to the running daemon.
type Watcher struct {
	mu sync.Mutex

	store    *Store
	dir      string
	file     string
	debounce time.Duration
	poll     time.Duration

	// onReload runs after each reload attempt. Used by tests.
	onReload func(error)

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	lastModTime time.Time

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a watcher for store. The store must be file backed.
func NewWatcher(store *Store) *Watcher {
	return &Watcher{
		store:    store,
		dir:      filepath.Dir(store.Path()),
		file:     filepath.Base(store.Path()),
		debounce: DefaultDebounceInterval,
		poll:     DefaultPollInterval,
	}
}

// Start begins watching. It is a no-op for in-memory stores.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running || w.store.Path() == "" {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0700); err != nil {
		return err
	}

	w.stopCh = make(chan struct{})
	w.running = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("TrustWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges(w.stopCh)
		return nil
	}
	if err := watcher.Add(w.dir); err != nil {
		logging.Warn("TrustWatcher", "Failed to watch %s, falling back to polling: %v", w.dir, err)
		watcher.Close()
		go w.pollForChanges(w.stopCh)
		return nil
	}
	w.fsWatcher = watcher

	go w.processEvents(w.stopCh, watcher.Events, watcher.Errors)

	logging.Debug("TrustWatcher", "Watching %s for trust rule changes", w.dir)
	return nil
}

func (w *Watcher) processEvents(stopCh <-chan struct{}, eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-stopCh:
			return
		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.file {
				continue
			}
			// The store replaces the file by rename, so Create covers its own writes.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.reloadDebounced()
		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("TrustWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) pollForChanges(stopCh <-chan struct{}) {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	path := filepath.Join(w.dir, w.file)
	if info, err := os.Stat(path); err == nil {
		w.lastModTime = info.ModTime()
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.ModTime().After(w.lastModTime) {
				w.lastModTime = info.ModTime()
				w.reloadDebounced()
			}
		}
	}
}

func (w *Watcher) reloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		running := w.running
		onReload := w.onReload
		w.mu.Unlock()
		if !running {
			return
		}

		err := w.store.Load()
		if err != nil {
			logging.Warn("TrustWatcher", "Failed to reload trust rules: %v", err)
		} else {
			logging.Info("TrustWatcher", "Reloaded trust rules from %s", w.store.Path())
		}
		if onReload != nil {
			onReload(err)
		}
	})
}

// Stop stops watching.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("TrustWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}
}
