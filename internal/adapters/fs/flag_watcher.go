package fs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/geotrack/pkg/log"
)

// DefaultDebounce coalesces bursts of file events into one read.
const DefaultDebounce = 100 * time.Millisecond

// FlagWatcher reports changes of one flag made to the preferences file,
// including changes made by other processes.
type FlagWatcher struct {
	store    *FlagStore
	key      string
	onChange func(bool)
	logger   log.Logger
	delay    time.Duration

	mu       sync.Mutex
	debounce *time.Timer
	last     bool
	ready    chan struct{}
}

// NewFlagWatcher creates a watcher calling onChange whenever the value of
// key differs from the last value observed.
func NewFlagWatcher(store *FlagStore, key string, onChange func(bool), logger log.Logger) *FlagWatcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &FlagWatcher{
		store:    store,
		key:      key,
		onChange: onChange,
		logger:   logger,
		delay:    DefaultDebounce,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the watch is installed.
func (w *FlagWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the preferences directory until ctx is canceled. The
// directory is watched rather than the file since writes replace it.
func (w *FlagWatcher) Run(ctx context.Context) error {
	if err := w.prime(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("flag watcher: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.store.dir); err != nil {
		return fmt.Errorf("flag watcher: watch %s: %w", w.store.dir, err)
	}
	close(w.ready)
	w.logger.Debug("watching preferences", log.String("path", w.store.Path()))

	defer w.stopDebounce()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != PreferencesFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.debounceCheck(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("flag watcher error", log.Err(err))
		}
	}
}

func (w *FlagWatcher) prime(ctx context.Context) error {
	if err := w.store.ensureDir(); err != nil {
		return fmt.Errorf("flag watcher: %w", err)
	}
	v, err := w.store.ReadFlag(ctx, w.key)
	if err != nil {
		return fmt.Errorf("flag watcher: %w", err)
	}
	w.mu.Lock()
	w.last = v
	w.mu.Unlock()
	return nil
}

func (w *FlagWatcher) debounceCheck(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, func() { w.check(ctx) })
}

func (w *FlagWatcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
}

func (w *FlagWatcher) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	v, err := w.store.ReadFlag(ctx, w.key)
	if err != nil {
		w.logger.Warn("failed to read flag", log.String("key", w.key), log.Err(err))
		return
	}

	w.mu.Lock()
	changed := v != w.last
	w.last = v
	w.mu.Unlock()

	if changed {
		w.logger.Info("flag changed", log.String("key", w.key), log.Bool("value", v))
		w.onChange(v)
	}
}
