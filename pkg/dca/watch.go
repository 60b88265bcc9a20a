package dca

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a schema directory into a Store when files change.
// A failed reload keeps the previous tables.
type Watcher struct {
	mu       sync.Mutex
	store    *Store
	dir      string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Store)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher binds store to the schema directory dir.
func NewWatcher(store *Store, dir string, logger zerolog.Logger) (*Watcher, error) {
	if store == nil {
		return nil, fmt.Errorf("dca: watcher requires a store")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("dca: absolute path: %w", err)
	}
	return &Watcher{
		store:  store,
		dir:    abs,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Reload parses the directory again and replaces the store contents.
func (w *Watcher) Reload() error {
	w.logger.Info().Str("dir", w.dir).Msg("reloading schema")

	fresh, err := LoadDir(w.dir)
	if err != nil {
		w.logger.Error().Err(err).Msg("schema reload failed, keeping previous tables")
		return fmt.Errorf("dca: reload: %w", err)
	}

	before := len(w.store.Names())
	w.store.Replace(fresh)
	after := len(w.store.Names())
	if before != after {
		w.logger.Info().Int("old", before).Int("new", after).Msg("table count changed")
	}

	w.mu.Lock()
	listeners := append([]func(*Store){}, w.onChange...)
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(w.store)
	}

	w.logger.Info().Msg("schema reloaded")
	return nil
}

// OnChange registers a listener invoked after every successful reload.
func (w *Watcher) OnChange(fn func(*Store)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Watch starts watching the schema directory in the background.
func (w *Watcher) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dca: create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("dca: watch %s: %w", w.dir, err)
	}
	w.watcher = watcher

	go w.loop()

	w.logger.Info().Str("dir", w.dir).Msg("watching schema directory")
	return nil
}

// Stop ends the watch loop. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isSchemaFile(event.Name) || strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")
			if err := w.Reload(); err != nil {
				w.logger.Error().Err(err).Msg("schema watch reload failed")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("schema watcher error")

		case <-w.stopCh:
			return
		}
	}
}
