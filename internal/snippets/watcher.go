package snippets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"expandd/internal/logging"
)

// Watcher watches the store's library paths and invokes a callback
// after changes settle. Wiring the callback to a store reload plus the
// engine's publisher makes library edits take effect without a restart.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	log     *logging.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates a watcher over the store's configured paths.
func NewWatcher(store *Store, log *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if log == nil {
		log = logging.Default().WithComponent("snippets")
	}
	return &Watcher{
		store:   store,
		watcher: fsw,
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. For each configured path the watcher adds the
// directory that contains it: editors typically replace a file by
// rename, which drops a direct file watch.
func (w *Watcher) Start(ctx context.Context, onReload func()) error {
	seen := make(map[string]bool)
	for _, p := range w.store.paths {
		dir := p
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := w.watcher.Add(dir); err != nil {
			w.log.Warn("cannot watch snippet path", "path", dir, "error", err)
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.loop(ctx, onReload)
	return nil
}

func (w *Watcher) loop(ctx context.Context, onReload func()) {
	defer close(w.done)

	var debounce *time.Timer
	const settle = 250 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isLibraryFile(filepath.Base(event.Name)) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(settle, func() {
				w.log.Info("snippet library changed", "path", name)
				onReload()
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("snippet watch error", "error", err)
		}
	}
}

// Close stops the watcher and waits for its loop to exit.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	<-w.done
	return err
}
