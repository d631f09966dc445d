package site

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/708u/mdblog"
)

// DefaultDebounce is how long the watcher waits after the last change
// before reloading.
const DefaultDebounce = 300 * time.Millisecond

// LoadFunc builds a fresh collection.
type LoadFunc func(context.Context) (*mdblog.Collection, error)

// Watcher reloads the collection in a Store when post files change.
// A failed reload is logged and the previous collection keeps being
// served.
type Watcher struct {
	dir      string
	store    *Store
	load     LoadFunc
	debounce time.Duration
	logger   mdblog.Logger
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for reloads.
func WithWatchLogger(l mdblog.Logger) WatchOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a Watcher for the posts in dir.
func NewWatcher(dir string, store *Store, load LoadFunc, opts ...WatchOption) *Watcher {
	w := &Watcher{
		dir:      dir,
		store:    store,
		load:     load,
		debounce: DefaultDebounce,
		logger:   mdblog.NopLogger(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching posts", "dir", w.dir)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	c, err := w.load(ctx)
	if err != nil {
		w.logger.Error("reload failed, keeping previous posts", "error", err)
		return
	}
	w.store.Replace(c)
	w.logger.Info("posts reloaded", "posts", c.Len())
}

func relevant(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".md" {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
