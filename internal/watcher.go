package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long store activity must settle before a
// watcher fires
const DefaultDebounce = 2 * time.Second

// Watcher observes the editor and agent stores and fires a trigger once
// writes settle. The editors write their databases continuously while a
// session is open, so raw events are debounced rather than acted on
// one by one.
type Watcher struct {
	paths    StoragePaths
	debounce time.Duration
	trigger  func(ctx context.Context)
}

func NewWatcher(paths StoragePaths, debounce time.Duration, trigger func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{paths: paths, debounce: debounce, trigger: trigger}
}

// Run watches until the context is done. Directories that cannot be
// watched are skipped with a warning; the watcher runs with whatever
// remains.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	watched := 0
	for _, dir := range w.watchDirs() {
		if err := fw.Add(dir); err != nil {
			LogWarn("cannot watch %s: %v", dir, err)
			continue
		}
		LogDebug("watching %s", dir)
		watched++
	}
	if watched == 0 {
		return &StorageError{Path: w.paths.BasePath, Op: "watch", Err: os.ErrNotExist}
	}

	// settle stays nil until the first relevant event, so the timer
	// case never fires spuriously.
	var timer *time.Timer
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// New workspace and session directories appear while
			// watching; pick them up as they are created.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := fw.Add(ev.Name); err == nil {
						LogDebug("watching %s", ev.Name)
					}
				}
			}
			if !relevantChange(ev) {
				continue
			}
			LogDebug("store changed: %s", ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				settle = timer.C
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			LogWarn("watch: %v", err)

		case <-settle:
			w.trigger(ctx)
		}
	}
}

// watchDirs enumerates every directory holding a store of interest
func (w *Watcher) watchDirs() []string {
	var dirs []string
	add := func(dir string) {
		if dir == "" {
			return
		}
		if _, err := os.Stat(dir); err != nil {
			return
		}
		dirs = append(dirs, dir)
	}

	if w.paths.GlobalStorage != "" {
		add(filepath.Dir(w.paths.GetGlobalStorageDBPath()))
	}
	add(w.paths.WorkspaceStorage)
	if stores, err := w.paths.FindWorkspaceStores(); err == nil {
		for _, store := range stores {
			add(store.Dir)
		}
	}
	if w.paths.HasAgentStorage() {
		add(w.paths.AgentStorage)
		if dbs, err := w.paths.FindAgentStoreDBs(); err == nil {
			for _, db := range dbs {
				add(filepath.Dir(db))
			}
		}
	}
	return dirs
}

// relevantChange filters the event stream down to writes against the
// stores themselves, including their WAL sidecars
func relevantChange(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
		return false
	}
	base := filepath.Base(ev.Name)
	switch base {
	case "state.vscdb", "state.vscdb-wal", "store.db", "store.db-wal":
		return true
	}
	return strings.HasPrefix(base, "chat_data_") && strings.HasSuffix(base, ".json")
}
