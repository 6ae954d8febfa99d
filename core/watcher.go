package core

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/konradmalik/htmllint-ls/logs"
)

const defaultWatchDebounce = 100 * time.Millisecond

var ignoredDirs = []string{".git", "node_modules", ".hg", ".svn"}

// ConfigWatcher watches a workspace for changes to configuration files.
// It is the fallback for clients that cannot watch files on behalf of the server.
type ConfigWatcher struct {
	root     string
	watcher  *fsnotify.Watcher
	onChange func(paths []string)
	debounce time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

func NewConfigWatcher(root string, onChange func(paths []string)) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cw := &ConfigWatcher{
		root:     root,
		watcher:  w,
		onChange: onChange,
		debounce: defaultWatchDebounce,
		done:     make(chan struct{}),
	}
	if err := cw.addTree(root); err != nil {
		_ = w.Close()
		return nil, err
	}
	return cw, nil
}

func (cw *ConfigWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are skipped
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(ignoredDirs, d.Name()) {
			return filepath.SkipDir
		}
		if err := cw.watcher.Add(path); err != nil {
			logs.Log.Logf(logs.Warn, "cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// Run delivers batched changes until ctx is done or Close is called.
func (cw *ConfigWatcher) Run(ctx context.Context) {
	var pending []string
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.done:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// new directories have to be watched too
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = cw.addTree(event.Name)
				}
			}
			if !AffectsConfig(event.Name) {
				continue
			}
			logs.Log.Logf(logs.Debug, "config file event: %s", event)
			if !slices.Contains(pending, event.Name) {
				pending = append(pending, event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
			} else {
				timer.Reset(cw.debounce)
			}
			fire = timer.C
		case <-fire:
			changed := pending
			pending = nil
			fire = nil
			cw.onChange(changed)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logs.Log.Logf(logs.Warn, "watcher error: %v", err)
		}
	}
}

func (cw *ConfigWatcher) Close() error {
	var err error
	cw.stopOnce.Do(func() {
		close(cw.done)
		err = cw.watcher.Close()
	})
	return err
}
