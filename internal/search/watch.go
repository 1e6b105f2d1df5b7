package search

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
)

const DefaultDebounce = 300 * time.Millisecond

// Watch calls fn once writes to any of paths settle for debounce. Sibling
// files sharing a path's name as prefix (SQLite -wal and -journal files)
// count as writes to that path. Watch blocks until ctx is done.
func Watch(ctx context.Context, paths []string, debounce time.Duration, fn func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("search: creating watcher: %w", err)
	}
	defer watcher.Close()

	names := make([]string, 0, len(paths))
	dirs := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("search: resolving %s: %w", p, err)
		}
		names = append(names, abs)
		dirs = append(dirs, filepath.Dir(abs))
	}
	for _, dir := range lo.Uniq(dirs) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("search: watching %s: %w", dir, err)
		}
	}

	matches := func(name string) bool {
		return lo.SomeBy(names, func(p string) bool { return strings.HasPrefix(name, p) })
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if !matches(filepath.Clean(ev.Name)) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("search: watcher: %v", err)
		case <-timer.C:
			fn()
		}
	}
}
