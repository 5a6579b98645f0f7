package store

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/thoreinstein/keepsafe/internal/errors"
	"github.com/thoreinstein/keepsafe/internal/paths"
)

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// OnChange calls fn, from a background goroutine, whenever the settings
// file is written, replaced, or removed. Bursts are passed through as-is;
// callers debounce.
//
// The watch is on the file's directory rather than the file itself, since
// atomic saves replace the file's inode. The returned stop function ends
// the watch and waits for any in-flight fn call; it is safe to call more
// than once.
func (s *Store) OnChange(fn func()) (stop func(), err error) {
	dir := filepath.Dir(s.path)
	if err := paths.EnsureDir(dir, 0); err != nil {
		return nil, errors.IOErrorf(err, "creating settings directory")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.IOError(err, "creating settings watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.IOErrorf(err, "watching %s", dir)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != s.path || !ev.Op.Has(changeOps) {
					continue
				}
				s.logger.Debug("settings file changed", "path", ev.Name, "op", ev.Op.String())
				fn()

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warn("settings watcher error", "error", err)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.Close()
			wg.Wait()
		})
	}, nil
}
