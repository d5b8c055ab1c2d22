package matcher

import (
	"log"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watched holds a hot-reloadable Registry. The zero value is unusable; use
// LoadFile. A Watched built from LoadFile with watch=false
// behaves exactly like a plain Registry loaded once at startup (spec.md
// §4.4 "this is additive").
type Watched struct {
	path    string
	current atomic.Pointer[Registry]
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// LoadFile loads path once. If watch is true, it also starts an
// fsnotify.Watcher that rebuilds the registry on write events, swapping the
// pointer atomically; a rebuild failure (a bad template) is logged and the
// previous registry stays in place.
func LoadFile(path string, watch bool) (*Watched, error) {
	w := &Watched{path: path, done: make(chan struct{})}
	if err := w.reload(); err != nil {
		return nil, err
	}
	if watch {
		if err := w.startWatching(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (w *Watched) reload() error {
	f, err := os.Open(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	reg, err := Load(f)
	if err != nil {
		return err
	}
	w.current.Store(reg)
	return nil
}

func (w *Watched) startWatching() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return err
	}
	w.watcher = fsw

	go func() {
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := w.reload(); err != nil {
					log.Printf("[matcher] reload of %s failed, keeping previous registry: %v", w.path, err)
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.Printf("[matcher] watch error on %s: %v", w.path, err)
			case <-w.done:
				return
			}
		}
	}()
	return nil
}

// Registry returns the currently active compiled registry.
func (w *Watched) Registry() *Registry { return w.current.Load() }

// Close stops the filesystem watcher, if any.
func (w *Watched) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}
