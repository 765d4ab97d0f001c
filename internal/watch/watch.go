// Package watch reports changes to a set of files, debounced, so a burst of
// editor writes triggers one callback.
package watch

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"vellum/pkg/logger"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 100 * time.Millisecond

// Handler is called with the path of a changed file.
type Handler func(path string)

// Watcher monitors files for changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	handler  Handler
	files    map[string]bool
	dirs     map[string]bool
	delay    time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	debounce map[string]*time.Timer
	mu       sync.Mutex
}

// New creates a watcher for files. Parent directories are watched rather
// than the files themselves, since many editors save by replacing the file.
func New(handler Handler, files ...string) (*Watcher, error) {
	if len(files) == 0 {
		return nil, errors.New("watch: no files")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		handler:  handler,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		delay:    DefaultDebounce,
		stopCh:   make(chan struct{}),
		debounce: make(map[string]*time.Timer),
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		w.dirs[filepath.Dir(abs)] = true
	}
	return w, nil
}

// SetDebounce changes the quiet period. Call it before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.delay = d
}

// Start begins watching.
func (w *Watcher) Start() error {
	added := 0
	for dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			logger.Warn().Err(err).Str("path", dir).Msg("Failed to watch path")
			continue
		}
		added++
	}
	if added == 0 {
		return errors.New("watch: no directory could be watched")
	}

	go w.run()
	return nil
}

// run processes file system events.
func (w *Watcher) run() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path := filepath.Clean(event.Name)
			if w.files[path] {
				w.handleEvent(path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("File watcher error")
		}
	}
}

// handleEvent handles a file change event with debouncing.
func (w *Watcher) handleEvent(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()

		select {
		case <-w.stopCh:
			return
		default:
		}
		logger.Debug().Str("path", path).Msg("File changed")
		w.handler(path)
	})
}

// Stop stops the watcher. Pending notifications are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)

		w.mu.Lock()
		for _, timer := range w.debounce {
			timer.Stop()
		}
		w.mu.Unlock()

		w.watcher.Close()
	})
}
