package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/fedcore/corefed/internal/logger"
)

// Watcher reloads a process's Config whenever its backing file changes on
// disk, so an operator editing a federate's time parameters (time_delta,
// input_delay, period, ...) in the YAML file doesn't require a restart.
//
// Grounded on the teacher's "logs --follow" file watcher
// (cmd/dittofs/commands/logs.go; corefed has no logs command): a bare
// fsnotify.Watcher on a single path, read in a select loop against its
// Events/Errors channels.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	onChange func(*Config)

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Watch starts watching path for writes and calls onChange with a freshly
// reloaded Config each time the file is rewritten. onChange is called from
// the watcher's own goroutine and must not block.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	w := &Watcher{
		fsw:      fsw,
		path:     path,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := Load(w.path)
			if err != nil {
				logger.Warn("config: reload after change failed", "path", w.path, "error", err)
				continue
			}
			logger.Info("config: reloaded after on-disk change", "path", w.path)
			w.onChange(cfg)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("config: watcher error", "path", w.path, "error", err)
		}
	}
}

// Stop halts the watcher and releases the underlying inotify/kqueue handle.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.stopCh)
	_ = w.fsw.Close()
	<-w.doneCh
}
