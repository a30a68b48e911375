// Package watcher notifies, debounced, when any of a set of files changes.
package watcher

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360/c360cfg/internal/log"
)

// Watcher monitors the configuration store and host file.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	files     map[string]struct{}
	dirs      []string
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	Files       []string
	DebounceDur time.Duration
}

// DefaultConfig watches files with a one second debounce.
func DefaultConfig(files ...string) Config {
	return Config{
		Files:       files,
		DebounceDur: 1 * time.Second,
	}
}

// New creates a watcher for cfg.Files.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		files:     make(map[string]struct{}, len(cfg.Files)),
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, f := range cfg.Files {
		clean := filepath.Clean(f)
		w.files[clean] = struct{}{}
		if dir := filepath.Dir(clean); !slices.Contains(w.dirs, dir) {
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Start watches the directories holding the files, so editors that
// replace a file by renaming a new one over it are still seen.
// Returns a channel that receives a signal after changes settle.
func (w *Watcher) Start() (<-chan struct{}, error) {
	for _, dir := range w.dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
		log.Debug(log.CatWatcher, "Watching directory", "dir", dir)
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		var fire <-chan time.Time
		if timer != nil {
			fire = timer.C
		}

		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			log.Debug(log.CatWatcher, "File changed", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-fire:
			if pending {
				// Drop when a notification is already queued.
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "Watch error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	_, ok := w.files[filepath.Clean(event.Name)]
	return ok
}
