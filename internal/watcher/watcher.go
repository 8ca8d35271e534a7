// Package watcher watches manifest directories and reports debounced batches
// of changed manifest files.
package watcher

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/partgraph/internal/log"
)

// Change is one debounced batch of manifest paths that were written, created,
// removed or renamed.
type Change struct {
	Paths []string
}

// Watcher monitors manifest directories for changes and sends notifications.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	dirs       []string
	extensions []string
	debounce   time.Duration
	onChange   chan Change
	done       chan struct{}
	stopOnce   sync.Once
}

// Config holds watcher configuration options.
type Config struct {
	Dirs        []string
	Extensions  []string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(dirs ...string) Config {
	return Config{
		Dirs:        dirs,
		Extensions:  []string{".yaml", ".yml"},
		DebounceDur: 300 * time.Millisecond,
	}
}

// New creates a new manifest watcher.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Dirs) == 0 {
		return nil, fmt.Errorf("watcher needs at least one directory")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultConfig().Extensions
	}

	return &Watcher{
		fsWatcher:  fsw,
		dirs:       slices.Clone(cfg.Dirs),
		extensions: exts,
		debounce:   cfg.DebounceDur,
		onChange:   make(chan Change, 1),
		done:       make(chan struct{}),
	}, nil
}

// Start begins watching every configured directory.
// Returns a channel that receives a batch whenever manifests change.
func (w *Watcher) Start() (<-chan Change, error) {
	for _, dir := range w.dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
		log.Debug(log.CatWatcher, "watching", "dir", dir)
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources. Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}

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
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)

			select {
			case w.onChange <- Change{Paths: paths}:
				pending = make(map[string]struct{})
			case <-w.done:
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "fsnotify error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent checks if the event should trigger a rescan.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return slices.Contains(w.extensions, ext)
}
