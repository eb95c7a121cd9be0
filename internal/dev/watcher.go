package dev

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Dirs are the directories to scan for changes.
	Dirs []string

	// Ignore patterns to skip (names, globs, or path segments).
	Ignore []string

	// Interval is the polling interval.
	Interval time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"dist",
	"tmp",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls registered files and watched directories for
// modifications. Files register through WatchFile, which is how the
// transform pipeline feeds compiler-reported dependencies in; the
// configured directories catch everything else.
type Watcher struct {
	config     WatcherConfig
	onChange   func(path string)
	mu         sync.Mutex
	running    bool
	scanned    bool
	stopCh     chan struct{}
	timestamps map[string]time.Time
	registered map[string]bool
}

// NewWatcher creates a file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}

	return &Watcher{
		config:     config,
		timestamps: make(map[string]time.Time),
		registered: make(map[string]bool),
	}
}

// WatchFile registers a single file for change watching. Registering
// records the file's current modification time, so only later writes
// count as changes.
func (w *Watcher) WatchFile(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.registered[abs] {
		return
	}
	w.registered[abs] = true
	if info, err := os.Stat(abs); err == nil {
		w.timestamps[abs] = info.ModTime()
	}
}

// OnChange sets the callback for file changes.
func (w *Watcher) OnChange(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins polling for file changes. It blocks until the context
// is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	w.scanInitial()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.poll()
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// scanInitial records baseline timestamps for the watched directories.
func (w *Watcher) scanInitial() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, dir := range w.config.Dirs {
		filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if w.ignored(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if !w.ignored(p) {
				w.timestamps[p] = info.ModTime()
			}
			return nil
		})
	}

	w.scanned = true
}

// poll scans for modified files and reports each changed path once.
func (w *Watcher) poll() {
	w.mu.Lock()
	callback := w.onChange
	scanned := w.scanned
	registered := make([]string, 0, len(w.registered))
	for p := range w.registered {
		registered = append(registered, p)
	}
	w.mu.Unlock()

	if callback == nil {
		return
	}

	var changed []string
	note := func(p string, modTime time.Time, existed bool) {
		w.mu.Lock()
		w.timestamps[p] = modTime
		w.mu.Unlock()
		if existed || scanned {
			changed = append(changed, p)
		}
	}

	for _, p := range registered {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		w.mu.Lock()
		last, existed := w.timestamps[p]
		w.mu.Unlock()
		if !existed || info.ModTime().After(last) {
			note(p, info.ModTime(), existed)
		}
	}

	for _, dir := range w.config.Dirs {
		filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if w.ignored(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if w.ignored(p) {
				return nil
			}

			w.mu.Lock()
			last, existed := w.timestamps[p]
			w.mu.Unlock()
			if !existed || info.ModTime().After(last) {
				note(p, info.ModTime(), existed)
			}
			return nil
		})
	}

	// Deleted files are reported once and forgotten.
	w.mu.Lock()
	for p := range w.timestamps {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			delete(w.timestamps, p)
			delete(w.registered, p)
			changed = append(changed, p)
		}
	}
	w.mu.Unlock()

	seen := make(map[string]bool, len(changed))
	for _, p := range changed {
		if seen[p] {
			continue
		}
		seen[p] = true
		callback(p)
	}
}

// ignored checks if a path matches an ignore pattern.
func (w *Watcher) ignored(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if name == pattern {
			return true
		}
		if strings.ContainsAny(pattern, "*?[") {
			if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}
		if hasSegment(normalized, pattern) {
			return true
		}
	}

	return false
}

func hasSegment(path, segment string) bool {
	for _, part := range strings.Split(path, "/") {
		if part != "" && part == segment {
			return true
		}
	}
	return false
}
