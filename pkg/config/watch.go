package config

import (
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Config from disk whenever its backing file — or any of
// the instruction files it names — changes, the same watch-and-reload
// shape as the teacher's config.RulesLoader (third_party/agentsdk-go/pkg/config/rules.go),
// generalized from a fixed .claude/rules directory to an arbitrary file
// set named by a live Config.
type Watcher struct {
	path string

	mu      sync.RWMutex
	current *Config

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher loads path once via Load, then returns a Watcher holding that
// config. Call Start to begin watching for changes.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, current: cfg}, nil
}

// Current returns the most recently loaded Config. Safe for concurrent use
// with reloads triggered by Start's background goroutine.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start watches the config file's directory and every instruction file
// Current() names, invoking onReload (if non-nil) after each successful
// reload. Mirrors RulesLoader.WatchChanges: a missing directory is not an
// error, and reload failures are logged and skipped rather than propagated.
func (w *Watcher) Start(onReload func(*Config)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := map[string]bool{}
	targets := map[string]bool{}
	addDir := func(path string) {
		targets[filepath.Clean(path)] = true
		dir := filepath.Dir(path)
		if watched[dir] {
			return
		}
		if err := fw.Add(dir); err == nil {
			watched[dir] = true
		}
	}
	addDir(w.path)
	for _, instr := range w.Current().Instructions {
		addDir(instr)
	}

	w.mu.Lock()
	w.watcher = fw
	w.done = make(chan struct{})
	w.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if !targets[filepath.Clean(event.Name)] {
					continue
				}
				cfg, err := Load(w.path)
				if err != nil {
					log.Printf("config: reload failed: %v", err)
					continue
				}
				w.mu.Lock()
				w.current = cfg
				w.mu.Unlock()
				if onReload != nil {
					onReload(cfg)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the background watch goroutine and releases the underlying
// fsnotify watcher. Safe to call on a Watcher that was never Started.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fw := w.watcher
	done := w.done
	w.watcher = nil
	w.done = nil
	w.mu.Unlock()
	if done != nil {
		close(done)
	}
	if fw != nil {
		return fw.Close()
	}
	return nil
}
