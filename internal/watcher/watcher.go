// Package watcher keeps the tracking database fresh without user action.
// It watches the drvfs directories containing tracked VHD files and runs a
// reconciliation pass whenever one of them is removed or renamed, plus a
// periodic pass to catch detaches that leave no filesystem trace (reboots,
// manual wsl.exe --unmount).
package watcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/wsltools/vhdm/internal/reconcile"
	"github.com/wsltools/vhdm/internal/tracking"
	"github.com/wsltools/vhdm/internal/wsl"
)

// DefaultInterval is the periodic reconcile interval.
const DefaultInterval = 5 * time.Minute

// Watcher runs reconciliation passes in response to filesystem events and
// on a timer.
type Watcher struct {
	store      *tracking.Store
	reconciler *reconcile.Reconciler
	log        zerolog.Logger
	interval   time.Duration

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Watcher. interval <= 0 selects DefaultInterval.
func New(store *tracking.Store, reconciler *reconcile.Reconciler, log zerolog.Logger, interval time.Duration) (*Watcher, error) {
	if store == nil || reconciler == nil {
		return nil, fmt.Errorf("store and reconciler cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		store:      store,
		reconciler: reconciler,
		log:        log,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}, nil
}

// Start begins watching. It runs one reconcile pass immediately, then
// reacts to filesystem events and the periodic ticker until Stop.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.watchTrackedDirs(); err != nil {
		w.log.Warn().Err(err).Msg("some tracked directories could not be watched")
	}

	w.runPass("startup")

	w.wg.Add(1)
	go w.run()

	return nil
}

// watchTrackedDirs registers the parent directory of every tracked VHD
// path with the filesystem watcher. Untranslatable paths (UNC shares) are
// skipped; the periodic pass still covers them.
func (w *Watcher) watchTrackedDirs() error {
	paths, err := w.store.GetAllPaths()
	if err != nil {
		return err
	}

	var firstErr error
	seen := make(map[string]bool)
	for _, path := range paths {
		wslPath, err := wsl.ToWSLPath(path)
		if err != nil {
			w.log.Debug().Str("path", path).Msg("skipping unwatchable path")
			continue
		}
		dir := parentDir(wslPath)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := w.fsw.Add(dir); err != nil {
			w.log.Warn().Err(err).Str("dir", dir).Msg("failed to watch directory")
			if firstErr == nil {
				firstErr = err
			}
		} else {
			w.log.Info().Str("dir", dir).Msg("watching directory")
		}
	}
	return firstErr
}

// parentDir returns everything before the final slash. The inputs here are
// always translated WSL paths with at least /mnt/<drive>/ in front.
func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			if i == 0 {
				return "/"
			}
			return path[:i]
		}
	}
	return path
}

// run is the event loop.
func (w *Watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.log.Info().Str("file", event.Name).Str("op", event.Op.String()).
					Msg("tracked directory changed")
				w.runPass("fsevent")
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("filesystem watcher error")
		case <-ticker.C:
			w.runPass("interval")
		case <-w.stopCh:
			return
		}
	}
}

// runPass executes one reconcile pass and logs the outcome.
func (w *Watcher) runPass(trigger string) {
	result, err := w.reconciler.Reconcile(false)
	if err != nil {
		w.log.Error().Err(err).Str("trigger", trigger).Msg("reconcile pass failed")
		return
	}

	evt := w.log.Info()
	if len(result.RemovedMappings) == 0 && len(result.RemovedHistory) == 0 {
		evt = w.log.Debug()
	}
	evt.Str("trigger", trigger).
		Int("removed_mappings", len(result.RemovedMappings)).
		Int("removed_history", len(result.RemovedHistory)).
		Int("errors", len(result.Errors)).
		Msg("reconcile pass complete")

	for _, rerr := range result.Errors {
		w.log.Warn().Err(rerr).Msg("reconcile entry error")
	}

	// Pruned paths may have emptied a directory of tracked files; refresh
	// the watch list so new attach targets get picked up too.
	if len(result.RemovedMappings) > 0 {
		if err := w.watchTrackedDirs(); err != nil {
			w.log.Debug().Err(err).Msg("watch list refresh incomplete")
		}
	}
}

// Stop halts the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	if w.fsw != nil {
		w.fsw.Close()
	}
	w.wg.Wait()
	return nil
}
