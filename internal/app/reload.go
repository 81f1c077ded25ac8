package app

import (
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// BuildWatcher polls the running executable and reports when a newer
// build has replaced it on disk. During development this lets the app
// offer a restart right after "go build" finishes.
type BuildWatcher struct {
	path       string
	baseline   time.Time
	interval   time.Duration
	stop       chan struct{}
	onNewBuild func()
}

// NewBuildWatcher creates a watcher for the current executable.
// Returns nil if the executable path cannot be determined.
func NewBuildWatcher(interval time.Duration) *BuildWatcher {
	path, err := os.Executable()
	if err != nil {
		return nil
	}

	// go build writes a fresh file, so resolve symlinks up front or the
	// watcher keeps staring at the stale link target.
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	return &BuildWatcher{
		path:     path,
		baseline: info.ModTime(),
		interval: interval,
	}
}

// OnNewBuild sets the callback invoked when a newer binary is detected.
// The callback runs on the watcher goroutine; marshal UI work yourself.
func (w *BuildWatcher) OnNewBuild(fn func()) {
	w.onNewBuild = fn
}

// Start begins polling in a background goroutine. The watcher fires at
// most once per Start; call Start again after ResetBaseline to resume.
func (w *BuildWatcher) Start() {
	w.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				info, err := os.Stat(w.path)
				if err != nil {
					continue
				}
				if info.ModTime().After(w.baseline) {
					if w.onNewBuild != nil {
						w.onNewBuild()
					}
					return
				}
			}
		}
	}()
}

// Stop halts the watcher goroutine.
func (w *BuildWatcher) Stop() {
	close(w.stop)
}

// ResetBaseline accepts the current binary as the new baseline. Call
// this when the user declines a restart so they are not asked again
// for the same build.
func (w *BuildWatcher) ResetBaseline() {
	if info, err := os.Stat(w.path); err == nil {
		w.baseline = info.ModTime()
	}
}

// Path returns the watched executable path.
func (w *BuildWatcher) Path() string {
	return w.path
}

// Baseline returns the modification time the watcher compares against.
func (w *BuildWatcher) Baseline() time.Time {
	return w.baseline
}

// Restart replaces the current process with a new instance of the
// watched binary, preserving arguments and environment. Does not
// return on success.
func (w *BuildWatcher) Restart() error {
	return syscall.Exec(w.path, os.Args, os.Environ())
}
