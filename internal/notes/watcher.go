package notes

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/microslate/internal/parser"
)

// rescanDelay coalesces bursts of card events (a save is write+remove+rename).
const rescanDelay = 200 * time.Millisecond

// RescanFlag is raised from the watcher goroutine and consumed by the device
// loop, which is the only goroutine allowed to touch the store.
type RescanFlag struct {
	v atomic.Bool
}

// Request marks the listing as stale.
func (f *RescanFlag) Request() { f.v.Store(true) }

// Take reports whether a rescan was requested and clears the request.
func (f *RescanFlag) Take() bool { return f.v.Swap(false) }

// Watch observes dir for note files changed behind the store's back (the card
// edited on another machine, a host simulator directory touched by hand) and
// raises flag after each burst of changes. It returns when ctx is cancelled.
func Watch(ctx context.Context, dir string, flag *RescanFlag, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dir))

	var timer *time.Timer
	var timerC <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(rescanDelay)
			timerC = timer.C
		} else {
			timer.Reset(rescanDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerC:
			flag.Request()
			logger.Debug("watcher: rescan requested")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !parser.IsNoteName(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
