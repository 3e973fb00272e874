// Package device runs the cooperative tick loop: poll input, run the power
// discriminator, translate button edges, drain the queue into the
// dispatcher, redraw when due, and check the idle timeout.
package device

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/microslate/internal/apperr"
	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/keyboard"
	"github.com/starford/microslate/internal/notes"
	"github.com/starford/microslate/internal/ui"
)

// Tick defaults.
const (
	DefaultTick        = 10 * time.Millisecond
	DefaultIdleTimeout = 10 * time.Minute
)

// Power is the board's power controller.
type Power interface {
	// DeepSleep powers the board down. On hardware it does not return.
	DeepSleep() error
}

// PowerFunc adapts a function to Power.
type PowerFunc func() error

func (f PowerFunc) DeepSleep() error { return f() }

// Store is the part of the note store the loop drives directly.
type Store interface {
	Refresh() error
}

// Options configures a Loop.
type Options struct {
	Tick        time.Duration
	IdleTimeout time.Duration
	Now         func() time.Time
	// Rescan, when set, is consumed every tick; a raised flag refreshes the
	// listing.
	Rescan *notes.RescanFlag
	// Snapshot captures state after every redraw; see Snapshotter.
	Snapshot func() Snapshot
	// OnRedraw runs on the loop goroutine with each captured snapshot.
	OnRedraw func(Snapshot)
}

// Loop owns every piece of core state; nothing else may touch the
// dispatcher, the store or the queue while it runs.
type Loop struct {
	mux    *input.Multiplexer
	kb     keyboard.Stack
	ui     *ui.Dispatcher
	store  Store
	r      ui.Renderer
	power  Power
	opts   Options
	logger *slog.Logger

	lastActivity time.Time
	snapshot     atomic.Pointer[Snapshot]
}

// New assembles a loop.
func New(mux *input.Multiplexer, kb keyboard.Stack, d *ui.Dispatcher, store Store, r ui.Renderer, power Power, opts Options, logger *slog.Logger) *Loop {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if power == nil {
		power = PowerFunc(func() error { return nil })
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{mux: mux, kb: kb, ui: d, store: store, r: r, power: power, opts: opts, logger: logger}
}

// Snapshot returns the state captured at the last redraw.
func (l *Loop) Snapshot() (Snapshot, bool) {
	s := l.snapshot.Load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Boot sets up the keyboard stack and shows the splash screen.
func (l *Loop) Boot() error {
	if err := l.kb.Setup(); err != nil {
		l.logger.Error("device: keyboard setup failed", slog.String("error", err.Error()))
	}
	l.kb.SetAutoReconnect(true)
	l.ui.DrawBoot()
	l.lastActivity = l.opts.Now()
	l.logger.Info("device: ready")
	return nil
}

// Step runs one tick at now. It returns apperr.ErrAsleep once the sleep path
// has run.
func (l *Loop) Step(now time.Time) error {
	l.mux.Update()

	if l.opts.Rescan != nil && l.opts.Rescan.Take() {
		if err := l.store.Refresh(); err == nil {
			l.ui.ListingChanged()
		}
	}

	l.ui.BluetoothHook()
	l.kb.Poll(l.mux.Queue())
	l.ui.BTRefresh(now)

	if l.mux.Process(l.ui) == input.PowerSleep {
		return l.sleep("power_long_press")
	}
	processed := l.ui.Drain(l.mux.Queue())

	if l.mux.AnyPressed() || processed > 0 {
		l.lastActivity = now
	}

	if l.ui.Redraw(now) {
		l.publish()
	}

	if now.Sub(l.lastActivity) > l.opts.IdleTimeout {
		return l.sleep("idle_timeout")
	}
	return nil
}

func (l *Loop) publish() {
	if l.opts.Snapshot == nil {
		return
	}
	s := l.opts.Snapshot()
	l.snapshot.Store(&s)
	if l.opts.OnRedraw != nil {
		l.opts.OnRedraw(s)
	}
}

// sleep is unconditional once entered.
func (l *Loop) sleep(reason string) error {
	l.logger.Info("device: entering sleep", slog.String("reason", reason))

	l.ui.DrawSleep()
	l.ui.SaveIfEditing()
	if err := l.r.Sleep(); err != nil {
		l.logger.Warn("device: display sleep failed", slog.String("error", err.Error()))
	}
	l.publish()
	if err := l.power.DeepSleep(); err != nil {
		l.logger.Warn("device: deep sleep failed", slog.String("error", err.Error()))
	}
	return apperr.ErrAsleep
}

// Run boots the device and ticks until ctx is cancelled or the device goes to
// sleep. Sleep is reported as apperr.ErrAsleep.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Boot(); err != nil {
		return err
	}
	ticker := time.NewTicker(l.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("device: stopped")
			return nil
		case <-ticker.C:
			if err := l.Step(l.opts.Now()); err != nil {
				if !errors.Is(err, apperr.ErrAsleep) {
					l.logger.Error("device: tick failed", slog.String("error", err.Error()))
				}
				return err
			}
		}
	}
}
