// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/microslate/internal/apperr"
	"github.com/starford/microslate/internal/device"
	"github.com/starford/microslate/internal/display"
	"github.com/starford/microslate/internal/editor"
	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/notes"
	"github.com/starford/microslate/internal/storage"
	"github.com/starford/microslate/internal/ui"
)

// errStop ends the service group without reporting a failure.
var errStop = errors.New("stop requested")

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("profile", cfg.App.Profile),
		slog.String("storage_root", cfg.Storage.Root),
		slog.String("save_mode", cfg.Storage.SaveMode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// The sim profile treats a host directory as the card.
	if cfg.App.Profile == ProfileSim {
		if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
			return fmt.Errorf("create storage root: %w", err)
		}
	}

	fs, err := storage.NewFS(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	board, err := openRig(cfg, logger)
	if err != nil {
		return err
	}
	defer board.close()

	ed := editor.NewMemory(cfg.Storage.BufferSize)
	noteOpts := cfg.Storage.NoteOptions()
	noteOpts.OnChange = func(kind, filename string) {
		if board.broker != nil {
			board.broker.PublishNoteEvent(kind, filename)
		}
	}
	store := notes.New(fs, ed, noteOpts, logger)
	if err := store.Setup(); err != nil {
		// The device still boots; every store operation reports its own failure.
		logger.Error("storage unavailable", slog.String("error", err.Error()))
	}

	power := input.NewPowerDiscriminator(cfg.Input.LongPress, cfg.Input.ShortPressMin, cfg.Input.ShortPressMax)
	muxOpts := input.Options{Power: power}
	if board.analog != nil && cfg.Input.ADCFallback {
		muxOpts.Fallback = input.NewAveraged(board.analog, cfg.Input.ADCSamples, logger)
	}
	mux := input.NewMultiplexer(board.controls, input.NewQueue(cfg.Input.QueueSize), muxOpts, logger)

	fb := display.NewFramebuffer(board.panel)
	state := ui.NewApp(cfg.UI.Orientation, cfg.UI.CharsPerLine)
	dispatcher := ui.NewDispatcher(state, store, ed, board.inbox, fb, ui.Options{
		RedrawInterval:    cfg.UI.RedrawInterval,
		BTRefreshInterval: cfg.UI.BTRefreshInterval,
	}, logger)

	rescan := &notes.RescanFlag{}
	loop := device.New(mux, board.inbox, dispatcher, store, fb, board.power, device.Options{
		Tick:        cfg.UI.Tick,
		IdleTimeout: cfg.UI.IdleTimeout,
		Rescan:      rescan,
		Snapshot:    device.Snapshotter(state, store, ed, board.inbox, power),
		OnRedraw: func(s device.Snapshot) {
			if board.broker != nil {
				board.broker.PublishState(s)
			}
		},
	}, logger)

	services := board.services
	if cfg.App.Profile == ProfileSim && cfg.Sim.HTTPAddress != "" {
		services = append(services, httpService(cfg, board, loop, logger))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		err := loop.Run(gCtx)
		if errors.Is(err, apperr.ErrAsleep) {
			logger.Info("Device asleep, shutting down")
			return nil
		}
		return err
	})

	if cfg.Storage.Watch {
		g.Go(func() error {
			dir := filepath.Join(cfg.Storage.Root, cfg.Storage.NotesDir)
			if err := notes.Watch(gCtx, dir, rescan, logger); err != nil {
				logger.Warn("card watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	for _, svc := range services {
		g.Go(func() error {
			err := svc(gCtx)
			if errors.Is(err, errStop) {
				cancel()
				return nil
			}
			return err
		})
	}

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}
