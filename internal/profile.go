package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/starford/microslate/internal/device"
	"github.com/starford/microslate/internal/display"
	"github.com/starford/microslate/internal/hw"
	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/keyboard"
	"github.com/starford/microslate/internal/simapi"
	"github.com/starford/microslate/internal/sse"
)

// Native size of the 2.13" panel, also used for the simulator preview.
const (
	panelWidth  = 122
	panelHeight = 250
)

// service is a long-running collaborator started next to the device loop.
type service func(ctx context.Context) error

// rig is the board-specific half of the device: raw controls, panel, power
// controller and keyboard stack.
type rig struct {
	controls input.Controls
	analog   input.AnalogSource
	panel    display.Panel
	power    device.Power
	inbox    *keyboard.Inbox
	services []service
	close    func()

	// Simulator only.
	pad     *hw.SimPad
	preview *display.Preview
	broker  *sse.Broker
}

func openRig(cfg *Config, logger *slog.Logger) (*rig, error) {
	switch cfg.App.Profile {
	case ProfilePi:
		return openPi(cfg, logger)
	default:
		return openSim(cfg, logger), nil
	}
}

func openSim(cfg *Config, logger *slog.Logger) *rig {
	pad := hw.NewSimPad(cfg.Sim.ADCNoise)
	preview := display.NewPreview(panelWidth, panelHeight)
	broker := sse.NewBroker(cfg.UI.RedrawInterval)
	preview.OnFrame = func(_ []byte, full bool) { broker.PublishFrame(preview.Frames(), full) }

	r := &rig{
		controls: pad,
		analog:   pad,
		panel:    preview,
		power: device.PowerFunc(func() error {
			logger.Info("sim: powered down")
			return nil
		}),
		inbox:   keyboard.NewInbox(cfg.Input.QueueSize, simKeyboards, logger),
		close:   broker.Close,
		pad:     pad,
		preview: preview,
		broker:  broker,
	}
	if cfg.Sim.Terminal {
		r.services = append(r.services, terminalService(r.inbox, logger))
	}
	return r
}

// simKeyboards are offered by the simulated scan.
var simKeyboards = []keyboard.Device{
	{Name: "Logitech K380", Address: "34:88:5d:10:aa:01", RSSI: -52},
	{Name: "Keychron K3", Address: "dc:2c:26:4e:19:7b", RSSI: -67},
}

func openPi(cfg *Config, logger *slog.Logger) (*rig, error) {
	pad, err := hw.OpenGPIOPad(cfg.Pi.Pins.Map(), logger)
	if err != nil {
		return nil, fmt.Errorf("open button pad: %w", err)
	}
	panel, closePanel, err := openPanel(&cfg.Pi, logger)
	if err != nil {
		return nil, err
	}

	inbox := keyboard.NewInbox(cfg.Input.QueueSize, nil, logger)
	return &rig{
		controls: pad,
		panel:    panel,
		// The Pi has no deep sleep; the supervisor restarts the process on
		// the next power press.
		power: device.PowerFunc(func() error {
			logger.Info("pi: halting until next power press")
			return nil
		}),
		inbox:    inbox,
		services: []service{pad.Run, terminalService(inbox, logger)},
		close: func() {
			if err := closePanel(); err != nil {
				logger.Warn("pi: panel close failed", slog.String("error", err.Error()))
			}
		},
	}, nil
}

// openPanel opens the configured Pi panel and returns its release function.
func openPanel(cfg *PiConfig, logger *slog.Logger) (display.Panel, func() error, error) {
	if cfg.Panel != PanelSSD1306 {
		epd, err := display.OpenEPaper(cfg.SPIPort, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open e-paper: %w", err)
		}
		return epd, epd.Close, nil
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, nil, fmt.Errorf("open i2c %q: %w", cfg.I2CBus, err)
	}
	oled := display.NewSSD1306(bus, cfg.I2CAddress)
	if err := oled.Configure(); err != nil {
		bus.Close()
		return nil, nil, err
	}
	logger.Info("pi: ssd1306 ready", slog.String("bus", bus.String()))
	return display.NewDisplayerSink(oled), bus.Close, nil
}

func terminalService(inbox *keyboard.Inbox, logger *slog.Logger) service {
	return func(ctx context.Context) error {
		err := keyboard.RunTerminal(ctx, os.Stdin, inbox, logger)
		if errors.Is(err, keyboard.ErrInterrupted) {
			return errStop
		}
		return err
	}
}

// httpService serves the simulator API until ctx is cancelled.
func httpService(cfg *Config, r *rig, loop *device.Loop, logger *slog.Logger) service {
	h := simapi.NewHandler(r.inbox, r.pad, r.preview, loop, 0, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, ok := loop.Snapshot(); !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"booting"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Mount("/api", simapi.NewRouter(h, cfg.Sim.Token, r.broker))

	server := &http.Server{
		Addr:              cfg.Sim.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server", slog.String("address", cfg.Sim.HTTPAddress))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server error: %w", err)
				return
			}
			errCh <- nil
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return <-errCh
	}
}
