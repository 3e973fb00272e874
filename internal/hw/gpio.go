package hw

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/starford/microslate/internal/input"
)

const (
	debounceTimeout = 10 * time.Millisecond
	edgePoll        = 100 * time.Millisecond
)

// GPIOPad reads active-low buttons wired to GPIO pins with pull-ups. Each pin
// is debounced on its own goroutine; the device loop only sees snapshots.
type GPIOPad struct {
	pins   map[input.Button]gpio.PinIn
	logger *slog.Logger
	levels
}

var _ input.Controls = (*GPIOPad)(nil)

// OpenGPIOPad initialises the host drivers and configures the named pins,
// e.g. {"up": "GPIO6", "power": "GPIO3"}. Controls without a name are absent.
func OpenGPIOPad(names map[input.Button]string, logger *slog.Logger) (*GPIOPad, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hw: host init: %w", err)
	}
	p := &GPIOPad{pins: make(map[input.Button]gpio.PinIn), logger: logger}
	for b, name := range names {
		if name == "" {
			continue
		}
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("hw: pin %q for %s not found", name, b)
		}
		if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return nil, fmt.Errorf("hw: setup %s on %s: %w", b, name, err)
		}
		p.pins[b] = pin
	}
	logger.Info("hw: gpio pad ready", slog.Int("pins", len(p.pins)))
	return p, nil
}

// Run debounces every pin until ctx is cancelled.
func (p *GPIOPad) Run(ctx context.Context) error {
	done := make(chan struct{})
	for b, pin := range p.pins {
		go func() {
			defer func() { done <- struct{}{} }()
			p.watch(ctx, b, pin)
		}()
	}
	for range p.pins {
		<-done
	}
	return nil
}

func (p *GPIOPad) watch(ctx context.Context, b input.Button, pin gpio.PinIn) {
	pressed := pin.Read() == gpio.Low
	p.set(b, pressed)
	next := pressed
	for ctx.Err() == nil {
		timeout := debounceTimeout
		if next == pressed {
			timeout = edgePoll
		}
		if pin.WaitForEdge(timeout) {
			next = pin.Read() == gpio.Low
			continue
		}
		if next != pressed {
			pressed = next
			p.set(b, pressed)
			p.logger.Debug("hw: button", slog.String("button", b.String()), slog.Bool("pressed", pressed))
		}
	}
}

func (p *GPIOPad) Update()                     { p.update() }
func (p *GPIOPad) Pressed(b input.Button) bool { return p.pressed(b) }
func (p *GPIOPad) AnyPressed() bool            { return p.anyDown }
