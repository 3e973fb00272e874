package keyboard

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/microslate/internal/apperr"
	"github.com/starford/microslate/internal/input"
)

// Inbox is a Stack fed from other goroutines: the terminal reader, the
// simulator API. Send never blocks the producer for long and Poll never
// blocks the device loop.
type Inbox struct {
	events chan input.KeyEvent
	logger *slog.Logger

	mu            sync.Mutex
	known         []Device
	found         []Device
	scanning      bool
	connected     string
	passkey       uint32
	autoReconnect bool
}

var _ Stack = (*Inbox)(nil)

// NewInbox returns an inbox buffering up to size events. known is the set of
// keyboards a scan discovers.
func NewInbox(size int, known []Device, logger *slog.Logger) *Inbox {
	if size <= 0 {
		size = input.DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		events: make(chan input.KeyEvent, size),
		logger: logger,
		known:  known,
	}
}

func (in *Inbox) Setup() error {
	in.logger.Info("keyboard: inbox ready", slog.Int("buffer", cap(in.events)), slog.Int("known_devices", len(in.known)))
	return nil
}

// Send offers ev to the device loop. It returns apperr.ErrQueueFull when the
// inbox is saturated.
func (in *Inbox) Send(ev input.KeyEvent) error {
	select {
	case in.events <- ev:
		return nil
	default:
		return apperr.ErrQueueFull
	}
}

// Type sends a press and release for every byte of s that maps to a key.
func (in *Inbox) Type(s string) (int, error) {
	sent := 0
	for i := 0; i < len(s); i++ {
		code, mods, ok := input.ASCIIToHid(s[i])
		if !ok {
			continue
		}
		if err := in.Tap(code, mods); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// Tap sends a press immediately followed by its release.
func (in *Inbox) Tap(code, mods uint8) error {
	if err := in.Send(input.KeyEvent{Code: code, Modifiers: mods, Pressed: true}); err != nil {
		return err
	}
	return in.Send(input.KeyEvent{Code: code, Modifiers: mods, Pressed: false})
}

func (in *Inbox) Poll(q *input.Queue) int {
	moved := 0
	for q.Len() < q.Cap() {
		select {
		case ev := <-in.events:
			_ = q.Push(ev)
			moved++
		default:
			return moved
		}
	}
	return moved
}

func (in *Inbox) StartScan() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.scanning = true
	in.found = append(in.found[:0], in.known...)
	in.logger.Info("keyboard: scan started")
}

func (in *Inbox) StopScan() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.scanning = false
	in.logger.Info("keyboard: scan stopped")
}

func (in *Inbox) Scanning() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.scanning
}

func (in *Inbox) CancelPending() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.passkey != 0 {
		in.logger.Info("keyboard: pending pairing cancelled")
	}
	in.passkey = 0
}

func (in *Inbox) Passkey() uint32 {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.passkey
}

// SetPasskey publishes a pending pairing passkey, as a host stack would on a
// display-only pairing request. 0 clears it.
func (in *Inbox) SetPasskey(key uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.passkey = key
}

func (in *Inbox) SetAutoReconnect(enabled bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.autoReconnect = enabled
}

// AutoReconnect reports the last value set with SetAutoReconnect.
func (in *Inbox) AutoReconnect() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.autoReconnect
}

func (in *Inbox) Devices() []Device {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]Device(nil), in.found...)
}

func (in *Inbox) Connect(index int) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if index < 0 || index >= len(in.found) {
		return fmt.Errorf("keyboard: connect %d: %w", index, apperr.ErrNotFound)
	}
	in.passkey = 0
	in.connected = in.found[index].Name
	in.logger.Info("keyboard: connected", slog.String("device", in.connected))
	return nil
}

func (in *Inbox) Connected() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.connected
}
