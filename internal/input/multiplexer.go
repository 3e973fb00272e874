package input

import (
	"errors"
	"log/slog"
	"time"

	"github.com/starford/microslate/internal/apperr"
	"github.com/starford/microslate/internal/models"
)

// Target is the UI side of the multiplexer. State is read after any power
// transition so the edge table of the new screen applies in the same tick.
type Target interface {
	State() models.UIState
	FileCount() int
	// PowerTap returns to the main menu, flushing unsaved edits first.
	PowerTap()
	// EditorBack leaves the editor for the browser without an event.
	EditorBack()
}

type binding struct {
	button Button
	code   uint8
	// needFiles drops the edge while the listing is empty.
	needFiles bool
}

// edgeTable is the per-screen subset of buttons that become key taps.
var edgeTable = map[models.UIState][]binding{
	models.MainMenu: {{Up, KeyUp, false}, {Down, KeyDown, false}, {Confirm, KeyEnter, false}},
	models.FileBrowser: {
		{Up, KeyUp, true}, {Down, KeyDown, true}, {Confirm, KeyEnter, true}, {Back, KeyEscape, false},
	},
	models.TextEditor: {
		{Up, KeyUp, false}, {Down, KeyDown, false}, {Left, KeyLeft, false},
		{Right, KeyRight, false}, {Confirm, KeyEnter, false},
	},
	models.RenameFile: {{Confirm, KeyEnter, false}, {Back, KeyEscape, false}},
	models.NewFile:    {{Confirm, KeyEnter, false}, {Back, KeyEscape, false}},
	models.BluetoothSettings: {
		{Up, KeyUp, false}, {Down, KeyDown, false}, {Confirm, KeyEnter, false}, {Back, KeyEscape, false},
	},
	models.Settings: {
		{Up, KeyUp, false}, {Down, KeyDown, false}, {Left, KeyLeft, false},
		{Right, KeyRight, false}, {Confirm, KeyEnter, false}, {Back, KeyEscape, false},
	},
}

// Options configures a Multiplexer.
type Options struct {
	// Fallback, when set, replaces the debounced sampler while the UI is in
	// BluetoothSettings.
	Fallback Sampler
	Power    *PowerDiscriminator
	Now      func() time.Time
}

// Multiplexer turns pad edges into synthetic key taps on the shared queue and
// runs the power discriminator. Keyboard-sourced events are pushed to the same
// queue directly by the keyboard stack.
type Multiplexer struct {
	controls Controls
	normal   Sampler
	fallback Sampler
	power    *PowerDiscriminator
	queue    *Queue
	now      func() time.Time
	logger   *slog.Logger

	last ButtonSet
}

// NewMultiplexer builds a multiplexer over controls feeding queue.
func NewMultiplexer(controls Controls, queue *Queue, opts Options, logger *slog.Logger) *Multiplexer {
	if opts.Power == nil {
		opts.Power = NewPowerDiscriminator(0, 0, 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Multiplexer{
		controls: controls,
		normal:   Debounced{Controls: controls},
		fallback: opts.Fallback,
		power:    opts.Power,
		queue:    queue,
		now:      opts.Now,
		logger:   logger,
	}
}

// Queue returns the shared event queue.
func (m *Multiplexer) Queue() *Queue { return m.queue }

// Power returns the discriminator, for state snapshots.
func (m *Multiplexer) Power() *PowerDiscriminator { return m.power }

// Update samples the pad. It must run before any state-dependent logic in the
// tick.
func (m *Multiplexer) Update() { m.controls.Update() }

// AnyPressed reports whether any control went down during the last Update.
func (m *Multiplexer) AnyPressed() bool { return m.controls.AnyPressed() }

func (m *Multiplexer) sampler(state models.UIState) Sampler {
	if state == models.BluetoothSettings && m.fallback != nil {
		return m.fallback
	}
	return m.normal
}

// Process runs one tick of button handling against t. It returns PowerSleep
// when a hold crossed the long-press threshold; in that case no edges are
// translated and the edge history is left as it was.
func (m *Multiplexer) Process(t Target) PowerAction {
	buttons := m.sampler(t.State()).Sample()

	switch m.power.Update(m.controls.Pressed(Power), m.now()) {
	case PowerSleep:
		m.logger.Info("input: power long press")
		return PowerSleep
	case PowerMainMenu:
		if t.State() != models.MainMenu {
			m.logger.Info("input: power short press", slog.String("from", t.State().String()))
			t.PowerTap()
		}
	}

	state := t.State()
	rising := buttons.Rising(m.last)
	m.last = buttons
	if rising == 0 {
		return PowerNone
	}

	for _, bind := range edgeTable[state] {
		if !rising.Has(bind.button) {
			continue
		}
		if bind.needFiles && t.FileCount() == 0 {
			continue
		}
		if err := m.queue.Tap(bind.code, 0); err != nil {
			if errors.Is(err, apperr.ErrQueueFull) {
				m.logger.Warn("input: queue full, dropping button", slog.String("button", bind.button.String()))
			}
			continue
		}
		m.logger.Debug("input: button", slog.String("button", bind.button.String()), slog.String("state", state.String()))
	}
	if state == models.TextEditor && rising.Has(Back) {
		t.EditorBack()
	}
	return PowerNone
}
