package ui

import (
	"log/slog"
	"time"

	"github.com/starford/microslate/internal/editor"
	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/keyboard"
	"github.com/starford/microslate/internal/models"
)

// NoteStore is the persistent note store as the dispatcher uses it.
type NoteStore interface {
	Files() []models.FileInfo
	Count() int
	Refresh() error
	Load(filename string) error
	Save() error
	Retitle(filename, title string) (string, error)
	NameFor(title, current string) (string, error)
	CreateDefault() string
	Delete(filename string) error
}

// Throttle defaults.
const (
	DefaultRedrawInterval    = 250 * time.Millisecond
	DefaultBTRefreshInterval = 3 * time.Second
)

// Options configures a Dispatcher.
type Options struct {
	RedrawInterval    time.Duration
	BTRefreshInterval time.Duration
	// MaxRenameLen caps the rename buffer, terminator included.
	MaxRenameLen int
}

// Dispatcher routes key events to the handler of the current state and
// renders the current screen. It implements input.Target.
type Dispatcher struct {
	app    *App
	store  NoteStore
	editor editor.Editor
	kb     keyboard.Stack
	r      Renderer
	opts   Options
	logger *slog.Logger

	prevState     models.UIState
	applied       Orientation
	lastRedraw    time.Time
	lastBTRefresh time.Time
	lastPasskey   uint32
}

var _ input.Target = (*Dispatcher)(nil)

// NewDispatcher wires the state machine to its collaborators.
func NewDispatcher(app *App, store NoteStore, ed editor.Editor, kb keyboard.Stack, r Renderer, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.RedrawInterval <= 0 {
		opts.RedrawInterval = DefaultRedrawInterval
	}
	if opts.BTRefreshInterval <= 0 {
		opts.BTRefreshInterval = DefaultBTRefreshInterval
	}
	if opts.MaxRenameLen <= 0 {
		opts.MaxRenameLen = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	r.SetOrientation(Portrait)
	return &Dispatcher{
		app:       app,
		store:     store,
		editor:    ed,
		kb:        kb,
		r:         r,
		opts:      opts,
		logger:    logger,
		prevState: app.State,
		applied:   Portrait,
	}
}

// App returns the application context.
func (d *Dispatcher) App() *App { return d.app }

func (d *Dispatcher) State() models.UIState { return d.app.State }
func (d *Dispatcher) FileCount() int        { return d.store.Count() }

// PowerTap is the power-button short press: flush unsaved edits, then go to
// the main menu.
func (d *Dispatcher) PowerTap() {
	d.SaveIfEditing()
	d.app.SetState(models.MainMenu)
}

// EditorBack is the physical Back button while editing.
func (d *Dispatcher) EditorBack() { d.app.SetState(models.FileBrowser) }

// SaveIfEditing saves the open note when the editor has unsaved changes.
func (d *Dispatcher) SaveIfEditing() {
	if d.app.State != models.TextEditor || !d.editor.Unsaved() {
		return
	}
	if err := d.store.Save(); err != nil {
		d.logger.Warn("ui: save failed", slog.String("error", err.Error()))
	}
}

// BluetoothHook runs at the top of every tick. Entering BluetoothSettings
// cancels any pending connection and starts a scan; leaving it stops the
// scan. Auto-reconnect is off only while the screen is shown.
func (d *Dispatcher) BluetoothHook() {
	cur := d.app.State
	if cur == models.BluetoothSettings {
		d.kb.SetAutoReconnect(false)
		if d.prevState != models.BluetoothSettings {
			d.kb.CancelPending()
			if !d.kb.Scanning() {
				d.kb.StartScan()
			}
			d.app.DeviceSelection = 0
		}
	} else {
		d.kb.SetAutoReconnect(true)
		if d.prevState == models.BluetoothSettings && d.kb.Scanning() {
			d.kb.StopScan()
		}
	}
	d.prevState = cur
}

// BTRefresh forces a redraw of the device list every BTRefreshInterval while
// in BluetoothSettings.
func (d *Dispatcher) BTRefresh(now time.Time) {
	if d.app.State != models.BluetoothSettings {
		return
	}
	if now.Sub(d.lastBTRefresh) > d.opts.BTRefreshInterval {
		d.lastBTRefresh = now
		d.app.Dirty = true
	}
}

// Drain hands every queued event to Handle in delivery order and returns how
// many were consumed.
func (d *Dispatcher) Drain(q *input.Queue) int {
	n := 0
	for ev, ok := q.Pop(); ok; ev, ok = q.Pop() {
		d.Handle(ev)
		n++
	}
	return n
}

// Handle routes one key transition. Releases are consumed without effect.
func (d *Dispatcher) Handle(ev input.KeyEvent) {
	if !ev.Pressed {
		return
	}
	var changed bool
	switch d.app.State {
	case models.MainMenu:
		changed = d.handleMainMenu(ev)
	case models.FileBrowser:
		changed = d.handleFileBrowser(ev)
	case models.TextEditor:
		changed = d.handleEditor(ev)
	case models.RenameFile, models.NewFile:
		changed = d.handleRename(ev)
	case models.Settings:
		changed = d.handleSettings(ev)
	case models.BluetoothSettings:
		changed = d.handleBluetooth(ev)
	}
	if changed {
		d.app.Dirty = true
	}
}

// Critical reports whether the screen must be redrawn regardless of the
// throttle: a pairing passkey waiting to be shown.
func (d *Dispatcher) Critical() bool {
	return d.app.State == models.BluetoothSettings && d.kb.Passkey() > 0
}

// ListingChanged clamps the browser selection after the listing was
// refreshed behind the dispatcher's back and marks the screen dirty.
func (d *Dispatcher) ListingChanged() {
	d.app.FileSelection = clampSelection(d.app.FileSelection, d.store.Count())
	d.app.Dirty = true
}

// Redraw renders the current screen when it is dirty and either the throttle
// interval has elapsed or the update is critical. A passkey that changed since
// the last call dirties the Bluetooth screen. It reports whether it drew.
func (d *Dispatcher) Redraw(now time.Time) bool {
	if pk := d.kb.Passkey(); pk != d.lastPasskey {
		d.lastPasskey = pk
		if d.app.State == models.BluetoothSettings {
			d.app.Dirty = true
		}
	}
	if !d.Critical() && now.Sub(d.lastRedraw) <= d.opts.RedrawInterval {
		return false
	}
	if !d.app.Dirty {
		return false
	}
	d.render()
	d.lastRedraw = now
	return true
}

func (d *Dispatcher) render() {
	d.app.Dirty = false

	if d.app.Orientation != d.applied {
		d.r.SetOrientation(d.app.Orientation)
		d.applied = d.app.Orientation
	}
	d.editor.SetCharsPerLine(d.app.CharsPerLine)

	d.r.Clear()
	switch d.app.State {
	case models.MainMenu:
		d.drawMainMenu()
	case models.FileBrowser:
		d.drawFileBrowser()
	case models.TextEditor:
		d.drawEditor()
	case models.RenameFile, models.NewFile:
		d.drawRename()
	case models.Settings:
		d.drawSettings()
	case models.BluetoothSettings:
		d.drawBluetooth()
	}
	if err := d.r.Display(PartialRefresh); err != nil {
		d.logger.Warn("ui: display refresh failed", slog.String("error", err.Error()))
	}
}

// DrawBoot shows the splash screen with a full refresh.
func (d *Dispatcher) DrawBoot() {
	d.drawSplash("Starting...", "")
	d.app.Dirty = true
}

// DrawSleep shows the sleep screen with a full refresh.
func (d *Dispatcher) DrawSleep() {
	d.drawSplash("Asleep", "Hold Power to wake")
}
