// Package ui is the dispatcher state machine: it owns the application context,
// routes queued key events to per-state handlers and redraws through a dirty
// flag with a throttle.
package ui

import (
	"fmt"
	"strings"

	"github.com/starford/microslate/internal/models"
)

// Orientation is the display rotation preference.
type Orientation int

const (
	Portrait Orientation = iota
	LandscapeCW
	PortraitInverted
	LandscapeCCW
	numOrientations
)

var orientationNames = [...]string{"portrait", "landscape_cw", "portrait_inverted", "landscape_ccw"}

func (o Orientation) String() string {
	if o < 0 || o >= numOrientations {
		return "unknown"
	}
	return orientationNames[o]
}

// Next returns the following orientation, wrapping around.
func (o Orientation) Next() Orientation { return (o + 1) % numOrientations }

// Prev returns the preceding orientation, wrapping around.
func (o Orientation) Prev() Orientation { return (o + numOrientations - 1) % numOrientations }

func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Orientation) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range orientationNames {
		if n == name {
			*o = Orientation(i)
			return nil
		}
	}
	return fmt.Errorf("ui: unknown orientation %q", name)
}

// LineWidths are the chars-per-line choices offered in Settings.
var LineWidths = []int{20, 30, 40, 50, 60}

// Main menu rows.
const (
	MenuBrowse = iota
	MenuNewFile
	MenuSettings
	menuItems
)

// Settings rows.
const (
	SettingOrientation = iota
	SettingLineWidth
	SettingBluetooth
	settingItems
)

// App is the application context every per-tick entry point works on. Only
// the device loop goroutine touches it.
type App struct {
	State             models.UIState `json:"state"`
	MainMenuSelection int            `json:"main_menu_selection"`
	FileSelection     int            `json:"file_selection"`
	SettingsSelection int            `json:"settings_selection"`
	DeviceSelection   int            `json:"device_selection"`
	Orientation       Orientation    `json:"orientation"`
	CharsPerLine      int            `json:"chars_per_line"`

	// Dirty marks the screen stale.
	Dirty bool `json:"dirty"`

	// Rename is the title being typed in RenameFile and NewFile.
	Rename []byte `json:"-"`
	// RenameTarget is the file RenameFile will retitle.
	RenameTarget string `json:"rename_target,omitempty"`
}

// NewApp returns the boot context: main menu, screen dirty.
func NewApp(orientation Orientation, charsPerLine int) *App {
	if charsPerLine <= 0 {
		charsPerLine = 40
	}
	return &App{
		State:        models.MainMenu,
		Orientation:  orientation,
		CharsPerLine: charsPerLine,
		Dirty:        true,
	}
}

// SetState switches screens and marks the screen dirty.
func (a *App) SetState(s models.UIState) {
	a.State = s
	a.Dirty = true
}
