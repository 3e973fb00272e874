package input

import "strings"

// Button is one physical control on the pad.
type Button uint8

const (
	Up Button = iota
	Down
	Left
	Right
	Confirm
	Back
	Power
	numButtons
)

var buttonNames = [...]string{"up", "down", "left", "right", "confirm", "back", "power"}

func (b Button) String() string {
	if b >= numButtons {
		return "unknown"
	}
	return buttonNames[b]
}

// ParseButton maps a lower-case control name back to its Button.
func ParseButton(name string) (Button, bool) {
	for i, n := range buttonNames {
		if n == strings.ToLower(name) {
			return Button(i), true
		}
	}
	return 0, false
}

// Buttons lists the six tap controls, Power excluded.
var Buttons = [...]Button{Up, Down, Left, Right, Confirm, Back}

// ButtonSet is a bitmask of pressed controls.
type ButtonSet uint8

func (s ButtonSet) Has(b Button) bool               { return s&(1<<b) != 0 }
func (s ButtonSet) With(b Button) ButtonSet         { return s | 1<<b }
func (s ButtonSet) Rising(prev ButtonSet) ButtonSet { return s &^ prev }

// Controls is the raw-input collaborator: a debounced pad refreshed once per
// tick.
type Controls interface {
	// Update samples the hardware. It is called first thing every tick.
	Update()
	// Pressed reports the debounced state of b as of the last Update.
	Pressed(b Button) bool
	// AnyPressed reports whether any control went down during the last Update.
	AnyPressed() bool
}

// AnalogSource reads the two resistor-ladder ADC channels the tap controls
// sit on. Channel 1 carries back/confirm/left/right, channel 2 up/down.
type AnalogSource interface {
	ReadADC(channel int) int
}
