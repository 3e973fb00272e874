package input

import "time"

// PowerState is the discriminator's position in a press cycle.
type PowerState int

const (
	PowerIdle PowerState = iota
	PowerHeld
	PowerSleepTriggered
)

func (s PowerState) String() string {
	switch s {
	case PowerHeld:
		return "held"
	case PowerSleepTriggered:
		return "sleep_triggered"
	default:
		return "idle"
	}
}

// PowerAction is what a tick of the discriminator asks the device to do.
type PowerAction int

const (
	PowerNone PowerAction = iota
	PowerMainMenu
	PowerSleep
)

// Press timing defaults.
const (
	DefaultLongPress     = 5 * time.Second
	DefaultShortPressMin = 50 * time.Millisecond
	DefaultShortPressMax = time.Second
)

// PowerDiscriminator classifies power-button presses into taps and holds.
// A hold fires PowerSleep exactly once while still held; a tap fires
// PowerMainMenu on release.
type PowerDiscriminator struct {
	LongPress     time.Duration
	ShortPressMin time.Duration
	ShortPressMax time.Duration

	state PowerState
	start time.Time
}

// NewPowerDiscriminator returns a discriminator with the given thresholds;
// zero values take the defaults.
func NewPowerDiscriminator(long, shortMin, shortMax time.Duration) *PowerDiscriminator {
	if long <= 0 {
		long = DefaultLongPress
	}
	if shortMin <= 0 {
		shortMin = DefaultShortPressMin
	}
	if shortMax <= 0 {
		shortMax = DefaultShortPressMax
	}
	return &PowerDiscriminator{LongPress: long, ShortPressMin: shortMin, ShortPressMax: shortMax}
}

// State returns the current press-cycle state.
func (p *PowerDiscriminator) State() PowerState { return p.state }

// Update advances the state machine with the button level sampled at now.
func (p *PowerDiscriminator) Update(pressed bool, now time.Time) PowerAction {
	if pressed {
		switch p.state {
		case PowerIdle:
			p.state = PowerHeld
			p.start = now
		case PowerHeld:
			if now.Sub(p.start) > p.LongPress {
				p.state = PowerSleepTriggered
				return PowerSleep
			}
		}
		return PowerNone
	}

	if p.state == PowerIdle {
		return PowerNone
	}
	triggered := p.state == PowerSleepTriggered
	held := now.Sub(p.start)
	p.state = PowerIdle
	if !triggered && held > p.ShortPressMin && held < p.ShortPressMax {
		return PowerMainMenu
	}
	return PowerNone
}
