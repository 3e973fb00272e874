package hw

import (
	"math/rand/v2"

	"github.com/starford/microslate/internal/input"
)

// Representative ladder readings per control, 12-bit.
var ladderLevels = map[input.Button]int{
	input.Back:    3000,
	input.Confirm: 2000,
	input.Left:    900,
	input.Right:   100,
	input.Up:      1500,
	input.Down:    300,
}

const adcIdle = 4095

// SimPad is a pad driven by the simulator API. It also exposes the resistor
// ladders as an AnalogSource, with optional jitter to mimic radio noise.
type SimPad struct {
	levels
	// Noise is the peak jitter added to every ADC sample.
	Noise int
}

var (
	_ input.Controls     = (*SimPad)(nil)
	_ input.AnalogSource = (*SimPad)(nil)
)

func NewSimPad(noise int) *SimPad { return &SimPad{Noise: noise} }

// Press holds b down until Release.
func (s *SimPad) Press(b input.Button) { s.set(b, true) }

// Release lets b go.
func (s *SimPad) Release(b input.Button) { s.set(b, false) }

// Down reports the live level of b, ignoring tick snapshots.
func (s *SimPad) Down(b input.Button) bool { return s.live[b].Load() }

func (s *SimPad) Update()                     { s.update() }
func (s *SimPad) Pressed(b input.Button) bool { return s.pressed(b) }
func (s *SimPad) AnyPressed() bool            { return s.anyDown }

func (s *SimPad) ReadADC(channel int) int {
	var ladder []input.Button
	switch channel {
	case 1:
		ladder = []input.Button{input.Back, input.Confirm, input.Left, input.Right}
	case 2:
		ladder = []input.Button{input.Up, input.Down}
	default:
		return adcIdle
	}
	v := adcIdle
	for _, b := range ladder {
		if s.live[b].Load() {
			v = ladderLevels[b]
			break
		}
	}
	if s.Noise > 0 {
		v += rand.IntN(2*s.Noise+1) - s.Noise
	}
	return min(max(v, 0), adcIdle)
}
