package input

import (
	"log/slog"
	"time"
)

// Sampler reads the six tap controls for one tick. Two strategies exist and
// the multiplexer picks one per tick from the UI state.
type Sampler interface {
	Sample() ButtonSet
}

// Debounced reads the pad's debounced state.
type Debounced struct {
	Controls Controls
}

func (d Debounced) Sample() ButtonSet {
	var s ButtonSet
	for _, b := range Buttons {
		if d.Controls.Pressed(b) {
			s = s.With(b)
		}
	}
	return s
}

// DefaultADCSamples is the averaging window of the raw ladder strategy.
const DefaultADCSamples = 8

const adcLogEvery = 2 * time.Second

// Averaged bypasses the debouncer and decodes the resistor ladders from
// averaged raw samples. Radio activity during a device scan adds enough ADC
// jitter that the debouncer never settles.
type Averaged struct {
	Source  AnalogSource
	Samples int
	Now     func() time.Time
	Logger  *slog.Logger

	lastLog time.Time
}

// NewAveraged returns an Averaged sampler over src.
func NewAveraged(src AnalogSource, samples int, logger *slog.Logger) *Averaged {
	if samples <= 0 {
		samples = DefaultADCSamples
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Averaged{Source: src, Samples: samples, Now: time.Now, Logger: logger}
}

func (a *Averaged) read(channel int) int {
	sum := 0
	for i := 0; i < a.Samples; i++ {
		sum += a.Source.ReadADC(channel)
	}
	return sum / a.Samples
}

func (a *Averaged) Sample() ButtonSet {
	adc1, adc2 := a.read(1), a.read(2)

	var s ButtonSet
	b1, ok1 := Ladder1(adc1)
	if ok1 {
		s = s.With(b1)
	}
	b2, ok2 := Ladder2(adc2)
	if ok2 {
		s = s.With(b2)
	}

	if now := a.Now(); now.Sub(a.lastLog) > adcLogEvery {
		a.lastLog = now
		a.Logger.Debug("input: adc ladder",
			slog.Int("adc1", adc1),
			slog.Int("adc2", adc2),
			slog.Bool("back", s.Has(Back)),
			slog.Bool("confirm", s.Has(Confirm)),
			slog.Bool("up", s.Has(Up)),
			slog.Bool("down", s.Has(Down)),
		)
	}
	return s
}

// Ladder1 decodes an averaged channel-1 reading. Readings above 3800 are the
// idle level and its noise band.
func Ladder1(adc int) (Button, bool) {
	switch {
	case adc > 3800:
		return 0, false
	case adc > 2600:
		return Back, true
	case adc > 1400:
		return Confirm, true
	case adc > 400:
		return Left, true
	default:
		return Right, true
	}
}

// Ladder2 decodes an averaged channel-2 reading.
func Ladder2(adc int) (Button, bool) {
	switch {
	case adc > 3800:
		return 0, false
	case adc > 600:
		return Up, true
	default:
		return Down, true
	}
}
