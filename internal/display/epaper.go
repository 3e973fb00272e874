package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"
)

// epd is the subset of the waveshare driver the panel uses.
type epd interface {
	Init() error
	Clear(c color.Color) error
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Sleep() error
	Halt() error
	Bounds() image.Rectangle
}

// EPaper drives a Waveshare 2.13" v4 HAT over SPI.
type EPaper struct {
	port     spi.PortCloser
	dev      epd
	logger   *slog.Logger
	sleeping bool
}

var _ Panel = (*EPaper)(nil)

// OpenEPaper initialises the host drivers, opens the SPI port (empty name
// picks the first one) and wakes the panel with a white screen.
func OpenEPaper(spiPort string, logger *slog.Logger) (*EPaper, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: host init: %w", err)
	}
	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("display: open spi %q: %w", spiPort, err)
	}
	opts := waveshare2in13v4.EPD2in13v4
	dev, err := waveshare2in13v4.NewHat(port, &opts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("display: open panel: %w", err)
	}
	p := &EPaper{port: port, dev: dev, logger: logger}
	if err := dev.Init(); err != nil {
		p.Close()
		return nil, fmt.Errorf("display: init panel: %w", err)
	}
	if err := dev.Clear(color.White); err != nil {
		p.Close()
		return nil, fmt.Errorf("display: clear panel: %w", err)
	}
	logger.Info("display: e-paper ready", slog.String("bounds", dev.Bounds().String()))
	return p, nil
}

func (p *EPaper) Bounds() image.Rectangle { return p.dev.Bounds() }

func (p *EPaper) wake() error {
	if !p.sleeping {
		return nil
	}
	if err := p.dev.Init(); err != nil {
		return fmt.Errorf("display: wake: %w", err)
	}
	p.sleeping = false
	return nil
}

// Show converts frame to the driver's packed 1-bit layout and draws it. A
// full refresh clears to white first.
func (p *EPaper) Show(frame *image.Gray, full bool) error {
	if err := p.wake(); err != nil {
		return err
	}
	if full {
		if err := p.dev.Clear(color.White); err != nil {
			return fmt.Errorf("display: clear: %w", err)
		}
	}
	bounds := p.dev.Bounds()
	img := image1bit.NewVerticalLSB(bounds)
	draw.Draw(img, img.Bounds(), frame, image.Point{}, draw.Src)
	if err := p.dev.Draw(bounds, img, image.Point{}); err != nil {
		return fmt.Errorf("display: draw: %w", err)
	}
	return nil
}

func (p *EPaper) Sleep() error {
	if p.sleeping {
		return nil
	}
	if err := p.dev.Sleep(); err != nil {
		return fmt.Errorf("display: sleep: %w", err)
	}
	p.sleeping = true
	p.logger.Info("display: panel asleep")
	return nil
}

// Close halts the panel and releases the SPI port.
func (p *EPaper) Close() error {
	if err := p.dev.Halt(); err != nil {
		p.logger.Warn("display: halt failed", slog.String("error", err.Error()))
	}
	return p.port.Close()
}
