package display

import (
	"fmt"
	"image/color"

	"tinygo.org/x/drivers"
)

// SSD1306 defaults.
const (
	SSD1306Address = 0x3C
	ssdWidth       = 128
	ssdHeight      = 64
	ssdChunk       = 32
)

const (
	ssdCommand byte = 0x00
	ssdData    byte = 0x40
)

var ssdInit = []byte{
	0xAE,       // display off
	0xD5, 0x80, // clock divide
	0xA8, ssdHeight - 1,
	0xD3, 0x00, // display offset
	0x40,       // start line 0
	0x8D, 0x14, // charge pump on
	0x20, 0x00, // horizontal addressing
	0xA1,       // segment remap
	0xC8,       // COM scan descending
	0xDA, 0x12, // COM pins
	0x81, 0xCF, // contrast
	0xD9, 0xF1, // precharge
	0xDB, 0x40, // VCOMH
	0xA4,       // follow RAM
	0xA6,       // normal, not inverted
	0xAF,       // display on
}

// SSD1306 is a 128x64 monochrome OLED on an I2C bus. It implements
// drivers.Displayer, so DisplayerSink can drive it. Any periph i2c.Bus
// satisfies drivers.I2C.
type SSD1306 struct {
	bus      drivers.I2C
	addr     uint16
	buf      []byte
	sleeping bool
}

var _ drivers.Displayer = (*SSD1306)(nil)

// NewSSD1306 returns a driver at addr (0 picks SSD1306Address). Call
// Configure before the first Display.
func NewSSD1306(bus drivers.I2C, addr uint16) *SSD1306 {
	if addr == 0 {
		addr = SSD1306Address
	}
	return &SSD1306{bus: bus, addr: addr, buf: make([]byte, ssdWidth*ssdHeight/8)}
}

// Configure runs the power-on command sequence.
func (d *SSD1306) Configure() error {
	if err := d.command(ssdInit...); err != nil {
		return fmt.Errorf("display: ssd1306 init: %w", err)
	}
	return nil
}

func (d *SSD1306) command(cmds ...byte) error {
	for _, c := range cmds {
		if err := d.bus.Tx(d.addr, []byte{ssdCommand, c}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (d *SSD1306) Size() (x, y int16) { return ssdWidth, ssdHeight }

// SetPixel lights the pixel for any non-black colour.
func (d *SSD1306) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= ssdWidth || y >= ssdHeight {
		return
	}
	i := int(x) + int(y/8)*ssdWidth
	bit := byte(1) << (uint(y) % 8)
	if c.R|c.G|c.B != 0 {
		d.buf[i] |= bit
	} else {
		d.buf[i] &^= bit
	}
}

// Display pushes the whole buffer, waking the panel if it was asleep.
func (d *SSD1306) Display() error {
	if d.sleeping {
		if err := d.Sleep(false); err != nil {
			return err
		}
	}
	if err := d.command(0x21, 0, ssdWidth-1, 0x22, 0, ssdHeight/8-1); err != nil {
		return fmt.Errorf("display: ssd1306 address: %w", err)
	}
	chunk := make([]byte, 1, ssdChunk+1)
	chunk[0] = ssdData
	for off := 0; off < len(d.buf); off += ssdChunk {
		end := min(off+ssdChunk, len(d.buf))
		if err := d.bus.Tx(d.addr, append(chunk[:1], d.buf[off:end]...), nil); err != nil {
			return fmt.Errorf("display: ssd1306 write: %w", err)
		}
	}
	return nil
}

// Sleep switches the panel off (true) or back on (false); RAM is kept.
func (d *SSD1306) Sleep(sleep bool) error {
	cmd := byte(0xAF)
	if sleep {
		cmd = 0xAE
	}
	if err := d.command(cmd); err != nil {
		return fmt.Errorf("display: ssd1306 sleep: %w", err)
	}
	d.sleeping = sleep
	return nil
}
