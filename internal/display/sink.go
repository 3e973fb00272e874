package display

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers"
)

var (
	black = color.RGBA{A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// DisplayerSink adapts any tinygo Displayer (an SSD1306, a UC8151 badge
// panel) into a Panel. Partial and full refresh are the same for it.
type DisplayerSink struct {
	dev drivers.Displayer
}

var _ Panel = (*DisplayerSink)(nil)

func NewDisplayerSink(dev drivers.Displayer) *DisplayerSink { return &DisplayerSink{dev: dev} }

func (s *DisplayerSink) Bounds() image.Rectangle {
	w, h := s.dev.Size()
	return image.Rect(0, 0, int(w), int(h))
}

func (s *DisplayerSink) Show(frame *image.Gray, _ bool) error {
	r := frame.Rect.Intersect(s.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := white
			if frame.GrayAt(x, y).Y < 0x80 {
				c = black
			}
			s.dev.SetPixel(int16(x), int16(y), c)
		}
	}
	return s.dev.Display()
}

// Sleep uses the driver's own sleep when it has one.
func (s *DisplayerSink) Sleep() error {
	if sl, ok := s.dev.(interface{ Sleep(bool) error }); ok {
		return sl.Sleep(true)
	}
	return nil
}
