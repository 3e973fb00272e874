// Package display renders the UI into a 1-bit framebuffer and pushes frames
// to a panel: the Waveshare e-paper HAT, any tinygo Displayer, or an
// in-memory preview for the simulator.
package display

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	"github.com/starford/microslate/internal/ui"
)

// Panel is a physical or virtual screen in its native orientation.
type Panel interface {
	Bounds() image.Rectangle
	// Show pushes a native-orientation frame. full requests a flashing full
	// refresh instead of a partial one.
	Show(frame *image.Gray, full bool) error
	Sleep() error
}

type faces struct {
	regular, bold font.Face
	// synthetic bold is drawn twice, one pixel apart
	synthetic bool
}

var fontFaces = map[ui.Font]faces{
	ui.FontUI:    {regular: basicfont.Face7x13, bold: basicfont.Face7x13, synthetic: true},
	ui.FontBody:  {regular: inconsolata.Regular8x16, bold: inconsolata.Bold8x16},
	ui.FontSmall: {regular: basicfont.Face7x13, bold: basicfont.Face7x13, synthetic: true},
}

// Framebuffer implements ui.Renderer on top of a Panel. Drawing happens on a
// canvas in the rotated frame; Display rotates it into the panel's frame.
type Framebuffer struct {
	panel  Panel
	native image.Rectangle
	orient ui.Orientation
	canvas *image.Gray
	frame  *image.Gray
}

var _ ui.Renderer = (*Framebuffer)(nil)

// NewFramebuffer returns a portrait framebuffer sized to panel.
func NewFramebuffer(panel Panel) *Framebuffer {
	native := panel.Bounds()
	fb := &Framebuffer{
		panel:  panel,
		native: native,
		frame:  image.NewGray(image.Rect(0, 0, native.Dx(), native.Dy())),
	}
	fb.SetOrientation(ui.Portrait)
	return fb
}

func (fb *Framebuffer) SetOrientation(o ui.Orientation) {
	fb.orient = o
	w, h := fb.native.Dx(), fb.native.Dy()
	if o == ui.LandscapeCW || o == ui.LandscapeCCW {
		w, h = h, w
	}
	fb.canvas = image.NewGray(image.Rect(0, 0, w, h))
	fb.Clear()
}

func (fb *Framebuffer) Width() int  { return fb.canvas.Rect.Dx() }
func (fb *Framebuffer) Height() int { return fb.canvas.Rect.Dy() }

// Canvas exposes the rotated-frame drawing surface.
func (fb *Framebuffer) Canvas() *image.Gray { return fb.canvas }

func (fb *Framebuffer) Clear() {
	draw.Draw(fb.canvas, fb.canvas.Rect, image.White, image.Point{}, draw.Src)
}

func (fb *Framebuffer) DrawText(f ui.Font, x, y int, text string, bold bool) {
	ff := fontFaces[f]
	face := ff.regular
	if bold {
		face = ff.bold
	}
	baseline := y + face.Metrics().Ascent.Ceil()
	d := font.Drawer{
		Dst:  fb.canvas,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
	if bold && ff.synthetic {
		d.Dot = fixed.P(x+1, baseline)
		d.DrawString(text)
	}
}

func (fb *Framebuffer) FillRect(x, y, w, h int) {
	r := image.Rect(x, y, x+w, y+h).Intersect(fb.canvas.Rect)
	draw.Draw(fb.canvas, r, image.Black, image.Point{}, draw.Src)
}

func (fb *Framebuffer) TextWidth(f ui.Font, text string) int {
	return font.MeasureString(fontFaces[f].regular, text).Ceil()
}

func (fb *Framebuffer) LineHeight(f ui.Font) int {
	return fontFaces[f].regular.Metrics().Height.Ceil()
}

// Display rotates the canvas into the panel frame, thresholds it to 1 bit
// and pushes it.
func (fb *Framebuffer) Display(mode ui.Refresh) error {
	cw, ch := fb.canvas.Rect.Dx(), fb.canvas.Rect.Dy()
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			nx, ny := fb.toNative(cx, cy, cw, ch)
			v := fb.canvas.GrayAt(cx, cy).Y
			if v < 0x80 {
				v = 0
			} else {
				v = 0xff
			}
			fb.frame.SetGray(nx, ny, color.Gray{Y: v})
		}
	}
	return fb.panel.Show(fb.frame, mode == ui.FullRefresh)
}

func (fb *Framebuffer) toNative(cx, cy, cw, ch int) (int, int) {
	switch fb.orient {
	case ui.LandscapeCW:
		return ch - 1 - cy, cx
	case ui.PortraitInverted:
		return cw - 1 - cx, ch - 1 - cy
	case ui.LandscapeCCW:
		return cy, cw - 1 - cx
	default:
		return cx, cy
	}
}

func (fb *Framebuffer) Sleep() error { return fb.panel.Sleep() }
