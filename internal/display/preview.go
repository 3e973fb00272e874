package display

import (
	"bytes"
	"image"
	"image/png"
	"sync"
)

// Preview is an in-memory panel for the simulator. It keeps the latest frame
// as PNG and hands it to OnFrame after every refresh.
type Preview struct {
	bounds image.Rectangle
	// OnFrame receives the encoded frame; it runs on the device loop.
	OnFrame func(png []byte, full bool)

	mu       sync.RWMutex
	png      []byte
	frames   int
	sleeping bool
}

var _ Panel = (*Preview)(nil)

// NewPreview returns a preview panel of the given native size.
func NewPreview(width, height int) *Preview {
	return &Preview{bounds: image.Rect(0, 0, width, height)}
}

func (p *Preview) Bounds() image.Rectangle { return p.bounds }

func (p *Preview) Show(frame *image.Gray, full bool) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return err
	}
	p.mu.Lock()
	p.png = buf.Bytes()
	p.frames++
	p.sleeping = false
	p.mu.Unlock()

	if p.OnFrame != nil {
		p.OnFrame(buf.Bytes(), full)
	}
	return nil
}

func (p *Preview) Sleep() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeping = true
	return nil
}

// PNG returns the last frame, nil before the first refresh.
func (p *Preview) PNG() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.png
}

// Frames returns how many refreshes have been shown.
func (p *Preview) Frames() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.frames
}

// Sleeping reports whether the panel was put to sleep after its last frame.
func (p *Preview) Sleeping() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sleeping
}
