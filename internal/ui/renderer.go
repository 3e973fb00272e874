package ui

// Font selects one of the renderer's faces.
type Font int

const (
	FontUI Font = iota
	FontBody
	FontSmall
)

// Refresh selects the panel update mode.
type Refresh int

const (
	PartialRefresh Refresh = iota
	FullRefresh
)

// Renderer is the display collaborator. Coordinates are in the rotated
// frame; y is the top of the text line.
type Renderer interface {
	Clear()
	SetOrientation(o Orientation)
	Width() int
	Height() int
	DrawText(f Font, x, y int, text string, bold bool)
	FillRect(x, y, w, h int)
	TextWidth(f Font, text string) int
	LineHeight(f Font) int
	Display(mode Refresh) error
	// Sleep puts the panel into its low-power state.
	Sleep() error
}
