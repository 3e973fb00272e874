package ui

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/starford/microslate/internal/editor"
)

const (
	margin    = 6
	rowGap    = 2
	appName   = "MicroSlate"
	emptyList = "No notes yet. Ctrl+N to create one."
)

var mainMenuLabels = [menuItems]string{"Browse Files", "New File", "Settings"}

// header draws a bold title and a rule under it, returning the first free y.
func (d *Dispatcher) header(title string) int {
	d.r.DrawText(FontUI, margin, margin, title, true)
	y := margin + d.r.LineHeight(FontUI) + rowGap
	d.r.FillRect(0, y, d.r.Width(), 1)
	return y + rowGap + 1
}

func (d *Dispatcher) footer(hint string) {
	h := d.r.LineHeight(FontSmall)
	d.r.DrawText(FontSmall, margin, d.r.Height()-h-margin, hint, false)
}

// list draws rows from y with the selected one marked, scrolled so the
// selection stays on screen.
func (d *Dispatcher) list(y int, rows []string, selected int) {
	step := d.r.LineHeight(FontUI) + rowGap
	visible := max((d.r.Height()-y-d.r.LineHeight(FontSmall)-2*margin)/step, 1)
	first := 0
	if selected >= visible {
		first = selected - visible + 1
	}
	for i := first; i < len(rows) && i < first+visible; i++ {
		prefix := "  "
		if i == selected {
			prefix = "> "
		}
		d.r.DrawText(FontUI, margin, y, prefix+rows[i], i == selected)
		y += step
	}
}

func (d *Dispatcher) drawMainMenu() {
	y := d.header(appName)
	d.list(y, mainMenuLabels[:], d.app.MainMenuSelection)
	d.footer("Up/Down select, Enter open")
}

func (d *Dispatcher) drawFileBrowser() {
	files := d.store.Files()
	y := d.header(fmt.Sprintf("Notes (%d)", len(files)))
	if len(files) == 0 {
		d.r.DrawText(FontUI, margin, y, emptyList, false)
		d.footer("Esc back")
		return
	}
	rows := make([]string, len(files))
	for i, f := range files {
		rows[i] = f.Title
	}
	d.list(y, rows, d.app.FileSelection)
	d.footer("Enter open, F2 rename, Del delete, Esc back")
}

func (d *Dispatcher) drawEditor() {
	ed := d.editor
	title := ed.Title()
	if ed.Unsaved() {
		title += " *"
	}
	y := d.header(title)

	buf := ed.Bytes()
	lines := ed.Lines()
	step := d.r.LineHeight(FontBody)
	visible := max((d.r.Height()-y-margin)/step, 1)
	row := editor.CursorRow(lines, ed.Cursor())
	first := 0
	if row >= visible {
		first = row - visible + 1
	}

	for i := first; i < len(lines) && i < first+visible; i++ {
		ln := lines[i]
		d.r.DrawText(FontBody, margin, y, string(buf[ln.Start:ln.End]), false)
		if i == row {
			col := min(ed.Cursor(), ln.End)
			x := margin + d.r.TextWidth(FontBody, string(buf[ln.Start:col]))
			d.r.FillRect(x, y, 2, step)
		}
		y += step
	}
}

func (d *Dispatcher) drawRename() {
	heading := "Rename Note"
	if d.app.RenameTarget == "" {
		heading = "New Note Title"
	}
	y := d.header(heading)
	text := string(d.app.Rename)
	d.r.DrawText(FontBody, margin, y, text, false)
	x := margin + d.r.TextWidth(FontBody, text)
	d.r.FillRect(x, y, 2, d.r.LineHeight(FontBody))
	d.footer("Enter save, Esc cancel")
}

func (d *Dispatcher) drawSettings() {
	y := d.header("Settings")
	rows := []string{
		"Orientation: " + orientationLabels[d.app.Orientation],
		"Line width: " + strconv.Itoa(d.app.CharsPerLine),
		"Bluetooth",
	}
	d.list(y, rows, d.app.SettingsSelection)
	d.footer("Left/Right change, Esc back")
}

var orientationLabels = map[Orientation]string{
	Portrait:         "Portrait",
	LandscapeCW:      "Landscape CW",
	PortraitInverted: "Portrait Inverted",
	LandscapeCCW:     "Landscape CCW",
}

func (d *Dispatcher) drawBluetooth() {
	y := d.header("Bluetooth")

	status := "Not scanning"
	switch name := d.kb.Connected(); {
	case name != "":
		status = "Connected: " + name
	case d.kb.Scanning():
		status = "Scanning..."
	}
	d.r.DrawText(FontSmall, margin, y, status, false)
	y += d.r.LineHeight(FontSmall) + rowGap

	if key := d.kb.Passkey(); key > 0 {
		d.r.DrawText(FontBody, margin, y, fmt.Sprintf("Passkey: %06d", key), true)
		y += d.r.LineHeight(FontBody) + rowGap
	}

	devices := d.kb.Devices()
	if len(devices) == 0 {
		d.r.DrawText(FontUI, margin, y, "No devices found", false)
	} else {
		rows := make([]string, len(devices))
		for i, dev := range devices {
			rows[i] = dev.Name
		}
		d.list(y, rows, d.app.DeviceSelection)
	}
	d.footer("Enter connect, Esc back")
}

// drawSplash renders the boot and sleep screens: the product name in bold at
// 35% height, a subtitle at 48% and an optional footer at 75%.
func (d *Dispatcher) drawSplash(subtitle, footer string) {
	d.r.Clear()
	w, h := d.r.Width(), d.r.Height()
	center := func(f Font, y int, s string, bold bool) {
		d.r.DrawText(f, (w-d.r.TextWidth(f, s))/2, y, s, bold)
	}
	center(FontBody, h*35/100, appName, true)
	center(FontUI, h*48/100, subtitle, false)
	if footer != "" {
		center(FontSmall, h*75/100, footer, false)
	}
	if err := d.r.Display(FullRefresh); err != nil {
		d.logger.Warn("ui: splash refresh failed", slog.String("error", err.Error()))
	}
}
