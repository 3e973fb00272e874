package ui

import (
	"log/slog"

	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/models"
	"github.com/starford/microslate/internal/parser"
)

func clampSelection(sel, n int) int {
	if sel >= n {
		sel = n - 1
	}
	if sel < 0 {
		sel = 0
	}
	return sel
}

func (d *Dispatcher) handleMainMenu(ev input.KeyEvent) bool {
	switch ev.Code {
	case input.KeyUp:
		if d.app.MainMenuSelection > 0 {
			d.app.MainMenuSelection--
			return true
		}
	case input.KeyDown:
		if d.app.MainMenuSelection < menuItems-1 {
			d.app.MainMenuSelection++
			return true
		}
	case input.KeyEnter:
		switch d.app.MainMenuSelection {
		case MenuBrowse:
			d.openBrowser()
		case MenuNewFile:
			d.startNewFile()
		case MenuSettings:
			d.app.SettingsSelection = 0
			d.app.SetState(models.Settings)
		}
		return true
	}
	return false
}

func (d *Dispatcher) openBrowser() {
	if err := d.store.Refresh(); err != nil {
		d.logger.Warn("ui: listing refresh failed", slog.String("error", err.Error()))
	}
	d.app.FileSelection = clampSelection(d.app.FileSelection, d.store.Count())
	d.app.SetState(models.FileBrowser)
}

func (d *Dispatcher) startNewFile() {
	d.store.CreateDefault()
	d.app.Rename = d.app.Rename[:0]
	d.app.RenameTarget = ""
	d.app.SetState(models.NewFile)
}

func (d *Dispatcher) selectedFile() (models.FileInfo, bool) {
	files := d.store.Files()
	if d.app.FileSelection < 0 || d.app.FileSelection >= len(files) {
		return models.FileInfo{}, false
	}
	return files[d.app.FileSelection], true
}

func (d *Dispatcher) handleFileBrowser(ev input.KeyEvent) bool {
	ctrl := input.Ctrl(ev.Modifiers)
	count := d.store.Count()

	switch {
	case ev.Code == input.KeyUp:
		if count > 0 && d.app.FileSelection > 0 {
			d.app.FileSelection--
			return true
		}
	case ev.Code == input.KeyDown:
		if count > 0 && d.app.FileSelection < count-1 {
			d.app.FileSelection++
			return true
		}
	case ev.Code == input.KeyEnter:
		f, ok := d.selectedFile()
		if !ok {
			return false
		}
		if err := d.store.Load(f.Filename); err != nil {
			d.logger.Warn("ui: open failed", slog.String("file", f.Filename), slog.String("error", err.Error()))
			return false
		}
		d.app.SetState(models.TextEditor)
		return true
	case ev.Code == input.KeyF2, ctrl && ev.Code == input.Letter('r'):
		f, ok := d.selectedFile()
		if !ok {
			return false
		}
		d.app.Rename = append(d.app.Rename[:0], d.fitRename(f.Title)...)
		d.app.RenameTarget = f.Filename
		d.app.SetState(models.RenameFile)
		return true
	case ctrl && ev.Code == input.Letter('n'):
		d.startNewFile()
		return true
	case ev.Code == input.KeyDelete, ctrl && ev.Code == input.Letter('d'):
		f, ok := d.selectedFile()
		if !ok {
			return false
		}
		if err := d.store.Delete(f.Filename); err != nil {
			d.logger.Warn("ui: delete failed", slog.String("file", f.Filename), slog.String("error", err.Error()))
			return false
		}
		d.app.FileSelection = clampSelection(d.app.FileSelection, d.store.Count())
		return true
	case ev.Code == input.KeyEscape:
		d.app.SetState(models.MainMenu)
		return true
	}
	return false
}

func (d *Dispatcher) fitRename(s string) string {
	return s[:parser.RuneFloor([]byte(s), d.opts.MaxRenameLen-1)]
}

func (d *Dispatcher) handleEditor(ev input.KeyEvent) bool {
	ed := d.editor
	if input.Ctrl(ev.Modifiers) {
		switch ev.Code {
		case input.Letter('s'):
			if err := d.store.Save(); err != nil {
				d.logger.Warn("ui: save failed", slog.String("file", ed.CurrentFile()), slog.String("error", err.Error()))
			}
			return true
		case input.Letter('q'):
			d.app.SetState(models.FileBrowser)
			return true
		}
		return false
	}

	switch ev.Code {
	case input.KeyUp:
		return ed.MoveUp()
	case input.KeyDown:
		return ed.MoveDown()
	case input.KeyLeft:
		return ed.MoveLeft()
	case input.KeyRight:
		return ed.MoveRight()
	case input.KeyEnter:
		return ed.Insert('\n')
	case input.KeyBackspace:
		return ed.Backspace()
	case input.KeyEscape:
		d.app.SetState(models.FileBrowser)
		return true
	}
	if c := input.HidToASCII(ev.Code, ev.Modifiers); c != 0 {
		return ed.Insert(c)
	}
	return false
}

func (d *Dispatcher) handleRename(ev input.KeyEvent) bool {
	switch ev.Code {
	case input.KeyEnter:
		d.commitRename()
		return true
	case input.KeyEscape:
		d.app.Rename = d.app.Rename[:0]
		d.app.SetState(models.FileBrowser)
		return true
	case input.KeyBackspace:
		if n := len(d.app.Rename); n > 0 {
			d.app.Rename = d.app.Rename[:n-1]
			return true
		}
		return false
	}
	if input.Ctrl(ev.Modifiers) {
		return false
	}
	c := input.HidToASCII(ev.Code, ev.Modifiers)
	if c == 0 || len(d.app.Rename) >= d.opts.MaxRenameLen-1 {
		return false
	}
	d.app.Rename = append(d.app.Rename, c)
	return true
}

func (d *Dispatcher) commitRename() {
	title := string(d.app.Rename)
	d.app.Rename = d.app.Rename[:0]

	if d.app.State == models.NewFile {
		if title != "" {
			if name, err := d.store.NameFor(title, d.editor.CurrentFile()); err != nil {
				d.logger.Warn("ui: no free name for title, keeping default", slog.String("title", title), slog.String("error", err.Error()))
			} else {
				d.editor.SetCurrentFile(name)
			}
			d.editor.SetTitle(title)
		}
		d.app.SetState(models.TextEditor)
		return
	}

	if title == "" {
		title = models.DefaultTitle
	}
	target := d.app.RenameTarget
	d.app.RenameTarget = ""
	if _, err := d.store.Retitle(target, title); err != nil {
		d.logger.Warn("ui: rename failed", slog.String("file", target), slog.String("error", err.Error()))
	}
	d.app.FileSelection = clampSelection(d.app.FileSelection, d.store.Count())
	d.app.SetState(models.FileBrowser)
}

func lineWidthIndex(cpl int) int {
	for i, w := range LineWidths {
		if w >= cpl {
			return i
		}
	}
	return len(LineWidths) - 1
}

func (d *Dispatcher) stepSetting(delta int) bool {
	switch d.app.SettingsSelection {
	case SettingOrientation:
		if delta > 0 {
			d.app.Orientation = d.app.Orientation.Next()
		} else {
			d.app.Orientation = d.app.Orientation.Prev()
		}
		return true
	case SettingLineWidth:
		i := lineWidthIndex(d.app.CharsPerLine) + delta
		if i < 0 || i >= len(LineWidths) {
			return false
		}
		d.app.CharsPerLine = LineWidths[i]
		return true
	}
	return false
}

func (d *Dispatcher) handleSettings(ev input.KeyEvent) bool {
	switch ev.Code {
	case input.KeyUp:
		if d.app.SettingsSelection > 0 {
			d.app.SettingsSelection--
			return true
		}
	case input.KeyDown:
		if d.app.SettingsSelection < settingItems-1 {
			d.app.SettingsSelection++
			return true
		}
	case input.KeyLeft:
		return d.stepSetting(-1)
	case input.KeyRight:
		return d.stepSetting(1)
	case input.KeyEnter:
		if d.app.SettingsSelection == SettingBluetooth {
			d.app.SetState(models.BluetoothSettings)
			return true
		}
		return d.stepSetting(1)
	case input.KeyEscape:
		d.app.SetState(models.MainMenu)
		return true
	}
	return false
}

func (d *Dispatcher) handleBluetooth(ev input.KeyEvent) bool {
	devices := d.kb.Devices()
	switch ev.Code {
	case input.KeyUp:
		if d.app.DeviceSelection > 0 {
			d.app.DeviceSelection--
			return true
		}
	case input.KeyDown:
		if d.app.DeviceSelection < len(devices)-1 {
			d.app.DeviceSelection++
			return true
		}
	case input.KeyEnter:
		if len(devices) == 0 {
			return false
		}
		sel := clampSelection(d.app.DeviceSelection, len(devices))
		if err := d.kb.Connect(sel); err != nil {
			d.logger.Warn("ui: connect failed", slog.String("device", devices[sel].Name), slog.String("error", err.Error()))
		}
		return true
	case input.KeyEscape:
		d.app.SetState(models.Settings)
		return true
	}
	return false
}
