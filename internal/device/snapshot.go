package device

import (
	"github.com/starford/microslate/internal/editor"
	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/keyboard"
	"github.com/starford/microslate/internal/models"
	"github.com/starford/microslate/internal/ui"
)

// EditorState is the open note as seen from outside.
type EditorState struct {
	File    string `json:"file"`
	Title   string `json:"title"`
	Unsaved bool   `json:"unsaved"`
	Length  int    `json:"length"`
	Cursor  int    `json:"cursor"`
}

// KeyboardState mirrors the keyboard stack's flags.
type KeyboardState struct {
	Scanning  bool              `json:"scanning"`
	Connected string            `json:"connected,omitempty"`
	Passkey   uint32            `json:"passkey,omitempty"`
	Devices   []keyboard.Device `json:"devices,omitempty"`
}

// Snapshot is a copy of core state taken on the loop goroutine, safe to hand
// to other goroutines.
type Snapshot struct {
	App      ui.App            `json:"app"`
	Files    []models.FileInfo `json:"files"`
	Editor   EditorState       `json:"editor"`
	Power    string            `json:"power"`
	Keyboard KeyboardState     `json:"keyboard"`
}

// Snapshotter returns a snapshot function over the loop's collaborators.
func Snapshotter(app *ui.App, store ui.NoteStore, ed editor.Editor, kb keyboard.Stack, power *input.PowerDiscriminator) func() Snapshot {
	return func() Snapshot {
		a := *app
		a.Rename = append([]byte(nil), app.Rename...)
		return Snapshot{
			App:   a,
			Files: append([]models.FileInfo(nil), store.Files()...),
			Editor: EditorState{
				File:    ed.CurrentFile(),
				Title:   ed.Title(),
				Unsaved: ed.Unsaved(),
				Length:  ed.Len(),
				Cursor:  ed.Cursor(),
			},
			Power: power.State().String(),
			Keyboard: KeyboardState{
				Scanning:  kb.Scanning(),
				Connected: kb.Connected(),
				Passkey:   kb.Passkey(),
				Devices:   kb.Devices(),
			},
		}
	}
}
