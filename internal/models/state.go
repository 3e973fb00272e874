package models

// UIState is the dispatcher's current screen. Exactly one is live at a time.
type UIState int

const (
	MainMenu UIState = iota
	FileBrowser
	TextEditor
	RenameFile
	NewFile
	Settings
	BluetoothSettings
)

var stateNames = [...]string{
	MainMenu:          "main_menu",
	FileBrowser:       "file_browser",
	TextEditor:        "text_editor",
	RenameFile:        "rename_file",
	NewFile:           "new_file",
	Settings:          "settings",
	BluetoothSettings: "bluetooth_settings",
}

func (s UIState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText renders the state name for JSON state snapshots.
func (s UIState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
