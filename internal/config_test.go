package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/microslate/pkg/config"

	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/notes"
	"github.com/starford/microslate/internal/ui"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestInvalidProfile(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.Profile = "esp32"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown profile should fail validation")
	}
}

func TestSaveModeValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.SaveMode = "fsync"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "storage") {
		t.Fatalf("err = %v", err)
	}
	cfg.Storage.SaveMode = string(notes.SaveReplace)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("replace mode should pass: %v", err)
	}
}

func TestPressThresholdOrdering(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Input.ShortPressMax = 6 * time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("short_press_max above long_press should fail")
	}
}

func TestCharsPerLineMustBeOffered(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.UI.CharsPerLine = 35
	if err := cfg.Validate(); err == nil {
		t.Fatal("35 is not a selectable line width")
	}
}

func TestPiPinsOnlyCheckedForPiProfile(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Pi.Pins.Power = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sim profile should ignore pi pins: %v", err)
	}
	cfg.App.Profile = ProfilePi
	if err := cfg.Validate(); err == nil {
		t.Fatal("pi profile without a power pin should fail")
	}
}

func TestPinsMapSkipsEmpty(t *testing.T) {
	pins := PinsConfig{Power: "GPIO3", Confirm: "GPIO26"}
	m := pins.Map()
	if len(m) != 2 || m[input.Power] != "GPIO3" || m[input.Confirm] != "GPIO26" {
		t.Errorf("map = %v", m)
	}
}

func TestNoteOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.SaveMode = string(notes.SaveReplace)
	cfg.Storage.MaxFiles = 10
	opts := cfg.Storage.NoteOptions()
	if opts.SaveMode != notes.SaveReplace || opts.MaxFiles != 10 || opts.Dir != "notes" || opts.Uptime == nil {
		t.Errorf("opts = %+v", opts)
	}
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("MICROSLATE_ROOT", "/mnt/sd")
	yaml := `
app:
  log_level: debug
storage:
  root: ${MICROSLATE_ROOT}
  save_mode: replace
input:
  long_press: 3s
ui:
  orientation: landscape_ccw
  chars_per_line: 60
sim:
  token: abc
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(path, cfg)
	if err != nil || !found {
		t.Fatalf("found = %v err = %v", found, err)
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Storage.Root != "/mnt/sd" || cfg.Storage.SaveMode != "replace" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.MaxFiles != 50 {
		t.Errorf("default max_files lost: %d", cfg.Storage.MaxFiles)
	}
	if cfg.Input.LongPress != 3*time.Second || cfg.Input.ShortPressMax != input.DefaultShortPressMax {
		t.Errorf("input = %+v", cfg.Input)
	}
	if cfg.UI.Orientation != ui.LandscapeCCW || cfg.UI.CharsPerLine != 60 {
		t.Errorf("ui = %+v", cfg.UI)
	}
	if cfg.Sim.Token != "abc" || cfg.Sim.HTTPAddress != ":8080" {
		t.Errorf("sim = %+v", cfg.Sim)
	}
}

func TestLoadOptionalMissingFileUsesDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg)
	if err != nil || found {
		t.Fatalf("found = %v err = %v", found, err)
	}
	if cfg.App.Profile != ProfileSim {
		t.Errorf("profile = %q", cfg.App.Profile)
	}
}

func TestPiPanelChoice(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.Profile = ProfilePi
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default waveshare panel should pass: %v", err)
	}
	cfg.Pi.Panel = PanelSSD1306
	cfg.Pi.I2CBus = "1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ssd1306 panel should pass: %v", err)
	}
	cfg.Pi.I2CAddress = 0x80
	if err := cfg.Validate(); err == nil {
		t.Fatal("8-bit i2c address should fail")
	}
	cfg.Pi.I2CAddress = 0x3C
	cfg.Pi.Panel = "lcd"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown panel should fail")
	}
}
