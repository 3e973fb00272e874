package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/microslate/internal/device"
	"github.com/starford/microslate/internal/input"
	"github.com/starford/microslate/internal/notes"
	"github.com/starford/microslate/internal/ui"
)

// Deployment profiles.
const (
	ProfileSim = "sim"
	ProfilePi  = "pi"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Input   InputConfig       `yaml:"input"`
	UI      UIConfig          `yaml:"ui"`
	Sim     SimConfig         `yaml:"sim"`
	Pi      PiConfig          `yaml:"pi"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Input.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := c.UI.Validate(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	if c.App.Profile == ProfilePi {
		if err := c.Pi.Validate(); err != nil {
			return fmt.Errorf("pi: %w", err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Profile  string     `yaml:"profile"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Profile, validation.Required, validation.In(ProfileSim, ProfilePi)),
	)
}

// StorageConfig describes the note layout on the card.
type StorageConfig struct {
	Root           string `yaml:"root"`
	NotesDir       string `yaml:"notes_dir"`
	CounterFile    string `yaml:"counter_file"`
	SaveMode       string `yaml:"save_mode"`
	MaxFiles       int    `yaml:"max_files"`
	MaxTitleLen    int    `yaml:"max_title_len"`
	MaxFilenameLen int    `yaml:"max_filename_len"`
	TitleScanBytes int    `yaml:"title_scan_bytes"`
	BufferSize     int    `yaml:"buffer_size"`
	Watch          bool   `yaml:"watch"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.NotesDir, validation.Required),
		validation.Field(&c.CounterFile, validation.Required),
		validation.Field(&c.SaveMode, validation.Required,
			validation.In(string(notes.SaveDeleteRename), string(notes.SaveReplace))),
		validation.Field(&c.MaxFiles, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxTitleLen, validation.Required, validation.Min(8)),
		validation.Field(&c.MaxFilenameLen, validation.Required, validation.Min(8)),
		validation.Field(&c.TitleScanBytes, validation.Required, validation.Min(16)),
		validation.Field(&c.BufferSize, validation.Required, validation.Min(1024)),
	)
}

// NoteOptions converts the section into store options.
func (c *StorageConfig) NoteOptions() notes.Options {
	opts := notes.DefaultOptions()
	opts.Dir = c.NotesDir
	opts.CounterFile = c.CounterFile
	opts.SaveMode = notes.SaveMode(c.SaveMode)
	opts.MaxFiles = c.MaxFiles
	opts.MaxTitleLen = c.MaxTitleLen
	opts.MaxFilenameLen = c.MaxFilenameLen
	opts.TitleScanBytes = c.TitleScanBytes
	opts.BufferSize = c.BufferSize
	return opts
}

// InputConfig holds queue and button timing.
type InputConfig struct {
	QueueSize     int           `yaml:"queue_size"`
	LongPress     time.Duration `yaml:"long_press"`
	ShortPressMin time.Duration `yaml:"short_press_min"`
	ShortPressMax time.Duration `yaml:"short_press_max"`
	ADCSamples    int           `yaml:"adc_samples"`
	// ADCFallback enables raw-averaged ladder sampling in the Bluetooth screen.
	ADCFallback bool `yaml:"adc_fallback"`
}

// Validate validates the input configuration.
func (c *InputConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.QueueSize, validation.Required, validation.Min(2)),
		validation.Field(&c.LongPress, validation.Required),
		validation.Field(&c.ShortPressMin, validation.Required),
		validation.Field(&c.ShortPressMax, validation.Required),
		validation.Field(&c.ADCSamples, validation.Required, validation.Min(1), validation.Max(64)),
	); err != nil {
		return err
	}
	if c.ShortPressMin >= c.ShortPressMax || c.ShortPressMax >= c.LongPress {
		return fmt.Errorf("press thresholds must satisfy short_press_min < short_press_max < long_press")
	}
	return nil
}

// UIConfig holds dispatcher and loop timing.
type UIConfig struct {
	RedrawInterval    time.Duration  `yaml:"redraw_interval"`
	BTRefreshInterval time.Duration  `yaml:"bt_refresh_interval"`
	IdleTimeout       time.Duration  `yaml:"idle_timeout"`
	Tick              time.Duration  `yaml:"tick"`
	CharsPerLine      int            `yaml:"chars_per_line"`
	Orientation       ui.Orientation `yaml:"orientation"`
}

// Validate validates the UI configuration.
func (c *UIConfig) Validate() error {
	widths := make([]any, len(ui.LineWidths))
	for i, w := range ui.LineWidths {
		widths[i] = w
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.RedrawInterval, validation.Required),
		validation.Field(&c.BTRefreshInterval, validation.Required),
		validation.Field(&c.IdleTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Tick, validation.Required, validation.Min(time.Millisecond), validation.Max(time.Second)),
		validation.Field(&c.CharsPerLine, validation.Required, validation.In(widths...)),
	)
}

// SimConfig configures the host simulator surfaces.
type SimConfig struct {
	// HTTPAddress serves the simulator API; empty disables it.
	HTTPAddress string `yaml:"http_address"`
	// Token, when set, is required as a Bearer token on every API call.
	Token    string `yaml:"token"`
	Terminal bool   `yaml:"terminal"`
	// ADCNoise is the jitter amplitude added to simulated ladder readings.
	ADCNoise int `yaml:"adc_noise"`
}

// Pi panel choices.
const (
	PanelWaveshare = "waveshare"
	PanelSSD1306   = "ssd1306"
)

// PiConfig names the GPIO pins and the panel of the Raspberry Pi build.
type PiConfig struct {
	Pins PinsConfig `yaml:"pins"`
	// Panel selects the Waveshare e-paper HAT on SPI or an SSD1306 OLED on I2C.
	Panel      string `yaml:"panel"`
	SPIPort    string `yaml:"spi_port"`
	I2CBus     string `yaml:"i2c_bus"`
	I2CAddress uint16 `yaml:"i2c_address"`
}

// Validate validates the Pi configuration.
func (c *PiConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Panel, validation.Required, validation.In(PanelWaveshare, PanelSSD1306)),
		validation.Field(&c.I2CAddress, validation.Max(uint16(0x7F))),
	); err != nil {
		return err
	}
	return c.Pins.Validate()
}

// PinsConfig maps each control to a periph pin name such as "GPIO6".
type PinsConfig struct {
	Up      string `yaml:"up"`
	Down    string `yaml:"down"`
	Left    string `yaml:"left"`
	Right   string `yaml:"right"`
	Confirm string `yaml:"confirm"`
	Back    string `yaml:"back"`
	Power   string `yaml:"power"`
}

// Validate requires at least the power and confirm pins.
func (c *PinsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Power, validation.Required),
		validation.Field(&c.Confirm, validation.Required),
	)
}

// Map returns the configured pins keyed by control, skipping empty names.
func (c *PinsConfig) Map() map[input.Button]string {
	all := map[input.Button]string{
		input.Up:      c.Up,
		input.Down:    c.Down,
		input.Left:    c.Left,
		input.Right:   c.Right,
		input.Confirm: c.Confirm,
		input.Back:    c.Back,
		input.Power:   c.Power,
	}
	out := make(map[input.Button]string, len(all))
	for b, name := range all {
		if name != "" {
			out[b] = name
		}
	}
	return out
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Profile:  ProfileSim,
		},
		Storage: StorageConfig{
			Root:           "./card",
			NotesDir:       "notes",
			CounterFile:    ".counter",
			SaveMode:       string(notes.SaveDeleteRename),
			MaxFiles:       50,
			MaxTitleLen:    64,
			MaxFilenameLen: 64,
			TitleScanBytes: 256,
			BufferSize:     32 * 1024,
			Watch:          true,
		},
		Input: InputConfig{
			QueueSize:     input.DefaultQueueSize,
			LongPress:     input.DefaultLongPress,
			ShortPressMin: input.DefaultShortPressMin,
			ShortPressMax: input.DefaultShortPressMax,
			ADCSamples:    8,
			ADCFallback:   true,
		},
		UI: UIConfig{
			RedrawInterval:    ui.DefaultRedrawInterval,
			BTRefreshInterval: ui.DefaultBTRefreshInterval,
			IdleTimeout:       device.DefaultIdleTimeout,
			Tick:              device.DefaultTick,
			CharsPerLine:      40,
			Orientation:       ui.Portrait,
		},
		Sim: SimConfig{
			HTTPAddress: ":8080",
			Terminal:    true,
		},
		Pi: PiConfig{
			Panel:      PanelWaveshare,
			I2CAddress: 0x3C,
			Pins: PinsConfig{
				Up:      "GPIO5",
				Down:    "GPIO6",
				Left:    "GPIO13",
				Right:   "GPIO19",
				Confirm: "GPIO26",
				Back:    "GPIO21",
				Power:   "GPIO3",
			},
		},
	}
}
