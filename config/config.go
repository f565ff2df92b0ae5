// Package config loads kiosk configuration: defaults, then an optional
// YAML file pointed at by FACEBADGE_CONFIG, then FACEBADGE_* env vars.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const envPrefix = "FACEBADGE_"

type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// CameraBackend selects the capture implementation: opencv or v4l2.
	CameraBackend string `koanf:"camera_backend"`

	// CameraDevice is an index for opencv ("0") or a /dev path for v4l2.
	CameraDevice string `koanf:"camera_device"`

	FacesDir      string `koanf:"faces_dir"`
	AvatarsDir    string `koanf:"avatars_dir"`
	AnimationsDir string `koanf:"animations_dir"`

	// ModelsDir holds the dlib model files.
	ModelsDir string `koanf:"models_dir"`

	// Tolerance is the maximum embedding distance for a match.
	Tolerance float64 `koanf:"tolerance"`

	// FramesRequired is the consecutive-detection count before a badge
	// fires.
	FramesRequired int `koanf:"frames_required"`

	// CooldownSeconds suppresses re-triggering after a confirmed badge.
	CooldownSeconds int `koanf:"cooldown_seconds"`

	// FrameIntervalMS is the sleep between loop iterations.
	FrameIntervalMS int `koanf:"frame_interval_ms"`

	FadeSteps   int `koanf:"fade_steps"`
	FadeDelayMS int `koanf:"fade_delay_ms"`
	HoldSeconds int `koanf:"hold_seconds"`

	// Display selects the output: lcd (SPI panel) or preview (window).
	Display string `koanf:"display"`

	// Rotation of the panel in degrees: 0, 90, 180, 270.
	Rotation int `koanf:"rotation"`

	Greeting string `koanf:"greeting"`

	// SPI wiring for the lcd display. Empty spi_port means the first
	// available port.
	SPIPort          string `koanf:"spi_port"`
	PinDC            string `koanf:"pin_dc"`
	PinRST           string `koanf:"pin_rst"`
	PinBL            string `koanf:"pin_bl"`
	BacklightPercent int    `koanf:"backlight_percent"`
}

// New returns the built-in defaults, tuned for the Pi kiosk.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		CameraBackend:    "opencv",
		CameraDevice:     "0",
		FacesDir:         "known_faces",
		AvatarsDir:       "avatars",
		AnimationsDir:    "animations/idle",
		ModelsDir:        "/usr/share/facebadge/models",
		Tolerance:        0.6,
		FramesRequired:   3,
		CooldownSeconds:  5,
		FrameIntervalMS:  300,
		FadeSteps:        20,
		FadeDelayMS:      20,
		HoldSeconds:      3,
		Display:          "lcd",
		Rotation:         180,
		Greeting:         "Welcome!",
		SPIPort:          "",
		PinDC:            "GPIO25",
		PinRST:           "GPIO27",
		PinBL:            "GPIO18",
		BacklightPercent: 50,
	}
}

// Load layers file and env configuration over the defaults and
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", path)
		}
	}

	// FACEBADGE_FADE_STEPS -> fade_steps; underscores are the koanf
	// keys themselves, so only the prefix is stripped.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrap(err, "load env")
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CameraBackend {
	case "opencv", "v4l2":
	default:
		return errors.Errorf("camera_backend must be opencv or v4l2, got %q", c.CameraBackend)
	}
	switch c.Display {
	case "lcd", "preview":
	default:
		return errors.Errorf("display must be lcd or preview, got %q", c.Display)
	}
	switch c.Rotation {
	case 0, 90, 180, 270:
	default:
		return errors.Errorf("rotation must be 0/90/180/270, got %d", c.Rotation)
	}
	if c.FramesRequired < 1 {
		return errors.New("frames_required must be at least 1")
	}
	if c.Tolerance <= 0 {
		return errors.New("tolerance must be positive")
	}
	if c.FadeSteps < 1 {
		return errors.New("fade_steps must be at least 1")
	}
	if c.FacesDir == "" {
		return errors.New("faces_dir must not be empty")
	}
	return nil
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

func (c *Config) FadeDelay() time.Duration {
	return time.Duration(c.FadeDelayMS) * time.Millisecond
}

func (c *Config) Hold() time.Duration {
	return time.Duration(c.HoldSeconds) * time.Second
}
