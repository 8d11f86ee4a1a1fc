// Package config loads valentine's settings from a TOML file and the
// environment, and the narrative script from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/ayusman/valentine/internal/capture"
	"github.com/ayusman/valentine/internal/detector"
	"github.com/ayusman/valentine/internal/story"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all valentine configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Camera   CameraConfig   `toml:"camera"`
	Detector DetectorConfig `toml:"detector"`
	Story    StoryConfig    `toml:"story"`
	Store    StoreConfig    `toml:"store"`

	// Tray shows the system tray menu.
	Tray bool `toml:"tray" env:"VALENTINE_TRAY"`
}

type ServerConfig struct {
	Addr      string `toml:"addr" env:"VALENTINE_ADDR"`
	StaticDir string `toml:"static_dir" env:"VALENTINE_STATIC_DIR"`
}

type CameraConfig struct {
	Enabled bool `toml:"enabled" env:"VALENTINE_CAMERA"`
	Device  int  `toml:"device" env:"VALENTINE_CAMERA_DEVICE"`
	Width   int  `toml:"width" env:"VALENTINE_CAMERA_WIDTH"`
	Height  int  `toml:"height" env:"VALENTINE_CAMERA_HEIGHT"`
	FPS     int  `toml:"fps" env:"VALENTINE_CAMERA_FPS"`
}

type DetectorConfig struct {
	MinConfidence      float64 `toml:"min_confidence" env:"VALENTINE_MIN_CONFIDENCE"`
	MinTrackingConf    float64 `toml:"min_tracking_confidence" env:"VALENTINE_MIN_TRACKING_CONFIDENCE"`
	Script             string  `toml:"script" env:"VALENTINE_DETECTOR_SCRIPT"`
	Python             string  `toml:"python" env:"VALENTINE_PYTHON"`
	IdleTimeoutSeconds int     `toml:"idle_timeout_seconds" env:"VALENTINE_DETECTOR_IDLE_TIMEOUT"`
}

type StoryConfig struct {
	ScatterMs int `toml:"scatter_ms" env:"VALENTINE_SCATTER_MS"`
	LetterMs  int `toml:"letter_ms" env:"VALENTINE_LETTER_MS"`
	PoemMs    int `toml:"poem_ms" env:"VALENTINE_POEM_MS"`
	// Script is an optional YAML file overriding the narrative text.
	Script string `toml:"script" env:"VALENTINE_SCRIPT"`
}

type StoreConfig struct {
	// Path of the SQLite journal. Empty disables journaling.
	Path string `toml:"path" env:"VALENTINE_DB"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	delays := story.DefaultDelays()

	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Camera: CameraConfig{
			Enabled: true,
			Device:  0,
			Width:   640,
			Height:  480,
			FPS:     15,
		},
		Detector: DetectorConfig{
			MinConfidence:      det.MinConfidence,
			MinTrackingConf:    det.MinTrackingConf,
			IdleTimeoutSeconds: int(det.IdleTimeout / time.Second),
		},
		Story: StoryConfig{
			ScatterMs: int(delays.Scatter / time.Millisecond),
			LetterMs:  int(delays.Letter / time.Millisecond),
			PoemMs:    int(delays.Poem / time.Millisecond),
		},
		Store: StoreConfig{
			Path: "~/.valentine/valentine.db",
		},
	}
}

// Load reads the config file at path, or the first file found in the standard
// locations when path is empty, then applies VALENTINE_* environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.Server.StaticDir = expandHome(cfg.Server.StaticDir)
	cfg.Detector.Script = expandHome(cfg.Detector.Script)
	cfg.Story.Script = expandHome(cfg.Story.Script)
	cfg.Store.Path = expandHome(cfg.Store.Path)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks ranges and reports every problem at once.
func (c Config) Validate() error {
	var problems []string

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is empty")
	}
	if c.Camera.Enabled {
		if c.Camera.Device < 0 {
			problems = append(problems, "camera.device must be >= 0")
		}
		if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
			problems = append(problems, "camera resolution must be positive")
		}
		if c.Camera.FPS <= 0 {
			problems = append(problems, "camera.fps must be positive")
		}
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		problems = append(problems, "detector.min_confidence must be within [0,1]")
	}
	if c.Detector.MinTrackingConf < 0 || c.Detector.MinTrackingConf > 1 {
		problems = append(problems, "detector.min_tracking_confidence must be within [0,1]")
	}
	if c.Story.ScatterMs <= 0 || c.Story.LetterMs <= 0 || c.Story.PoemMs <= 0 {
		problems = append(problems, "story delays must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Delays converts the story timings.
func (c Config) Delays() story.Delays {
	return story.Delays{
		Scatter: time.Duration(c.Story.ScatterMs) * time.Millisecond,
		Letter:  time.Duration(c.Story.LetterMs) * time.Millisecond,
		Poem:    time.Duration(c.Story.PoemMs) * time.Millisecond,
	}
}

// DetectorConfig converts the detector settings.
func (c Config) DetectorConfig() detector.Config {
	cfg := detector.DefaultConfig()
	cfg.MinConfidence = c.Detector.MinConfidence
	cfg.MinTrackingConf = c.Detector.MinTrackingConf
	cfg.ScriptPath = c.Detector.Script
	cfg.Python = c.Detector.Python
	if c.Detector.IdleTimeoutSeconds > 0 {
		cfg.IdleTimeout = time.Duration(c.Detector.IdleTimeoutSeconds) * time.Second
	}
	return cfg
}

// CameraSettings converts the camera settings.
func (c Config) CameraSettings() capture.Settings {
	return capture.Settings{
		Device: c.Camera.Device,
		Width:  c.Camera.Width,
		Height: c.Camera.Height,
		FPS:    c.Camera.FPS,
	}
}

// DataDir returns the directory holding the journal database.
func (c Config) DataDir() string {
	if c.Store.Path == "" {
		return ""
	}
	return filepath.Dir(c.Store.Path)
}

func configPaths() []string {
	var paths []string
	if p := os.Getenv("VALENTINE_CONFIG"); p != "" {
		paths = append(paths, expandHome(p))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".valentine", "config.toml"))
	}
	paths = append(paths, "valentine.toml")
	return paths
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
