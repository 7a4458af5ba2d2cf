// Package config loads the startup configuration of palmscroll.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// PALMSCROLL_* environment variables. Command-line flags are applied by the
// caller afterwards and the result is validated once. Nothing is
// reconfigured while the frame loop runs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/palmscroll/internal/classifier"
	"github.com/ayusman/palmscroll/internal/debounce"
	"github.com/ayusman/palmscroll/internal/detector"
	"github.com/ayusman/palmscroll/internal/logger"
)

const (
	// DefaultConfigFilename is looked up in the working directory when no
	// path is given.
	DefaultConfigFilename = "palmscroll.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PALMSCROLL_"

	// DefaultFilePermissions is used when writing a config file.
	DefaultFilePermissions = 0o600
)

// Dispatch modes.
const (
	DispatchRobot  = "robot"
	DispatchPlugin = "plugin"
	DispatchLog    = "log"
)

var (
	errConfigIsNotSet = errors.New("configuration is not set")
	errModelRequired  = errors.New("model path must be provided")
	errDispatchMode   = errors.New("dispatch mode must be robot, plugin or log")
	errPluginRequired = errors.New("plugin dispatch needs a plugin name")
	errCameraSize     = errors.New("camera width and height must be positive")
	errLogLevel       = errors.New("unknown log level")
	errConfidence     = errors.New("detector confidences must lie in [0, 1]")
)

// Config is the full startup configuration.
type Config struct {
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL"`
	Model    ModelConfig    `yaml:"model"     envPrefix:"MODEL_"`
	Camera   CameraConfig   `yaml:"camera"    envPrefix:"CAMERA_"`
	Detector DetectorConfig `yaml:"detector"  envPrefix:"DETECTOR_"`
	Debounce DebounceConfig `yaml:"debounce"  envPrefix:"DEBOUNCE_"`
	Dispatch DispatchConfig `yaml:"dispatch"  envPrefix:"DISPATCH_"`
	Server   ServerConfig   `yaml:"server"    envPrefix:"SERVER_"`
	Journal  JournalConfig  `yaml:"journal"   envPrefix:"JOURNAL_"`
	// Preview opens a local window with the overlay.
	Preview bool `yaml:"preview" env:"PREVIEW"`
	// Tray shows the system tray menu.
	Tray bool `yaml:"tray" env:"TRAY"`
}

// ModelConfig locates the keypoint classifier.
type ModelConfig struct {
	Path string `yaml:"path" env:"PATH"`
	// Classes is the expected number of model outputs. Zero accepts any.
	Classes int `yaml:"classes" env:"CLASSES"`
}

// CameraConfig selects and sizes the capture device.
type CameraConfig struct {
	Device int  `yaml:"device" env:"DEVICE"`
	Width  int  `yaml:"width"  env:"WIDTH"`
	Height int  `yaml:"height" env:"HEIGHT"`
	FPS    int  `yaml:"fps"    env:"FPS"`
	Mirror bool `yaml:"mirror" env:"MIRROR"`
}

// DetectorConfig is passed to the MediaPipe service.
type DetectorConfig struct {
	ModelComplexity int     `yaml:"model_complexity"         env:"MODEL_COMPLEXITY"`
	MinConfidence   float64 `yaml:"min_detection_confidence" env:"MIN_DETECTION_CONFIDENCE"`
	MinTrackingConf float64 `yaml:"min_tracking_confidence"  env:"MIN_TRACKING_CONFIDENCE"`
}

// DebounceConfig holds the controller parameters.
type DebounceConfig struct {
	StableFrames int           `yaml:"stable_frames" env:"STABLE_FRAMES"`
	Interval     time.Duration `yaml:"interval"      env:"INTERVAL"`
	Magnitude    int           `yaml:"magnitude"     env:"MAGNITUDE"`
	OpenClass    int           `yaml:"open_class"    env:"OPEN_CLASS"`
	FistClass    int           `yaml:"fist_class"    env:"FIST_CLASS"`
}

// DispatchConfig chooses how scroll actions reach the OS.
type DispatchConfig struct {
	Mode      string        `yaml:"mode"       env:"MODE"`
	Plugin    string        `yaml:"plugin"     env:"PLUGIN"`
	PluginDir string        `yaml:"plugin_dir" env:"PLUGIN_DIR"`
	Timeout   time.Duration `yaml:"timeout"    env:"TIMEOUT"`
}

// ServerConfig controls the local observability server. An empty address
// disables it.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// JournalConfig locates the session journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// Default returns the stock configuration.
func Default() *Config {
	dc := detector.DefaultConfig()
	db := debounce.DefaultConfig()

	return &Config{
		LogLevel: "info",
		Model: ModelConfig{
			Path:    filepath.Join("model", "keypoint_classifier", "keypoint_classifier.tflite"),
			Classes: 0,
		},
		Camera: CameraConfig{
			Device: 0,
			Width:  1280,
			Height: 720,
			FPS:    30,
			Mirror: true,
		},
		Detector: DetectorConfig{
			ModelComplexity: dc.ModelComplexity,
			MinConfidence:   dc.MinConfidence,
			MinTrackingConf: dc.MinTrackingConf,
		},
		Debounce: DebounceConfig{
			StableFrames: db.StableFrames,
			Interval:     db.Interval,
			Magnitude:    db.Magnitude,
			OpenClass:    int(db.OpenClass),
			FistClass:    int(db.FistClass),
		},
		Dispatch: DispatchConfig{
			Mode:    DispatchRobot,
			Timeout: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Preview: true,
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment. A missing file is only an error when path was given
// explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overlays the PALMSCROLL_* environment variables on cfg.
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks cfg and fills in defaults for optional zero values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errLogLevel, cfg.LogLevel)
	}

	if cfg.Model.Path == "" {
		return errModelRequired
	}

	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		return errCameraSize
	}

	d := cfg.Detector
	if d.MinConfidence < 0 || d.MinConfidence > 1 || d.MinTrackingConf < 0 || d.MinTrackingConf > 1 {
		return errConfidence
	}

	if err := cfg.DebounceConfig().Validate(); err != nil {
		return fmt.Errorf("debounce: %w", err)
	}

	switch cfg.Dispatch.Mode {
	case DispatchRobot, DispatchLog:
	case DispatchPlugin:
		if cfg.Dispatch.Plugin == "" {
			return errPluginRequired
		}
	default:
		return fmt.Errorf("%w: %q", errDispatchMode, cfg.Dispatch.Mode)
	}

	if cfg.Dispatch.Timeout <= 0 {
		cfg.Dispatch.Timeout = 2 * time.Second
	}

	if cfg.Camera.FPS <= 0 {
		cfg.Camera.FPS = 30
	}

	return nil
}

// DebounceConfig converts the debounce section to controller parameters.
func (c *Config) DebounceConfig() debounce.Config {
	return debounce.Config{
		StableFrames: c.Debounce.StableFrames,
		Interval:     c.Debounce.Interval,
		Magnitude:    c.Debounce.Magnitude,
		OpenClass:    classifier.Class(c.Debounce.OpenClass),
		FistClass:    classifier.Class(c.Debounce.FistClass),
	}
}

// DetectorConfig converts the detector section.
func (c *Config) DetectorConfig() detector.Config {
	return detector.Config{
		ModelComplexity: c.Detector.ModelComplexity,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConf,
	}
}
