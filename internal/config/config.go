// Package config loads the practice server settings from YAML or TOML and
// watches the file for changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gg/text"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/glyph-practice-mcp/internal/canvas"
	"github.com/ironsheep/glyph-practice-mcp/internal/detection"
	"github.com/ironsheep/glyph-practice-mcp/internal/imaging"
	"github.com/ironsheep/glyph-practice-mcp/internal/logging"
)

// Environment overrides, applied after the file is read.
const (
	EnvLogLevel        = "GLYPH_PRACTICE_LOG_LEVEL"
	EnvWatermarkFont   = "GLYPH_PRACTICE_WATERMARK_FONT"
	EnvDetectorBackend = "GLYPH_PRACTICE_DETECTOR_BACKEND"
)

// Config is the complete server configuration.
type Config struct {
	Canvas   CanvasConfig   `yaml:"canvas" toml:"canvas"`
	Detector DetectorConfig `yaml:"detector" toml:"detector"`
	Session  SessionConfig  `yaml:"session" toml:"session"`
	OCR      OCRConfig      `yaml:"ocr" toml:"ocr"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// CanvasConfig holds the defaults for new drawing surfaces.
type CanvasConfig struct {
	Width       int     `yaml:"width" toml:"width"`
	Height      int     `yaml:"height" toml:"height"`
	MaxSide     int     `yaml:"max_side" toml:"max_side"`
	Background  string  `yaml:"background" toml:"background"`
	InkColor    string  `yaml:"ink_color" toml:"ink_color"`
	InkWidth    float64 `yaml:"ink_width" toml:"ink_width"`
	EraserWidth float64 `yaml:"eraser_width" toml:"eraser_width"`

	Pressure bool                 `yaml:"pressure" toml:"pressure"`
	Dynamics canvas.BrushDynamics `yaml:"dynamics" toml:"dynamics"`

	Smoothing  bool   `yaml:"smoothing" toml:"smoothing"`
	Guides     bool   `yaml:"guides" toml:"guides"`
	GuideColor string `yaml:"guide_color" toml:"guide_color"`

	KeepWatermark    bool    `yaml:"keep_watermark" toml:"keep_watermark"`
	WatermarkColor   string  `yaml:"watermark_color" toml:"watermark_color"`
	WatermarkOpacity float64 `yaml:"watermark_opacity" toml:"watermark_opacity"`
	WatermarkScale   float64 `yaml:"watermark_scale" toml:"watermark_scale"`
	// WatermarkFont is a TTF/OTF path. Empty disables the watermark.
	WatermarkFont string `yaml:"watermark_font" toml:"watermark_font"`
}

// DetectorConfig selects the vision backend and scoring constants.
type DetectorConfig struct {
	Backend      string                     `yaml:"backend" toml:"backend"`
	InkThreshold int                        `yaml:"ink_threshold" toml:"ink_threshold"`
	MaxSide      int                        `yaml:"max_side" toml:"max_side"`
	Scoring      detection.HeuristicPolicy `yaml:"scoring" toml:"scoring"`
}

// SessionConfig controls the MCP session registry.
type SessionConfig struct {
	// LockInputDuringDetection rejects pointer input while a detection runs.
	LockInputDuringDetection bool `yaml:"lock_input_during_detection" toml:"lock_input_during_detection"`
	// MaxSessions bounds open canvases. Zero means unlimited.
	MaxSessions int `yaml:"max_sessions" toml:"max_sessions"`
}

// OCRConfig controls the Tesseract glyph reader.
type OCRConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Language string `yaml:"language" toml:"language"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	co := canvas.DefaultOptions()
	return &Config{
		Canvas: CanvasConfig{
			Width:            co.Width,
			Height:           co.Height,
			MaxSide:          co.MaxSide,
			Background:       co.Background,
			InkColor:         co.InkColor,
			InkWidth:         co.InkWidth,
			EraserWidth:      co.EraserWidth,
			Pressure:         co.Pressure,
			Dynamics:         co.Dynamics,
			Smoothing:        co.Smoothing,
			Guides:           co.Guides,
			GuideColor:       co.GuideColor,
			KeepWatermark:    co.KeepWatermark,
			WatermarkColor:   co.WatermarkColor,
			WatermarkOpacity: co.WatermarkOpacity,
			WatermarkScale:   co.WatermarkScale,
		},
		Detector: DetectorConfig{
			Backend:      detection.BackendNative,
			InkThreshold: detection.DefaultInkThreshold,
			MaxSide:      detection.DefaultMaxSide,
			Scoring:      detection.DefaultPolicy(),
		},
		Session: SessionConfig{
			LockInputDuringDetection: true,
			MaxSessions:              64,
		},
		OCR: OCRConfig{
			Enabled:  true,
			Language: "jpn",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults plus overrides.
// The format follows the extension: .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document is not an error; it leaves the defaults.
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvWatermarkFont); v != "" {
		c.Canvas.WatermarkFont = v
	}
	if v := os.Getenv(EnvDetectorBackend); v != "" {
		c.Detector.Backend = v
	}
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error

	cv := c.Canvas
	if cv.Width < 1 || cv.Height < 1 {
		errs = append(errs, fmt.Errorf("canvas size %dx%d must be positive", cv.Width, cv.Height))
	}
	if cv.MaxSide < 1 {
		errs = append(errs, fmt.Errorf("canvas max_side %d must be positive", cv.MaxSide))
	}
	for name, hex := range map[string]string{
		"background":      cv.Background,
		"ink_color":       cv.InkColor,
		"guide_color":     cv.GuideColor,
		"watermark_color": cv.WatermarkColor,
	} {
		if _, err := imaging.ParseColor(hex); err != nil {
			errs = append(errs, fmt.Errorf("canvas %s: %w", name, err))
		}
	}
	if cv.InkWidth <= 0 || cv.EraserWidth <= 0 {
		errs = append(errs, fmt.Errorf("canvas brush widths must be positive"))
	}
	d := cv.Dynamics
	if d.MinWidth <= 0 || d.MaxWidth < d.MinWidth {
		errs = append(errs, fmt.Errorf("canvas dynamics width range [%g, %g] is invalid", d.MinWidth, d.MaxWidth))
	}
	if cv.WatermarkOpacity < 0 || cv.WatermarkOpacity > 1 {
		errs = append(errs, fmt.Errorf("canvas watermark_opacity %g outside 0..1", cv.WatermarkOpacity))
	}

	if _, err := detection.NewProcessor(c.Detector.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Detector.InkThreshold < 0 || c.Detector.InkThreshold > 255 {
		errs = append(errs, fmt.Errorf("detector ink_threshold %d outside 0..255", c.Detector.InkThreshold))
	}
	if err := c.Detector.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector scoring: %w", err))
	}

	if c.Session.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("session max_sessions %d must not be negative", c.Session.MaxSessions))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// CanvasOptions converts the canvas section into surface options. font may
// be nil.
func (c *Config) CanvasOptions(font *text.FontSource, log *zap.Logger) canvas.Options {
	cv := c.Canvas
	return canvas.Options{
		Width:            cv.Width,
		Height:           cv.Height,
		MaxSide:          cv.MaxSide,
		Background:       cv.Background,
		InkColor:         cv.InkColor,
		InkWidth:         cv.InkWidth,
		EraserWidth:      cv.EraserWidth,
		Pressure:         cv.Pressure,
		Dynamics:         cv.Dynamics,
		Smoothing:        cv.Smoothing,
		Guides:           cv.Guides,
		GuideColor:       cv.GuideColor,
		KeepWatermark:    cv.KeepWatermark,
		WatermarkColor:   cv.WatermarkColor,
		WatermarkOpacity: cv.WatermarkOpacity,
		WatermarkScale:   cv.WatermarkScale,
		Font:             font,
		Logger:           log,
	}
}

// DetectorOptions converts the detector section.
func (c *Config) DetectorOptions(log *zap.Logger) detection.Options {
	return detection.Options{
		InkThreshold: uint8(c.Detector.InkThreshold),
		MaxSide:      c.Detector.MaxSide,
		Policy:       c.Detector.Scoring,
		Logger:       log,
	}
}
