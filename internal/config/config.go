// Package config handles service configuration
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/textcamera/textcamera/internal/capture"
	"github.com/textcamera/textcamera/internal/mosaic"
	"github.com/textcamera/textcamera/internal/pipeline"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	WatchAddr       string // server address dialed by textcam-watch
	LogLevel        string
	CaptureSource   string // noise or still
	CaptureImage    string
	CaptureCommand  string  // snapshot command line, {out} is the output file
	CaptureRate     float64 // Hz
	SensorWidth     int
	SensorHeight    int
	SensorRotation  int // degrees clockwise to upright
	Orientation     string
	Glyphs          string
	PortraitWidth   int
	PortraitHeight  int
	TileCols        int
	TileRows        int
	MaxHashDistance int // negative disables change filtering
	SerialDevice    string
	SerialBaud      int
	TerminalOutput  bool
}

func Load() *Config {
	return &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		GRPCAddr:        getEnv("GRPC_ADDR", ":50061"),
		WatchAddr:       getEnv("WATCH_ADDR", "localhost:50061"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CaptureSource:   getEnv("CAPTURE_SOURCE", capture.KindNoise),
		CaptureImage:    getEnv("CAPTURE_IMAGE", ""),
		CaptureCommand:  getEnv("CAPTURE_COMMAND", ""),
		CaptureRate:     getEnvFloat("CAPTURE_RATE", capture.DefaultRate),
		SensorWidth:     getEnvInt("SENSOR_WIDTH", capture.DefaultSensorWidth),
		SensorHeight:    getEnvInt("SENSOR_HEIGHT", capture.DefaultSensorHeight),
		SensorRotation:  getEnvInt("SENSOR_ROTATION", 90),
		Orientation:     getEnv("ORIENTATION", "portrait"),
		Glyphs:          getEnv("GLYPHS", mosaic.DefaultGlyphs),
		PortraitWidth:   getEnvInt("PORTRAIT_WIDTH", 480),
		PortraitHeight:  getEnvInt("PORTRAIT_HEIGHT", 640),
		TileCols:        getEnvInt("TILE_COLS", 96),
		TileRows:        getEnvInt("TILE_ROWS", 128),
		MaxHashDistance: getEnvInt("MAX_HASH_DISTANCE", 0),
		SerialDevice:    getEnv("SERIAL_DEVICE", ""),
		SerialBaud:      getEnvInt("SERIAL_BAUD", 115200),
		TerminalOutput:  getEnvBool("TERMINAL_OUTPUT", false),
	}
}

// Validate reports the first unusable setting as CodeConfigInvalid.
func (c *Config) Validate() error {
	if _, err := c.Pipeline(); err != nil {
		return err
	}
	if _, err := pipeline.ParseOrientation(c.Orientation); err != nil {
		return invalid(err, "ORIENTATION")
	}
	switch c.CaptureSource {
	case capture.KindNoise, capture.KindSnapshot:
	case capture.KindStill:
		if c.CaptureImage == "" {
			return apperrors.New(apperrors.CodeConfigInvalid, "CAPTURE_IMAGE is required for the still source")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "CAPTURE_SOURCE %q is not noise, still or snapshot", c.CaptureSource)
	}
	if c.CaptureRate <= 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "CAPTURE_RATE %v must be positive", c.CaptureRate)
	}
	if c.SensorWidth <= 0 || c.SensorHeight <= 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "sensor size %dx%d", c.SensorWidth, c.SensorHeight)
	}
	switch c.SensorRotation {
	case 0, 90, 180, 270:
	default:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "SENSOR_ROTATION %d is not a multiple of 90", c.SensorRotation)
	}
	return c.validateCrop()
}

// validateCrop checks that the upright sensor image covers both the portrait
// and the landscape crop, so switching orientation never starves the display.
func (c *Config) validateCrop() error {
	w, h := c.SensorWidth, c.SensorHeight
	if c.SensorRotation == 90 || c.SensorRotation == 270 {
		w, h = h, w
	}
	pw, ph := c.PortraitWidth, c.PortraitHeight
	if pw > w || ph > h || ph > w || pw > h {
		return apperrors.Newf(apperrors.CodeConfigInvalid,
			"upright sensor %dx%d cannot crop both %dx%d and %dx%d", w, h, pw, ph, ph, pw)
	}
	return nil
}

// Pipeline builds the pipeline configuration from the glyph and layout
// settings.
func (c *Config) Pipeline() (pipeline.Config, error) {
	alphabet, err := mosaic.NewAlphabet(c.Glyphs)
	if err != nil {
		return pipeline.Config{}, invalid(err, "GLYPHS")
	}
	cfg := pipeline.Config{
		Alphabet: alphabet,
		Portrait: pipeline.Layout{
			TargetWidth:  c.PortraitWidth,
			TargetHeight: c.PortraitHeight,
			Cols:         c.TileCols,
			Rows:         c.TileRows,
		},
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, invalid(err, "PORTRAIT_WIDTH/PORTRAIT_HEIGHT/TILE_COLS/TILE_ROWS")
	}
	return cfg, nil
}

// StartOrientation returns the parsed ORIENTATION, portrait if invalid.
func (c *Config) StartOrientation() pipeline.Orientation {
	o, _ := pipeline.ParseOrientation(c.Orientation)
	return o
}

// CaptureOptions returns the capture source settings.
func (c *Config) CaptureOptions() capture.Options {
	return capture.Options{
		Kind:         c.CaptureSource,
		ImagePath:    c.CaptureImage,
		Command:      strings.Fields(c.CaptureCommand),
		SensorWidth:  c.SensorWidth,
		SensorHeight: c.SensorHeight,
		Rotation:     c.SensorRotation,
	}
}

// SlogLevel maps LOG_LEVEL to a slog level, info if unrecognized.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func invalid(err error, key string) error {
	return apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "%s", key)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
