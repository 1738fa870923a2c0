package config

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/textcamera/textcamera/internal/capture"
	"github.com/textcamera/textcamera/internal/pipeline"

	apperrors "github.com/textcamera/textcamera/internal/errors"
)

var envVars = []string{
	"HTTP_ADDR", "GRPC_ADDR", "WATCH_ADDR", "LOG_LEVEL", "CAPTURE_SOURCE", "CAPTURE_IMAGE", "CAPTURE_COMMAND",
	"CAPTURE_RATE", "SENSOR_WIDTH", "SENSOR_HEIGHT", "SENSOR_ROTATION",
	"ORIENTATION", "GLYPHS", "PORTRAIT_WIDTH", "PORTRAIT_HEIGHT", "TILE_COLS",
	"TILE_ROWS", "MAX_HASH_DISTANCE", "SERIAL_DEVICE", "SERIAL_BAUD",
	"TERMINAL_OUTPUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8000")
	}
	if cfg.GRPCAddr != ":50061" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":50061")
	}
	if cfg.WatchAddr != "localhost:50061" {
		t.Errorf("WatchAddr = %q, want %q", cfg.WatchAddr, "localhost:50061")
	}
	if cfg.CaptureSource != "noise" {
		t.Errorf("CaptureSource = %q, want noise", cfg.CaptureSource)
	}
	if cfg.CaptureRate != 10 {
		t.Errorf("CaptureRate = %f, want 10", cfg.CaptureRate)
	}
	if cfg.SensorWidth != 640 || cfg.SensorHeight != 640 || cfg.SensorRotation != 90 {
		t.Errorf("sensor = %dx%d rot %d, want 640x640 rot 90", cfg.SensorWidth, cfg.SensorHeight, cfg.SensorRotation)
	}
	if cfg.PortraitWidth != 480 || cfg.PortraitHeight != 640 || cfg.TileCols != 96 || cfg.TileRows != 128 {
		t.Errorf("layout = %dx%d / %dx%d", cfg.PortraitWidth, cfg.PortraitHeight, cfg.TileCols, cfg.TileRows)
	}
	if cfg.Glyphs != "@#%B0P2L7?/!;:-,. " {
		t.Errorf("Glyphs = %q", cfg.Glyphs)
	}
	if cfg.MaxHashDistance != 0 || cfg.SerialDevice != "" || cfg.SerialBaud != 115200 || cfg.TerminalOutput {
		t.Errorf("outputs = %d %q %d %v", cfg.MaxHashDistance, cfg.SerialDevice, cfg.SerialBaud, cfg.TerminalOutput)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("CAPTURE_SOURCE", "still")
	t.Setenv("CAPTURE_IMAGE", "/tmp/cat.png")
	t.Setenv("CAPTURE_RATE", "2.5")
	t.Setenv("SENSOR_ROTATION", "270")
	t.Setenv("ORIENTATION", "landscape")
	t.Setenv("GLYPHS", "#+. ")
	t.Setenv("MAX_HASH_DISTANCE", "-1")
	t.Setenv("SERIAL_DEVICE", "/dev/ttyUSB0")
	t.Setenv("TERMINAL_OUTPUT", "1")

	cfg := Load()

	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.CaptureRate != 2.5 {
		t.Errorf("CaptureRate = %f, want 2.5", cfg.CaptureRate)
	}
	if cfg.MaxHashDistance != -1 {
		t.Errorf("MaxHashDistance = %d, want -1", cfg.MaxHashDistance)
	}
	if !cfg.TerminalOutput {
		t.Error("TerminalOutput should be true")
	}
	if cfg.StartOrientation() != pipeline.Landscape {
		t.Errorf("StartOrientation() = %v, want landscape", cfg.StartOrientation())
	}
	opts := cfg.CaptureOptions()
	if opts.Kind != "still" || opts.ImagePath != "/tmp/cat.png" || opts.Rotation != 270 {
		t.Errorf("CaptureOptions() = %+v", opts)
	}
	pc, err := cfg.Pipeline()
	if err != nil {
		t.Fatalf("Pipeline() error: %v", err)
	}
	if pc.Alphabet.Len() != 4 {
		t.Errorf("alphabet len = %d, want 4", pc.Alphabet.Len())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestDefaultsRenderBothOrientations(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	pc, err := cfg.Pipeline()
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.New(pc)
	if err != nil {
		t.Fatal(err)
	}
	src, err := capture.Open(cfg.CaptureOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	tests := []struct {
		o          pipeline.Orientation
		cols, rows int
	}{
		{pipeline.Portrait, 96, 128},
		{pipeline.Landscape, 128, 96},
	}
	for _, tt := range tests {
		t.Run(tt.o.String(), func(t *testing.T) {
			f, err := src.Next(context.Background())
			if err != nil || f == nil {
				t.Fatalf("Next() = %v, %v", f, err)
			}
			m, err := p.Process(context.Background(), f, tt.o)
			if err != nil {
				t.Fatalf("Process() error: %v", err)
			}
			if m.Cols() != tt.cols || m.Rows() != tt.rows {
				t.Errorf("mosaic %dx%d, want %dx%d", m.Cols(), m.Rows(), tt.cols, tt.rows)
			}
		})
	}
}

func TestSnapshotCommand(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAPTURE_SOURCE", "snapshot")
	t.Setenv("CAPTURE_COMMAND", "fswebcam -q  --no-banner {out}")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	opts := cfg.CaptureOptions()
	want := []string{"fswebcam", "-q", "--no-banner", "{out}"}
	if len(opts.Command) != len(want) {
		t.Fatalf("Command = %q, want %q", opts.Command, want)
	}
	for i := range want {
		if opts.Command[i] != want[i] {
			t.Errorf("Command[%d] = %q, want %q", i, opts.Command[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"one glyph", func(c *Config) { c.Glyphs = "@" }},
		{"grid finer than crop", func(c *Config) { c.TileCols = 1000 }},
		{"zero crop", func(c *Config) { c.PortraitHeight = 0 }},
		{"bad orientation", func(c *Config) { c.Orientation = "diagonal" }},
		{"unknown source", func(c *Config) { c.CaptureSource = "webcam" }},
		{"still without image", func(c *Config) { c.CaptureSource = "still" }},
		{"zero rate", func(c *Config) { c.CaptureRate = 0 }},
		{"bad sensor", func(c *Config) { c.SensorWidth = -1 }},
		{"bad rotation", func(c *Config) { c.SensorRotation = 45 }},
		{"sensor misses landscape crop", func(c *Config) { c.SensorHeight = 480 }},
		{"sensor misses portrait crop", func(c *Config) { c.SensorWidth, c.SensorHeight = 480, 640 }},
	}
	clearEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			if err := cfg.Validate(); !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
				t.Errorf("Validate() = %v, want CONFIG_INVALID", err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetEnvHelpers(t *testing.T) {
	os.Setenv("TEST_STRING", "hello")
	defer os.Unsetenv("TEST_STRING")
	if v := getEnv("TEST_STRING", "default"); v != "hello" {
		t.Errorf("getEnv = %q, want %q", v, "hello")
	}
	if v := getEnv("NONEXISTENT", "default"); v != "default" {
		t.Errorf("getEnv = %q, want %q", v, "default")
	}

	os.Setenv("TEST_INT", " 42 ")
	defer os.Unsetenv("TEST_INT")
	if v := getEnvInt("TEST_INT", 0); v != 42 {
		t.Errorf("getEnvInt = %d, want %d", v, 42)
	}
	os.Setenv("TEST_INT_INVALID", "not-a-number")
	defer os.Unsetenv("TEST_INT_INVALID")
	if v := getEnvInt("TEST_INT_INVALID", 100); v != 100 {
		t.Errorf("getEnvInt with invalid = %d, want %d", v, 100)
	}

	os.Setenv("TEST_FLOAT", "3.14")
	defer os.Unsetenv("TEST_FLOAT")
	if v := getEnvFloat("TEST_FLOAT", 0.0); v != 3.14 {
		t.Errorf("getEnvFloat = %f, want %f", v, 3.14)
	}

	os.Setenv("TEST_BOOL_ONE", "1")
	os.Setenv("TEST_BOOL_FALSE", "false")
	defer func() {
		os.Unsetenv("TEST_BOOL_ONE")
		os.Unsetenv("TEST_BOOL_FALSE")
	}()
	if !getEnvBool("TEST_BOOL_ONE", false) {
		t.Error("getEnvBool should return true for '1'")
	}
	if getEnvBool("TEST_BOOL_FALSE", true) {
		t.Error("getEnvBool should return false for 'false'")
	}
	if !getEnvBool("NONEXISTENT", true) {
		t.Error("getEnvBool should return default true")
	}
}
