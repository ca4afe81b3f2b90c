// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"solstice/internal/analysis"
	"solstice/internal/log"
	"solstice/internal/spectrogram"
	"solstice/internal/window"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "solstice.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Analysis.WindowSize != 1024 || cfg.Analysis.StepSize != 512 {
		t.Errorf("default window/step = %d/%d, want 1024/512", cfg.Analysis.WindowSize, cfg.Analysis.StepSize)
	}
	if cfg.Analysis.Mode != "spectrogram" {
		t.Errorf("default mode = %q, want spectrogram", cfg.Analysis.Mode)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("expected unmarshal error, got %v", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeTempConfig(t, `
log_level: warn
analysis:
  mode: peak
  window_size: 2048
  step_size: 256
  window: blackman
  scale: linear
  kernel: godsp
output:
  format: json
transport:
  udp_target_address: 127.0.0.1:9999
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Level() != log.LevelWarn {
		t.Errorf("Level() = %v, want WARN", cfg.Level())
	}
	if cfg.Transport.UDPTargetAddress != "127.0.0.1:9999" {
		t.Errorf("udp_target_address = %q", cfg.Transport.UDPTargetAddress)
	}
	// Unset fields keep their defaults.
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("audio.sample_rate = %v, want default 44100", cfg.Audio.SampleRate)
	}

	opts, err := cfg.AnalysisOptions()
	if err != nil {
		t.Fatalf("AnalysisOptions() error = %v", err)
	}
	if opts.Mode != analysis.ModePeak || opts.WindowSize != 2048 || opts.StepSize != 256 {
		t.Errorf("options = %+v", opts)
	}
	if opts.Window != window.Blackman || opts.Scale != spectrogram.Linear || opts.Kernel != "godsp" {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEBUG", "true")
	t.Setenv("ENV_MODE", "peak")
	t.Setenv("ENV_WINDOW_SIZE", "0")
	t.Setenv("ENV_STEP_SIZE", "not-a-number")
	t.Setenv("ENV_WS_ADDR", "localhost:8080")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "127.0.0.1:9090")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Level() != log.LevelDebug {
		t.Errorf("Level() = %v, want DEBUG", cfg.Level())
	}
	if cfg.Analysis.Mode != "peak" || cfg.Analysis.WindowSize != 0 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Analysis.StepSize != 512 {
		t.Errorf("unparsable ENV_STEP_SIZE changed step_size to %d", cfg.Analysis.StepSize)
	}
	if cfg.Transport.WebSocketAddress != "localhost:8080" || cfg.Transport.UDPTargetAddress != "127.0.0.1:9090" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
}

func TestLoadConfig_LeavesValidationToCaller(t *testing.T) {
	// Window size 0 is only valid in peak mode, which a later override
	// may still select.
	t.Setenv("ENV_WINDOW_SIZE", "0")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted window size 0 in spectrogram mode")
	}

	cfg.Analysis.Mode = "peak"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestEnvDebug(t *testing.T) {
	tests := []struct {
		val  string
		want bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"yes please", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Setenv("ENV_DEBUG", tt.val)
		if got := EnvDebug(); got != tt.want {
			t.Errorf("EnvDebug() with %q = %v, want %v", tt.val, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"bad mode", func(c *Config) { c.Analysis.Mode = "bands" }, true},
		{"bad window", func(c *Config) { c.Analysis.Window = "kaiser" }, true},
		{"bad scale", func(c *Config) { c.Analysis.Scale = "db" }, true},
		{"bad kernel", func(c *Config) { c.Analysis.Kernel = "fftw" }, true},
		{"negative window", func(c *Config) { c.Analysis.WindowSize = -4 }, true},
		{"whole signal spectrogram", func(c *Config) { c.Analysis.WindowSize = 0 }, true},
		{"whole signal peak", func(c *Config) { c.Analysis.Mode = "peak"; c.Analysis.WindowSize = 0 }, false},
		{"bad format", func(c *Config) { c.Output.Format = "csv" }, true},
		{"bad precision", func(c *Config) { c.Output.Precision = -2 }, true},
		{"udp without port", func(c *Config) { c.Transport.UDPTargetAddress = "localhost" }, true},
		{"ws without port", func(c *Config) { c.Transport.WebSocketAddress = "localhost" }, true},
		{"low sample rate", func(c *Config) { c.Audio.SampleRate = 100 }, true},
		{"huge buffer", func(c *Config) { c.Audio.FramesPerBuffer = MaxBufferFrames + 1 }, true},
		{"no channels", func(c *Config) { c.Audio.InputChannels = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ENV_SOLSTICE_TEST_VALUE=42\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_SOLSTICE_TEST_VALUE", "")
	os.Unsetenv("ENV_SOLSTICE_TEST_VALUE")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv() error = %v", err)
	}
	if got := os.Getenv("ENV_SOLSTICE_TEST_VALUE"); got != "42" {
		t.Errorf("ENV_SOLSTICE_TEST_VALUE = %q, want 42", got)
	}

	if err := loadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}
