// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"solstice/internal/analysis"
	"solstice/internal/fft"
	"solstice/internal/log"
	"solstice/internal/spectrogram"
	"solstice/internal/transport"
	"solstice/internal/window"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "solstice.yaml"

// DotEnvFile is loaded into the environment, if present, before overrides
// are applied. Variables already set take precedence.
const DotEnvFile = ".env"

// Sample rate and buffer limits for live capture.
const (
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
)

// Config represents the application configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Shorthand for log_level: debug.
	LogLevel  string          `yaml:"log_level"` // debug, info, warn, error or fatal.
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Output    OutputConfig    `yaml:"output"`
	Transport TransportConfig `yaml:"transport"`
	Audio     AudioConfig     `yaml:"audio"`
}

// AnalysisConfig holds the spectrogram and peak settings.
type AnalysisConfig struct {
	Mode       string `yaml:"mode"`        // spectrogram or peak.
	WindowSize int    `yaml:"window_size"` // Frame length; 0 analyses the whole input (peak mode).
	StepSize   int    `yaml:"step_size"`   // Hop between frames; 0 means window_size.
	Window     string `yaml:"window"`      // Window function name, e.g. "hann".
	Scale      string `yaml:"scale"`       // log or linear.
	Kernel     string `yaml:"kernel"`      // FFT backend: gonum or godsp.
	ChunkSize  int    `yaml:"chunk_size"`  // Samples read per step.
	LegacyPeak bool   `yaml:"legacy_peak"` // Truncate magnitudes before comparing peaks.
	Normalize  bool   `yaml:"normalize"`   // Scale WAV samples to [-1, 1).
}

// OutputConfig controls how reports are printed.
type OutputConfig struct {
	Format    string `yaml:"format"`    // text or json.
	Precision int    `yaml:"precision"` // Decimals per value in text format; -1 for shortest.
}

// TransportConfig holds the network sinks. Empty addresses disable them.
type TransportConfig struct {
	WebSocketAddress string `yaml:"ws_address"`         // host:port to serve /spectrogram on.
	UDPTargetAddress string `yaml:"udp_target_address"` // host:port to send packets to.
}

// AudioConfig holds live capture settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low latency.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels; the first is analysed.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Analysis: AnalysisConfig{
			Mode:       string(analysis.ModeSpectrogram),
			WindowSize: 1024,
			StepSize:   512,
			Window:     window.Hann.String(),
			Scale:      spectrogram.Log.String(),
			Kernel:     string(fft.Gonum),
			ChunkSize:  analysis.DefaultChunkSize,
		},
		Output: OutputConfig{
			Format:    string(transport.FormatText),
			Precision: 4,
		},
		Audio: AudioConfig{
			InputDevice:     -1,
			SampleRate:      44100,
			FramesPerBuffer: 512,
			InputChannels:   1,
		},
	}
}

// LoadConfig loads configuration from the YAML file at path. If path is
// empty, DefaultFile is used when it exists and the built-in defaults
// otherwise. Environment overrides are applied last. The result is not
// validated: callers layer their own overrides on top and then call
// Validate.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		log.Debugf("Config: Loaded %s", path)
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return &cfg, nil
}

// EnvDebug reports whether ENV_DEBUG holds a true value.
func EnvDebug() bool {
	b, err := strconv.ParseBool(os.Getenv("ENV_DEBUG"))
	return err == nil && b
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		log.Debugf("Config: Loaded environment from %s", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if _, err := c.AnalysisOptions(); err != nil {
		return err
	}
	if _, err := transport.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if c.Output.Precision < -1 {
		return fmt.Errorf("output.precision must be -1 or more, got %d", c.Output.Precision)
	}

	for name, addr := range map[string]string{
		"transport.ws_address":         c.Transport.WebSocketAddress,
		"transport.udp_target_address": c.Transport.UDPTargetAddress,
	} {
		if addr != "" && !strings.Contains(addr, ":") {
			return fmt.Errorf("%s '%s' appears invalid (missing port?)", name, addr)
		}
	}

	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be within %d..%d, got %.0f", MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.FramesPerBuffer < 1 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be within 1..%d, got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if c.Audio.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be positive, got %d", c.Audio.InputChannels)
	}
	return nil
}

// Level returns the effective log level. Debug forces LevelDebug.
func (c *Config) Level() log.Level {
	if c.Debug {
		return log.LevelDebug
	}
	lvl, _ := log.ParseLevel(c.LogLevel)
	return lvl
}

// AnalysisOptions converts the analysis section into analyzer options.
func (c *Config) AnalysisOptions() (analysis.Options, error) {
	a := c.Analysis
	mode, err := analysis.ParseMode(a.Mode)
	if err != nil {
		return analysis.Options{}, err
	}
	fn, err := window.Parse(a.Window)
	if err != nil {
		return analysis.Options{}, err
	}
	scale, err := spectrogram.ParseScale(a.Scale)
	if err != nil {
		return analysis.Options{}, err
	}
	kernel, err := fft.ParseName(a.Kernel)
	if err != nil {
		return analysis.Options{}, err
	}

	opts := analysis.Options{
		Mode:       mode,
		WindowSize: a.WindowSize,
		StepSize:   a.StepSize,
		Window:     fn,
		Scale:      scale,
		Kernel:     kernel,
		ChunkSize:  a.ChunkSize,
		LegacyPeak: a.LegacyPeak,
	}
	if _, err := analysis.New(opts); err != nil {
		return analysis.Options{}, err
	}
	return opts, nil
}

// applyEnvOverrides replaces values with ENV_* variables when they are set
// and parse. Unparsable values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
			log.Debugf("Config: Overriding debug from env: %v", b)
		} else {
			log.Warnf("Config: Ignoring ENV_DEBUG=%q: %v", val, err)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Debugf("Config: Overriding log_level from env: %s", val)
	}

	// ENV_{...} analysis overrides.

	// ENV_MODE
	if val, ok := os.LookupEnv("ENV_MODE"); ok {
		c.Analysis.Mode = val
		log.Debugf("Config: Overriding analysis.mode from env: %s", val)
	}
	// ENV_WINDOW_SIZE
	if val, ok := os.LookupEnv("ENV_WINDOW_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Analysis.WindowSize = n
			log.Debugf("Config: Overriding analysis.window_size from env: %d", n)
		} else {
			log.Warnf("Config: Ignoring ENV_WINDOW_SIZE=%q: %v", val, err)
		}
	}
	// ENV_STEP_SIZE
	if val, ok := os.LookupEnv("ENV_STEP_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			c.Analysis.StepSize = n
			log.Debugf("Config: Overriding analysis.step_size from env: %d", n)
		} else {
			log.Warnf("Config: Ignoring ENV_STEP_SIZE=%q: %v", val, err)
		}
	}

	// ENV_{...} transport overrides.

	// ENV_WS_ADDR
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		c.Transport.WebSocketAddress = val
		log.Debugf("Config: Overriding transport.ws_address from env: %s", val)
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
		log.Debugf("Config: Overriding transport.udp_target_address from env: %s", val)
	}
}
