// SPDX-License-Identifier: MIT
package source

import (
	"fmt"
	"io"
	"math"
)

// Tone defaults.
const (
	DefaultToneFrequency  = 440.0 // A4
	DefaultToneAmplitude  = 0.9   // Fraction of full scale
	DefaultToneSampleRate = 44100
	DefaultToneBitDepth   = 16
)

// ToneConfig describes a synthetic sine wave. Samples are produced in the
// integer range of BitDepth, matching what the WAV source yields for a
// file of that depth.
type ToneConfig struct {
	Frequency  float64 // Hz
	Amplitude  float64 // 0..1 of full scale
	SampleRate float64 // Hz
	BitDepth   int     // Scale of the produced values
	Samples    int     // Length of the stream
}

// ToneSource generates a sine wave on demand.
type ToneSource struct {
	cfg   ToneConfig
	scale float64
	pos   int
}

var _ Source = (*ToneSource)(nil)

// NewTone returns a tone source. Zero fields take the defaults above.
func NewTone(cfg ToneConfig) (*ToneSource, error) {
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultToneFrequency
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = DefaultToneAmplitude
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultToneSampleRate
	}
	if cfg.BitDepth == 0 {
		cfg.BitDepth = DefaultToneBitDepth
	}

	if cfg.Frequency < 0 || cfg.SampleRate < 0 {
		return nil, fmt.Errorf("tone frequency and sample rate must be positive")
	}
	if cfg.Amplitude < 0 || cfg.Amplitude > 1 {
		return nil, fmt.Errorf("tone amplitude must be within 0..1, got %f", cfg.Amplitude)
	}
	if cfg.Samples < 0 {
		return nil, fmt.Errorf("tone length must not be negative, got %d", cfg.Samples)
	}
	if cfg.BitDepth < 2 || cfg.BitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", cfg.BitDepth)
	}

	return &ToneSource{
		cfg:   cfg,
		scale: cfg.Amplitude * FullScale(cfg.BitDepth),
	}, nil
}

func (t *ToneSource) Read(dst []float64) (int, error) {
	remaining := t.cfg.Samples - t.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	n := min(len(dst), remaining)
	for i := 0; i < n; i++ {
		tm := float64(t.pos+i) / t.cfg.SampleRate
		dst[i] = math.Round(math.Sin(2*math.Pi*t.cfg.Frequency*tm) * t.scale)
	}
	t.pos += n
	return n, nil
}

func (t *ToneSource) SampleRate() float64 { return t.cfg.SampleRate }

func (t *ToneSource) Frames() int64 { return int64(t.cfg.Samples) }

func (t *ToneSource) Close() error { return nil }

// FullScale returns the largest positive sample value of a signed integer
// PCM format with the given bit depth.
func FullScale(bitDepth int) float64 {
	return float64(int64(1)<<(bitDepth-1) - 1)
}
