// SPDX-License-Identifier: MIT

// Package source supplies mono sample streams to the analyzer: decoded WAV
// files, synthetic tones and in-memory slices.
package source

import (
	"errors"
	"io"
)

// Source is a finite or open-ended stream of mono samples.
type Source interface {
	// Read fills dst with up to len(dst) samples and returns how many were
	// written. It returns io.EOF once the stream is exhausted and no
	// samples were read.
	Read(dst []float64) (int, error)
	// SampleRate returns the sampling rate of the stream in Hz.
	SampleRate() float64
	// Close releases the underlying resources.
	Close() error
}

// Sized is implemented by sources that know their total length up front.
type Sized interface {
	Frames() int64
}

// ReadAll drains src into memory. chunk is the read size; values below 1
// default to 4096.
func ReadAll(src Source, chunk int) ([]float64, error) {
	if chunk < 1 {
		chunk = 4096
	}
	var out []float64
	if sized, ok := src.(Sized); ok && sized.Frames() > 0 {
		out = make([]float64, 0, sized.Frames())
	}

	buf := make([]float64, chunk)
	for {
		n, err := src.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// SliceSource serves samples from memory.
type SliceSource struct {
	samples    []float64
	sampleRate float64
	pos        int
}

var _ Source = (*SliceSource)(nil)

// NewSlice returns a source over samples. The slice is not copied.
func NewSlice(samples []float64, sampleRate float64) *SliceSource {
	return &SliceSource{samples: samples, sampleRate: sampleRate}
}

func (s *SliceSource) Read(dst []float64) (int, error) {
	if s.pos >= len(s.samples) {
		return 0, io.EOF
	}
	n := copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, nil
}

func (s *SliceSource) SampleRate() float64 { return s.sampleRate }

func (s *SliceSource) Frames() int64 { return int64(len(s.samples)) }

func (s *SliceSource) Close() error { return nil }
