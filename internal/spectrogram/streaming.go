// SPDX-License-Identifier: MIT

/*
Package spectrogram implements a streaming short-time Fourier transform.

A Streaming value keeps a sliding window over an open-ended sample stream.
Callers append samples in chunks of any size and drain columns while a
full frame is buffered:

	s.AppendSamples(chunk)
	for {
		col, ok := s.Next()
		if !ok {
			break
		}
		emit(col)
	}

Each column is the windowed FFT of the first WindowSize buffered samples,
reduced to the positive-frequency half (WindowSize/2 bins; for odd sizes
the bin straddling Nyquist is dropped). After a column the buffer moves
forward by StepSize samples, so consecutive frames overlap when StepSize <
WindowSize, touch when equal and skip samples when larger.

The chunking of the input never changes the sequence of columns.

A Streaming value is owned by a single goroutine. It holds no locks and
performs no I/O.
*/
package spectrogram

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"solstice/internal/fft"
	"solstice/internal/window"
)

// ErrIncompleteFrame is returned by ComputeColumn and Advance when fewer
// than WindowSize samples are buffered.
var ErrIncompleteFrame = errors.New("spectrogram: fewer than window size samples buffered")

// Scale selects how bin magnitudes are reported.
type Scale int

const (
	// Log reports log10 of the magnitude, floored at LogFloor.
	Log Scale = iota
	// Linear reports the raw magnitude.
	Linear
)

// LogFloor is the smallest magnitude passed to log10, so silent bins map to
// -12 instead of -Inf.
const LogFloor = 1e-12

func (s Scale) String() string {
	if s == Linear {
		return "linear"
	}
	return "log"
}

// ParseScale converts "log" or "linear" to a Scale.
func ParseScale(name string) (Scale, error) {
	switch name {
	case "log", "log10", "":
		return Log, nil
	case "linear", "lin":
		return Linear, nil
	default:
		return Log, fmt.Errorf("unknown magnitude scale %q", name)
	}
}

// Config holds the fixed parameters of a Streaming spectrogram.
type Config struct {
	WindowSize int         // Frame length in samples; also the FFT size.
	StepSize   int         // Samples discarded per Advance. Zero means WindowSize.
	Window     window.Func // Tapering applied to each frame.
	Scale      Scale       // Log (default) or Linear magnitudes.
	Kernel     fft.Name    // FFT backend; empty means gonum.
}

// Column is one spectrogram column.
type Column struct {
	Index  int       // Position of the frame in the stream, starting at 0.
	Offset int64     // Stream index of the first sample of the frame.
	Values []float64 // WindowSize/2 magnitudes, lowest frequency first.
}

// Streaming is a sliding-window STFT over an appended sample stream.
type Streaming struct {
	windowSize int
	stepSize   int
	scale      Scale
	coeffs     []float64
	kernel     fft.Kernel
	buf        SampleBuffer
	index      int

	// Per-frame scratch space, reused by every ComputeColumn.
	windowed []float64
	frame    []complex128
	spectra  []complex128
}

// New creates a Streaming spectrogram. The window coefficients and FFT plan
// are built once here.
func New(cfg Config) (*Streaming, error) {
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("window size must be positive, got %d", cfg.WindowSize)
	}
	if cfg.StepSize == 0 {
		cfg.StepSize = cfg.WindowSize
	}
	if cfg.StepSize < 1 {
		return nil, fmt.Errorf("step size must be positive, got %d", cfg.StepSize)
	}

	kernel, err := fft.New(cfg.Kernel, cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	return &Streaming{
		windowSize: cfg.WindowSize,
		stepSize:   cfg.StepSize,
		scale:      cfg.Scale,
		coeffs:     window.Coefficients(cfg.Window, cfg.WindowSize),
		kernel:     kernel,
		windowed:   make([]float64, cfg.WindowSize),
		frame:      make([]complex128, cfg.WindowSize),
		spectra:    make([]complex128, cfg.WindowSize),
	}, nil
}

// WindowSize returns the frame length.
func (s *Streaming) WindowSize() int { return s.windowSize }

// StepSize returns the hop between frames.
func (s *Streaming) StepSize() int { return s.stepSize }

// Bins returns the length of every column, WindowSize/2.
func (s *Streaming) Bins() int { return s.windowSize / 2 }

// Buffered returns the number of samples waiting in the buffer.
func (s *Streaming) Buffered() int { return s.buf.Len() }

// AppendSamples adds a chunk of any length to the end of the stream.
func (s *Streaming) AppendSamples(chunk []float64) {
	s.buf.Append(chunk)
}

// HasFullFrame reports whether a frame can be computed.
func (s *Streaming) HasFullFrame() bool {
	return s.buf.Len() >= s.windowSize
}

// ComputeColumn transforms the current frame without consuming it, so
// repeated calls return the same values until Advance is called.
func (s *Streaming) ComputeColumn() (Column, error) {
	if !s.HasFullFrame() {
		return Column{}, ErrIncompleteFrame
	}

	windowed := window.Apply(s.windowed, s.buf.Front(s.windowSize), s.coeffs)
	for i, x := range windowed {
		s.frame[i] = complex(x, 0)
	}
	s.kernel.Transform(s.spectra, s.frame)

	// The input is real, so the upper half mirrors the lower half.
	values := make([]float64, s.Bins())
	for i := range values {
		mag := cmplx.Abs(s.spectra[i])
		if s.scale == Log {
			mag = math.Log10(math.Max(mag, LogFloor))
		}
		values[i] = mag
	}

	return Column{
		Index:  s.index,
		Offset: s.buf.Offset(),
		Values: values,
	}, nil
}

// Advance discards StepSize samples from the front of the buffer. Calling
// Advance without ComputeColumn skips that frame's column; the index of
// the next column still counts the skipped frame.
func (s *Streaming) Advance() error {
	if !s.HasFullFrame() {
		return ErrIncompleteFrame
	}
	s.buf.Discard(s.stepSize)
	s.index++
	return nil
}

// Next computes the current column and advances past it. It returns false
// when no full frame is buffered.
func (s *Streaming) Next() (Column, bool) {
	col, err := s.ComputeColumn()
	if err != nil {
		return Column{}, false
	}
	// Cannot fail: ComputeColumn just saw a full frame.
	_ = s.Advance()
	return col, true
}

// Drain calls emit for every column currently available and returns the
// number of columns emitted. It stops at the first emit error.
func (s *Streaming) Drain(emit func(Column) error) (int, error) {
	n := 0
	for {
		col, ok := s.Next()
		if !ok {
			return n, nil
		}
		if err := emit(col); err != nil {
			return n, err
		}
		n++
	}
}
