// SPDX-License-Identifier: MIT

// Package analysis drives a sample source through the streaming
// spectrogram and delivers one report per column to a transport.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"solstice/internal/fft"
	"solstice/internal/log"
	"solstice/internal/peak"
	"solstice/internal/source"
	"solstice/internal/spectrogram"
	"solstice/internal/transport"
	"solstice/internal/window"
)

// Mode selects what each report carries.
type Mode string

const (
	// ModeSpectrogram reports every column.
	ModeSpectrogram Mode = "spectrogram"
	// ModePeak reports the dominant frequency of every column.
	ModePeak Mode = "peak"
)

// ParseMode converts "spectrogram" or "peak" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSpectrogram:
		return ModeSpectrogram, nil
	case ModePeak:
		return ModePeak, nil
	default:
		return ModeSpectrogram, fmt.Errorf("unknown analysis mode %q", s)
	}
}

// DefaultChunkSize is the read size used when Options.ChunkSize is not set.
const DefaultChunkSize = 4096

// ErrNoResult is returned when the input holds too few samples to produce
// a single report. It wraps peak.ErrEmptyInput.
var ErrNoResult = fmt.Errorf("no result: %w", peak.ErrEmptyInput)

// Options configures an Analyzer.
type Options struct {
	Mode       Mode
	WindowSize int // Zero analyses the whole input as one frame.
	StepSize   int // Zero means WindowSize.
	Window     window.Func
	Scale      spectrogram.Scale
	Kernel     fft.Name
	ChunkSize  int
	LegacyPeak bool // Compare peak magnitudes truncated to integers.
}

// Summary describes a finished run.
type Summary struct {
	Samples    int64
	Columns    int
	SampleRate float64
	Last       *peak.Peak // Dominant bin of the final column.
}

// Analyzer runs sources through a spectrogram.
type Analyzer struct {
	opts Options
}

// New validates opts and returns an Analyzer.
func New(opts Options) (*Analyzer, error) {
	if opts.Mode == "" {
		opts.Mode = ModeSpectrogram
	}
	if opts.Mode != ModeSpectrogram && opts.Mode != ModePeak {
		return nil, fmt.Errorf("unknown analysis mode %q", opts.Mode)
	}
	if opts.WindowSize < 0 {
		return nil, fmt.Errorf("window size must not be negative, got %d", opts.WindowSize)
	}
	if opts.StepSize < 0 {
		return nil, fmt.Errorf("step size must not be negative, got %d", opts.StepSize)
	}
	if opts.WindowSize == 0 && opts.Mode != ModePeak {
		return nil, errors.New("whole-signal analysis (window size 0) requires peak mode")
	}
	if opts.WindowSize == 1 && opts.Mode == ModePeak {
		return nil, errors.New("peak mode needs a window size of at least 2 samples")
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultChunkSize
	}
	if _, err := fft.ParseName(string(opts.Kernel)); err != nil {
		return nil, err
	}
	return &Analyzer{opts: opts}, nil
}

// Options returns the effective options.
func (a *Analyzer) Options() Options { return a.opts }

// Run reads src until io.EOF or until ctx is done and sends one report per
// column to sink. The sink is not closed.
func (a *Analyzer) Run(ctx context.Context, src source.Source, sink transport.Transport) (Summary, error) {
	if a.opts.WindowSize == 0 {
		return a.runWhole(ctx, src, sink)
	}

	sr := src.SampleRate()
	sum := Summary{SampleRate: sr}

	s, err := spectrogram.New(spectrogram.Config{
		WindowSize: a.opts.WindowSize,
		StepSize:   a.opts.StepSize,
		Window:     a.opts.Window,
		Scale:      a.opts.Scale,
		Kernel:     a.opts.Kernel,
	})
	if err != nil {
		return sum, fmt.Errorf("creating spectrogram: %w", err)
	}
	log.Infof("Analysis: %s mode, window %d (%s), step %d, %d bins at %.0f Hz",
		a.opts.Mode, s.WindowSize(), a.opts.Window, s.StepSize(), s.Bins(), sr)

	emit := func(col spectrogram.Column) error {
		r, p, err := a.report(col, sr, s.WindowSize(), a.opts.Scale)
		if err != nil {
			return err
		}
		if err := sink.Send(r); err != nil {
			return err
		}
		sum.Columns++
		if p != nil {
			sum.Last = p
		}
		return nil
	}

	chunk := make([]float64, a.opts.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		n, rerr := src.Read(chunk)
		if n > 0 {
			sum.Samples += int64(n)
			s.AppendSamples(chunk[:n])
			if _, err := s.Drain(emit); err != nil {
				return sum, fmt.Errorf("sending column %d: %w", sum.Columns, err)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return sum, fmt.Errorf("reading samples: %w", rerr)
		}
	}

	log.Debugf("Analysis: %d samples, %d columns, %d samples left in buffer",
		sum.Samples, sum.Columns, s.Buffered())
	return sum, nil
}

// runWhole analyses the entire input as a single unwindowed frame.
func (a *Analyzer) runWhole(ctx context.Context, src source.Source, sink transport.Transport) (Summary, error) {
	sr := src.SampleRate()
	sum := Summary{SampleRate: sr}

	if sized, ok := src.(source.Sized); ok {
		log.Infof("Collecting %d samples...", sized.Frames())
	}
	samples, err := source.ReadAll(src, a.opts.ChunkSize)
	if err != nil {
		return sum, fmt.Errorf("reading samples: %w", err)
	}
	sum.Samples = int64(len(samples))
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if len(samples) == 0 {
		return sum, ErrNoResult
	}

	s, err := spectrogram.New(spectrogram.Config{
		WindowSize: len(samples),
		Window:     window.Rectangular,
		Scale:      spectrogram.Linear,
		Kernel:     a.opts.Kernel,
	})
	if err != nil {
		return sum, fmt.Errorf("creating spectrogram: %w", err)
	}
	s.AppendSamples(samples)

	log.Info("Performing FFT...")
	col, ok := s.Next()
	if !ok {
		return sum, ErrNoResult
	}

	log.Info("Searching for max spectrum...")
	r, p, err := a.report(col, sr, len(samples), spectrogram.Linear)
	if err != nil {
		return sum, err
	}
	log.Info("...Done")

	sum.Columns = 1
	sum.Last = p
	return sum, sink.Send(r)
}

// report converts a column into the report for the configured mode. scale
// is the scale of col.Values.
func (a *Analyzer) report(col spectrogram.Column, sampleRate float64, n int, scale spectrogram.Scale) (transport.Report, *peak.Peak, error) {
	r := transport.Report{
		Mode:   string(a.opts.Mode),
		Index:  col.Index,
		Offset: col.Offset,
	}
	if sampleRate > 0 {
		r.Time = float64(col.Offset) / sampleRate
	}

	var opts []peak.Option
	mags := col.Values
	if a.opts.LegacyPeak {
		opts = append(opts, peak.WithTruncatedMagnitudes())
		// Truncation keys on linear magnitudes.
		if scale == spectrogram.Log {
			mags = make([]float64, len(col.Values))
			for i, v := range col.Values {
				mags[i] = math.Pow(10, v)
			}
		}
	}
	p, err := peak.Find(mags, sampleRate, n, opts...)
	if err == nil {
		p.Magnitude = col.Values[p.Bin]
	}

	if a.opts.Mode == ModeSpectrogram {
		r.Values = col.Values
		if err != nil {
			return r, nil, nil
		}
		return r, &p, nil
	}

	if errors.Is(err, peak.ErrEmptyInput) {
		return r, nil, ErrNoResult
	}
	if err != nil {
		return r, nil, err
	}
	r.Peak = &transport.Peak{Bin: p.Bin, Frequency: p.Frequency, Magnitude: p.Magnitude}
	return r, &p, nil
}
