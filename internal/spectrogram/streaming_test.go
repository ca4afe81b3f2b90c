// SPDX-License-Identifier: MIT
package spectrogram

import (
	"fmt"
	"math"
	"testing"

	"solstice/internal/fft"
	"solstice/internal/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 44100

func sine(n int, freq float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / testSampleRate)
	}
	return out
}

func newTestStreaming(t *testing.T, cfg Config) *Streaming {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestFullFrameAfterWindowSizeSamples(t *testing.T) {
	sizes := []struct{ window, step int }{
		{1, 1}, {2, 1}, {7, 3}, {64, 64}, {256, 128}, {1024, 1},
	}
	for _, sz := range sizes {
		t.Run(fmt.Sprintf("w%d_s%d", sz.window, sz.step), func(t *testing.T) {
			s := newTestStreaming(t, Config{WindowSize: sz.window, StepSize: sz.step})

			s.AppendSamples(make([]float64, sz.window-1))
			assert.False(t, s.HasFullFrame())

			s.AppendSamples([]float64{0})
			require.True(t, s.HasFullFrame())

			col, err := s.ComputeColumn()
			require.NoError(t, err)
			assert.Len(t, col.Values, sz.window/2)
		})
	}
}

func TestColumnLengthIsHalfWindow(t *testing.T) {
	for _, w := range []int{2, 3, 8, 9, 100, 1023, 1024} {
		s := newTestStreaming(t, Config{WindowSize: w})
		s.AppendSamples(sine(w, 1000))
		col, err := s.ComputeColumn()
		require.NoError(t, err)
		assert.Len(t, col.Values, w/2, "window %d", w)
		assert.Equal(t, w/2, s.Bins())
	}
}

func TestComputeColumnIsReadOnly(t *testing.T) {
	s := newTestStreaming(t, Config{WindowSize: 512, StepSize: 256})
	s.AppendSamples(sine(700, 440))

	first, err := s.ComputeColumn()
	require.NoError(t, err)
	second, err := s.ComputeColumn()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 700, s.Buffered())
}

func TestPreconditionErrors(t *testing.T) {
	s := newTestStreaming(t, Config{WindowSize: 16})
	s.AppendSamples(make([]float64, 15))

	_, err := s.ComputeColumn()
	assert.ErrorIs(t, err, ErrIncompleteFrame)
	assert.ErrorIs(t, s.Advance(), ErrIncompleteFrame)

	_, ok := s.Next()
	assert.False(t, ok)
	assert.Equal(t, 15, s.Buffered(), "failed calls must not consume samples")
}

func TestAdvanceWithoutComputeSkipsColumn(t *testing.T) {
	s := newTestStreaming(t, Config{WindowSize: 4, StepSize: 2})
	s.AppendSamples([]float64{1, 2, 3, 4, 5, 6, 7, 8})

	require.NoError(t, s.Advance())
	col, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, 1, col.Index)
	assert.Equal(t, int64(2), col.Offset)
}

func TestStepSizeControlsOverlap(t *testing.T) {
	tests := []struct {
		name        string
		window      int
		step        int
		total       int
		wantOffsets []int64
	}{
		{"overlap", 4, 2, 10, []int64{0, 2, 4, 6}},
		{"disjoint", 4, 4, 10, []int64{0, 4}},
		{"gap", 4, 6, 20, []int64{0, 6, 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStreaming(t, Config{WindowSize: tt.window, StepSize: tt.step, Scale: Linear, Window: window.Rectangular})

			var offsets []int64
			for i := 0; i < tt.total; i++ {
				s.AppendSamples([]float64{float64(i)})
				for {
					col, ok := s.Next()
					if !ok {
						break
					}
					offsets = append(offsets, col.Offset)
					// Bin 0 of a rectangular frame is the sum of its samples.
					start := float64(col.Offset)
					w := float64(tt.window)
					wantDC := w*start + w*(w-1)/2
					assert.InDelta(t, wantDC, col.Values[0], 1e-9)
				}
			}
			assert.Equal(t, tt.wantOffsets, offsets)
		})
	}
}

func collect(t *testing.T, cfg Config, signal []float64, chunk int) []Column {
	t.Helper()
	s := newTestStreaming(t, cfg)
	var cols []Column
	for start := 0; start < len(signal); start += chunk {
		end := min(start+chunk, len(signal))
		s.AppendSamples(signal[start:end])
		_, err := s.Drain(func(c Column) error {
			cols = append(cols, c)
			return nil
		})
		require.NoError(t, err)
	}
	return cols
}

func TestStreamingEquivalence(t *testing.T) {
	signal := sine(5000, 1234)
	for i := range signal {
		signal[i] += 0.25 * math.Sin(float64(i)*0.37)
	}

	configs := []Config{
		{WindowSize: 256, StepSize: 128},
		{WindowSize: 100, StepSize: 100, Scale: Linear},
		{WindowSize: 64, StepSize: 90, Window: window.Hamming},
		{WindowSize: 128, StepSize: 32, Kernel: fft.GoDSP},
	}
	for _, cfg := range configs {
		t.Run(fmt.Sprintf("w%d_s%d", cfg.WindowSize, cfg.StepSize), func(t *testing.T) {
			whole := collect(t, cfg, signal, len(signal))
			single := collect(t, cfg, signal, 1)
			odd := collect(t, cfg, signal, 37)

			require.NotEmpty(t, whole)
			assert.Equal(t, whole, single)
			assert.Equal(t, whole, odd)
		})
	}
}

func TestSinePeakBin(t *testing.T) {
	const n = 1024
	// Exactly on bin 40.
	freq := 40 * float64(testSampleRate) / n
	s := newTestStreaming(t, Config{WindowSize: n})
	s.AppendSamples(sine(n, freq))

	col, ok := s.Next()
	require.True(t, ok)

	best := 0
	for i, v := range col.Values {
		if v > col.Values[best] {
			best = i
		}
	}
	assert.Equal(t, 40, best)
}

func TestSilenceHitsLogFloor(t *testing.T) {
	s := newTestStreaming(t, Config{WindowSize: 32})
	s.AppendSamples(make([]float64, 32))
	col, ok := s.Next()
	require.True(t, ok)
	for _, v := range col.Values {
		assert.Equal(t, math.Log10(LogFloor), v)
	}
}

func TestOnesFrameYieldsWindowSum(t *testing.T) {
	// A frame of ones is windowed into the coefficients themselves, so the
	// DC bin carries their sum.
	const n = 64
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	for _, fn := range []window.Func{window.Rectangular, window.Hann, window.BlackmanNuttall} {
		t.Run(fn.String(), func(t *testing.T) {
			s := newTestStreaming(t, Config{WindowSize: n, Window: fn, Scale: Linear})
			s.AppendSamples(ones)
			col, ok := s.Next()
			require.True(t, ok)

			var sum float64
			for _, c := range window.Coefficients(fn, n) {
				sum += c
			}
			assert.InDelta(t, sum, col.Values[0], 1e-9)
		})
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{WindowSize: 0})
	assert.Error(t, err)
	_, err = New(Config{WindowSize: 8, StepSize: -1})
	assert.Error(t, err)
	_, err = New(Config{WindowSize: 8, Kernel: "fftw"})
	assert.Error(t, err)

	s, err := New(Config{WindowSize: 8})
	require.NoError(t, err)
	assert.Equal(t, 8, s.StepSize(), "zero step defaults to window size")
}

func TestParseScale(t *testing.T) {
	sc, err := ParseScale("linear")
	require.NoError(t, err)
	assert.Equal(t, Linear, sc)

	sc, err = ParseScale("")
	require.NoError(t, err)
	assert.Equal(t, Log, sc)

	_, err = ParseScale("db")
	assert.Error(t, err)
}

func BenchmarkNext(b *testing.B) {
	s, _ := New(Config{WindowSize: 1024, StepSize: 512})
	chunk := sine(512, 440)
	s.AppendSamples(chunk)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.AppendSamples(chunk)
		s.Next()
	}
}
