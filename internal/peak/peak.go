// SPDX-License-Identifier: MIT

// Package peak locates the dominant frequency bin of a magnitude spectrum.
package peak

import (
	"errors"
	"math"
	"math/cmplx"
)

// ErrEmptyInput is returned when there is no bin to search.
var ErrEmptyInput = errors.New("peak: empty spectrum")

// Peak is the strongest bin of a spectrum.
type Peak struct {
	Bin       int     // Index of the bin, 0 is DC.
	Frequency float64 // Bin * sampleRate / numSamples, in Hz.
	Magnitude float64 // Value of the bin as given.
}

type options struct {
	truncate bool
}

// Option configures Find.
type Option func(*options)

// WithTruncatedMagnitudes compares bins by their magnitude truncated toward
// zero, reproducing the integer comparison key of the first version of the
// tool. Bins whose magnitudes differ only in the fractional part compare
// equal, so the lowest of them wins.
func WithTruncatedMagnitudes() Option {
	return func(o *options) { o.truncate = true }
}

// Find returns the bin with the largest magnitude. spectrum must already be
// restricted to the positive frequencies. numSamples is the length of the
// transform that produced it. Ties go to the lowest bin.
func Find(spectrum []float64, sampleRate float64, numSamples int, opts ...Option) (Peak, error) {
	if len(spectrum) == 0 {
		return Peak{}, ErrEmptyInput
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	key := func(v float64) float64 { return v }
	if o.truncate {
		key = math.Trunc
	}

	best := 0
	bestKey := key(spectrum[0])
	for i := 1; i < len(spectrum); i++ {
		if k := key(spectrum[i]); k > bestKey {
			best, bestKey = i, k
		}
	}

	return Peak{
		Bin:       best,
		Frequency: Frequency(best, sampleRate, numSamples),
		Magnitude: spectrum[best],
	}, nil
}

// FindComplex searches a raw, full-length FFT output. Only the first half is
// considered since the transform of a real signal mirrors it.
func FindComplex(coeffs []complex128, sampleRate float64, opts ...Option) (Peak, error) {
	half := coeffs[:len(coeffs)/2]
	mags := make([]float64, len(half))
	for i, c := range half {
		mags[i] = cmplx.Abs(c)
	}
	return Find(mags, sampleRate, len(coeffs), opts...)
}

// PositiveHalf returns the first len(spectrum)/2 values of a full-length
// spectrum. The result aliases spectrum.
func PositiveHalf(spectrum []float64) []float64 {
	return spectrum[:len(spectrum)/2]
}

// Frequency converts a bin index into Hz. It returns 0 when numSamples is
// not positive.
func Frequency(bin int, sampleRate float64, numSamples int) float64 {
	if numSamples <= 0 {
		return 0
	}
	return float64(bin) * (sampleRate / float64(numSamples))
}
