// SPDX-License-Identifier: MIT

// Package window builds the tapering coefficients applied to each frame
// before it is transformed.
package window

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// Func selects a window function.
type Func int

const (
	Hann Func = iota
	Hamming
	Blackman
	BlackmanNuttall
	BartlettHann
	Nuttall
	Lanczos
	Rectangular
)

var names = map[Func]string{
	Hann:            "hann",
	Hamming:         "hamming",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	BartlettHann:    "bartletthann",
	Nuttall:         "nuttall",
	Lanczos:         "lanczos",
	Rectangular:     "rectangular",
}

// String returns the canonical lower-case name of the window.
func (f Func) String() string {
	if name, ok := names[f]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(f))
}

// Parse converts a window name (case-insensitive) to a Func. Unknown names
// return Hann together with an error.
func Parse(name string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall", "blackman-nuttall":
		return BlackmanNuttall, nil
	case "bartletthann", "bartlett-hann":
		return BartlettHann, nil
	case "nuttall":
		return Nuttall, nil
	case "lanczos":
		return Lanczos, nil
	case "rectangular", "rect", "none":
		return Rectangular, nil
	default:
		return Hann, fmt.Errorf("unknown window function %q", name)
	}
}

// Coefficients returns the n coefficients of the window. The gonum window
// functions scale a sequence in place, so they are applied to a vector of
// ones. A one-sample window is always [1].
func Coefficients(fn Func, n int) []float64 {
	if n <= 0 {
		return nil
	}
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1
	}
	if n == 1 {
		return coeffs
	}

	switch fn {
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Rectangular:
		// All ones.
	default:
		window.Hann(coeffs)
	}
	return coeffs
}

// Apply writes frame[i]*coeffs[i] into dst and returns dst. All three
// slices must have the same length.
func Apply(dst, frame, coeffs []float64) []float64 {
	for i, c := range coeffs {
		dst[i] = frame[i] * c
	}
	return dst
}
