// SPDX-License-Identifier: MIT

// Package fft wraps the FFT libraries behind a single plan interface: build
// a Kernel once for a frame length N, then transform any number of
// N-point complex vectors with it.
package fft

import (
	"fmt"
	"strings"

	"solstice/internal/log"
	"solstice/pkg/bitint"

	godsp "github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Kernel computes an N-point complex discrete Fourier transform.
// Implementations are reusable but not safe for concurrent use.
type Kernel interface {
	// Size returns N, the only input length the kernel accepts.
	Size() int
	// Transform writes the DFT of src into dst and returns dst. If dst is
	// nil a new slice is allocated. src must have length N and is not
	// modified.
	Transform(dst, src []complex128) []complex128
}

// Name identifies an FFT backend.
type Name string

const (
	Gonum Name = "gonum"
	GoDSP Name = "godsp"
)

// ParseName converts a backend name (case-insensitive) to a Name.
func ParseName(s string) (Name, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gonum":
		return Gonum, nil
	case "godsp", "go-dsp":
		return GoDSP, nil
	default:
		return Gonum, fmt.Errorf("unknown fft kernel %q", s)
	}
}

// New builds a kernel of the named backend for n-point transforms.
func New(name Name, n int) (Kernel, error) {
	if n < 1 {
		return nil, fmt.Errorf("fft size must be positive, got %d", n)
	}
	if !bitint.IsPowerOfTwo(n) {
		log.Debugf("FFT: size %d is not a power of two (nearest fast size: %d)", n, FastSize(n))
	}

	switch name {
	case Gonum, "":
		return NewGonum(n), nil
	case GoDSP:
		return NewGoDSP(n), nil
	default:
		return nil, fmt.Errorf("unknown fft kernel %q", name)
	}
}

// GonumKernel uses gonum's mixed-radix complex FFT. The plan holds the
// twiddle factors for n, so it is built once and reused.
type GonumKernel struct {
	n    int
	plan *fourier.CmplxFFT
}

var _ Kernel = (*GonumKernel)(nil)

// NewGonum returns a gonum backed kernel for n-point transforms.
func NewGonum(n int) *GonumKernel {
	return &GonumKernel{n: n, plan: fourier.NewCmplxFFT(n)}
}

func (k *GonumKernel) Size() int { return k.n }

func (k *GonumKernel) Transform(dst, src []complex128) []complex128 {
	if len(src) != k.n {
		panic(fmt.Sprintf("fft: input length %d does not match kernel size %d", len(src), k.n))
	}
	return k.plan.Coefficients(dst, src)
}

// GoDSPKernel uses mjibson/go-dsp. go-dsp caches its own factors per size,
// so the kernel only remembers n.
type GoDSPKernel struct {
	n int
}

var _ Kernel = (*GoDSPKernel)(nil)

// NewGoDSP returns a go-dsp backed kernel for n-point transforms.
func NewGoDSP(n int) *GoDSPKernel {
	return &GoDSPKernel{n: n}
}

func (k *GoDSPKernel) Size() int { return k.n }

func (k *GoDSPKernel) Transform(dst, src []complex128) []complex128 {
	if len(src) != k.n {
		panic(fmt.Sprintf("fft: input length %d does not match kernel size %d", len(src), k.n))
	}
	out := godsp.FFT(src)
	if dst == nil {
		return out
	}
	copy(dst, out)
	return dst
}

// FastSize returns the power of two nearest to n, rounding ties up.
func FastSize(n int) int {
	next, prev := bitint.NextPowerOfTwo(n), bitint.PrevPowerOfTwo(n)
	if prev > 0 && n-prev < next-n {
		return prev
	}
	return next
}
