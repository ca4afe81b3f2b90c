// SPDX-License-Identifier: MIT
package peak

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRestrictedHalf(t *testing.T) {
	spectrum := []float64{1, 5, 3, 5, 2}
	half := PositiveHalf(spectrum)
	require.Equal(t, []float64{1, 5}, half)

	p, err := Find(half, 44100, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Bin)
	assert.InDelta(t, 4410.0, p.Frequency, 1e-9)
	assert.Equal(t, 5.0, p.Magnitude)
}

func TestFindTieGoesToLowestBin(t *testing.T) {
	p, err := Find([]float64{1, 5, 3, 5, 2}, 44100, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Bin)
}

func TestFindEmpty(t *testing.T) {
	_, err := Find(nil, 44100, 0)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Find([]float64{}, 44100, 10)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = FindComplex([]complex128{3}, 44100)
	assert.ErrorIs(t, err, ErrEmptyInput, "a one-point transform has no positive half")
}

func TestTruncatedComparison(t *testing.T) {
	spectrum := []float64{2.1, 2.9, 1.0}

	exact, err := Find(spectrum, 8000, 6)
	require.NoError(t, err)
	assert.Equal(t, 1, exact.Bin)

	legacy, err := Find(spectrum, 8000, 6, WithTruncatedMagnitudes())
	require.NoError(t, err)
	assert.Equal(t, 0, legacy.Bin, "2.1 and 2.9 truncate to the same key")
	assert.Equal(t, 2.1, legacy.Magnitude)
}

func TestFindComplex(t *testing.T) {
	coeffs := []complex128{1, 3i, complex(0, 7), 2, 2, complex(0, -7), -3i, 1}
	p, err := FindComplex(coeffs, 8000)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Bin)
	assert.InDelta(t, 2000.0, p.Frequency, 1e-9)
	assert.InDelta(t, 7.0, p.Magnitude, 1e-12)
}

func TestFrequency(t *testing.T) {
	assert.Equal(t, 0.0, Frequency(5, 44100, 0))
	assert.InDelta(t, 43.06640625, Frequency(1, 44100, 1024), 1e-9)
	assert.False(t, math.IsNaN(Frequency(0, 44100, -1)))
}
