// SPDX-License-Identifier: MIT
package audio

import "math"

// Gate is a noise gate over raw int32 capture buffers. A buffer passes
// when its peak amplitude exceeds the threshold.
type Gate struct {
	threshold int32 // Absolute amplitude (0-2147483647)
}

// NewGate creates a gate. ratio is in the range 0.0-1.0 where 0 is always
// open and 1 is always closed; values outside are clamped.
func NewGate(ratio float64) *Gate {
	g := &Gate{}
	g.SetThreshold(ratio)
	return g
}

// SetThreshold adjusts the threshold, see NewGate.
func (g *Gate) SetThreshold(ratio float64) {
	ratio = max(0.0, min(ratio, 1.0))
	g.threshold = int32(ratio * float64(math.MaxInt32))
}

// Threshold returns the threshold as a ratio of full scale.
func (g *Gate) Threshold() float64 {
	return float64(g.threshold) / float64(math.MaxInt32)
}

// Open reports whether buffer is loud enough to pass. A nil gate is
// always open.
func (g *Gate) Open(buffer []int32) bool {
	if g == nil {
		return true
	}
	return PeakAmplitude(buffer) > g.threshold
}

// PeakAmplitude returns the largest absolute sample value. It runs in the
// capture callback, so it neither branches per sample nor allocates.
// math.MinInt32 saturates to math.MaxInt32.
func PeakAmplitude(buffer []int32) int32 {
	var maxAmplitude int32
	for _, sample := range buffer {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		amplitude ^= amplitude >> 31 // MinInt32 stays negative after abs
		diff := amplitude - maxAmplitude
		maxAmplitude += diff &^ (diff >> 31)
	}
	return maxAmplitude
}
