// SPDX-License-Identifier: MIT

// Package utils holds helpers shared by tests: synthetic signals and a
// transport that records what it is sent.
package utils

import (
	"errors"
	"math"

	"solstice/internal/transport"
)

// ErrMockTransportFull is returned by MockTransport once FailAfter reports
// have been accepted.
var ErrMockTransportFull = errors.New("mock transport full")

// MockTransport implements transport.Transport for testing.
type MockTransport struct {
	Reports   []transport.Report
	FailAfter int // Reject sends once this many were accepted; 0 never rejects.
	Closed    bool
}

var _ transport.Transport = (*MockTransport)(nil)

// Send stores a copy of the report for later inspection.
func (m *MockTransport) Send(r transport.Report) error {
	if m.FailAfter > 0 && len(m.Reports) >= m.FailAfter {
		return ErrMockTransportFull
	}
	if r.Values != nil {
		r.Values = append([]float64(nil), r.Values...)
	}
	m.Reports = append(m.Reports, r)
	return nil
}

func (m *MockTransport) Close() error {
	m.Closed = true
	return nil
}

// GenerateComplexWave returns a 440 Hz fundamental with its second and
// third harmonics, peaking below 0.9 of full scale.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = signal * 0.9
	}
	return buffer
}

// GenerateSineWave returns a sine at frequency with amplitude 0.9.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}
