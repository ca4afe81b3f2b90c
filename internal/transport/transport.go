// SPDX-License-Identifier: MIT

// Package transport delivers analysis reports to their consumers: stdout,
// the log, websocket clients or a UDP listener.
package transport

import (
	"errors"
)

// Peak describes the strongest bin of a column.
type Peak struct {
	Bin       int     `json:"bin"`
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// Report is one analysis result, emitted per spectrogram column.
type Report struct {
	Mode   string    `json:"mode"`             // "spectrogram" or "peak"
	Index  int       `json:"index"`            // Column index in emission order
	Offset int64     `json:"offset"`           // First sample of the frame
	Time   float64   `json:"time"`             // Offset in seconds
	Values []float64 `json:"values,omitempty"` // Column magnitudes (spectrogram mode)
	Peak   *Peak     `json:"peak,omitempty"`   // Dominant bin (peak mode)
}

// Transport defines a sink for reports.
type Transport interface {
	Send(r Report) error
	Close() error
}

// Multi fans reports out to several transports.
type Multi []Transport

var _ Transport = Multi(nil)

// Send delivers r to every transport and joins their errors.
func (m Multi) Send(r Report) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
