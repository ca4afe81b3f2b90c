// SPDX-License-Identifier: MIT
package transport

import (
	"solstice/internal/log"
)

// LoggingTransport writes a one-line summary of each report to the debug log.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debug("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the report. It never fails.
func (lt *LoggingTransport) Send(r Report) error {
	if r.Peak != nil {
		log.Debugf("Transport: column %d @ %.3fs peak %.2f Hz (bin %d)", r.Index, r.Time, r.Peak.Frequency, r.Peak.Bin)
		return nil
	}
	log.Debugf("Transport: column %d @ %.3fs (%d bins)", r.Index, r.Time, len(r.Values))
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
