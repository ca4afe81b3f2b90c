// SPDX-License-Identifier: MIT
package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format selects how TextTransport renders reports.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat converts "text" or "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown output format %q", s)
	}
}

// TextTransport prints reports, one per line. In text format a peak report
// prints its frequency and a spectrogram report prints its column as
// [v0, v1, ...] with the configured number of decimals.
type TextTransport struct {
	w         *bufio.Writer
	format    Format
	precision int
	enc       *json.Encoder
}

var _ Transport = (*TextTransport)(nil)

// NewTextTransport writes to w. A negative precision prints the shortest
// exact representation of each value.
func NewTextTransport(w io.Writer, format Format, precision int) *TextTransport {
	bw := bufio.NewWriter(w)
	return &TextTransport{
		w:         bw,
		format:    format,
		precision: precision,
		enc:       json.NewEncoder(bw),
	}
}

func (t *TextTransport) Send(r Report) error {
	if t.format == FormatJSON {
		return t.enc.Encode(r)
	}

	if r.Peak != nil {
		_, err := fmt.Fprintln(t.w, strconv.FormatFloat(r.Peak.Frequency, 'f', -1, 64))
		return err
	}

	t.w.WriteByte('[')
	for i, v := range r.Values {
		if i > 0 {
			t.w.WriteString(", ")
		}
		t.w.WriteString(strconv.FormatFloat(v, 'f', t.precision, 64))
	}
	_, err := t.w.WriteString("]\n")
	return err
}

// Close flushes buffered output. The underlying writer is left open.
func (t *TextTransport) Close() error {
	return t.w.Flush()
}
