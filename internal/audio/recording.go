// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder writes mono int32 buffers to a 32-bit WAV file. It is safe to
// Close while another goroutine writes.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
	frames  int
}

// NewRecorder creates the file at path.
func NewRecorder(path string, sampleRate int) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, 32, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 32,
		},
	}, nil
}

// Write appends samples. Writing after Close fails.
func (r *Recorder) Write(samples []int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return fmt.Errorf("recorder is closed")
	}

	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]
	for i, s := range samples {
		r.buf.Data[i] = int(s)
	}
	if err := r.encoder.Write(r.buf); err != nil {
		return err
	}
	r.frames += len(samples)
	return nil
}

// Frames returns the number of samples written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the WAV header and closes the file. Repeated calls are
// no-ops.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return nil
	}

	err := r.encoder.Close()
	r.encoder = nil
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
