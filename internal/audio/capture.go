// SPDX-License-Identifier: MIT

/*
Package audio captures live input through PortAudio and exposes it as a
sample source.

The PortAudio callback runs on a dedicated OS thread. It keeps the first
channel of every buffer, passes it through an optional noise gate and an
optional WAV recorder, and hands a float copy to the reader over a
buffered channel. When the reader falls behind, buffers are dropped and
counted rather than blocking the callback.
*/
package audio

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"solstice/internal/log"
	"solstice/internal/source"

	"github.com/gordonklaus/portaudio"
)

// captureQueue is the number of callback buffers waiting for the reader.
const captureQueue = 64

// CaptureConfig configures a DeviceSource.
type CaptureConfig struct {
	DeviceID        int     // PortAudio device index, DefaultDeviceID for the system default.
	SampleRate      float64 // Hz.
	FramesPerBuffer int     // Frames per callback.
	Channels        int     // Captured channels; only the first is analysed.
	LowLatency      bool    // Use the device's low input latency.
	GateThreshold   float64 // 0 disables the noise gate; see NewGate.
}

// DeviceSource is a source.Source reading from an input device. Samples
// are normalized to [-1, 1). Buffers rejected by the gate are delivered as
// silence so stream offsets stay aligned with wall time.
type DeviceSource struct {
	sampleRate float64
	channels   int
	gate       *Gate
	stream     *portaudio.Stream

	mono     []int32 // Callback scratch, first channel only.
	frames   chan []float64
	pending  []float64
	dropped  atomic.Int64
	recorder atomic.Pointer[Recorder]

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

var _ source.Source = (*DeviceSource)(nil)

// NewDeviceSource opens and starts an input stream. PortAudio must be
// initialized.
func NewDeviceSource(cfg CaptureConfig) (*DeviceSource, error) {
	device, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	channels := max(1, min(cfg.Channels, device.MaxInputChannels))
	if channels != cfg.Channels {
		log.Warnf("Audio: %s supports %d input channels, capturing %d", device.Name, device.MaxInputChannels, channels)
	}

	d := newDeviceSource(cfg.SampleRate, channels, cfg.FramesPerBuffer)
	if cfg.GateThreshold > 0 {
		d.gate = NewGate(cfg.GateThreshold)
	}

	latency := device.DefaultHighInputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: cfg.FramesPerBuffer,
		SampleRate:      cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, d.process)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %s: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start input stream on %s: %w", device.Name, err)
	}
	d.stream = stream

	log.Infof("Audio: Capturing %s (%d ch, %.0f Hz, %d frames, latency %s)",
		device.Name, channels, cfg.SampleRate, cfg.FramesPerBuffer, latency.Round(time.Microsecond))
	return d, nil
}

func newDeviceSource(sampleRate float64, channels, framesPerBuffer int) *DeviceSource {
	return &DeviceSource{
		sampleRate: sampleRate,
		channels:   max(1, channels),
		mono:       make([]int32, 0, framesPerBuffer),
		frames:     make(chan []float64, captureQueue),
		done:       make(chan struct{}),
	}
}

// process is the PortAudio callback.
func (d *DeviceSource) process(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	mono := d.mono[:0]
	for i := 0; i < len(in); i += d.channels {
		mono = append(mono, in[i])
	}
	d.mono = mono

	if rec := d.recorder.Load(); rec != nil {
		if err := rec.Write(mono); err != nil {
			log.Errorf("Audio: Error writing recording: %v", err)
		}
	}

	out := make([]float64, len(mono))
	if d.gate.Open(mono) {
		for i, v := range mono {
			out[i] = float64(v) / (1 << 31)
		}
	}

	select {
	case d.frames <- out:
	default:
		if n := d.dropped.Add(1); n == 1 || n%100 == 0 {
			log.Warnf("Audio: Reader is behind, %d buffers dropped", n)
		}
	}
}

// Read blocks until captured samples are available. It returns io.EOF once
// the source is closed.
func (d *DeviceSource) Read(dst []float64) (int, error) {
	if len(d.pending) == 0 {
		select {
		case buf := <-d.frames:
			d.pending = buf
		case <-d.done:
			return 0, io.EOF
		}
	}
	n := copy(dst, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *DeviceSource) SampleRate() float64 { return d.sampleRate }

// Dropped returns the number of buffers discarded because the reader was
// behind.
func (d *DeviceSource) Dropped() int64 { return d.dropped.Load() }

// StartRecording writes the first channel of every captured buffer to a
// 32-bit WAV file at path until StopRecording or Close.
func (d *DeviceSource) StartRecording(path string) error {
	rec, err := NewRecorder(path, int(d.sampleRate))
	if err != nil {
		return err
	}
	if !d.recorder.CompareAndSwap(nil, rec) {
		rec.Close()
		return fmt.Errorf("already recording")
	}
	log.Infof("Audio: Recording to %s", path)
	return nil
}

// StopRecording finishes the current recording, if any.
func (d *DeviceSource) StopRecording() error {
	rec := d.recorder.Swap(nil)
	if rec == nil {
		return nil
	}
	return rec.Close()
}

// Close stops the stream, finishes any recording and unblocks Read.
func (d *DeviceSource) Close() error {
	d.closeOnce.Do(func() {
		close(d.done)
		if d.stream != nil {
			if err := d.stream.Stop(); err != nil {
				d.closeErr = err
			}
			if err := d.stream.Close(); err != nil && d.closeErr == nil {
				d.closeErr = err
			}
		}
		if err := d.StopRecording(); err != nil && d.closeErr == nil {
			d.closeErr = err
		}
		if n := d.dropped.Load(); n > 0 {
			log.Warnf("Audio: %d buffers were dropped during capture", n)
		}
	})
	return d.closeErr
}
