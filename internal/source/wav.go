// SPDX-License-Identifier: MIT
package source

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"solstice/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mdobak/go-xerrors"
)

// OpenError reports a WAV file that is missing, unreadable or not WAV.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open WAV file %q: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ErrInvalidWAV is wrapped by OpenError when the file is not a RIFF/WAVE
// file the decoder understands.
var ErrInvalidWAV = errors.New("invalid WAV file")

// WAVOptions configures OpenWAV.
type WAVOptions struct {
	// Normalize scales samples into [-1, 1). By default samples keep their
	// integer PCM values.
	Normalize bool
}

// WAVSource streams the first channel of a PCM WAV file.
type WAVSource struct {
	file     *os.File
	decoder  *wav.Decoder
	channels int
	bitDepth int
	frames   int64
	scale    float64
	buf      *audio.IntBuffer
}

var _ Source = (*WAVSource)(nil)
var _ Sized = (*WAVSource)(nil)

// OpenWAV opens path and positions the decoder at the PCM data. Errors are
// *OpenError values carrying a stack trace.
func OpenWAV(path string, opts WAVOptions) (*WAVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, xerrors.New(&OpenError{Path: path, Err: err})
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, xerrors.New(&OpenError{Path: path, Err: ErrInvalidWAV})
	}
	if err := decoder.FwdToPCM(); err != nil {
		file.Close()
		return nil, xerrors.New(&OpenError{Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidWAV, err)})
	}

	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)
	if channels < 1 || bitDepth < 8 || decoder.SampleRate == 0 {
		file.Close()
		return nil, xerrors.New(&OpenError{Path: path, Err: fmt.Errorf("%w: %d channels, %d bits, %d Hz",
			ErrInvalidWAV, channels, bitDepth, decoder.SampleRate)})
	}
	if bitDepth != 16 {
		log.Warnf("WAV: %s is %d-bit PCM, expected 16-bit", path, bitDepth)
	}
	if channels > 1 {
		log.Warnf("WAV: %s has %d channels, analysing the first", path, channels)
	}

	s := &WAVSource{
		file:     file,
		decoder:  decoder,
		channels: channels,
		bitDepth: bitDepth,
		frames:   decoder.PCMLen() / int64(channels*bitDepth/8),
		scale:    1,
	}
	if opts.Normalize {
		s.scale = 1 / math.Ldexp(1, bitDepth-1)
	}

	log.Debugf("WAV: opened %s (%d Hz, %d-bit, %d ch, %d frames)",
		path, decoder.SampleRate, bitDepth, channels, s.frames)
	return s, nil
}

// Read decodes up to len(dst) frames and writes the first channel of each.
func (s *WAVSource) Read(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	want := len(dst) * s.channels
	if s.buf == nil || cap(s.buf.Data) < want {
		s.buf = &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: s.channels,
				SampleRate:  int(s.decoder.SampleRate),
			},
			Data:           make([]int, want),
			SourceBitDepth: s.bitDepth,
		}
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, xerrors.New(fmt.Errorf("failed to decode PCM data: %w", err))
	}

	frames := n / s.channels
	for i := 0; i < frames; i++ {
		dst[i] = float64(s.buf.Data[i*s.channels]) * s.scale
	}
	if frames == 0 {
		return 0, io.EOF
	}
	return frames, nil
}

func (s *WAVSource) SampleRate() float64 { return float64(s.decoder.SampleRate) }

// Frames returns the number of sample frames in the data chunk.
func (s *WAVSource) Frames() int64 { return s.frames }

// BitDepth returns the PCM sample size in bits.
func (s *WAVSource) BitDepth() int { return s.bitDepth }

// Channels returns the channel count of the file.
func (s *WAVSource) Channels() int { return s.channels }

func (s *WAVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// WriteWAV writes mono samples as a PCM WAV file. Samples are rounded and
// clamped to the integer range of bitDepth.
func WriteWAV(path string, samples []float64, sampleRate, bitDepth int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	encoder := wav.NewEncoder(file, sampleRate, bitDepth, 1, 1)

	limit := FullScale(bitDepth)
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Max(-limit-1, math.Min(limit, math.Round(v))))
	}
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := encoder.Write(buf); err != nil {
		file.Close()
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := encoder.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return file.Close()
}
