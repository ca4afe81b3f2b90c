// SPDX-License-Identifier: MIT
package spectrogram

// SampleBuffer is a FIFO of samples: appended at the back, discarded from
// the front. Discarded samples are gone for good.
//
// Discarding more samples than are buffered is legal. The shortfall is
// carried over and taken from the next appended samples, so a hop larger
// than the frame skips exactly the requested number of samples.
type SampleBuffer struct {
	data    []float64
	head    int   // index of the first live sample in data
	pending int   // samples still to drop from future appends
	dropped int64 // total samples discarded so far
}

// Append adds samples to the back of the buffer.
func (b *SampleBuffer) Append(chunk []float64) {
	if b.pending > 0 {
		skip := min(b.pending, len(chunk))
		chunk = chunk[skip:]
		b.pending -= skip
		b.dropped += int64(skip)
	}
	if len(chunk) == 0 {
		return
	}
	b.compact(len(chunk))
	b.data = append(b.data, chunk...)
}

// Len returns the number of buffered samples.
func (b *SampleBuffer) Len() int {
	return len(b.data) - b.head
}

// Front returns the first n buffered samples without removing them. The
// returned slice aliases the buffer and is only valid until the next
// Append or Discard. Front panics if fewer than n samples are buffered.
func (b *SampleBuffer) Front(n int) []float64 {
	if n > b.Len() {
		panic("spectrogram: Front past end of buffer")
	}
	return b.data[b.head : b.head+n]
}

// Discard removes n samples from the front.
func (b *SampleBuffer) Discard(n int) {
	if n <= 0 {
		return
	}
	live := b.Len()
	if n > live {
		b.pending += n - live
		n = live
	}
	b.head += n
	b.dropped += int64(n)
	if b.head == len(b.data) {
		b.data = b.data[:0]
		b.head = 0
	}
}

// Offset returns the stream position of the first buffered sample, i.e. the
// number of samples discarded so far.
func (b *SampleBuffer) Offset() int64 {
	return b.dropped
}

// compact slides live samples to the start of the backing array when the
// consumed prefix is at least as large as the live region and the append
// would otherwise grow the array.
func (b *SampleBuffer) compact(incoming int) {
	if b.head == 0 || len(b.data)+incoming <= cap(b.data) {
		return
	}
	if b.head < b.Len() {
		return
	}
	n := copy(b.data, b.data[b.head:])
	b.data = b.data[:n]
	b.head = 0
}
