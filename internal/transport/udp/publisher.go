// SPDX-License-Identifier: MIT

// Package udp streams reports as compact binary datagrams.
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"solstice/internal/log"
	"solstice/internal/transport"
)

// HeaderSize is the fixed prefix of every packet.
const HeaderSize = 4 + 8 + 2

// MaxValues is the largest value count a packet can carry.
const MaxValues = math.MaxUint16

var ErrTooManyValues = errors.New("too many values for one packet")

/*
Packet layout (BigEndian):

|<-- 4 -->|<---- 8 ---->|<-- 2 -->|<---- N * 4 ---->|
+---------+-------------+---------+-----------------+
|   Seq   |  Timestamp  |  Count  |     Values      |
| uint32  |   int64 ns  | uint16  |  N * float32    |
+---------+-------------+---------+-----------------+

Spectrogram reports carry the column. Peak reports carry two values:
frequency then magnitude.
*/

// Packet is a decoded datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Values    []float32
}

// Publisher is a transport.Transport that sends one packet per report.
type Publisher struct {
	sender *Sender
	now    func() time.Time

	mu       sync.Mutex
	seq      uint32
	f32      []float32
	packet   *bytes.Buffer
	closeErr error
	once     sync.Once
}

var _ transport.Transport = (*Publisher)(nil)

// NewPublisher creates a publisher writing through sender.
func NewPublisher(sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	return &Publisher{
		sender: sender,
		now:    time.Now,
		packet: new(bytes.Buffer),
	}, nil
}

// Dial is NewSender followed by NewPublisher.
func Dial(targetAddress string) (*Publisher, error) {
	s, err := NewSender(targetAddress)
	if err != nil {
		return nil, err
	}
	return NewPublisher(s)
}

// Send encodes r and transmits it.
func (p *Publisher) Send(r transport.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.f32 = p.f32[:0]
	if r.Peak != nil {
		p.f32 = append(p.f32, float32(r.Peak.Frequency), float32(r.Peak.Magnitude))
	} else {
		for _, v := range r.Values {
			p.f32 = append(p.f32, float32(v))
		}
	}
	if len(p.f32) > MaxValues {
		return fmt.Errorf("UDPPublisher: %d values: %w", len(p.f32), ErrTooManyValues)
	}

	p.seq++
	if err := encode(p.packet, p.seq, p.now().UnixNano(), p.f32); err != nil {
		return fmt.Errorf("UDPPublisher: packing packet %d: %w", p.seq, err)
	}
	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		return err
	}
	log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.seq, p.packet.Len())
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		p.closeErr = p.sender.Close()
	})
	return p.closeErr
}

func encode(buf *bytes.Buffer, seq uint32, ts int64, values []float32) error {
	buf.Reset()
	err := binary.Write(buf, binary.BigEndian, seq)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, ts)
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(len(values)))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, values)
	}
	return err
}

// Decode parses a datagram produced by Publisher.
func Decode(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, fmt.Errorf("packet too short: %d bytes", len(b))
	}
	pkt := Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) != HeaderSize+4*n {
		return Packet{}, fmt.Errorf("packet length %d does not match count %d", len(b), n)
	}
	pkt.Values = make([]float32, n)
	for i := 0; i < n; i++ {
		off := HeaderSize + 4*i
		pkt.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return pkt, nil
}
