package encoder

import (
	"encoding/binary"
	"sync"
)

// Blocker cuts a stream of little-endian PCM bytes, as delivered by capture
// callbacks of arbitrary size, into BlockSize frames for an Encoder.
type Blocker struct {
	enc      Encoder
	channels int

	mu      sync.Mutex
	pending []int16
	odd     []byte
	err     error
}

func NewBlocker(enc Encoder, channels uint32) *Blocker {
	return &Blocker{enc: enc, channels: int(max(channels, 1))}
}

// Write never fails on its own; the first encoder error is kept and
// returned from every later call and from Flush.
func (b *Blocker) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}

	data := p
	if len(b.odd) > 0 {
		data = append(b.odd, p...)
		b.odd = nil
	}
	for i := 0; i+1 < len(data); i += 2 {
		b.pending = append(b.pending, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	if len(data)%2 == 1 {
		b.odd = []byte{data[len(data)-1]}
	}

	blockSamples := BlockSize * b.channels
	for len(b.pending) >= blockSamples {
		if err := b.enc.EncodeBlock(b.pending[:blockSamples]); err != nil {
			b.err = err
			return 0, err
		}
		b.pending = b.pending[blockSamples:]
	}
	return len(p), nil
}

// Flush encodes whatever whole frames remain as a final short block.
func (b *Blocker) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	whole := len(b.pending) - len(b.pending)%b.channels
	if whole > 0 {
		if err := b.enc.EncodeBlock(b.pending[:whole]); err != nil {
			b.err = err
			return err
		}
	}
	b.pending = nil
	b.odd = nil
	return nil
}
